package config

import (
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/friendsofgo/errors"
)

// Config is the top-level configuration for the realtime service.
type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Redis     RedisConfig
	WebSocket WebSocketConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Ingest    IngestConfig
}

// ServerConfig is the configuration for the HTTP/WebSocket server.
type ServerConfig struct {
	Host string `env:"RT_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"RT_PORT" envDefault:"8082"`
	Mode string `env:"RT_MODE" envDefault:"release"`
}

// LoggerConfig is the configuration for the logger.
type LoggerConfig struct {
	Level        string `env:"LOGGER_LEVEL" envDefault:"info"`
	Mode         string `env:"LOGGER_MODE" envDefault:"production"`
	Encoding     string `env:"LOGGER_ENCODING" envDefault:"json"`
	ColorEnabled bool   `env:"LOGGER_COLOR_ENABLED" envDefault:"false"`
}

// RedisConfig is the configuration for the Redis connection used by the
// ingest subscriber. Only standalone mode is supported.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	UseTLS   bool   `env:"REDIS_USE_TLS" envDefault:"false"`

	MaxRetries      int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	MinIdleConns    int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"10"`
	PoolSize        int           `env:"REDIS_POOL_SIZE" envDefault:"100"`
	PoolTimeout     time.Duration `env:"REDIS_POOL_TIMEOUT" envDefault:"4s"`
	ConnMaxIdleTime time.Duration `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// WebSocketConfig is the configuration for WebSocket connections.
type WebSocketConfig struct {
	PingInterval    time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	PongWait        time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	WriteWait       time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	MaxMessageSize  int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"1024"`
	ReadBufferSize  int           `env:"WS_READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize int           `env:"WS_WRITE_BUFFER_SIZE" envDefault:"1024"`
	SendBufferSize  int           `env:"WS_SEND_BUFFER_SIZE" envDefault:"256"`
	MaxConnections  int           `env:"WS_MAX_CONNECTIONS" envDefault:"10000"`
}

// JWTConfig is the configuration for session token verification.
type JWTConfig struct {
	SecretKey string `env:"JWT_SECRET_KEY"`
	Issuer    string `env:"JWT_ISSUER" envDefault:"pixelgram"`
}

// AuthConfig is the configuration for the authentication gate.
type AuthConfig struct {
	CookieName     string        `env:"AUTH_COOKIE_NAME" envDefault:"pixelgram_session"`
	VerifyCacheTTL time.Duration `env:"AUTH_VERIFY_CACHE_TTL" envDefault:"1m"`
}

// IngestConfig is the configuration for the Redis event ingest bridge.
type IngestConfig struct {
	ChannelPattern string        `env:"INGEST_CHANNEL_PATTERN" envDefault:"rt:*"`
	MaxRetries     int           `env:"INGEST_MAX_RETRIES" envDefault:"10"`
	RetryDelay     time.Duration `env:"INGEST_RETRY_DELAY" envDefault:"5s"`
}

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	return cfg, nil
}
