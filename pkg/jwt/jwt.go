package jwt

import (
	"github.com/friendsofgo/errors"
	"github.com/golang-jwt/jwt/v5"
)

// Config holds JWT verification configuration.
type Config struct {
	SecretKey string
	Issuer    string
}

// Claims represents the claims carried by a pixelgram session token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 session tokens issued by the account service.
type Verifier struct {
	secretKey []byte
	issuer    string
}

// NewVerifier creates a new Verifier with the given configuration.
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{
		secretKey: []byte(cfg.SecretKey),
		issuer:    cfg.Issuer,
	}
}

// Verify parses and validates a token string and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	return claims, nil
}

// ExtractUserID validates a token and returns the user id it was issued to.
func (v *Verifier) ExtractUserID(tokenString string) (string, error) {
	claims, err := v.Verify(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
