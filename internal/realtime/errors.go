package realtime

import "github.com/friendsofgo/errors"

var (
	// ErrInvalidEvent indicates an event with no name or empty payload.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidClientMessage indicates an inbound frame that could not be
	// mapped to a known action.
	ErrInvalidClientMessage = errors.New("invalid client message")

	// ErrConnectionLimit indicates the hub refused an admit because the
	// connection cap was reached.
	ErrConnectionLimit = errors.New("connection limit reached")
)
