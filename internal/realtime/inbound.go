package realtime

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/friendsofgo/errors"
)

// ClientAction identifies an inbound frame from an admitted connection.
type ClientAction string

const (
	ActionJoinRoom    ClientAction = "join-room"
	ActionLeaveRoom   ClientAction = "leave-room"
	ActionTypingStart ClientAction = "typing-start"
	ActionTypingStop  ClientAction = "typing-stop"
)

// Room id validation constants.
const (
	MinRoomIDLength = 1
	MaxRoomIDLength = 100
)

// roomIDPattern matches valid room ids, e.g. "post:42" or "conv:a1b2".
var roomIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)

// ClientMessage is the wire shape of an inbound frame.
type ClientMessage struct {
	Action ClientAction `json:"action"`
	Room   string       `json:"room"`
}

// RoomValidationError reports a malformed room id.
type RoomValidationError struct {
	Room    string
	Message string
}

func (e *RoomValidationError) Error() string {
	return fmt.Sprintf("invalid room %q: %s", e.Room, e.Message)
}

// ValidateRoomID validates a room id against format and length constraints.
func ValidateRoomID(roomID string) error {
	if len(roomID) < MinRoomIDLength || len(roomID) > MaxRoomIDLength {
		return &RoomValidationError{
			Room:    roomID,
			Message: fmt.Sprintf("must be %d-%d characters", MinRoomIDLength, MaxRoomIDLength),
		}
	}
	if !roomIDPattern.MatchString(roomID) {
		return &RoomValidationError{
			Room:    roomID,
			Message: "only alphanumeric, underscore, colon, and hyphen allowed",
		}
	}
	return nil
}

// ParseClientMessage decodes and validates an inbound frame.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(ErrInvalidClientMessage, err.Error())
	}

	switch msg.Action {
	case ActionJoinRoom, ActionLeaveRoom, ActionTypingStart, ActionTypingStop:
	default:
		return nil, errors.Wrapf(ErrInvalidClientMessage, "unknown action %q", msg.Action)
	}

	if err := ValidateRoomID(msg.Room); err != nil {
		return nil, err
	}
	return &msg, nil
}
