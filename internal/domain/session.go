package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionID identifies one widget activation and all messages persisted for it
type SessionID string

// NewSessionID generates a random version-4 UUID session token
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// ParseSessionID validates a client supplied session token. Only version-4
// UUIDs are accepted and the result is always in canonical form.
func ParseSessionID(s string) (SessionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionID, err)
	}
	if id.Version() != 4 || id.Variant() != uuid.RFC4122 {
		return "", fmt.Errorf("%w: version %d", ErrInvalidSessionID, id.Version())
	}
	return SessionID(id.String()), nil
}

func (id SessionID) String() string {
	return string(id)
}
