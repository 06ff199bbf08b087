package uuid

import (
	"github.com/google/uuid"
)

// UUID aliases the uuid.
type UUID = uuid.UUID

// NewV7 returns a new v7 uuid.
func NewV7() (UUID, error) {
	return uuid.NewV7()
}

// MustNewV7 returns a new v7 uuid or panics if an error occurs.
func MustNewV7() UUID {
	id, err := NewV7()
	if err != nil {
		panic(err)
	}
	return id
}

// NewRequestID returns a time-ordered id for correlating the log lines of one request.
// It falls back to a random v4 uuid if the v7 clock sequence cannot be read.
func NewRequestID() string {
	id, err := NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Parse parses a UUID from string.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}
