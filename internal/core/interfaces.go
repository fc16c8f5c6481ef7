package core

import "github.com/avelark/parley/internal/domain"

// Frame is an encoded outbound event, ready for the wire.
type Frame []byte

// Endpoint abstracts one live connection instance.
// Owned by the adapter; the adapter must Close() it.
type Endpoint interface {
	TrySend(Frame) error
	Close()
}

// UserDTO is a read-only roster entry (no transport fields).
type UserDTO struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}
