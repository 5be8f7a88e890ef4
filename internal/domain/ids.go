package domain

import "github.com/google/uuid"

// NewID returns a fresh v4 UUID for any entity in the store.
func NewID() uuid.UUID {
	return uuid.New()
}
