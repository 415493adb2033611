package utils

import (
	"github.com/google/uuid"
)

// NewID returns a random identifier for events, items and assignments.
func NewID() string {
	return uuid.NewString()
}
