package common

import (
	"github.com/google/uuid"
)

// NewTickID generates a unique tick ID with the "tick_" prefix
// Format: tick_<uuid>
func NewTickID() string {
	return "tick_" + uuid.New().String()
}
