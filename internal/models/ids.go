package models

import (
	"strings"

	"github.com/google/uuid"
)

// LocalIDPrefix marks records created or edited offline whose canonical id has
// not yet been confirmed by the server.
const LocalIDPrefix = "local-"

// NewLocalID returns a fresh temporary id.
func NewLocalID() string {
	return LocalIDPrefix + uuid.New().String()
}

// IsLocalID reports whether id is a temporary local id.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}
