package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a hyphenless UUID4 string used as a row identifier across
// all tables.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
