// Package id provides the identifiers of quotes, lots, lines and every other
// persisted record. Identifiers are UUIDv7 so that primary keys sort by
// creation time.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		return uuid.New()
	}
	return v
}

// Parse reads an identifier from user input. Surrounding blanks are ignored
// and the nil UUID is rejected: no record ever carries it.
func Parse(s string) (ID, error) {
	v, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, err
	}
	if v == uuid.Nil {
		return uuid.Nil, fmt.Errorf("nil identifier")
	}
	return v, nil
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
