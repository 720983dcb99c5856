// Package model provides domain model for stocksql
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier is returned when a table name is empty or contains
	// characters outside [A-Za-z0-9_].
	ErrInvalidIdentifier = errors.New("stocksql: invalid identifier")

	// ErrDecode is returned when a record payload does not match the item shape.
	ErrDecode = errors.New("stocksql: decode error")

	// ErrValidation is returned when a request parameter is out of range.
	ErrValidation = errors.New("stocksql: validation error")
)

// DecodeError describes why a single record could not be decoded into an Item.
type DecodeError struct {
	// Index is the zero-based position of the record in its batch.
	Index int
	// Field is the offending key, empty when the payload itself is malformed.
	Field string
	// Reason is a short human-readable explanation.
	Reason string
}

// Error implements error.
func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("record %d: field %q: %s", e.Index, e.Field, e.Reason)
}

// Is reports ErrDecode as the category of every DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
