package stocksql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/stocksql/domain/model"
)

// Error taxonomy. Every error returned by a core Store operation matches
// exactly one of ErrInvalidIdentifier, ErrDecode, ErrNotFound, ErrDatabase or
// ErrValidation under errors.Is.
var (
	// ErrInvalidIdentifier indicates an empty or unsafe table name
	ErrInvalidIdentifier = model.ErrInvalidIdentifier

	// ErrDecode indicates a record payload that does not match the item shape.
	// Use errors.As with *DecodeError for the record index and field.
	ErrDecode = model.ErrDecode

	// ErrValidation indicates an out-of-range request parameter
	ErrValidation = model.ErrValidation

	// ErrNotFound indicates that the target row (or its table) does not exist
	ErrNotFound = errors.New("stocksql: not found")

	// ErrDatabase indicates an engine-level failure
	ErrDatabase = errors.New("stocksql: database error")

	// ErrSchemaMismatch indicates an existing table that lacks canonical
	// columns. It also matches ErrDatabase.
	ErrSchemaMismatch = fmt.Errorf("%w: table schema does not match the item layout", ErrDatabase)
)

// DecodeError is the detail of an ErrDecode failure
type DecodeError = model.DecodeError

// ErrorContext provides context for where an error occurred
type ErrorContext struct {
	Operation string
	TableName string
	Details   string
}

// NewErrorContext creates a new error context
func NewErrorContext(operation string) *ErrorContext {
	return &ErrorContext{
		Operation: operation,
	}
}

// WithTable adds table context to the error
func (ec *ErrorContext) WithTable(tableName string) *ErrorContext {
	ec.TableName = tableName
	return ec
}

// WithDetails adds details to the error context
func (ec *ErrorContext) WithDetails(details string) *ErrorContext {
	ec.Details = details
	return ec
}

// Error creates a formatted error with context
func (ec *ErrorContext) Error(baseErr error) error {
	parts := []string{fmt.Sprintf("stocksql: %s failed", ec.Operation)}

	if ec.TableName != "" {
		parts = append(parts, "table: "+ec.TableName)
	}

	if ec.Details != "" {
		parts = append(parts, "details: "+ec.Details)
	}

	context := strings.Join(parts, ", ")
	if baseErr != nil {
		return fmt.Errorf("%s: %w", context, baseErr)
	}
	return fmt.Errorf("%s", context)
}

// Database wraps an engine error so that it matches ErrDatabase
func (ec *ErrorContext) Database(engineErr error) error {
	if engineErr == nil {
		return nil
	}
	if errors.Is(engineErr, ErrDatabase) {
		return ec.Error(engineErr)
	}
	return ec.Error(fmt.Errorf("%w: %w", ErrDatabase, engineErr))
}
