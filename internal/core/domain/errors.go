package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested key or row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as an
	// identifier that is not a plain SQL name.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTableNotFound indicates the table has not been created.
	ErrTableNotFound = errors.New("table does not exist")

	// ErrDecode indicates a stored payload could not be decoded into a value.
	ErrDecode = errors.New("decode failed")

	// ErrStoreClosed indicates an operation on a closed store instance.
	ErrStoreClosed = errors.New("store closed")

	// ErrConnection indicates the database could not be opened.
	ErrConnection = errors.New("database connection failed")
)

// SQLError records a failed statement: the engine error and the query text
// that produced it.
type SQLError struct {
	// Query is the offending SQL text.
	Query string

	// Err is the error reported by the engine.
	Err error
}

// Error implements error.
func (e *SQLError) Error() string {
	return fmt.Sprintf("%v (query: %s)", e.Err, e.Query)
}

// Unwrap returns the engine error.
func (e *SQLError) Unwrap() error {
	return e.Err
}
