package errors

import "errors"

// Shared application errors. Services wrap these; handlers map them to HTTP
// statuses with errors.Is.
var (
	// ErrNotFound is returned when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a state transition lost a race, e.g. a
	// code that was consumed by a concurrent request.
	ErrConflict = errors.New("resource state conflict")
)
