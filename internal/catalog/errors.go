package catalog

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes resolution failures.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the id does not name a member of the list
	// (or, for the parent field, an existing list owner).
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidID indicates the value is not a decodable global ID.
	ErrCodeInvalidID ErrorCode = "INVALID_ID"

	// ErrCodeWrongType indicates a well-formed global ID of another type.
	ErrCodeWrongType ErrorCode = "WRONG_TYPE"
)

// ResolveError reports one caller-supplied id that could not be resolved.
// It is a validation error meant for the end user, not a fault.
type ResolveError struct {
	// Field is the input path, e.g. "moves[2].id" or "parent".
	Field string `json:"field"`

	// ID is the offending value exactly as supplied.
	ID string `json:"id"`

	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %s: %s (id=%s)", e.Field, e.Code, e.Message, e.ID)
}

// IsNotFound returns true if err is a ResolveError with ErrCodeNotFound.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeNotFound
	}
	return false
}

func newNotFound(field, id, what string) *ResolveError {
	return &ResolveError{
		Field:   field,
		ID:      id,
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("couldn't resolve to %s", what),
	}
}
