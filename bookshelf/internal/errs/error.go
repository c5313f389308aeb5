package errs

import (
	"errors"
)

var (
	ErrNotFound = errors.New("book not found")
)

// ValidationError is returned when client data violates a field constraint.
// Its message is safe to show to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func AsValidation(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

type ErrorResponse struct {
	Error string `json:"error"`
}
