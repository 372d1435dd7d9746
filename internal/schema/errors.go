package schema

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation indicates a prompt input failed its constraints.
	ErrValidation = errors.New("invalid prompt")
	// ErrInvalidType indicates an unknown generation kind.
	ErrInvalidType = errors.New("type must be outline, summary, or headline")
	// ErrSchemaViolation indicates well-formed JSON that does not match the
	// response shape declared by its type.
	ErrSchemaViolation = errors.New("response does not match schema")
	// ErrMalformed indicates text that could not be parsed as JSON.
	ErrMalformed = errors.New("response is not valid json")
)

// ValidationError identifies the first violated prompt constraint.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// MapHTTPStatus maps schema errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidType) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrSchemaViolation) || errors.Is(err, ErrMalformed) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
