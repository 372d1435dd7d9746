package generations

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/casestudio/internal/generator"
	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/pkg/auth"
	"github.com/JaimeStill/casestudio/pkg/repository"
)

// Domain errors for generation operations.
var (
	ErrNotFound      = errors.New("generation not found")
	ErrDuplicate     = errors.New("generation already exists")
	ErrNotComplete   = errors.New("generation has no result")
	ErrNotArchived   = errors.New("generation result was not archived")
	ErrInvalidFormat = errors.New("format must be md or html")
	ErrInvalidID     = errors.New("invalid generation id")
	ErrInvalidBody   = errors.New("invalid request body")
	ErrBodyTooLarge  = errors.New("request body too large")
)

var dbErrors = repository.Errors{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrInvalidBody,
}

// MapHTTPStatus maps generation, schema, and generator errors to HTTP
// status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrNotComplete), errors.Is(err, ErrNotArchived):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, schema.ErrValidation), errors.Is(err, schema.ErrInvalidType):
		return http.StatusBadRequest
	case errors.Is(err, generator.ErrAborted):
		return http.StatusServiceUnavailable
	case errors.Is(err, generator.ErrGenerationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// publicError hides backend and schema detail from callers. Generation
// failures are reported with a generic message; the detail is logged.
func publicError(err error) error {
	switch {
	case errors.Is(err, generator.ErrAborted):
		return generator.ErrAborted
	case errors.Is(err, generator.ErrGenerationFailed):
		return generator.ErrGenerationFailed
	}
	return err
}
