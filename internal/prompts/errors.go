package prompts

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/casestudio/pkg/repository"
)

var (
	ErrNotFound    = errors.New("prompt not found")
	ErrDuplicate   = errors.New("prompt name already exists")
	ErrInvalidType = errors.New("type must be outline, summary, or headline")
	ErrInvalidID   = errors.New("prompt id must be a UUID")
	ErrInvalidBody = errors.New("invalid request body")

	ErrUnsupportedPrompt = errors.New("unsupported prompt value")
)

var dbErrors = repository.Errors{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrInvalidType,
}

// MapHTTPStatus maps prompt domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidBody):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
