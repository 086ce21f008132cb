package errors

import (
	"errors"
	"net/http"

	"labbooking/internal/entities"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// FromDomain maps engine errors onto HTTP status codes. Unknown errors map
// to 500.
func FromDomain(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var transition *entities.IllegalTransitionError
	switch {
	case errors.Is(err, entities.ErrInvalidInterval),
		errors.Is(err, entities.ErrRecurrenceTooLarge):
		return NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrDuplicateWaitlistEntry):
		return NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &transition):
		return NewHTTPError(http.StatusConflict, err.Error())
	}
	return NewHTTPError(http.StatusInternalServerError, "internal error")
}
