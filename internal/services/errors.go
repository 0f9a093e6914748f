package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/intentionbank/backend/internal/store"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("not allowed")
	ErrPaymentRequired = errors.New("premium subscription required")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthorized")
)

// ValidationError is a rejected request. It matches ErrValidation under errors.Is.
type ValidationError struct {
	Message string
	Fields  validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func validationFailed(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		return &ValidationError{Message: "Validation failed", Fields: fields}
	}
	return &ValidationError{Message: err.Error()}
}

// notFound converts store.ErrNotFound into the service error for what.
func notFound(err error, what string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return err
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as an ErrorResponse. Unclassified errors are
// reported generically.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		SendErrorResponse(w, "Internal server error", status, nil)
		return
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		if len(verr.Fields) > 0 {
			SendErrorResponse(w, verr.Message, status, verr.Fields)
			return
		}
		SendErrorResponse(w, verr.Message, status, nil)
		return
	}
	SendErrorResponse(w, err.Error(), status, nil)
}
