// Package apperrors defines the error taxonomy shared by the lifecycle engine,
// the query layer and the HTTP handlers. Each type maps to one HTTP status.
package apperrors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ValidationError reports a missing or malformed field.
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

// Validation builds a field-level validation error.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError reports a lost claim/accept race. Safe to retry against a
// fresh listing or order.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflict builds a conflict error.
func Conflict(message string) error {
	return &ConflictError{Message: message}
}

// InvalidStateError reports an illegal lifecycle transition. It names the
// current status and the transition that was attempted.
type InvalidStateError struct {
	Current   string
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("illegal transition: status is %q, attempted %q", e.Current, e.Attempted)
}

// InvalidState builds an invalid-state error.
func InvalidState(current, attempted string) error {
	return &InvalidStateError{Current: current, Attempted: attempted}
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// NotFound builds a not-found error for the named resource.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// DuplicateError reports a repeated submission, e.g. a second rating from the
// same reviewer or a re-registered email.
type DuplicateError struct {
	Message string
}

func (e *DuplicateError) Error() string { return e.Message }

// Duplicate builds a duplicate error.
func Duplicate(message string) error {
	return &DuplicateError{Message: message}
}

// AuthError reports failed authentication or a bad credential.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Auth builds an authentication error.
func Auth(message string) error {
	return &AuthError{Message: message}
}

// UnavailableError reports a transient store failure. Retriable by the caller.
type UnavailableError struct {
	Message string
	Cause   error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// Unavailable wraps a transient store failure.
func Unavailable(message string, cause error) error {
	return &UnavailableError{Message: message, Cause: cause}
}

// HTTPStatus maps an error to the status code the API should return.
// Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	var (
		validation  *ValidationError
		conflict    *ConflictError
		state       *InvalidStateError
		notFound    *NotFoundError
		duplicate   *DuplicateError
		auth        *AuthError
		unavailable *UnavailableError
	)
	switch {
	case errors.As(err, &validation),
		errors.As(err, &conflict),
		errors.As(err, &state),
		errors.As(err, &duplicate):
		return http.StatusBadRequest
	case errors.As(err, &auth):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsExpected reports whether err belongs to the taxonomy, i.e. is a handled
// failure rather than an unexpected internal error.
func IsExpected(err error) bool {
	return HTTPStatus(err) != http.StatusInternalServerError
}
