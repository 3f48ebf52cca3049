// Package apperror defines the user-facing error taxonomy of the booking
// service. Every domain failure that reaches an HTTP client is one of these
// values; anything else is reported as a generic internal error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a typed, user-facing error. Code is stable and machine readable,
// Status is the HTTP status it maps to.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports a match on Code so wrapped copies created by WithMessage still
// compare equal to the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New constructs an Error.
func New(status int, code, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Code: e.Code, Status: e.Status, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrValidation        = New(http.StatusBadRequest, "validation_error", "invalid request")
	ErrMinNightsNotMet   = New(http.StatusBadRequest, "min_nights_not_met", "stay is shorter than the minimum number of nights")
	ErrMaxNightsExceeded = New(http.StatusBadRequest, "max_nights_exceeded", "stay is longer than the maximum number of nights")
	ErrMaxGuestsExceeded = New(http.StatusBadRequest, "max_guests_exceeded", "guest count exceeds room capacity")
	ErrUnauthorized      = New(http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
	ErrNotFound          = New(http.StatusNotFound, "not_found", "resource not found")
	ErrDatesUnavailable  = New(http.StatusConflict, "dates_unavailable", "the selected dates are no longer available")
	ErrRoomUnavailable   = New(http.StatusConflict, "room_unavailable", "the room is not accepting bookings")
	ErrAlreadyCancelled  = New(http.StatusConflict, "already_cancelled", "booking is already cancelled")
	ErrInvalidTransition = New(http.StatusConflict, "invalid_transition", "booking status cannot change that way")
	ErrInternal          = New(http.StatusInternalServerError, "internal_error", "internal server error")
)

// Validation is shorthand for a validation error with a specific message.
func Validation(format string, args ...any) *Error {
	return ErrValidation.WithMessage(format, args...)
}

// From extracts the user-facing error from err. Unknown errors become
// ErrInternal and ok is false so the caller can log the original.
func From(err error) (appErr *Error, ok bool) {
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return ErrInternal, false
}
