package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(code string, format string, args ...any) *Error {
	return New(http.StatusNotFound, code, fmt.Errorf(format, args...))
}

func BadRequest(code string, format string, args ...any) *Error {
	return New(http.StatusBadRequest, code, fmt.Errorf(format, args...))
}

// InvalidTransition is a 400: the operation is not legal from the entity's current state.
func InvalidTransition(code string, format string, args ...any) *Error {
	return New(http.StatusBadRequest, code, fmt.Errorf(format, args...))
}

func Conflict(code string, format string, args ...any) *Error {
	return New(http.StatusConflict, code, fmt.Errorf(format, args...))
}

func Forbidden(code string, format string, args ...any) *Error {
	return New(http.StatusForbidden, code, fmt.Errorf(format, args...))
}

func Unauthorized(code string, format string, args ...any) *Error {
	return New(http.StatusUnauthorized, code, fmt.Errorf(format, args...))
}

func Internal(code string, err error) *Error {
	return New(http.StatusInternalServerError, code, err)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an *Error.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
