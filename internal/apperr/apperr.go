// Package apperr defines the closed error taxonomy the API speaks.
// Every failure that reaches a client is one of these kinds; anything
// else is reported as INTERNAL with the cause logged server-side only.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindBadRequest   Kind = "BAD_REQUEST"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindInternal     Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Details any
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails attaches a structured payload to the error and returns
// it, so constructors chain: Conflict(msg).WithDetails(d).
func (e *Error) WithDetails(details any) *Error {
	e.Details = details

	return e
}

// Constructors. Errors of this type are only built through these.

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// From extracts an *Error from an error chain.
func From(err error) (*Error, bool) {
	var appErr *Error

	if errors.As(err, &appErr) {
		return appErr, true
	}

	return nil, false
}
