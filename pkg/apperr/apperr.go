package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeTooOld       Code = "TOO_OLD"
	CodeInternal     Code = "INTERNAL"
)

// Error carries a classification code across the usecase boundary so the
// delivery layer can pick a status without inspecting messages. The wrapped
// cause is for logs only and is never serialized to a client.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func BadRequest(msg string) error   { return New(CodeBadRequest, msg) }
func Unauthorized(msg string) error { return New(CodeUnauthorized, msg) }
func Forbidden(msg string) error    { return New(CodeForbidden, msg) }
func NotFound(msg string) error     { return New(CodeNotFound, msg) }
func Conflict(msg string) error     { return New(CodeConflict, msg) }
func TooOld(msg string) error       { return New(CodeTooOld, msg) }

func Internal(cause error) error {
	return &Error{Code: CodeInternal, Message: "internal server error", Cause: cause}
}

// CodeOf extracts the classification of err, defaulting to internal for
// anything that did not originate from this package.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps a code to the response status used by the delivery layer.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeTooOld:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
