// internal/util/errors.go
// Error aplikasi standar + pemetaan ke HTTP status.

package util

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeBadInput     = "bad_input"
	CodeValidation   = "validation"
	CodeNotFound     = "not_found"
	CodeUnauthorized = "unauthorized"
	CodeInternal     = "internal"
)

type AppError struct {
	Code    string // one of the Code* constants
	Message string
	Details any   // optional, rendered as "details"
	Err     error // cause, never rendered
}

func (e AppError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e AppError) Unwrap() error { return e.Err }

func BadInput(msg string) AppError     { return AppError{Code: CodeBadInput, Message: msg} }
func NotFound(msg string) AppError     { return AppError{Code: CodeNotFound, Message: msg} }
func Internal(msg string) AppError     { return AppError{Code: CodeInternal, Message: msg} }
func Unauthorized(msg string) AppError { return AppError{Code: CodeUnauthorized, Message: msg} }

func Validation(msg string, details any) AppError {
	return AppError{Code: CodeValidation, Message: msg, Details: details}
}

// Wrap marks err as internal while keeping it reachable through errors.Is/As.
func Wrap(err error, msg string) AppError { return AppError{Code: CodeInternal, Message: msg, Err: err} }

// HTTPStatus maps an error to a status code. Non-AppErrors are 500.
func HTTPStatus(err error) int {
	var ae AppError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case CodeBadInput:
		return http.StatusBadRequest
	case CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// AsAppError returns err as an AppError, hiding the text of anything else.
func AsAppError(err error) AppError {
	var ae AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("internal error")
}
