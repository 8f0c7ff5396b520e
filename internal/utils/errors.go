package utils

import (
	"fmt"
	"net/http"
)

// APIError is an error with the HTTP status it should be reported as.
type APIError struct {
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func NewAPIError(code int, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

func BadRequest(message string, err error) *APIError {
	return NewAPIError(http.StatusBadRequest, message, err)
}

func Internal(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, "internal error", err)
}
