package myerrors

import (
	"errors"
	"fmt"
	"net/http"
)

const genericMessage = "Internal server error."

type httpErrorCoder interface {
	error
	GetHTTPErrorCode() int
}

type httpError struct {
	httpCode int
	err      error
	message  string
	details  map[string]any
}

func (e *httpError) Error() string {
	return fmt.Sprintf("status: %d, err: %s", e.httpCode, e.err.Error())
}

func (e *httpError) Unwrap() error {
	return e.err
}

func (e *httpError) GetHTTPErrorCode() int {
	return e.httpCode
}

// WithMessage sets the text that is safe to show to the client.
func (e *httpError) WithMessage(msg string) *httpError {
	e.message = msg
	return e
}

// WithDetail adds a field to the error response body.
func (e *httpError) WithDetail(key string, value any) *httpError {
	if e.details == nil {
		e.details = map[string]any{}
	}
	e.details[key] = value
	return e
}

func newError(httpCode int, err error) *httpError {
	if err == nil {
		err = errors.New(http.StatusText(httpCode))
	}
	return &httpError{
		httpCode: httpCode,
		err:      err,
	}
}

func NewInvalidInputError(err error) *httpError {
	return newError(http.StatusBadRequest, err)
}

func NewInvalidInputErrorf(format string, args ...interface{}) *httpError {
	return NewInvalidInputError(fmt.Errorf(format, args...))
}

func NewUnsupportedMediaTypeError(err error) *httpError {
	return newError(http.StatusUnsupportedMediaType, err)
}

func NewNotFoundError(err error) *httpError {
	return newError(http.StatusNotFound, err)
}

func NewAuthenticationError(err error) *httpError {
	return newError(http.StatusForbidden, err)
}

// NewConflictError signals valid input that cannot be processed in the current state.
func NewConflictError(err error) *httpError {
	return newError(http.StatusConflict, err)
}

func NewTooManyRequestsError(err error) *httpError {
	return newError(http.StatusTooManyRequests, err)
}

func NewInternalError(err error) *httpError {
	return newError(http.StatusInternalServerError, err)
}

func NewNotImplementedError(err error) *httpError {
	return newError(http.StatusNotImplemented, err)
}

func NewUnavailableError(err error) *httpError {
	return newError(http.StatusServiceUnavailable, err)
}

func GetHTTPStatus(err error) int {
	var coder httpErrorCoder
	if errors.As(err, &coder) {
		return coder.GetHTTPErrorCode()
	}
	return http.StatusInternalServerError
}

// GetPublicMessage returns the text that may be sent to the client.
// Server-side failures never expose the underlying error.
func GetPublicMessage(err error) string {
	var httpErr *httpError
	if !errors.As(err, &httpErr) {
		return genericMessage
	}
	if httpErr.message != "" {
		return httpErr.message
	}
	if httpErr.httpCode >= http.StatusInternalServerError {
		return genericMessage
	}
	return httpErr.err.Error()
}

// GetDetails returns the extra response fields attached to err.
func GetDetails(err error) map[string]any {
	var httpErr *httpError
	if !errors.As(err, &httpErr) {
		return nil
	}
	return httpErr.details
}
