package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Status classes carried in the error body: "fail" for client errors (4xx),
// "error" for server errors (5xx).
const (
	StatusFail  = "fail"
	StatusError = "error"
)

// Error codes shared across the API surface.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeEventNotFound      = "EVENT_NOT_FOUND"
	CodeForecastNotFound   = "FORECAST_NOT_FOUND"
	CodeDuplicateEventID   = "DUPLICATE_EVENT_ID"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeUpstreamTimeout    = "UPSTREAM_TIMEOUT"
	CodeEndpointNotFound   = "ENDPOINT_NOT_FOUND"
	CodeRequestTimeout     = "REQUEST_TIMEOUT"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

// Error is the single error type surfaced by the HTTP API. HTTPStatus selects
// the response status; Status is "fail" for 4xx and "error" for 5xx.
type Error struct {
	HTTPStatus int    `json:"-"`
	Status     string `json:"status"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds an Error, deriving the status class from the HTTP status.
func NewError(httpStatus int, code, message string) *Error {
	status := StatusFail
	if httpStatus >= 500 {
		status = StatusError
	}
	return &Error{HTTPStatus: httpStatus, Status: status, Code: code, Message: message}
}

func BadRequest(message string, details any) *Error {
	e := NewError(http.StatusBadRequest, CodeValidationFailed, message)
	e.Details = details
	return e
}

func NotFound(code, message string) *Error {
	return NewError(http.StatusNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return NewError(http.StatusConflict, code, message)
}

func Internal(message string) *Error {
	return NewError(http.StatusInternalServerError, CodeInternal, message)
}

func Unavailable(code, message string) *Error {
	return NewError(http.StatusServiceUnavailable, code, message)
}

// ClassifyUpstream maps a failed outbound call to one of the 503 error codes:
// timeouts (context deadline or net timeout) become UPSTREAM_TIMEOUT, everything
// else SERVICE_UNAVAILABLE. A 404 from the upstream must be classified by the
// caller via UpstreamNotFound since the HTTP status is not visible here.
func ClassifyUpstream(service string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable(CodeUpstreamTimeout, fmt.Sprintf("%s did not respond in time", service))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Unavailable(CodeUpstreamTimeout, fmt.Sprintf("%s did not respond in time", service))
	}
	return Unavailable(CodeServiceUnavailable, fmt.Sprintf("%s is unavailable", service))
}

// UpstreamNotFound reports a misconfigured or missing upstream endpoint. The
// upstream 404 is surfaced as 503 because from the caller's perspective the
// service is down, not the resource missing.
func UpstreamNotFound(service string) *Error {
	return Unavailable(CodeEndpointNotFound, fmt.Sprintf("%s endpoint not found", service))
}
