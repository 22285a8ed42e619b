package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrQuestionsNotFound maps the backend's 404 on GET /questions.
	ErrQuestionsNotFound = errors.New("questions not found")
)

// UnreachableError is a transport-level failure: the request never produced
// an HTTP status. The message carries the configured base URL so the user
// can tell which backend was down.
type UnreachableError struct {
	BaseURL string
	Err     error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("cannot reach survey backend at %s - check that the API server is running", e.BaseURL)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response without a parseable structured body.
type HTTPError struct {
	StatusCode int
	Reason     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API request failed: %d %s", e.StatusCode, e.Reason)
}

// APIError is a non-2xx response that carried a structured JSON error body;
// the backend's message is surfaced verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// ParseError is a 2xx response whose body was not the JSON we expected.
// Callers treat it as "no usable data" rather than a hard failure.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unexpected response body from survey backend: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsUnreachable reports whether err is a connection-level failure.
func IsUnreachable(err error) bool {
	var ue *UnreachableError
	return errors.As(err, &ue)
}

// IsNotFound reports whether err is the 404 "not found" class.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrQuestionsNotFound) {
		return true
	}
	return statusCode(err) == http.StatusNotFound
}

// IsBadRequest reports whether err is the 400 "bad request" class.
func IsBadRequest(err error) bool {
	return statusCode(err) == http.StatusBadRequest
}

// IsParseError reports whether err is a malformed-body failure.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func statusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}
