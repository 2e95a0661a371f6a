package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies client errors.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	ErrCodeValidation
	ErrCodeServer
	ErrCodeDecode
	ErrCodeCircuitOpen
)

var errorCodeNames = map[ErrorCode]string{
	ErrCodeTimeout:     "timeout",
	ErrCodeConnection:  "connection",
	ErrCodeAuth:        "auth",
	ErrCodeNotFound:    "not_found",
	ErrCodeRateLimit:   "rate_limit",
	ErrCodeValidation:  "validation",
	ErrCodeServer:      "server",
	ErrCodeDecode:      "decode",
	ErrCodeCircuitOpen: "circuit_open",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error is a classified client error.
type Error struct {
	// StatusCode is 0 for errors raised before a response arrived.
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// NewDecodeError reports a response body that is not the expected JSON.
func NewDecodeError(statusCode int, body []byte, err error) *Error {
	return &Error{StatusCode: statusCode, Code: ErrCodeDecode, Message: err.Error(), Body: body, Err: err}
}

// ClassifyStatusCode returns nil for 2xx and a typed error otherwise.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	e := &Error{StatusCode: statusCode, Message: http.StatusText(statusCode), Body: body}
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeValidation
	case statusCode >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeServer
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d", statusCode)
	}
	return e
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func IsTimeout(err error) bool     { return hasCode(err, ErrCodeTimeout) }
func IsConnection(err error) bool  { return hasCode(err, ErrCodeConnection) }
func IsNotFound(err error) bool    { return hasCode(err, ErrCodeNotFound) }
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }
func IsDecode(err error) bool      { return hasCode(err, ErrCodeDecode) }

// IsRetryable reports whether err is a client error marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
