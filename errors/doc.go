// Package errors defines AppError, the structured error type used at service
// and HTTP boundaries, with machine-readable codes, HTTP status mapping and
// retryable detection.
package errors
