package errors

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Availability errors are retryable.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeStorage            ErrorCode = "STORAGE_ERROR"
)

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidGraph ErrorCode = "INVALID_GRAPH"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeExternalService:    true,
	ErrCodeStorage:            true,
}

// IsRetryableCode reports whether errors with code may succeed on retry.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
