package database

import (
	"strings"
)

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"connection closed",
	"driver: bad connection",
	"invalid connection",
}

var transientPatterns = []string{
	"deadlock",
	"lock timeout",
	"database is locked",
	"too many connections",
}

// IsConnectionError reports whether err looks like a lost connection.
func IsConnectionError(err error) bool {
	return matches(err, connectionPatterns)
}

// IsRetryableError reports whether err may succeed on retry.
func IsRetryableError(err error) bool {
	return IsConnectionError(err) || matches(err, transientPatterns)
}

func matches(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
