package kafka

import "strings"

var connectionPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"broker not available",
	"leader not available",
	"connection closed",
	"dial tcp",
}

var transientPatterns = []string{
	"temporary",
	"request timed out",
	"not enough replicas",
}

// IsConnectionError reports whether err is a broker connection failure.
func IsConnectionError(err error) bool {
	return contains(err, connectionPatterns)
}

// IsRetryableError reports whether a write that failed with err may succeed
// on retry.
func IsRetryableError(err error) bool {
	return IsConnectionError(err) || contains(err, transientPatterns)
}

func contains(err error, patterns []string) bool {
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
