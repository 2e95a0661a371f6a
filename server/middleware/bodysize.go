package middleware

import (
	"net/http"

	"github.com/docker/go-units"
)

const defaultMaxBodySize = 10 * units.MiB

// BodySizeLimit caps request bodies at maxSize ("512KB", "10MB"). An
// unparseable size falls back to 10MB.
func BodySizeLimit(maxSize string) Middleware {
	size, err := units.RAMInBytes(maxSize)
	if err != nil || size <= 0 {
		size = defaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, size)
			}
			next.ServeHTTP(w, r)
		})
	}
}
