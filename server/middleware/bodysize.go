package middleware

import (
	"net/http"

	"github.com/voixagent/voixagent/util"
)

const defaultMaxBodySize = 10 * 1024 * 1024

// BodySizeLimit restricts request bodies to maxSize (e.g. "512KB", "10MB").
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, size)
			}
			next.ServeHTTP(w, r)
		})
	}
}
