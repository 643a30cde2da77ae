package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/voixagent/voixagent/logger"
)

// quietPaths are polled by probes and scrapers and are not logged.
var quietPaths = map[string]bool{
	"/health":             true,
	"/metrics":            true,
	"/metrics/prometheus": true,
}

// RequestLogger logs method, path, status and duration of every request
// except probe and scrape paths.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", duration.Milliseconds(),
			)
			if isStream(r) {
				fields["stream"] = true
			}
			logByStatus(log.WithContext(r.Context()), fields, sw.status)
		})
	}
}

func isStream(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
