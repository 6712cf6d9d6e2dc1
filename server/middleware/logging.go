package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/voxkit/logger"
)

var quietPaths = []string{"/health", "/livez", "/readyz", "/metrics"}

// RequestLogger logs every request with method, path, status and duration.
// Probe and scrape paths are not logged.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isQuiet(r.URL.Path) {
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
				logger.FieldStatus, sw.status,
				logger.FieldDuration, duration.Milliseconds(),
				"bytes", sw.bytes,
			)
			if duration > 30*time.Second {
				fields["slow"] = true
			}

			l := log.WithContext(r.Context())
			switch {
			case sw.status >= 500:
				l.Error("request completed", fields)
			case sw.status >= 400:
				l.Warn("request completed", fields)
			default:
				l.Info("request completed", fields)
			}
		})
	}
}

func isQuiet(path string) bool {
	for _, p := range quietPaths {
		if path == p || strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}
