package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// DefaultMaxBodySize bounds uploads when no size is configured.
const DefaultMaxBodySize = 100 << 20

// BodySizeLimit caps the request body at maxSize, written as "512KB",
// "100MB" or "1GB". Unparseable sizes use DefaultMaxBodySize.
func BodySizeLimit(maxSize string) Middleware {
	limit := ParseSize(maxSize, DefaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// ParseSize parses a byte size with an optional KB, MB or GB suffix.
func ParseSize(s string, fallback int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n * multiplier
}
