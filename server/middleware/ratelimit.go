package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/resilience"
)

// RateLimitConfig configures per-client rate limiting. A zero rate
// disables the limit.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	// KeyFunc extracts the client key. Defaults to the remote IP.
	KeyFunc func(*http.Request) string `yaml:"-" mapstructure:"-"`
}

// RateLimit applies a token bucket per client key and answers 429
// RATE_LIMITED when it is empty.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = RemoteIP
	}
	buckets := &bucketSet{cfg: cfg, buckets: make(map[string]*bucket)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !buckets.allow(cfg.KeyFunc(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(errors.RateLimited().ToResponse())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RemoteIP keys requests by the host part of RemoteAddr.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type bucket struct {
	limiter  *resilience.RateLimiter
	lastSeen time.Time
}

type bucketSet struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

func (s *bucketSet) allow(key string) bool {
	s.mu.Lock()
	now := time.Now()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  "http:" + key,
			Rate:  s.cfg.RequestsPerSecond,
			Burst: s.cfg.Burst,
		})}
		s.buckets[key] = b
	}
	b.lastSeen = now
	if now.Sub(s.swept) > 5*time.Minute {
		for k, other := range s.buckets {
			if now.Sub(other.lastSeen) > 10*time.Minute {
				delete(s.buckets, k)
			}
		}
		s.swept = now
	}
	s.mu.Unlock()
	return b.limiter.Allow()
}
