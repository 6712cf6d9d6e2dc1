package provider

import (
	"github.com/kbukum/voxkit/resilience"
)

// ResilienceConfig bundles the optional policies guarding calls into a
// provider. Nil fields are skipped and an empty config is a passthrough.
type ResilienceConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig
	Retry          *resilience.RetryConfig
	RateLimiter    *resilience.RateLimiterConfig
	Bulkhead       *resilience.BulkheadConfig
}

// IsEmpty reports whether no policy is configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil && c.RateLimiter == nil && c.Bulkhead == nil
}

// ResilienceState holds the primitives built from a ResilienceConfig. It is
// shared by every call through the same provider.
type ResilienceState struct {
	cb       *resilience.CircuitBreaker
	rl       *resilience.RateLimiter
	bh       *resilience.Bulkhead
	retryCfg *resilience.RetryConfig
}

// BuildResilience creates the primitives for cfg, or nil for an empty config.
func BuildResilience(cfg ResilienceConfig) *ResilienceState {
	if cfg.IsEmpty() {
		return nil
	}
	s := &ResilienceState{retryCfg: cfg.Retry}
	if cfg.CircuitBreaker != nil {
		s.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		s.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		s.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	return s
}

// CircuitState returns the breaker state, or StateClosed without a breaker.
func (s *ResilienceState) CircuitState() resilience.State {
	if s == nil || s.cb == nil {
		return resilience.StateClosed
	}
	return s.cb.State()
}
