// Package resilience provides the fault-tolerance primitives used around
// external dependencies: circuit breaker, retry with exponential backoff,
// bulkhead and token-bucket rate limiter.
//
// They compose from the outside in:
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 5, Burst: 10})
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 2})
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("whisper"))
//
//	err := rl.ExecuteWait(ctx, func() error {
//	    return bh.Execute(ctx, func() error {
//	        return cb.Execute(func() error { return call(ctx) })
//	    })
//	})
//
// The provider package wires them together from a ResilienceConfig.
package resilience
