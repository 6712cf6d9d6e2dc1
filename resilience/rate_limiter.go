package resilience

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// ErrRateLimited is returned by Execute when no token is available.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Name identifies the limiter in logs and metrics.
	Name string
	// Rate is the refill rate in tokens per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
	// OnLimit is called when a non-blocking call is refused.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig returns 10 requests per second with bursts of 20.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{Name: name, Rate: 10, Burst: 20}
}

// RateLimiter is a token bucket. Blocking waits reserve their tokens up
// front, so the bucket may go negative while callers sleep.
type RateLimiter struct {
	config RateLimiterConfig

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = DefaultRateLimiterConfig(config.Name).Rate
	}
	if config.Burst <= 0 {
		config.Burst = int(math.Ceil(config.Rate))
	}
	return &RateLimiter{config: config, tokens: float64(config.Burst), last: time.Now()}
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	wait := rl.reserve()
	if wait <= 0 {
		return nil
	}
	if err := sleep(ctx, wait); err != nil {
		rl.mu.Lock()
		rl.tokens++
		rl.mu.Unlock()
		return err
	}
	return nil
}

// Execute runs fn if a token is available and returns ErrRateLimited otherwise.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// ExecuteWait waits for a token, then runs fn.
func (rl *RateLimiter) ExecuteWait(ctx context.Context, fn func() error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Tokens returns the current token count.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.config.Rate * float64(time.Second))
}

func (rl *RateLimiter) refill() {
	now := time.Now()
	rl.tokens = math.Min(float64(rl.config.Burst), rl.tokens+now.Sub(rl.last).Seconds()*rl.config.Rate)
	rl.last = now
}
