package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/resilience"
)

// ExecuteWithResilience runs fn through the policies in s, outermost first:
// rate limiter, bulkhead, circuit breaker, retry. A nil state calls fn
// directly. Errors raised by the policies themselves come back as AppErrors
// while errors from fn pass through untouched.
func ExecuteWithResilience[T any](ctx context.Context, s *ResilienceState, fn func() (T, error)) (T, error) {
	var zero T
	if s == nil {
		return fn()
	}

	if s.rl != nil {
		if err := s.rl.Wait(ctx); err != nil {
			return zero, wrapResilienceError(err)
		}
	}

	call := fn
	if s.retryCfg != nil {
		retryCfg := *s.retryCfg
		call = func() (T, error) {
			return resilience.Retry(ctx, retryCfg, fn)
		}
	}

	if s.cb != nil {
		inner := call
		call = func() (T, error) {
			var result T
			var callErr error
			cbErr := s.cb.Execute(func() error {
				result, callErr = inner()
				return callErr
			})
			if callErr == nil && cbErr != nil {
				return zero, wrapResilienceError(cbErr)
			}
			return result, callErr
		}
	}

	if s.bh == nil {
		return call()
	}

	var result T
	var callErr error
	bhErr := s.bh.Execute(ctx, func() error {
		result, callErr = call()
		return callErr
	})
	if callErr == nil && bhErr != nil {
		return zero, wrapResilienceError(bhErr)
	}
	return result, callErr
}

func wrapResilienceError(err error) error {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable("provider").WithCause(err).WithDetail("reason", "circuit open")
	case errors.Is(err, resilience.ErrRateLimited):
		return apperrors.RateLimited().WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return apperrors.ServiceUnavailable("provider").WithCause(err).WithDetail("reason", "concurrency limit reached")
	case errors.Is(err, context.Canceled):
		return apperrors.Canceled("provider call").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("provider call").WithCause(err)
	default:
		return err
	}
}
