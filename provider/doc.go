// Package provider holds the generic plumbing for pluggable backends: the
// Provider interface, a factory registry with construct-once instance
// caching, health reporting, and a resilience chain for calls into remote
// providers.
//
// # Usage
//
//	reg := provider.NewRegistry[transcription.Model]()
//	reg.RegisterFactory("mock", mock.Factory)
//	m, created, err := reg.GetOrCreate(ctx, "mock", identity, params)
//
// Calls into a remote backend go through ExecuteWithResilience:
//
//	state := provider.BuildResilience(provider.ResilienceConfig{
//	    CircuitBreaker: &cb,
//	    Retry:          &retry,
//	})
//	out, err := provider.ExecuteWithResilience(ctx, state, func() (*Response, error) {
//	    return client.Do(ctx, req)
//	})
package provider
