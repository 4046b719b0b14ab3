// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. A [Hooks] value is built once at run start
// and handed to the pipeline, which passes it down to every resolver, the cache
// and the HTTP client. There is no process-wide registry: two runs in the same
// process never observe each other's events.
//
// # Usage
//
//	counter := observability.NewCounter()
//	hooks := observability.Hooks{Cache: counter, Resolver: counter}
//	runner := pipeline.NewRunner(pipeline.Options{Hooks: hooks})
//	// ... run ...
//	fmt.Println(counter.Fills("github:commits"))
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Resolver Hooks
// =============================================================================

// ResolverHooks receives events from the per-source enrichment stages.
type ResolverHooks interface {
	// OnResolveStart is called before a backend resolver runs for a source.
	OnResolveStart(ctx context.Context, method, url string)

	// OnResolveComplete is called when the resolver returns. err is the
	// degradation reason, if any; it never aborts the run.
	OnResolveComplete(ctx context.Context, method, url string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the run cache.
type CacheHooks interface {
	// OnCacheHit records a lookup answered from memory.
	OnCacheHit(ctx context.Context, namespace, key string)

	// OnCacheMiss records a lookup that invokes the fill function.
	OnCacheMiss(ctx context.Context, namespace, key string)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout, open breaker).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolverHooks is a no-op implementation of ResolverHooks.
type NoopResolverHooks struct{}

func (NoopResolverHooks) OnResolveStart(context.Context, string, string) {}
func (NoopResolverHooks) OnResolveComplete(context.Context, string, string, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string, string)  {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string, string) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Hook Set
// =============================================================================

// Hooks bundles the hook categories for one run. Nil members are replaced
// with no-op implementations by [Hooks.WithDefaults].
type Hooks struct {
	Resolver ResolverHooks
	Cache    CacheHooks
	HTTP     HTTPHooks
}

// WithDefaults returns a copy of h with every nil member set to its no-op.
func (h Hooks) WithDefaults() Hooks {
	if h.Resolver == nil {
		h.Resolver = NoopResolverHooks{}
	}
	if h.Cache == nil {
		h.Cache = NoopCacheHooks{}
	}
	if h.HTTP == nil {
		h.HTTP = NoopHTTPHooks{}
	}
	return h
}
