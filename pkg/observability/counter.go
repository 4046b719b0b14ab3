package observability

import (
	"context"
	"sync"
	"time"
)

// Counter is a goroutine-safe hook implementation that tallies events.
// It satisfies [ResolverHooks], [CacheHooks] and [HTTPHooks] and is used by
// the CLI summary and by tests that assert how often a backend was queried.
type Counter struct {
	mu        sync.Mutex
	hits      map[string]int
	misses    map[string]int
	resolves  map[string]int
	failures  map[string]int
	requests  map[string]int
	httpError int
}

// NewCounter creates an empty Counter.
func NewCounter() *Counter {
	return &Counter{
		hits:     make(map[string]int),
		misses:   make(map[string]int),
		resolves: make(map[string]int),
		failures: make(map[string]int),
		requests: make(map[string]int),
	}
}

func (c *Counter) OnResolveStart(_ context.Context, method, _ string) {
	c.mu.Lock()
	c.resolves[method]++
	c.mu.Unlock()
}

func (c *Counter) OnResolveComplete(_ context.Context, method, _ string, _ time.Duration, err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.failures[method]++
	c.mu.Unlock()
}

func (c *Counter) OnCacheHit(_ context.Context, namespace, _ string) {
	c.mu.Lock()
	c.hits[namespace]++
	c.mu.Unlock()
}

func (c *Counter) OnCacheMiss(_ context.Context, namespace, _ string) {
	c.mu.Lock()
	c.misses[namespace]++
	c.mu.Unlock()
}

func (c *Counter) OnRequest(_ context.Context, _, host, _ string) {
	c.mu.Lock()
	c.requests[host]++
	c.mu.Unlock()
}

func (c *Counter) OnResponse(context.Context, string, string, string, int, time.Duration) {}

func (c *Counter) OnError(context.Context, string, string, string, error) {
	c.mu.Lock()
	c.httpError++
	c.mu.Unlock()
}

// Hits returns the number of cache hits recorded for namespace.
func (c *Counter) Hits(namespace string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[namespace]
}

// Fills returns the number of cache misses, i.e. fill invocations, for namespace.
func (c *Counter) Fills(namespace string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses[namespace]
}

// Resolves returns how many sources were handed to the resolver for method.
func (c *Counter) Resolves(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolves[method]
}

// Failures returns how many resolutions for method ended degraded.
func (c *Counter) Failures(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures[method]
}

// Requests returns the number of HTTP requests sent to host.
func (c *Counter) Requests(host string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[host]
}

// TotalRequests returns the number of HTTP requests sent to any host.
func (c *Counter) TotalRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.requests {
		n += v
	}
	return n
}

// HTTPErrors returns the number of transport-level HTTP failures.
func (c *Counter) HTTPErrors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpError
}

var (
	_ ResolverHooks = (*Counter)(nil)
	_ CacheHooks    = (*Counter)(nil)
	_ HTTPHooks     = (*Counter)(nil)
)
