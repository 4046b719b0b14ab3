// Package cache provides the run-scoped memo store shared by all resolvers.
//
// A [Store] is created at the start of a run and dropped when the run ends;
// nothing is persisted. It holds independent [Namespace]s so that
// repository-level data and path-scoped commit history never share keys.
//
// [Load] guarantees that the fill function runs at most once per key per
// run, even when several workers ask for the same key at the same time:
// concurrent callers wait for the first one and share its result.
package cache

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/pkgmeta/pkg/observability"
)

// Namespaces used by the resolvers.
const (
	NSGitHubRepo    = "github:repo"
	NSGitHubCommits = "github:commits"
	NSFossilCommits = "fossil:commits"
	NSFossilTags    = "fossil:tags"
	NSGitClone      = "git:clone"
)

// Store is a collection of namespaces. It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	namespaces map[string]*Namespace
	hooks      observability.CacheHooks
}

// New creates an empty Store. hooks may be nil.
func New(hooks observability.CacheHooks) *Store {
	if hooks == nil {
		hooks = observability.NoopCacheHooks{}
	}
	return &Store{
		namespaces: make(map[string]*Namespace),
		hooks:      hooks,
	}
}

// Namespace returns the namespace called name, creating it on first use.
func (s *Store) Namespace(name string) *Namespace {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[name]
	if !ok {
		ns = &Namespace{
			name:    name,
			entries: make(map[string]entry),
			hooks:   s.hooks,
		}
		s.namespaces[name] = ns
	}
	return ns
}

// Len returns the number of memoized entries across all namespaces.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ns := range s.namespaces {
		n += ns.Len()
	}
	return n
}

// Namespace is one independent key space of a Store.
type Namespace struct {
	name    string
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	hooks   observability.CacheHooks
}

type entry struct {
	value any
	err   error
}

// Name returns the namespace name.
func (ns *Namespace) Name() string { return ns.name }

// Len returns the number of memoized keys.
func (ns *Namespace) Len() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.entries)
}

func (ns *Namespace) lookup(key string) (entry, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	e, ok := ns.entries[key]
	return e, ok
}

func (ns *Namespace) store(key string, e entry) {
	ns.mu.Lock()
	ns.entries[key] = e
	ns.mu.Unlock()
}

// Load returns the memoized value for key, calling fill to produce it on
// the first request. Errors returned by fill are memoized as well, so a
// failing upstream is contacted once per run. The exception is a fill that
// fails because ctx was cancelled: that result is not kept.
func Load[T any](ctx context.Context, ns *Namespace, key string, fill func(context.Context) (T, error)) (T, error) {
	if e, ok := ns.lookup(key); ok {
		ns.hooks.OnCacheHit(ctx, ns.name, key)
		return unpack[T](e)
	}

	filled := false
	v, _, _ := ns.group.Do(key, func() (any, error) {
		// Another caller may have finished between lookup and Do.
		if e, ok := ns.lookup(key); ok {
			return e, nil
		}
		filled = true
		ns.hooks.OnCacheMiss(ctx, ns.name, key)

		val, err := fill(ctx)
		e := entry{value: val, err: err}
		if err == nil || !isCancellation(ctx, err) {
			ns.store(key, e)
		}
		return e, nil
	})
	if !filled {
		ns.hooks.OnCacheHit(ctx, ns.name, key)
	}
	return unpack[T](v.(entry))
}

func unpack[T any](e entry) (T, error) {
	var zero T
	if e.value == nil {
		return zero, e.err
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, errors.New("cache: type mismatch for memoized value")
	}
	return v, e.err
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
