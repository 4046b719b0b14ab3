package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	r := NoopResolverHooks{}
	r.OnResolveStart(ctx, "git", "https://example.org/repo.git")
	r.OnResolveComplete(ctx, "git", "https://example.org/repo.git", time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "github:repo", "tcltk/tcl")
	c.OnCacheMiss(ctx, "github:commits", "tcltk/tcl")

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "api.github.com", "/repos/tcltk/tcl")
	h.OnResponse(ctx, "GET", "api.github.com", "/repos/tcltk/tcl", 200, time.Second)
	h.OnError(ctx, "GET", "api.github.com", "/repos/tcltk/tcl", nil)
}

func TestHooksWithDefaults(t *testing.T) {
	h := Hooks{}.WithDefaults()
	if _, ok := h.Resolver.(NoopResolverHooks); !ok {
		t.Error("Resolver should default to NoopResolverHooks")
	}
	if _, ok := h.Cache.(NoopCacheHooks); !ok {
		t.Error("Cache should default to NoopCacheHooks")
	}
	if _, ok := h.HTTP.(NoopHTTPHooks); !ok {
		t.Error("HTTP should default to NoopHTTPHooks")
	}

	counter := NewCounter()
	h = Hooks{Cache: counter}.WithDefaults()
	if h.Cache != counter {
		t.Error("WithDefaults should keep explicitly set hooks")
	}
}

func TestCounter(t *testing.T) {
	ctx := context.Background()
	c := NewCounter()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.OnCacheMiss(ctx, "fossil:tags", "https://core.tcl-lang.org/tk")
			c.OnCacheHit(ctx, "fossil:tags", "https://core.tcl-lang.org/tk")
			c.OnRequest(ctx, "GET", "core.tcl-lang.org", "/tk/json/taglist")
		}()
	}
	wg.Wait()

	c.OnResolveStart(ctx, "fossil", "https://core.tcl-lang.org/tk")
	c.OnResolveComplete(ctx, "fossil", "https://core.tcl-lang.org/tk", time.Second, errors.New("date_not_found"))
	c.OnResolveComplete(ctx, "fossil", "https://core.tcl-lang.org/tk", time.Second, nil)
	c.OnError(ctx, "GET", "core.tcl-lang.org", "/tk", errors.New("dns"))

	if got := c.Fills("fossil:tags"); got != 10 {
		t.Errorf("Fills() = %d, want 10", got)
	}
	if got := c.Hits("fossil:tags"); got != 10 {
		t.Errorf("Hits() = %d, want 10", got)
	}
	if got := c.Requests("core.tcl-lang.org"); got != 10 {
		t.Errorf("Requests() = %d, want 10", got)
	}
	c.OnRequest(ctx, "HEAD", "github.com", "/tcltk/tk")
	if got := c.TotalRequests(); got != 11 {
		t.Errorf("TotalRequests() = %d, want 11", got)
	}
	if got := c.Resolves("fossil"); got != 1 {
		t.Errorf("Resolves() = %d, want 1", got)
	}
	if got := c.Failures("fossil"); got != 1 {
		t.Errorf("Failures() = %d, want 1", got)
	}
	if got := c.HTTPErrors(); got != 1 {
		t.Errorf("HTTPErrors() = %d, want 1", got)
	}
	if got := c.Fills("github:repo"); got != 0 {
		t.Errorf("Fills() for unknown namespace = %d, want 0", got)
	}
}
