// Package resolve turns a registry source into upstream metadata.
//
// Each backend implements [Resolver]: [GitHub] for github.com repositories,
// [Fossil] for Fossil repositories (JSON API, then a Git mirror, then the
// HTML timeline) and [Git] for any other Git remote (shallow clone). A
// [Dispatcher] selects the resolver by the source's method.
//
// Resolvers never fail a run. Whatever they could not determine is left at
// its "not determined" value in [Fields], and the returned error only
// explains the degradation for logs and hooks.
package resolve

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/integrations/fossil"
	"github.com/matzehuels/pkgmeta/pkg/observability"
	"github.com/matzehuels/pkgmeta/pkg/registry"
	"github.com/matzehuels/pkgmeta/pkg/vcs"
)

// Commit is one commit or check-in, newest first in [Fields.Commits].
type Commit struct {
	Hash string
	Date time.Time
}

// Fields is the metadata a resolver determined for one source.
type Fields struct {
	Archived      *bool
	LatestRelease string
	ReleaseDate   time.Time
	Commits       []Commit

	// Approximate marks commit data scraped from HTML, which cannot be
	// attributed to a module path.
	Approximate bool

	LastTag string

	// Error is the short code stored in the source's error field.
	Error string
}

// Resolver gathers metadata for one source. module is the path inside the
// repository the source is scoped to, or "" for the whole repository.
type Resolver interface {
	Resolve(ctx context.Context, src registry.Source, module string) (Fields, error)
}

// GitRunner is the subset of git operations the resolvers use.
// [vcs.Runner] implements it.
type GitRunner interface {
	ShallowClone(ctx context.Context, url, dir string, depth int) error
	Log(ctx context.Context, dir string, n int) ([]vcs.Commit, error)
	Tags(ctx context.Context, dir string) ([]string, error)
	RemoteTags(ctx context.Context, remote string) ([]string, error)
}

var _ GitRunner = (*vcs.Runner)(nil)

// Dispatcher routes sources to the resolver registered for their method.
type Dispatcher struct {
	resolvers map[string]Resolver
	hooks     observability.ResolverHooks
}

// NewDispatcher creates an empty Dispatcher. hooks may be nil.
func NewDispatcher(hooks observability.ResolverHooks) *Dispatcher {
	if hooks == nil {
		hooks = observability.NoopResolverHooks{}
	}
	return &Dispatcher{resolvers: make(map[string]Resolver), hooks: hooks}
}

// Register sets the resolver for method.
func (d *Dispatcher) Register(method string, r Resolver) {
	d.resolvers[method] = r
}

// Resolve runs the resolver for src.Method. An unknown method yields
// Fields with Error "unknown_method".
func (d *Dispatcher) Resolve(ctx context.Context, src registry.Source) (Fields, error) {
	r, ok := d.resolvers[src.Method]
	if !ok {
		return Fields{Error: registry.ErrUnknownMethod},
			pmerrors.New(pmerrors.ErrCodeUnsupported, "unknown method %q", src.Method)
	}

	start := time.Now()
	d.hooks.OnResolveStart(ctx, src.Method, src.URL)
	f, err := r.Resolve(ctx, src, ModuleHint(src))
	if ctx.Err() != nil {
		f.Error = registry.ErrCancelled
		if err == nil {
			err = ctx.Err()
		}
	}
	d.hooks.OnResolveComplete(ctx, src.Method, src.URL, time.Since(start), err)
	return f, err
}

// githubTreePattern matches the path part of github.com/o/r/tree/<ref>/<path>.
var githubTreePattern = regexp.MustCompile(`github\.com/[^/]+/[^/]+/(?:tree|blob)/[^/]+/(.+)$`)

// ModuleHint returns the repository path a source is scoped to: the name=
// parameter of a Fossil URL, or the path after tree/<ref>/ in a GitHub URL.
func ModuleHint(src registry.Source) string {
	switch src.Method {
	case registry.MethodFossil:
		return fossil.ModulePath(src.URL)
	case registry.MethodGit:
		if m := githubTreePattern.FindStringSubmatch(src.URL); m != nil {
			path, _, _ := strings.Cut(m[1], "?")
			return strings.Trim(path, "/")
		}
	}
	return ""
}

// errorCode maps a resolver error onto the source error field. API errors
// leave the field empty: the affected values simply stay undetermined.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return registry.ErrCancelled
	case pmerrors.Is(err, pmerrors.ErrCodeRateLimited):
		return registry.ErrRateLimited
	}
	return ""
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard)
	}
	return l
}
