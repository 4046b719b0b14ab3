package merge

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgmeta/pkg/registry"
)

// Origin tells where an added_at value came from.
type Origin string

const (
	OriginPrevious Origin = "previous"
	OriginHistory  Origin = "history"
	OriginRunTime  Origin = "run"
)

// History finds the first commit of a file's history whose diff adds or
// removes a string. [vcs.Runner] implements it.
type History interface {
	FirstCommitTouching(ctx context.Context, dir, path, needle string) (time.Time, bool, error)
}

// AddedAt decides when each package was first added to the registry.
//
// A value recorded in the previous artifact is reused unchanged. Otherwise
// the registry file's git history is searched for the first commit that
// introduced the quoted package name. Failing both, the run time is used.
type AddedAt struct {
	previous     map[string]string
	history      History
	registryPath string
	now          string
	logger       *log.Logger
}

// AddedAtOptions configures an AddedAt resolver.
type AddedAtOptions struct {
	// Previous is the package portion of the last artifact, if any.
	Previous []registry.EnrichedPackage

	// History searches the registry file's history. Nil skips that step.
	History History

	// RegistryPath is the registry file inside a git work tree.
	RegistryPath string

	// Now is the run timestamp.
	Now time.Time

	Logger *log.Logger
}

// NewAddedAt creates an AddedAt resolver.
func NewAddedAt(opts AddedAtOptions) *AddedAt {
	prev := make(map[string]string, len(opts.Previous))
	for _, p := range opts.Previous {
		if at := p.AddedAt(); at != "" {
			prev[p.Name] = at
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &AddedAt{
		previous:     prev,
		history:      opts.History,
		registryPath: opts.RegistryPath,
		now:          registry.FormatTime(opts.Now),
		logger:       logger,
	}
}

// Resolve returns the added_at value for the package called name.
func (a *AddedAt) Resolve(ctx context.Context, name string) (string, Origin) {
	if at, ok := a.previous[name]; ok {
		return at, OriginPrevious
	}

	if a.history != nil && a.registryPath != "" {
		dir, file := filepath.Split(a.registryPath)
		if dir == "" {
			dir = "."
		}
		// Names are searched in their JSON-encoded form so "tk" does not match "tklib".
		date, ok, err := a.history.FirstCommitTouching(ctx, dir, file, strconv.Quote(name))
		if err != nil {
			a.logger.Debug("registry history lookup failed", "package", name, "error", err)
		}
		if ok {
			return registry.FormatTime(date), OriginHistory
		}
	}
	return a.now, OriginRunTime
}
