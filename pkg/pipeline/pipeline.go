// Package pipeline provides the metadata enrichment pipeline for pkgmeta.
//
// A run loads the registry, resolves every source on a bounded worker pool,
// merges the results with each package's added_at and hands the enriched
// packages to the versioned artifact writer. The CLI is a thin layer over
// [Runner.Execute].
//
// # Architecture
//
// Every source goes through the same steps:
//
//  1. Probe: a HEAD/GET reachability check; unreachable sources stop here
//  2. Resolve: the resolver registered for the source's method
//  3. Enrich: resolver fields are attached to the source
//
// Per-source failures degrade that source only. The run fails only when the
// registry cannot be read or the artifact cannot be written.
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    InputPath:  "packages.json",
//	    OutputPath: "metadata/packages-meta.json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Decision.Version)
package pipeline

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgmeta/pkg/buildinfo"
	"github.com/matzehuels/pkgmeta/pkg/httputil"
	"github.com/matzehuels/pkgmeta/pkg/integrations/github"
	"github.com/matzehuels/pkgmeta/pkg/merge"
	"github.com/matzehuels/pkgmeta/pkg/observability"
	"github.com/matzehuels/pkgmeta/pkg/output"
	"github.com/matzehuels/pkgmeta/pkg/registry"
	"github.com/matzehuels/pkgmeta/pkg/resolve"
	"github.com/matzehuels/pkgmeta/pkg/vcs"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Config File
// =============================================================================

const (
	// DefaultInputPath is the registry file.
	DefaultInputPath = "packages.json"

	// DefaultOutputPath is the artifact file.
	DefaultOutputPath = "metadata/packages-meta.json"

	// DefaultCommits is how many recent commits are recorded per source.
	DefaultCommits = 5

	// DefaultWorkers is the number of sources resolved in parallel.
	DefaultWorkers = 8

	// DefaultMaxClones caps concurrent git clones.
	DefaultMaxClones = resolve.DefaultMaxClones

	// DefaultTimeout bounds each HTTP call and non-clone git command.
	DefaultTimeout = httputil.DefaultTimeout

	// DefaultCloneTimeout bounds each clone.
	DefaultCloneTimeout = vcs.DefaultCloneTimeout
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one run.
type Options struct {
	InputPath    string
	OutputPath   string
	Commits      int
	Workers      int
	MaxClones    int
	Timeout      time.Duration
	CloneTimeout time.Duration

	// RunTimeout cancels outstanding work when it elapses; 0 disables it.
	// Sources not resolved in time are emitted with error "cancelled".
	RunTimeout time.Duration

	DryRun      bool
	Unversioned bool
	TempDir     string
	UserAgent   string

	// Mirrors are added to, and override, resolve.DefaultMirrors.
	Mirrors map[string]string

	// Runtime collaborators and overrides
	GitHubToken   string
	GitHubBaseURL string
	HTTPClient    *http.Client
	RunID         string
	Now           func() time.Time
	Git           resolve.GitRunner
	History       merge.History
	Hooks         observability.Hooks
	Logger        *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result describes a finished run.
type Result struct {
	RunID    string
	Packages []registry.EnrichedPackage
	Decision output.Decision
	Stats    Stats

	// Breakers reports the circuit state of every HTTP host contacted.
	Breakers map[string]string
}

// Stats contains run statistics.
type Stats struct {
	Packages    int
	Sources     int
	Unreachable int
	Errors      int
	Cancelled   int

	// Skipped counts registry entries left out for lack of a usable name.
	Skipped  int
	Duration time.Duration
}

// ValidateAndSetDefaults checks fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.InputPath == "" {
		o.InputPath = DefaultInputPath
	}
	if o.OutputPath == "" {
		o.OutputPath = DefaultOutputPath
	}
	if o.Commits == 0 {
		o.Commits = DefaultCommits
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.MaxClones == 0 {
		o.MaxClones = DefaultMaxClones
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.CloneTimeout == 0 {
		o.CloneTimeout = DefaultCloneTimeout
	}
	if o.GitHubBaseURL == "" {
		o.GitHubBaseURL = github.DefaultBaseURL
	}
	if o.UserAgent == "" {
		o.UserAgent = buildinfo.UserAgent()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.Hooks = o.Hooks.WithDefaults()

	switch {
	case o.Commits < 1:
		return fmt.Errorf("commits must be at least 1, got %d", o.Commits)
	case o.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", o.Workers)
	case o.MaxClones < 1:
		return fmt.Errorf("max_clones must be at least 1, got %d", o.MaxClones)
	case o.Timeout < 0 || o.CloneTimeout < 0 || o.RunTimeout < 0:
		return fmt.Errorf("timeouts cannot be negative")
	}
	for base, mirror := range o.Mirrors {
		if !github.IsGitHubURL(mirror) {
			return fmt.Errorf("mirror for %s must be a github.com repository, got %q", base, mirror)
		}
	}
	o.validated = true
	return nil
}

// MirrorTable returns the default mirrors merged with o.Mirrors.
func (o *Options) MirrorTable() map[string]string {
	table := make(map[string]string, len(resolve.DefaultMirrors)+len(o.Mirrors))
	for k, v := range resolve.DefaultMirrors {
		table[k] = v
	}
	for k, v := range o.Mirrors {
		table[k] = v
	}
	return table
}
