package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pkgmeta/pkg/cache"
	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/httputil"
	"github.com/matzehuels/pkgmeta/pkg/integrations/fossil"
	"github.com/matzehuels/pkgmeta/pkg/integrations/github"
	"github.com/matzehuels/pkgmeta/pkg/merge"
	"github.com/matzehuels/pkgmeta/pkg/output"
	"github.com/matzehuels/pkgmeta/pkg/registry"
	"github.com/matzehuels/pkgmeta/pkg/resolve"
	"github.com/matzehuels/pkgmeta/pkg/vcs"
)

// Runner executes enrichment runs.
//
// The Runner holds no run state: the cache, HTTP client and resolvers are
// built inside Execute and dropped when it returns, so nothing leaks from
// one run into the next.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. If logger is nil, log.Default() is used.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// task is one source of one package.
type task struct {
	pkg, src int
	source   registry.Source
}

// Execute runs load → resolve → merge → write.
//
// Only FATAL errors and cancellation of ctx are returned; everything else
// is recorded on the affected source. A RunTimeout expiring is not an
// error: unfinished sources are written as cancelled.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, pmerrors.Wrap(pmerrors.ErrCodeInvalidInput, err, "invalid options")
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := opts.Logger.With("run", shortID(opts.RunID))
	start := opts.Now()

	pkgs, invalid, err := registry.Load(opts.InputPath)
	if err != nil {
		return nil, err
	}
	for _, inv := range invalid {
		logger.Warn("skipping registry entry", "index", inv.Index, "name", inv.Name, "error", pmerrors.UserMessage(inv.Err))
	}
	logger.Info("loaded registry", "packages", len(pkgs), "path", opts.InputPath)

	prev, err := output.ReadPrevious(opts.OutputPath)
	if err != nil {
		logger.Warn("previous artifact unreadable, added_at will be recomputed", "error", err)
		prev = nil
	}

	httpOpts := []httputil.Option{
		httputil.WithTimeout(opts.Timeout),
		httputil.WithUserAgent(opts.UserAgent),
		httputil.WithHooks(opts.Hooks.HTTP),
	}
	if opts.HTTPClient != nil {
		httpOpts = append(httpOpts, httputil.WithHTTPClient(opts.HTTPClient))
	}
	hc := httputil.NewClient(httpOpts...)
	defer hc.Close()

	git := opts.Git
	if git == nil {
		git = &vcs.Runner{Git: "git", Timeout: opts.Timeout, CloneTimeout: opts.CloneTimeout}
	}

	prober := httputil.NewProber(hc, remoteChecker(git))
	dispatcher := r.buildDispatcher(opts, hc, git, logger)

	// Sources start out cancelled and are overwritten as they finish.
	var tasks []task
	enriched := make([][]registry.EnrichedSource, len(pkgs))
	for i, p := range pkgs {
		enriched[i] = make([]registry.EnrichedSource, len(p.Sources))
		for j, s := range p.Sources {
			enriched[i][j] = merge.Cancelled(s)
			tasks = append(tasks, task{pkg: i, src: j, source: s})
		}
	}

	runCtx := ctx
	if opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.RunTimeout)
		defer cancel()
	}

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for _, t := range tasks {
		if runCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}
			es, ok := r.enrichSource(runCtx, prober, dispatcher, t.source, logger)
			if ok {
				enriched[t.pkg][t.src] = es
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		// Interrupted by the caller: keep the previous artifact untouched.
		return nil, err
	}
	if runCtx.Err() != nil {
		logger.Warn("run timeout reached, unfinished sources marked cancelled", "timeout", opts.RunTimeout)
	}

	history := opts.History
	if history == nil {
		if h, ok := git.(merge.History); ok {
			history = h
		}
	}
	var previous []registry.EnrichedPackage
	if prev != nil {
		previous = prev.Packages
	}
	added := merge.NewAddedAt(merge.AddedAtOptions{
		Previous:     previous,
		History:      history,
		RegistryPath: opts.InputPath,
		Now:          start,
		Logger:       logger,
	})

	result := &Result{RunID: opts.RunID, Packages: make([]registry.EnrichedPackage, len(pkgs))}
	for i, p := range pkgs {
		at, origin := added.Resolve(ctx, p.Name)
		if origin != merge.OriginPrevious {
			logger.Debug("assigned added_at", "package", p.Name, "added_at", at, "origin", origin)
		}
		result.Packages[i] = merge.Package(p, enriched[i], at)
	}
	result.Stats = collectStats(result.Packages)
	result.Stats.Skipped = len(invalid)

	writer := &output.Writer{
		Path:        opts.OutputPath,
		DryRun:      opts.DryRun,
		Unversioned: opts.Unversioned,
		Logger:      logger,
	}
	result.Decision, err = writer.Write(result.Packages, start)
	if err != nil {
		return nil, err
	}
	result.Breakers = hc.BreakerStates()
	result.Stats.Duration = time.Since(start)

	logger.Info("run complete",
		"packages", result.Stats.Packages,
		"sources", result.Stats.Sources,
		"unreachable", result.Stats.Unreachable,
		"errors", result.Stats.Errors,
		"version", result.Decision.Version,
		"changed", result.Decision.Changed,
		"duration", result.Stats.Duration)
	return result, nil
}

// enrichSource probes and resolves one source. ok is false when the run
// was cancelled before the source finished, leaving the cancelled record
// in place.
func (r *Runner) enrichSource(ctx context.Context, prober *httputil.Prober, d *resolve.Dispatcher, src registry.Source, logger *log.Logger) (registry.EnrichedSource, bool) {
	logger = logger.With("method", src.Method, "url", src.URL)

	if err := pmerrors.ValidateSourceURL(src.URL); err != nil {
		logger.Warn("invalid source", "error", pmerrors.UserMessage(err))
		es := registry.NewEnrichedSource(src)
		es.Error = registry.ErrInvalidSource
		return es, true
	}

	reachable, status := prober.Probe(ctx, src.URL)
	if ctx.Err() != nil {
		return registry.EnrichedSource{}, false
	}
	if !reachable {
		logger.Warn("source unreachable", "status", status)
		return merge.Unreachable(src), true
	}

	f, err := d.Resolve(ctx, src)
	if ctx.Err() != nil {
		return registry.EnrichedSource{}, false
	}
	if err != nil {
		logger.Debug("source degraded", "error", err, "code", f.Error, "kind", pmerrors.GetCode(err))
	}
	es := merge.Enrich(src, true, f)
	logger.Debug("resolved source", "commits", len(es.LastCommit), "tag", es.LastTag, "approximate", es.LastCommitApproximate)
	return es, true
}

func (r *Runner) buildDispatcher(opts Options, hc *httputil.Client, git resolve.GitRunner, logger *log.Logger) *resolve.Dispatcher {
	store := cache.New(opts.Hooks.Cache)

	gh := resolve.NewGitHub(
		github.NewClientWithBaseURL(hc, opts.GitHubToken, opts.GitHubBaseURL),
		store, opts.Commits, logger.WithPrefix("github"))

	d := resolve.NewDispatcher(opts.Hooks.Resolver)
	d.Register(registry.MethodFossil, resolve.NewFossil(fossil.NewClient(hc), store, resolve.FossilOptions{
		GitHub:  gh,
		Git:     git,
		Mirrors: opts.MirrorTable(),
		Depth:   opts.Commits,
		Logger:  logger.WithPrefix("fossil"),
	}))
	d.Register(registry.MethodGit, resolve.NewGit(git, store, resolve.GitOptions{
		GitHub:    gh,
		TempDir:   opts.TempDir,
		Prefix:    fmt.Sprintf("pkgmeta-%s-", shortID(opts.RunID)),
		MaxClones: opts.MaxClones,
		Depth:     opts.Commits,
		Logger:    logger.WithPrefix("git"),
	}))
	return d
}

// remoteChecker probes non-HTTP remotes with git ls-remote when the runner supports it.
func remoteChecker(git resolve.GitRunner) httputil.RemoteChecker {
	rc, ok := git.(interface {
		Reachable(ctx context.Context, remote string) bool
	})
	if !ok {
		return nil
	}
	return rc.Reachable
}

func collectStats(pkgs []registry.EnrichedPackage) Stats {
	s := Stats{Packages: len(pkgs)}
	for _, p := range pkgs {
		for _, src := range p.Sources {
			s.Sources++
			switch src.Error {
			case "":
			case registry.ErrUnreachable:
				s.Unreachable++
			case registry.ErrCancelled:
				s.Cancelled++
			default:
				s.Errors++
			}
		}
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
