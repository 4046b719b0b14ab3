package resolve

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/pkgmeta/pkg/cache"
	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/integrations"
	"github.com/matzehuels/pkgmeta/pkg/integrations/github"
	"github.com/matzehuels/pkgmeta/pkg/registry"
	"github.com/matzehuels/pkgmeta/pkg/versiontag"
)

// DefaultMaxClones caps concurrent clones.
const DefaultMaxClones = 2

// Git resolves arbitrary Git remotes with a shallow, blob-less clone into a
// scratch directory that is removed before Resolve returns. GitHub-hosted
// URLs are delegated to the GitHub resolver instead.
type Git struct {
	runner  GitRunner
	github  *GitHub
	clones  *cache.Namespace
	sem     *semaphore.Weighted
	tempDir string
	prefix  string
	depth   int
	logger  *log.Logger
}

// GitOptions configures a Git resolver.
type GitOptions struct {
	// GitHub handles github.com URLs. When nil they are cloned like any other remote.
	GitHub *GitHub

	// TempDir is the parent of scratch directories; "" means os.TempDir,
	// which honors TMPDIR.
	TempDir string

	// Prefix names scratch directories, typically including the run ID.
	Prefix string

	MaxClones int
	Depth     int
	Logger    *log.Logger
}

// NewGit creates a Git resolver.
func NewGit(runner GitRunner, store *cache.Store, opts GitOptions) *Git {
	if opts.MaxClones < 1 {
		opts.MaxClones = DefaultMaxClones
	}
	if opts.Prefix == "" {
		opts.Prefix = "pkgmeta-"
	}
	return &Git{
		runner:  runner,
		github:  opts.GitHub,
		clones:  store.Namespace(cache.NSGitClone),
		sem:     semaphore.NewWeighted(int64(opts.MaxClones)),
		tempDir: opts.TempDir,
		prefix:  opts.Prefix,
		depth:   max(opts.Depth, 1),
		logger:  orDiscard(opts.Logger),
	}
}

// Resolve implements [Resolver].
func (r *Git) Resolve(ctx context.Context, src registry.Source, module string) (Fields, error) {
	if owner, repo, ok := github.ParseRepoURL(src.URL); ok && r.github != nil {
		return r.github.ResolveRepo(ctx, owner, repo, module)
	}
	// "https://host/r.git" and "https://host/r/" share one clone.
	return cache.Load(ctx, r.clones, integrations.NormalizeRepoURL(src.URL), func(ctx context.Context) (Fields, error) {
		return r.clone(ctx, src.URL)
	})
}

func (r *Git) clone(ctx context.Context, url string) (Fields, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Fields{Error: registry.ErrCancelled}, err
	}
	defer r.sem.Release(1)

	scratch, err := os.MkdirTemp(r.tempDir, r.prefix)
	if err != nil {
		return Fields{Error: registry.ErrCloneFailed}, pmerrors.Wrap(pmerrors.ErrCodeVCSExec, err, "create scratch directory")
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			r.logger.Warn("failed to remove scratch directory", "dir", scratch, "error", err)
		}
	}()

	dir := filepath.Join(scratch, "repo")
	if err := r.runner.ShallowClone(ctx, url, dir, r.depth); err != nil {
		r.logger.Debug("clone failed", "url", url, "error", err)
		return Fields{Error: registry.ErrCloneFailed}, err
	}

	var f Fields
	history, err := r.runner.Log(ctx, dir, r.depth)
	if err != nil {
		f.Error = registry.ErrGitFailed
		return f, err
	}
	f.Commits = make([]Commit, len(history))
	for i, c := range history {
		f.Commits[i] = Commit(c)
	}

	tags, err := r.runner.Tags(ctx, dir)
	if err == nil && len(tags) == 0 {
		// Shallow clones usually carry no tags.
		tags, err = r.runner.RemoteTags(ctx, url)
	}
	if err != nil {
		f.Error = registry.ErrGitFailed
		return f, err
	}
	f.LastTag = versiontag.Select(tags)
	return f, nil
}
