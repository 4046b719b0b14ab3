package resolve

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgmeta/pkg/cache"
	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/integrations"
	"github.com/matzehuels/pkgmeta/pkg/integrations/github"
	"github.com/matzehuels/pkgmeta/pkg/registry"
	"github.com/matzehuels/pkgmeta/pkg/versiontag"
)

// GitHub resolves github.com repositories through the REST API.
//
// Repository-level data (archived flag, latest release, latest tag) is
// memoized per owner/repo; commit history per owner/repo and module path.
type GitHub struct {
	client  *github.Client
	repos   *cache.Namespace
	commits *cache.Namespace
	depth   int
	logger  *log.Logger
}

// NewGitHub creates a GitHub resolver returning up to depth commits.
func NewGitHub(client *github.Client, store *cache.Store, depth int, logger *log.Logger) *GitHub {
	return &GitHub{
		client:  client,
		repos:   store.Namespace(cache.NSGitHubRepo),
		commits: store.Namespace(cache.NSGitHubCommits),
		depth:   max(depth, 1),
		logger:  orDiscard(logger),
	}
}

// Resolve implements [Resolver].
func (r *GitHub) Resolve(ctx context.Context, src registry.Source, module string) (Fields, error) {
	owner, repo, ok := github.ParseRepoURL(src.URL)
	if !ok {
		return Fields{Error: registry.ErrInvalidSource},
			pmerrors.New(pmerrors.ErrCodeInvalidSource, "not a GitHub repository: %s", src.URL)
	}
	return r.ResolveRepo(ctx, owner, repo, module)
}

type repoInfo struct {
	archived      *bool
	latestRelease string
	releaseDate   time.Time
	lastTag       string
}

// ResolveRepo resolves owner/repo directly. The Fossil resolver uses it for
// Git mirrors.
func (r *GitHub) ResolveRepo(ctx context.Context, owner, repo, module string) (Fields, error) {
	key := cache.RepoKey(owner, repo)

	info, infoErr := cache.Load(ctx, r.repos, key, func(ctx context.Context) (repoInfo, error) {
		return r.fetchRepo(ctx, owner, repo)
	})
	commits, commitErr := cache.Load(ctx, r.commits, cache.PathKey(key, module), func(ctx context.Context) ([]Commit, error) {
		return r.fetchCommits(ctx, owner, repo, module)
	})

	err := errors.Join(infoErr, commitErr)
	return Fields{
		Archived:      info.archived,
		LatestRelease: info.latestRelease,
		ReleaseDate:   info.releaseDate,
		Commits:       commits,
		LastTag:       info.lastTag,
		Error:         errorCode(err),
	}, err
}

func (r *GitHub) fetchRepo(ctx context.Context, owner, repo string) (repoInfo, error) {
	var info repoInfo

	data, err := r.client.Repo(ctx, owner, repo)
	if err != nil {
		r.logger.Debug("github repo lookup failed", "repo", owner+"/"+repo, "error", err)
		// Without the repository nothing else can be determined.
		return info, err
	}
	if data.FullName != "" && !strings.EqualFold(data.FullName, owner+"/"+repo) {
		r.logger.Warn("github repository moved, registry URL is stale", "repo", owner+"/"+repo, "now", data.FullName)
	}
	if data.PushedAt != nil {
		r.logger.Debug("github repository", "repo", data.FullName, "archived", data.Archived, "pushed_at", registry.FormatTime(*data.PushedAt))
	}
	archived := data.Archived
	info.archived = &archived

	var errs []error
	rel, err := r.client.LatestRelease(ctx, owner, repo)
	switch {
	case err == nil:
		info.latestRelease = rel.Tag
		info.releaseDate = rel.PublishedAt
	case errors.Is(err, integrations.ErrNotFound):
		info.latestRelease = registry.ReleaseNone
	default:
		errs = append(errs, err)
	}

	tags, err := r.client.Tags(ctx, owner, repo)
	if err != nil {
		errs = append(errs, err)
	} else {
		info.lastTag = versiontag.Select(tags)
	}
	return info, errors.Join(errs...)
}

func (r *GitHub) fetchCommits(ctx context.Context, owner, repo, module string) ([]Commit, error) {
	list, err := r.client.Commits(ctx, owner, repo, module, r.depth)
	if err != nil {
		r.logger.Debug("github commits failed", "repo", owner+"/"+repo, "path", module, "error", err)
		return nil, err
	}
	commits := make([]Commit, len(list))
	for i, c := range list {
		commits[i] = Commit(c)
	}
	return commits, nil
}
