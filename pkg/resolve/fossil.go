package resolve

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pkgmeta/pkg/cache"
	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/integrations/fossil"
	"github.com/matzehuels/pkgmeta/pkg/integrations/github"
	"github.com/matzehuels/pkgmeta/pkg/registry"
	"github.com/matzehuels/pkgmeta/pkg/versiontag"
)

// DefaultMirrors maps Fossil repository base URLs to their Git mirrors.
var DefaultMirrors = map[string]string{
	"https://core.tcl-lang.org/tcllib": "https://github.com/tcltk/tcllib",
	"https://core.tcl-lang.org/tcl":    "https://github.com/tcltk/tcl",
	"https://core.tcl-lang.org/tk":     "https://github.com/tcltk/tk",
}

// Fossil resolves Fossil repositories.
//
// Commit history comes from the first stage that yields anything:
//
//  1. the JSON timeline, filtered by module path
//  2. the registered Git mirror, through the GitHub resolver
//  3. the HTML timeline page, marked approximate
//
// Tags come from the JSON tag list, then the HTML tag and branch lists,
// then the mirror's remote tags. History is memoized per source URL, tags
// per repository base URL.
type Fossil struct {
	client  *fossil.Client
	github  *GitHub
	git     GitRunner
	mirrors map[string]string
	commits *cache.Namespace
	tags    *cache.Namespace
	depth   int
	logger  *log.Logger
}

// FossilOptions configures a Fossil resolver.
type FossilOptions struct {
	// GitHub resolves mirrors. Mirror delegation is skipped when nil.
	GitHub *GitHub

	// Git lists mirror tags. The mirror tag fallback is skipped when nil.
	Git GitRunner

	// Mirrors maps base URLs to Git mirror URLs. Nil means DefaultMirrors.
	Mirrors map[string]string

	Depth  int
	Logger *log.Logger
}

// NewFossil creates a Fossil resolver.
func NewFossil(client *fossil.Client, store *cache.Store, opts FossilOptions) *Fossil {
	mirrors := opts.Mirrors
	if mirrors == nil {
		mirrors = DefaultMirrors
	}
	return &Fossil{
		client:  client,
		github:  opts.GitHub,
		git:     opts.Git,
		mirrors: mirrors,
		commits: store.Namespace(cache.NSFossilCommits),
		tags:    store.Namespace(cache.NSFossilTags),
		depth:   max(opts.Depth, 1),
		logger:  orDiscard(opts.Logger),
	}
}

type fossilHistory struct {
	commits       []Commit
	approximate   bool
	archived      *bool
	latestRelease string
	releaseDate   time.Time
}

// Resolve implements [Resolver].
func (r *Fossil) Resolve(ctx context.Context, src registry.Source, module string) (Fields, error) {
	base := fossil.BaseURL(src.URL)

	hist, histErr := cache.Load(ctx, r.commits, src.URL, func(ctx context.Context) (fossilHistory, error) {
		return r.history(ctx, base, module)
	})
	tag, _ := cache.Load(ctx, r.tags, base, func(ctx context.Context) (string, error) {
		return r.latestTag(ctx, base)
	})

	f := Fields{
		Archived:      hist.archived,
		LatestRelease: hist.latestRelease,
		ReleaseDate:   hist.releaseDate,
		Commits:       hist.commits,
		Approximate:   hist.approximate,
		LastTag:       tag,
	}
	if len(hist.commits) == 0 {
		f.Error = registry.ErrDateNotFound
	}
	if code := errorCode(histErr); code != "" {
		f.Error = code
	}
	return f, histErr
}

func (r *Fossil) history(ctx context.Context, base, module string) (fossilHistory, error) {
	logger := r.logger.With("base", base, "module", module)

	checkins, err := r.client.Timeline(ctx, base, module, r.depth)
	if err == nil && len(checkins) > 0 {
		commits := make([]Commit, len(checkins))
		for i, ci := range checkins {
			commits[i] = Commit(ci)
		}
		return fossilHistory{commits: commits}, nil
	}
	logger.Debug("fossil json timeline empty", "error", err)

	if mirror, ok := r.mirrors[base]; ok && r.github != nil {
		if owner, repo, ok := github.ParseRepoURL(mirror); ok {
			mf, err := r.github.ResolveRepo(ctx, owner, repo, module)
			if len(mf.Commits) > 0 {
				return fossilHistory{
					commits:       mf.Commits,
					archived:      mf.Archived,
					latestRelease: mf.LatestRelease,
					releaseDate:   mf.ReleaseDate,
				}, nil
			}
			logger.Debug("fossil mirror yielded no commits", "mirror", mirror, "error", err)
		}
	}

	ci, ok, err := r.client.LatestFromHTML(ctx, base, module)
	if !ok && module != "" {
		logger.Debug("fossil html timeline for module empty, trying whole repository", "error", err)
		ci, ok, err = r.client.LatestFromHTML(ctx, base, "")
	}
	if ok {
		return fossilHistory{commits: []Commit{Commit(ci)}, approximate: true}, nil
	}
	if ctx.Err() != nil {
		return fossilHistory{}, ctx.Err()
	}
	return fossilHistory{}, pmerrors.Wrap(pmerrors.ErrCodeNotFound, err, "no check-in date for %s", base)
}

type tagSource struct {
	name  string
	fetch func(context.Context) ([]string, error)
}

func (r *Fossil) latestTag(ctx context.Context, base string) (string, error) {
	sources := []tagSource{
		{"json taglist", func(ctx context.Context) ([]string, error) { return r.client.TagList(ctx, base) }},
		{"html taglist", func(ctx context.Context) ([]string, error) { return r.client.SymbolicNames(ctx, base, "taglist") }},
		{"html brlist", func(ctx context.Context) ([]string, error) { return r.client.SymbolicNames(ctx, base, "brlist") }},
	}
	if mirror, ok := r.mirrors[base]; ok && r.git != nil {
		sources = append(sources, tagSource{"mirror ls-remote", func(ctx context.Context) ([]string, error) {
			return r.git.RemoteTags(ctx, mirror)
		}})
	}

	for _, s := range sources {
		tags, err := s.fetch(ctx)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err != nil {
			r.logger.Debug("fossil tag source failed", "base", base, "source", s.name, "error", err)
			continue
		}
		if tag := versiontag.Select(tags); tag != "" {
			return tag, nil
		}
	}
	return "", nil
}
