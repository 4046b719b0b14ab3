// Package merge combines registry entries with resolver output into the
// records written to the artifact, and decides each package's added_at.
package merge

import (
	"github.com/matzehuels/pkgmeta/pkg/registry"
	"github.com/matzehuels/pkgmeta/pkg/resolve"
)

// Enrich attaches resolver fields to src.
func Enrich(src registry.Source, reachable bool, f resolve.Fields) registry.EnrichedSource {
	es := registry.NewEnrichedSource(src)
	es.Reachable = reachable
	es.Archived = f.Archived
	es.LatestRelease = f.LatestRelease
	es.LastReleaseDate = registry.FormatTime(f.ReleaseDate)
	es.LastTag = f.LastTag
	es.Error = f.Error

	for _, c := range f.Commits {
		es.LastCommit = append(es.LastCommit, registry.FormatTime(c.Date))
		es.LastCommitSHA = append(es.LastCommitSHA, c.Hash)
	}
	es.LastCommitApproximate = f.Approximate && len(f.Commits) > 0
	return es
}

// Unreachable returns src with every enrichment field undetermined.
func Unreachable(src registry.Source) registry.EnrichedSource {
	es := registry.NewEnrichedSource(src)
	es.Error = registry.ErrUnreachable
	return es
}

// Cancelled returns src as emitted when the run ended before it was resolved.
func Cancelled(src registry.Source) registry.EnrichedSource {
	es := registry.NewEnrichedSource(src)
	es.Error = registry.ErrCancelled
	return es
}

// Package assembles the artifact record for pkg. addedAt is written into
// every source.
func Package(pkg registry.Package, sources []registry.EnrichedSource, addedAt string) registry.EnrichedPackage {
	out := registry.EnrichedPackage{
		Name:        pkg.Name,
		Description: pkg.Description,
		Tags:        pkg.Tags,
		Sources:     make([]registry.EnrichedSource, len(sources)),
	}
	copy(out.Sources, sources)
	for i := range out.Sources {
		out.Sources[i].AddedAt = addedAt
	}
	out.Normalize()
	return out
}
