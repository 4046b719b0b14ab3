package registry

import "time"

// Source methods.
const (
	MethodGit    = "git"
	MethodFossil = "fossil"
)

// ReleaseNone marks a repository that was checked and has no published release.
const ReleaseNone = "none"

// Source error codes recorded in [EnrichedSource.Error].
const (
	ErrUnreachable   = "unreachable"
	ErrCloneFailed   = "clone_failed"
	ErrGitFailed     = "git_failed"
	ErrUnknownMethod = "unknown_method"
	ErrRateLimited   = "rate_limited"
	ErrDateNotFound  = "date_not_found"
	ErrCancelled     = "cancelled"
	ErrInvalidSource = "invalid_source"
)

// Source is one upstream location of a package. It is never mutated.
type Source struct {
	URL     string `json:"url"`
	Method  string `json:"method"`
	Web     string `json:"web,omitempty"`
	Author  string `json:"author"`
	License string `json:"license"`
}

// Package is one registry entry. Name is its identity.
type Package struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Sources     []Source `json:"sources"`
}

// EnrichedSource is a Source plus the metadata gathered for it in one run.
type EnrichedSource struct {
	Source

	Reachable             bool     `json:"reachable"`
	Archived              *bool    `json:"archived"`
	LatestRelease         string   `json:"latest_release"`
	LastCommit            []string `json:"last_commit"`
	LastCommitSHA         []string `json:"last_commit_sha"`
	LastCommitApproximate bool     `json:"last_commit_approximate"`
	LastTag               string   `json:"last_tag"`
	LastReleaseDate       string   `json:"last_release_date"`
	AddedAt               string   `json:"added_at"`
	Error                 string   `json:"error"`
}

// NewEnrichedSource returns src with every enrichment field at its
// "not determined" value.
func NewEnrichedSource(src Source) EnrichedSource {
	return EnrichedSource{
		Source:        src,
		LastCommit:    []string{},
		LastCommitSHA: []string{},
	}
}

// EnrichedPackage is the artifact record for one registry entry.
type EnrichedPackage struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Tags        []string         `json:"tags"`
	Sources     []EnrichedSource `json:"sources"`
}

// AddedAt returns the added_at value recorded on the first source, or "".
func (p EnrichedPackage) AddedAt() string {
	if len(p.Sources) == 0 {
		return ""
	}
	return p.Sources[0].AddedAt
}

// Collection names the package ecosystem the artifact describes.
const Collection = "Tcl/Tk"

// Header is the first element of the artifact.
type Header struct {
	GeneratedAt   string `json:"generated_at"`
	Version       int    `json:"version"`
	TotalPackages int    `json:"total_packages"`
	Packages      string `json:"packages,omitempty"`
}

// FormatTime renders t as an RFC 3339 UTC timestamp with second precision.
// The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Normalize replaces nil slices with empty ones so the artifact never
// carries null lists.
func (p *EnrichedPackage) Normalize() {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Sources == nil {
		p.Sources = []EnrichedSource{}
	}
	for i := range p.Sources {
		s := &p.Sources[i]
		if s.LastCommit == nil {
			s.LastCommit = []string{}
		}
		if s.LastCommitSHA == nil {
			s.LastCommitSHA = []string{}
		}
	}
}
