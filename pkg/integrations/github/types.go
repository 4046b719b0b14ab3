package github

import "time"

// Repository holds the repository-level fields used for enrichment.
type Repository struct {
	FullName string
	Archived bool
	PushedAt *time.Time
}

// Release is the latest published release of a repository.
type Release struct {
	Tag         string
	PublishedAt time.Time
}

// Commit is one entry of a repository's commit list.
type Commit struct {
	Hash string // abbreviated to 7 characters
	Date time.Time
}
