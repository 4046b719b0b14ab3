package cache

import "strings"

// RepoKey is the key for repository-level data of a hosted repository.
func RepoKey(owner, repo string) string {
	return strings.ToLower(owner + "/" + repo)
}

// PathKey scopes a repository key to a module path. Commit history filtered
// by path must never be shared with the whole-repository history.
func PathKey(repoKey, path string) string {
	return repoKey + "#" + strings.Trim(path, "/")
}
