// Package github provides an HTTP client for the GitHub REST API.
//
// # Overview
//
// This package fetches the data pkgmeta needs for GitHub-hosted sources and
// for Git mirrors of Fossil repositories:
//
//   - [Client.Repo]: archival status
//   - [Client.LatestRelease]: latest published release
//   - [Client.Commits]: newest commits, optionally filtered by path
//   - [Client.Tags]: tag names, fed to the version tag selector
//
// # Usage
//
//	client := github.NewClient(httputil.NewClient(), os.Getenv("GITHUB_TOKEN"))
//	owner, repo, ok := github.ParseRepoURL("https://github.com/tcltk/tcllib")
//	commits, err := client.Commits(ctx, owner, repo, "modules/ftp", 5)
//
// # Authentication
//
// A token is optional. Without one the API allows 60 requests per hour;
// with one, 5000. A 403 is reported as RATE_LIMITED and never retried.
//
// # Caching
//
// The client does not cache. Run-scoped memoization lives in the resolver
// layer, keyed by repository for repo-level data and by repository plus
// path for commit history.
package github
