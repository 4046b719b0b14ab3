// Package pkg provides the core libraries for pkgmeta.
//
// # Overview
//
// pkgmeta enriches a curated package registry with metadata pulled from the
// upstream repositories of each package. The pkg directory is organized
// into these areas:
//
//  1. [registry] - Input and output data model
//  2. [resolve] - GitHub, Fossil and generic Git resolvers
//  3. [integrations] - HTTP API clients (GitHub REST, Fossil JSON and HTML)
//  4. [vcs], [httputil] - Git subprocesses and HTTP primitives
//  5. [cache], [versiontag], [merge], [output] - Run-scoped caching, tag
//     selection, merging and the versioned artifact
//  6. [pipeline] - Orchestration (load → resolve → merge → write)
//
// # Architecture
//
// The data flow of one run:
//
//	packages.json
//	     ↓
//	[registry] (load and validate)
//	     ↓
//	[httputil] Prober (reachability)
//	     ↓
//	[resolve] Dispatcher → GitHub | Fossil | Git   ([cache] shared per run)
//	     ↓
//	[merge] (enriched sources + added_at)
//	     ↓
//	[output] Writer → packages-meta.json (version bumped only on change)
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/pkgmeta/pkg/pipeline"
//	)
//
//	result, err := pipeline.NewRunner(logger).Execute(ctx, pipeline.Options{
//	    InputPath:   "packages.json",
//	    OutputPath:  "metadata/packages-meta.json",
//	    GitHubToken: os.Getenv("GITHUB_TOKEN"),
//	})
//
// # Errors
//
// Per-source failures never abort a run; they are recorded in the source's
// error field. See [errors] for the code taxonomy.
//
// [registry]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/registry
// [resolve]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/resolve
// [integrations]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/integrations
// [vcs]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/vcs
// [httputil]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/httputil
// [cache]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/cache
// [versiontag]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/versiontag
// [merge]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/merge
// [output]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/output
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/pipeline
// [errors]: https://pkg.go.dev/github.com/matzehuels/pkgmeta/pkg/errors
package pkg
