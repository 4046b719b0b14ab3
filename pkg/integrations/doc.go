// Package integrations provides HTTP clients for the upstream hosting APIs.
//
// # Overview
//
// Each backend has its own subpackage:
//
//   - [github]: GitHub REST API (repository, releases, commits, tags)
//   - [fossil]: Fossil JSON API and HTML pages (timeline, tag and branch lists)
//
// # Shared Infrastructure
//
// [Client] wraps an [httputil.Client] with default headers and maps HTTP
// status codes onto the pkgmeta error taxonomy:
//
//   - 200: success
//   - 404: NOT_FOUND
//   - 403, 429: RATE_LIMITED (never retried)
//   - anything else, or a malformed JSON body: API_ERROR
//
// Transport failures surface as NETWORK_ERROR or TIMEOUT from httputil.
// Clients return these errors; resolvers turn them into degraded fields.
//
// [github]: github.com/matzehuels/pkgmeta/pkg/integrations/github
// [fossil]: github.com/matzehuels/pkgmeta/pkg/integrations/fossil
// [httputil.Client]: github.com/matzehuels/pkgmeta/pkg/httputil.Client
package integrations
