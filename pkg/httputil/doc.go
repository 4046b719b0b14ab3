// Package httputil provides the HTTP primitives shared by every backend.
//
// # Overview
//
//   - [Client]: an http.Client wrapper with a per-call timeout, DNS caching,
//     redirect following, a User-Agent header and one circuit breaker per host
//   - [Prober]: the reachability gate run before any backend-specific work
//
// # Timeouts
//
// Every request is bounded by the client timeout (15 seconds by default) and
// by the caller's context, so one unresponsive host cannot stall a run.
//
// # Circuit Breaking
//
// Consecutive transport failures or 5xx responses from one host trip that
// host's breaker. While it is open, requests to the host fail immediately
// with a NETWORK_ERROR instead of waiting for another timeout. The breaker
// half-opens again after an exponential cool-down. 4xx responses never count
// as failures: a 404 or a 403 rate-limit is an answer, not an outage.
// [Prober] requests bypass the breakers, so every source on a tripped host
// is still probed and judged by its own response.
//
// # Retries
//
// There are none. A failed call degrades the affected fields to their
// "unknown" sentinel and the pipeline moves on.
package httputil
