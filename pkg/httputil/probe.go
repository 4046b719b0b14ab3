package httputil

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// RemoteChecker reports whether a non-HTTP remote (git://, ssh://, scp-like)
// answers. It is supplied by the VCS layer.
type RemoteChecker func(ctx context.Context, rawURL string) bool

// Prober is the reachability gate.
type Prober struct {
	client *Client
	remote RemoteChecker
}

// NewProber creates a Prober. remote may be nil, in which case non-HTTP
// URLs are reported unreachable.
func NewProber(client *Client, remote RemoteChecker) *Prober {
	return &Prober{client: client, remote: remote}
}

// Probe reports whether rawURL answers with a 2xx or 3xx status.
//
// It sends a redirect-following HEAD and retries once with GET when the
// server rejects HEAD. Any failure (DNS, TLS, timeout) yields (false, 0).
// Probes bypass the per-host circuit breaker: a tripped host is still asked. Non-HTTP URLs are delegated to the RemoteChecker and report
// status 0.
func (p *Prober) Probe(ctx context.Context, rawURL string) (reachable bool, status int) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		if p.remote == nil {
			return false, 0
		}
		return p.remote(ctx, rawURL), 0
	}

	status = p.do(ctx, http.MethodHead, rawURL)
	switch status {
	case http.StatusMethodNotAllowed, http.StatusForbidden, http.StatusNotImplemented:
		if s := p.do(ctx, http.MethodGet, rawURL); s != 0 {
			status = s
		}
	}
	return IsReachableStatus(status), status
}

func (p *Prober) do(ctx context.Context, method, rawURL string) int {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0
	}
	resp, err := p.client.doUnguarded(req)
	if err != nil {
		return 0
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return resp.StatusCode
}

// IsReachableStatus reports whether an HTTP status counts as reachable.
func IsReachableStatus(status int) bool {
	return status >= 200 && status < 400
}
