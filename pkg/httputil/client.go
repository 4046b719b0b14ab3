package httputil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/observability"
)

const (
	// DefaultTimeout bounds a single HTTP call including redirects.
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent identifies pkgmeta to upstream servers.
	DefaultUserAgent = "pkgmeta/1.0"

	// DefaultBreakerThreshold is the number of consecutive failures that
	// opens a host's circuit breaker.
	DefaultBreakerThreshold = 5

	dnsRefreshInterval = 5 * time.Minute
)

// errServerStatus marks a 5xx response as a breaker failure without
// discarding the response itself.
var errServerStatus = errors.New("server error status")

// Client performs HTTP requests for the resolvers.
// It is safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
	breakers  *breakers
	hooks     observability.HTTPHooks
	stop      chan struct{}
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout    time.Duration
	userAgent  string
	threshold  int
	hooks      observability.HTTPHooks
	httpClient *http.Client
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) { c.userAgent = ua }
}

// WithBreakerThreshold sets how many consecutive failures open a host's breaker.
func WithBreakerThreshold(n int) Option {
	return func(c *clientConfig) { c.threshold = n }
}

// WithHooks sets the HTTP hooks notified for every request.
func WithHooks(h observability.HTTPHooks) Option {
	return func(c *clientConfig) { c.hooks = h }
}

// WithHTTPClient replaces the underlying transport client. Its Timeout is
// overwritten by [WithTimeout] only when that option is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// NewClient creates a Client with a DNS-caching transport.
// Call Close to stop the background DNS refresh.
func NewClient(opts ...Option) *Client {
	cfg := clientConfig{
		userAgent: DefaultUserAgent,
		threshold: DefaultBreakerThreshold,
		hooks:     observability.NoopHTTPHooks{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{
		userAgent: cfg.userAgent,
		breakers:  newBreakers(cfg.threshold),
		hooks:     cfg.hooks,
		stop:      make(chan struct{}),
	}

	if cfg.httpClient != nil {
		c.http = cfg.httpClient
		if cfg.timeout > 0 {
			c.http.Timeout = cfg.timeout
		}
		return c
	}

	if cfg.timeout <= 0 {
		cfg.timeout = DefaultTimeout
	}
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolver.Refresh(true)
			case <-c.stop:
				return
			}
		}
	}()

	dialer := &net.Dialer{
		Timeout:   cfg.timeout,
		KeepAlive: 30 * time.Second,
	}
	c.http = &http.Client{
		Timeout: cfg.timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				var lastErr error
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
					lastErr = err
				}
				return nil, fmt.Errorf("dial %s: %w", host, lastErr)
			},
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	return c
}

// Close stops background work. The client must not be used afterwards.
func (c *Client) Close() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

// Do sends req through the host's circuit breaker.
//
// Transport failures are returned as NETWORK_ERROR or TIMEOUT coded errors.
// Any HTTP response, including 4xx and 5xx, is returned with a nil error;
// status interpretation is the caller's job.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	prepared := c.prepare(req)
	b := c.breakers.get(req.URL.Host)
	if !b.Ready() {
		err := pmerrors.New(pmerrors.ErrCodeNetwork, "circuit open for %s", req.URL.Host)
		c.hooks.OnError(req.Context(), req.Method, req.URL.Host, req.URL.Path, err)
		return nil, err
	}

	var resp *http.Response
	err := b.Call(func() error {
		var err error
		resp, err = prepared.send()
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return errServerStatus
		}
		return nil
	}, 0)
	if err != nil && !errors.Is(err, errServerStatus) {
		return nil, prepared.fail(err)
	}
	prepared.done(resp)
	return resp, nil
}

// doUnguarded sends req without consulting or feeding the host's breaker.
// Reachability must reflect what the server answers now, so a host tripped
// by earlier failures is still contacted.
func (c *Client) doUnguarded(req *http.Request) (*http.Response, error) {
	prepared := c.prepare(req)
	resp, err := prepared.send()
	if err != nil {
		return nil, prepared.fail(err)
	}
	prepared.done(resp)
	return resp, nil
}

// call is one request in flight, with its hook bookkeeping.
type call struct {
	c     *Client
	req   *http.Request
	start time.Time
}

func (c *Client) prepare(req *http.Request) *call {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return &call{c: c, req: req}
}

func (k *call) send() (*http.Response, error) {
	k.c.hooks.OnRequest(k.req.Context(), k.req.Method, k.req.URL.Host, k.req.URL.Path)
	k.start = time.Now()
	return k.c.http.Do(k.req)
}

func (k *call) fail(err error) error {
	err = classify(err, k.req)
	k.c.hooks.OnError(k.req.Context(), k.req.Method, k.req.URL.Host, k.req.URL.Path, err)
	return err
}

func (k *call) done(resp *http.Response) {
	k.c.hooks.OnResponse(k.req.Context(), k.req.Method, k.req.URL.Host, k.req.URL.Path, resp.StatusCode, time.Since(k.start))
}

// Get issues a GET request with the given extra headers.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pmerrors.Wrap(pmerrors.ErrCodeInvalidInput, err, "build request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(req)
}

// BreakerStates reports "open" or "closed" for every host contacted so far.
func (c *Client) BreakerStates() map[string]string {
	return c.breakers.states()
}

func classify(err error, req *http.Request) error {
	target := req.URL.Redacted()
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return pmerrors.Wrap(pmerrors.ErrCodeTimeout, err, "%s %s", req.Method, target)
	}
	return pmerrors.Wrap(pmerrors.ErrCodeNetwork, err, "%s %s", req.Method, target)
}
