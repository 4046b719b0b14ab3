package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/httputil"
)

// maxBodySize caps how much of a response is read. Timeline pages of large
// Fossil repositories are the biggest bodies fetched.
const maxBodySize = 8 << 20

// Client provides shared HTTP functionality for all backend API clients.
// It applies default headers and maps status codes onto the error taxonomy.
type Client struct {
	http    *httputil.Client
	headers map[string]string
}

// NewClient creates a Client with the given transport and default headers.
// Headers are applied to all requests made through this client.
// Pass nil for headers if no default headers are needed.
func NewClient(hc *httputil.Client, headers map[string]string) *Client {
	return &Client{
		http:    hc,
		headers: headers,
	}
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
// A body that is not valid JSON yields an API_ERROR.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := c.doRequest(ctx, url, headers)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(io.LimitReader(body, maxBodySize)).Decode(v); err != nil {
		return pmerrors.Wrap(pmerrors.ErrCodeAPI, err, "decode %s", url)
	}
	return nil
}

// GetText performs an HTTP GET request and returns the response body as a string.
// Used for HTML pages scraped as a last resort.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	body, err := c.doRequest(ctx, url, nil)
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize))
	if err != nil {
		return "", pmerrors.Wrap(pmerrors.ErrCodeNetwork, err, "read %s", url)
	}
	return string(data), nil
}

func (c *Client) doRequest(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	merged := make(map[string]string, len(c.headers)+len(headers))
	for k, v := range c.headers {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}

	resp, err := c.http.Get(ctx, url, merged)
	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp, url); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(resp *http.Response, url string) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return pmerrors.Wrap(pmerrors.ErrCodeNotFound, ErrNotFound, "%s", url)
	case code == http.StatusForbidden, code == http.StatusTooManyRequests:
		retry, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return pmerrors.Wrap(pmerrors.ErrCodeRateLimited, &pmerrors.RateLimitedError{RetryAfter: retry}, "%s", url)
	default:
		return pmerrors.Wrap(pmerrors.ErrCodeAPI, fmt.Errorf("%w: status %d", ErrUnexpectedStatus, code), "%s", url)
	}
}
