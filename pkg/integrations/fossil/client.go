// Package fossil reads check-in history and tags from Fossil repositories,
// first through the JSON API and then by scraping the web UI.
package fossil

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/pkgmeta/pkg/httputil"
	"github.com/matzehuels/pkgmeta/pkg/integrations"
)

// hashLen is the abbreviation used for Fossil check-in hashes.
const hashLen = 10

// Checkin is one entry of a Fossil timeline.
type Checkin struct {
	Hash string
	Date time.Time
}

// Client fetches data from Fossil web servers.
type Client struct {
	*integrations.Client
}

// NewClient creates a Fossil client.
func NewClient(hc *httputil.Client) *Client {
	return &Client{Client: integrations.NewClient(hc, nil)}
}

// Timeline returns up to n check-ins from the JSON timeline, newest first,
// optionally restricted to files under path. Entries without a usable
// timestamp are skipped.
func (c *Client) Timeline(ctx context.Context, base, path string, n int) ([]Checkin, error) {
	q := url.Values{}
	q.Set("type", "ci")
	q.Set("limit", strconv.Itoa(max(n, 1)))
	if path != "" {
		q.Set("p", path)
	}

	var resp struct {
		Payload struct {
			Timeline []timelineEntry `json:"timeline"`
		} `json:"payload"`
		Timeline []timelineEntry `json:"timeline"`
	}
	if err := c.Get(ctx, base+"/json/timeline?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	entries := resp.Payload.Timeline
	if len(entries) == 0 {
		entries = resp.Timeline
	}

	var out []Checkin
	for _, e := range entries {
		date, ok := e.date()
		if !ok {
			continue
		}
		out = append(out, Checkin{Hash: shorten(e.hash()), Date: date})
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// TagList returns the tag names reported by the JSON tag list.
func (c *Client) TagList(ctx context.Context, base string) ([]string, error) {
	var resp struct {
		Payload struct {
			Tags []json.RawMessage `json:"tags"`
		} `json:"payload"`
		Tags []json.RawMessage `json:"tags"`
	}
	if err := c.Get(ctx, base+"/json/taglist", &resp); err != nil {
		return nil, err
	}

	raw := resp.Payload.Tags
	if len(raw) == 0 {
		raw = resp.Tags
	}

	tags := make([]string, 0, len(raw))
	for _, r := range raw {
		// Entries are plain strings or {name|tagname: ...} objects depending on the server version.
		var s string
		if json.Unmarshal(r, &s) == nil {
			tags = append(tags, strings.TrimPrefix(s, "sym-"))
			continue
		}
		var obj struct {
			Name    string `json:"name"`
			TagName string `json:"tagname"`
		}
		if json.Unmarshal(r, &obj) == nil {
			name := obj.Name
			if name == "" {
				name = obj.TagName
			}
			if name != "" {
				tags = append(tags, strings.TrimPrefix(name, "sym-"))
			}
		}
	}
	return tags, nil
}

// LatestFromHTML scrapes the newest check-in from the HTML timeline page.
// ok is false when the page carries no recognizable date.
func (c *Client) LatestFromHTML(ctx context.Context, base, path string) (Checkin, bool, error) {
	target := base + "/timeline?n=1"
	if path != "" {
		target += "&p=" + integrations.URLEncode(path)
	}
	page, err := c.GetText(ctx, target)
	if err != nil {
		return Checkin{}, false, err
	}
	ci, ok := ParseTimelineHTML(page)
	return ci, ok, nil
}

// SymbolicNames scrapes tag or branch names from an HTML listing page such
// as "taglist" or "brlist".
func (c *Client) SymbolicNames(ctx context.Context, base, page string) ([]string, error) {
	body, err := c.GetText(ctx, base+"/"+page)
	if err != nil {
		return nil, err
	}
	return ParseSymbolicNames(strings.NewReader(body)), nil
}

type timelineEntry struct {
	UUID      string          `json:"uuid"`
	Hash      string          `json:"hash"`
	Timestamp json.RawMessage `json:"timestamp"`
	MTime     json.RawMessage `json:"mtime"`
}

func (e timelineEntry) hash() string {
	if e.UUID != "" {
		return e.UUID
	}
	return e.Hash
}

func (e timelineEntry) date() (time.Time, bool) {
	if t, ok := parseTimestamp(e.Timestamp); ok {
		return t, true
	}
	return parseTimestamp(e.MTime)
}

// parseTimestamp accepts unix seconds as a JSON number or string, or a
// formatted date string.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}
	var secs int64
	if json.Unmarshal(raw, &secs) == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), true
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return time.Unix(n, 0).UTC(), true
	}
	return parseDate(s)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDate parses the date formats Fossil prints. Zone-less values are UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func shorten(hash string) string {
	if len(hash) > hashLen {
		return hash[:hashLen]
	}
	return hash
}
