package github

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/matzehuels/pkgmeta/pkg/httputil"
	"github.com/matzehuels/pkgmeta/pkg/integrations"
)

// DefaultBaseURL is the public GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com"

// shortHashLen matches the abbreviation used by git log --abbrev.
const shortHashLen = 7

// repoURLPattern captures owner and repo; the repo name ends at the first
// '/' or '.' so "tcl.git" and "tcl/tree/main" both yield "tcl".
var repoURLPattern = regexp.MustCompile(`github\.com[/:]([^/]+)/([^/.?#]+)`)

// Client provides access to the GitHub API for source enrichment.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitHub API client with optional authentication.
// Pass an empty string for token to use unauthenticated requests (lower rate limits).
func NewClient(hc *httputil.Client, token string) *Client {
	return NewClientWithBaseURL(hc, token, DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against a GitHub-compatible API root,
// such as a GitHub Enterprise instance or a test server.
func NewClientWithBaseURL(hc *httputil.Client, token, baseURL string) *Client {
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(hc, headers),
		baseURL: baseURL,
	}
}

// ParseRepoURL extracts owner and repo from a GitHub repository URL.
// Returns ok=false for URLs not hosted on github.com.
func ParseRepoURL(rawURL string) (owner, repo string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(rawURL)
	if len(m) < 3 || m[1] == "" || m[2] == "" {
		return "", "", false
	}
	return m[1], m[2], true
}

// IsGitHubURL reports whether rawURL points at a github.com repository.
func IsGitHubURL(rawURL string) bool {
	_, _, ok := ParseRepoURL(rawURL)
	return ok
}

// Repo fetches repository-level information.
func (c *Client) Repo(ctx context.Context, owner, repo string) (*Repository, error) {
	var data repoResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo), &data); err != nil {
		return nil, err
	}
	return &Repository{FullName: data.FullName, Archived: data.Archived, PushedAt: data.PushedAt}, nil
}

// LatestRelease fetches the latest published release. A repository without
// releases yields a NOT_FOUND error.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	var data releaseResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo), &data); err != nil {
		return nil, err
	}
	name := data.TagName
	if name == "" {
		name = data.Name
	}
	return &Release{Tag: name, PublishedAt: data.PublishedAt}, nil
}

// Commits fetches up to n commits, newest first. When path is not empty only
// commits touching that path are returned.
func (c *Client) Commits(ctx context.Context, owner, repo, path string, n int) ([]Commit, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(max(n, 1)))
	if path != "" {
		q.Set("path", path)
	}

	var data []commitResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/repos/%s/%s/commits?%s", c.baseURL, owner, repo, q.Encode()), &data); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(data))
	for _, cr := range data {
		date := cr.Commit.Committer.Date
		if date == nil {
			date = cr.Commit.Author.Date
		}
		if date == nil || cr.SHA == "" {
			continue
		}
		sha := cr.SHA
		if len(sha) > shortHashLen {
			sha = sha[:shortHashLen]
		}
		commits = append(commits, Commit{Hash: sha, Date: date.UTC()})
		if len(commits) == n {
			break
		}
	}
	return commits, nil
}

// Tags fetches the names of the repository's tags (first page, up to 100).
func (c *Client) Tags(ctx context.Context, owner, repo string) ([]string, error) {
	var data []tagResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/repos/%s/%s/tags?per_page=100", c.baseURL, owner, repo), &data); err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(data))
	for _, t := range data {
		tags = append(tags, t.Name)
	}
	return tags, nil
}

type repoResponse struct {
	FullName string     `json:"full_name"`
	Archived bool       `json:"archived"`
	PushedAt *time.Time `json:"pushed_at"`
}

type releaseResponse struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
}

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Author struct {
			Date *time.Time `json:"date"`
		} `json:"author"`
		Committer struct {
			Date *time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

type tagResponse struct {
	Name string `json:"name"`
}
