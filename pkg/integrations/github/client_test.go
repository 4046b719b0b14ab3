package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/httputil"
	"github.com/matzehuels/pkgmeta/pkg/integrations"
)

func testClient(t *testing.T, baseURL, token string) *Client {
	t.Helper()
	hc := httputil.NewClient(httputil.WithTimeout(time.Second))
	t.Cleanup(hc.Close)
	return NewClientWithBaseURL(hc, token, baseURL)
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url         string
		owner, repo string
		ok          bool
	}{
		{"https://github.com/tcltk/tcllib", "tcltk", "tcllib", true},
		{"https://github.com/tcltk/tcl.git", "tcltk", "tcl", true},
		{"https://github.com/owner/repo/tree/main/sub", "owner", "repo", true},
		{"git@github.com:owner/repo.git", "owner", "repo", true},
		{"https://gitlab.com/owner/repo", "", "", false},
		{"https://github.com/owner", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			owner, repo, ok := ParseRepoURL(tt.url)
			if ok != tt.ok || owner != tt.owner || repo != tt.repo {
				t.Errorf("ParseRepoURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.url, owner, repo, ok, tt.owner, tt.repo, tt.ok)
			}
		})
	}
}

func TestClientRepoAndRelease(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/repos/owner/repo":
			w.Write([]byte(`{"full_name":"owner/repo","archived":true}`))
		case "/repos/owner/repo/releases/latest":
			w.Write([]byte(`{"tag_name":"v1.2.0","published_at":"2024-03-01T10:00:00Z"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := testClient(t, server.URL, "secret")

	repo, err := c.Repo(context.Background(), "owner", "repo")
	if err != nil {
		t.Fatalf("Repo() error: %v", err)
	}
	if !repo.Archived {
		t.Error("expected archived repository")
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer secret")
	}

	rel, err := c.LatestRelease(context.Background(), "owner", "repo")
	if err != nil {
		t.Fatalf("LatestRelease() error: %v", err)
	}
	want := Release{Tag: "v1.2.0", PublishedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	if diff := cmp.Diff(want, *rel); diff != "" {
		t.Errorf("LatestRelease() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientLatestReleaseNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := testClient(t, server.URL, "").LatestRelease(context.Background(), "owner", "repo")
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClientRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, "").Repo(context.Background(), "owner", "repo")
	if pmerrors.GetCode(err) != pmerrors.ErrCodeRateLimited {
		t.Errorf("expected RATE_LIMITED, got %v", err)
	}
}

func TestClientCommits(t *testing.T) {
	var gotPath, gotPerPage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Query().Get("path")
		gotPerPage = r.URL.Query().Get("per_page")
		json.NewEncoder(w).Encode([]map[string]any{
			{"sha": "abcdef0123456789", "commit": map[string]any{"committer": map[string]any{"date": "2024-01-15T14:23:07Z"}}},
			{"sha": "1234567890abcdef", "commit": map[string]any{"author": map[string]any{"date": "2023-12-01T00:00:00+02:00"}}},
			{"sha": "ffffffffffffffff", "commit": map[string]any{}},
		})
	}))
	defer server.Close()

	commits, err := testClient(t, server.URL, "").Commits(context.Background(), "owner", "repo", "modules/ftp", 5)
	if err != nil {
		t.Fatalf("Commits() error: %v", err)
	}
	if gotPath != "modules/ftp" || gotPerPage != "5" {
		t.Errorf("query path=%q per_page=%q", gotPath, gotPerPage)
	}

	want := []Commit{
		{Hash: "abcdef0", Date: time.Date(2024, 1, 15, 14, 23, 7, 0, time.UTC)},
		{Hash: "1234567", Date: time.Date(2023, 11, 30, 22, 0, 0, 0, time.UTC)},
	}
	if diff := cmp.Diff(want, commits); diff != "" {
		t.Errorf("Commits() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/tags" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"name":"v1.9.0"},{"name":"v1.10.0"},{"name":"trunk"}]`))
	}))
	defer server.Close()

	tags, err := testClient(t, server.URL, "").Tags(context.Background(), "owner", "repo")
	if err != nil {
		t.Fatalf("Tags() error: %v", err)
	}
	if diff := cmp.Diff([]string{"v1.9.0", "v1.10.0", "trunk"}, tags); diff != "" {
		t.Errorf("Tags() mismatch (-want +got):\n%s", diff)
	}
}
