package resolve

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/pkgmeta/pkg/cache"
	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/registry"
	"github.com/matzehuels/pkgmeta/pkg/vcs"
)

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch directories left behind: %v", entries)
	}
}

func TestGitResolve(t *testing.T) {
	tmp := t.TempDir()
	url := "https://git.example.org/critcl.git"
	fake := &fakeGit{
		commits: []vcs.Commit{
			{Hash: "abc1234", Date: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)},
		},
		remoteTags: map[string][]string{url: {"3.1.9", "3.1.18", "HEAD"}},
	}
	r := NewGit(fake, cache.New(nil), GitOptions{TempDir: tmp, Prefix: "run-", Depth: 5})

	f, err := r.Resolve(context.Background(), registry.Source{URL: url, Method: registry.MethodGit}, "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := Fields{
		Commits: []Commit{{Hash: "abc1234", Date: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)}},
		LastTag: "3.1.18",
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
	assertEmptyDir(t, tmp)

	// The same remote, spelled differently, is served from the cache.
	for _, again := range []string{url, "https://git.example.org/critcl", "https://git.example.org/critcl/"} {
		if _, err := r.Resolve(context.Background(), registry.Source{URL: again, Method: registry.MethodGit}, ""); err != nil {
			t.Fatal(err)
		}
	}
	if n := fake.cloneCount(); n != 1 {
		t.Errorf("clones = %d, want 1", n)
	}
}

func TestGitLocalTagsPreferred(t *testing.T) {
	fake := &fakeGit{tags: []string{"v1.0", "v1.2"}, remoteTags: map[string][]string{}}
	r := NewGit(fake, cache.New(nil), GitOptions{TempDir: t.TempDir()})

	f, err := r.Resolve(context.Background(), registry.Source{URL: "git://example.org/r", Method: registry.MethodGit}, "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if f.LastTag != "v1.2" {
		t.Errorf("LastTag = %q, want v1.2", f.LastTag)
	}
}

func TestGitCloneFailure(t *testing.T) {
	tmp := t.TempDir()
	fake := &fakeGit{cloneErr: pmerrors.Wrap(pmerrors.ErrCodeVCSExec, errors.New("exit 128"), "git clone")}
	r := NewGit(fake, cache.New(nil), GitOptions{TempDir: tmp})

	f, err := r.Resolve(context.Background(), registry.Source{URL: "https://git.example.org/gone.git", Method: registry.MethodGit}, "")
	if !pmerrors.Is(err, pmerrors.ErrCodeVCSExec) {
		t.Errorf("expected VCS_EXEC error, got %v", err)
	}
	if f.Error != registry.ErrCloneFailed {
		t.Errorf("Error = %q, want %q", f.Error, registry.ErrCloneFailed)
	}
	assertEmptyDir(t, tmp)
}

func TestGitDelegatesGitHub(t *testing.T) {
	gh := githubServer(t)
	store := cache.New(nil)
	fake := &fakeGit{}
	r := NewGit(fake, store, GitOptions{GitHub: newGitHub(t, gh.URL, store), TempDir: t.TempDir()})

	f, err := r.Resolve(context.Background(), registry.Source{URL: "https://github.com/tcltk/tcllib", Method: registry.MethodGit}, "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if fake.cloneCount() != 0 {
		t.Error("GitHub URLs must not be cloned")
	}
	if f.LastTag != "tcllib-1-21" || len(f.Commits) != 2 {
		t.Errorf("unexpected fields: %+v", f)
	}
}

func TestGitCancelledBeforeClone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewGit(&fakeGit{}, cache.New(nil), GitOptions{TempDir: t.TempDir(), MaxClones: 1})

	// Hold the only clone slot so Acquire blocks until ctx is cancelled.
	if err := r.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	cancel()

	f, err := r.Resolve(ctx, registry.Source{URL: "https://git.example.org/r.git", Method: registry.MethodGit}, "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if f.Error != registry.ErrCancelled {
		t.Errorf("Error = %q, want %q", f.Error, registry.ErrCancelled)
	}
}
