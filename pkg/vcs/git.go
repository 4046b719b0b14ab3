// Package vcs runs git subprocesses with bounded runtimes.
//
// Every command is started with exec.CommandContext under a per-call
// timeout, with terminal prompts disabled, so a remote asking for
// credentials or hanging on the network fails instead of stalling the run.
package vcs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
)

const (
	// DefaultTimeout bounds metadata commands (log, tag, ls-remote).
	DefaultTimeout = 15 * time.Second

	// DefaultCloneTimeout bounds a shallow clone.
	DefaultCloneTimeout = 60 * time.Second

	// ShortHashLen is the length of abbreviated commit hashes.
	ShortHashLen = 7
)

// Commit is one entry of a repository's history.
type Commit struct {
	Hash string
	Date time.Time
}

// Runner executes git commands.
type Runner struct {
	// Git is the git executable, "git" when empty.
	Git string

	// Timeout bounds non-clone commands.
	Timeout time.Duration

	// CloneTimeout bounds clone commands.
	CloneTimeout time.Duration
}

// NewRunner creates a Runner with default timeouts.
func NewRunner() *Runner {
	return &Runner{Git: "git", Timeout: DefaultTimeout, CloneTimeout: DefaultCloneTimeout}
}

// ShallowClone clones url into dir keeping only the newest depth commits,
// no file contents and no checkout.
func (r *Runner) ShallowClone(ctx context.Context, url, dir string, depth int) error {
	if depth < 1 {
		depth = 1
	}
	_, err := r.run(ctx, r.cloneTimeout(), "", "clone", "--quiet",
		"--depth", strconv.Itoa(depth), "--filter=blob:none", "--no-checkout", "--", url, dir)
	return err
}

// Log returns up to n commits of HEAD, newest first.
func (r *Runner) Log(ctx context.Context, dir string, n int) ([]Commit, error) {
	out, err := r.run(ctx, r.timeout(), dir, "log", "-n", strconv.Itoa(n), "--format=%H%x09%cI")
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

// Tags lists the tags present in the local repository at dir.
func (r *Runner) Tags(ctx context.Context, dir string) ([]string, error) {
	out, err := r.run(ctx, r.timeout(), dir, "tag", "--list")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// RemoteTags lists the tag names advertised by remote without cloning.
func (r *Runner) RemoteTags(ctx context.Context, remote string) ([]string, error) {
	out, err := r.run(ctx, r.timeout(), "", "ls-remote", "--tags", "--refs", "--", remote)
	if err != nil {
		return nil, err
	}
	return parseRemoteTags(out), nil
}

// Reachable reports whether remote answers git's ls-remote.
func (r *Runner) Reachable(ctx context.Context, remote string) bool {
	_, err := r.run(ctx, r.timeout(), "", "ls-remote", "--heads", "--", remote)
	return err == nil
}

// FirstCommitTouching returns the date of the oldest commit in dir whose
// diff of path adds or removes the string needle. ok is false when no such
// commit exists.
func (r *Runner) FirstCommitTouching(ctx context.Context, dir, path, needle string) (date time.Time, ok bool, err error) {
	out, err := r.run(ctx, r.timeout(), dir, "log", "--reverse", "--format=%H%x09%cI", "-S", needle, "--", path)
	if err != nil {
		return time.Time{}, false, err
	}
	commits := parseLog(out)
	if len(commits) == 0 {
		return time.Time{}, false, nil
	}
	return commits[0].Date, true, nil
}

func (r *Runner) run(ctx context.Context, timeout time.Duration, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	git := r.Git
	if git == "" {
		git = "git"
	}
	cmd := exec.CommandContext(ctx, git, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_ASKPASS=true", "LC_ALL=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", pmerrors.Wrap(pmerrors.ErrCodeVCSExec,
				pmerrors.New(pmerrors.ErrCodeTimeout, "after %s", timeout), "git %s", args[0])
		}
		return "", pmerrors.Wrap(pmerrors.ErrCodeVCSExec, err, "git %s: %s", args[0], snippet(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *Runner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func (r *Runner) cloneTimeout() time.Duration {
	if r.CloneTimeout > 0 {
		return r.CloneTimeout
	}
	return DefaultCloneTimeout
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, line := range splitLines(out) {
		hash, date, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(date))
		if err != nil {
			continue
		}
		if len(hash) > ShortHashLen {
			hash = hash[:ShortHashLen]
		}
		commits = append(commits, Commit{Hash: hash, Date: t.UTC()})
	}
	return commits
}

func parseRemoteTags(out string) []string {
	var tags []string
	for _, line := range splitLines(out) {
		_, ref, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		if name, ok := strings.CutPrefix(strings.TrimSpace(ref), "refs/tags/"); ok && name != "" {
			tags = append(tags, strings.TrimSuffix(name, "^{}"))
		}
	}
	return tags
}

func splitLines(s string) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
