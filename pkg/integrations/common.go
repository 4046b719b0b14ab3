package integrations

import (
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrNotFound is returned when the requested resource does not exist upstream.
	ErrNotFound = errors.New("resource not found")

	// ErrUnexpectedStatus is returned for non-2xx responses that are neither
	// 404 nor a rate limit.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
	"ssh://git@github.com/", "https://github.com/",
)

// NormalizeRepoURL converts various repository URL formats to canonical HTTPS form.
// Handles git@, git://, ssh:// and git+ prefixes, and removes .git suffixes
// and trailing slashes. Returns empty string if raw is empty.
func NormalizeRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	s = strings.TrimSuffix(s, "/")
	return strings.TrimSuffix(s, ".git")
}

// URLEncode percent-encodes a string for use in URLs.
// This is a convenience wrapper around [url.QueryEscape].
func URLEncode(s string) string { return url.QueryEscape(s) }
