package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a registry package name.
//
// Names are used as JSON keys in the output artifact and as search strings
// in the registry's git history, so only control characters, NUL bytes and
// oversized names are rejected.
func ValidatePackageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "package name contains invalid control characters")
		}
	}
	return nil
}

// scpLikeURL matches git's scp-style remote syntax (user@host:path).
var scpLikeURL = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^/].*$`)

// ValidateSourceURL validates the URL of a package source.
//
// HTTP(S), git:// and ssh:// URLs are accepted, as is the scp-like form
// git@host:owner/repo.git. Anything containing whitespace or control
// characters is rejected since it ends up as a subprocess argument.
func ValidateSourceURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidSource, "URL cannot be empty")
	}
	for _, r := range rawURL {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidSource, "URL contains whitespace or control characters")
		}
	}
	if strings.HasPrefix(rawURL, "-") {
		return New(ErrCodeInvalidSource, "URL cannot start with '-'")
	}
	if scpLikeURL.MatchString(rawURL) {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidSource, err, "parse URL")
	}
	switch u.Scheme {
	case "http", "https", "git", "ssh":
	default:
		return New(ErrCodeInvalidSource, "unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidSource, "URL has no host")
	}
	return nil
}
