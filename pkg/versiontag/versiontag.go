// Package versiontag picks the newest version tag out of a raw tag list.
//
// Tags are compared by their digit runs read as integers, ignoring every
// separator, so "tcllib-1-21-0", "v1.21" and "1_21" all order the same way
// and "v1.10" sorts above "v1.9". Missing trailing positions count as zero.
// Symbolic names (trunk, tip, release, branch, main, HEAD) and tags with no
// digit are never versions.
package versiontag

import (
	"regexp"
	"strings"
)

var (
	digitRun = regexp.MustCompile(`\d+`)

	skip = map[string]bool{
		"trunk":   true,
		"tip":     true,
		"release": true,
		"branch":  true,
		"main":    true,
		"head":    true,
	}
)

// IsVersion reports whether tag can name a version: it contains a digit
// and is not one of the symbolic names.
func IsVersion(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || skip[strings.ToLower(tag)] {
		return false
	}
	return strings.ContainsAny(tag, "0123456789")
}

// Filter returns the trimmed tags that pass [IsVersion], in input order.
func Filter(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); IsVersion(t) {
			out = append(out, t)
		}
	}
	return out
}

// Compare orders two tags numerically by their digit runs.
// Tags with equal numeric keys are ordered by plain string comparison so the
// result is a total order. It returns -1, 0 or +1.
func Compare(a, b string) int {
	ka, kb := key(a), key(b)
	n := max(len(ka), len(kb))
	for i := range n {
		var x, y string
		if i < len(ka) {
			x = ka[i]
		}
		if i < len(kb) {
			y = kb[i]
		}
		if c := compareDigits(x, y); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

// Select returns the greatest version tag under [Compare], or "" if no tag
// qualifies.
func Select(tags []string) string {
	var best string
	for _, t := range Filter(tags) {
		if best == "" || Compare(t, best) > 0 {
			best = t
		}
	}
	return best
}

// key extracts the digit runs of tag with leading zeros stripped.
func key(tag string) []string {
	runs := digitRun.FindAllString(tag, -1)
	for i, r := range runs {
		runs[i] = strings.TrimLeft(r, "0")
	}
	return runs
}

// compareDigits compares two zero-stripped digit strings as integers of
// arbitrary size. An empty string is zero.
func compareDigits(x, y string) int {
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}
