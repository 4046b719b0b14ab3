package fossil

import (
	"net/url"
	"strings"
)

// pageSuffixes are Fossil web UI pages that may follow the repository root.
var pageSuffixes = []string{
	"/dir", "/file", "/doc", "/wiki", "/ticket", "/timeline",
	"/info", "/artifact", "/raw", "/zip", "/tarball", "/json",
	"/index", "/home",
}

// BaseURL returns the repository root of a Fossil URL by dropping the query
// string and everything from the first known page suffix onwards.
//
//	https://core.tcl-lang.org/tcllib/dir?name=modules/ftp  -> https://core.tcl-lang.org/tcllib
//	https://chiselapp.com/user/x/repository/y/index        -> https://chiselapp.com/user/x/repository/y
func BaseURL(rawURL string) string {
	base, _, _ := strings.Cut(rawURL, "?")
	base, _, _ = strings.Cut(base, "#")
	base = strings.TrimRight(base, "/")
	for _, page := range pageSuffixes {
		if i := strings.Index(base, page); i >= 0 {
			base = base[:i]
			break
		}
	}
	return strings.TrimRight(base, "/")
}

// ModulePath returns the name= query parameter of a Fossil URL, which scopes
// a source to one directory of a larger repository. It is empty for
// whole-repository URLs.
func ModulePath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Query().Get("name"), "/")
}
