package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
)

// Invalid is a registry entry that was skipped because it has no usable name.
type Invalid struct {
	Index int
	Name  string
	Err   error
}

// ReadJSON decodes a registry from r.
//
// The input must be a JSON array of package objects:
//
//	[{"name": "tcllib", "sources": [{"url": "...", "method": "fossil"}], "tags": [], "description": ""}]
//
// Entries are returned in input order. An entry with an invalid name has no
// identity in the artifact; it is left out and reported in invalid so the
// remaining packages are still processed. Sources are not validated here,
// since a bad source only degrades that source.
func ReadJSON(r io.Reader) (pkgs []Package, invalid []Invalid, err error) {
	var all []Package
	if err := json.NewDecoder(r).Decode(&all); err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	pkgs = make([]Package, 0, len(all))
	for i, p := range all {
		if err := pmerrors.ValidatePackageName(p.Name); err != nil {
			invalid = append(invalid, Invalid{Index: i, Name: p.Name, Err: err})
			continue
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, invalid, nil
}

// Load reads the registry file at path. A missing or undecodable file is
// FATAL: without a registry there is nothing to enrich.
func Load(path string) ([]Package, []Invalid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, pmerrors.Wrap(pmerrors.ErrCodeFatal, err, "open registry %s", path)
	}
	defer f.Close()

	pkgs, invalid, err := ReadJSON(f)
	if err != nil {
		return nil, nil, pmerrors.Wrap(pmerrors.ErrCodeFatal, err, "read registry %s", path)
	}
	return pkgs, invalid, nil
}
