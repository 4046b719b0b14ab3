// Package output reads and writes the metadata artifact.
//
// The artifact is a JSON array: a [registry.Header] followed by one
// [registry.EnrichedPackage] per registry entry, in registry order. The
// versioned [Writer] only replaces the file when the package data differs
// from the previous artifact, so its version counter depends on content
// alone and not on when the run happened.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/matzehuels/pkgmeta/pkg/registry"
)

// Artifact is a decoded metadata artifact.
type Artifact struct {
	Header   registry.Header
	Packages []registry.EnrichedPackage
}

// ReadJSON decodes an artifact from r. The first array element must be the
// header; an empty array is rejected.
func ReadJSON(r io.Reader) (*Artifact, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("decode: artifact has no header")
	}

	a := &Artifact{Packages: make([]registry.EnrichedPackage, 0, len(raw)-1)}
	if err := json.Unmarshal(raw[0], &a.Header); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for i, msg := range raw[1:] {
		var p registry.EnrichedPackage
		if err := json.Unmarshal(msg, &p); err != nil {
			return nil, fmt.Errorf("package %d: %w", i, err)
		}
		p.Normalize()
		a.Packages = append(a.Packages, p)
	}
	return a, nil
}

// ReadPrevious reads the artifact at path. A missing file yields (nil, nil).
func ReadPrevious(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	a, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return a, nil
}

// WriteJSON encodes a as a JSON array to w.
func WriteJSON(w io.Writer, a *Artifact) error {
	items := make([]any, 0, len(a.Packages)+1)
	items = append(items, a.Header)
	for i := range a.Packages {
		p := a.Packages[i]
		p.Normalize()
		items = append(items, p)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func encode(a *Artifact) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
