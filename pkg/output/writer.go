package output

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	pmerrors "github.com/matzehuels/pkgmeta/pkg/errors"
	"github.com/matzehuels/pkgmeta/pkg/registry"
)

// Writer writes the artifact to Path.
type Writer struct {
	Path string

	// DryRun computes the decision without touching the file system.
	DryRun bool

	// Unversioned always rewrites the artifact and records version 0.
	Unversioned bool

	Logger *log.Logger
}

// Decision describes what Write did or, in dry-run mode, would do.
type Decision struct {
	// Changed reports whether the package data differs from the previous artifact.
	Changed bool

	// Written reports whether the file at Path was replaced.
	Written bool

	// Version is the version counter of the artifact now at Path.
	Version int

	// PreviousVersion is the counter read from the previous artifact, 0 if none.
	PreviousVersion int
}

// Write renders packages into a fresh artifact, compares its package data
// with the previous artifact at Path and replaces the file only when they
// differ, with the version counter incremented by one. Unchanged data
// leaves the old file, including its generated_at, in place.
//
// File system failures are FATAL. An unreadable previous artifact is
// treated as absent.
func (w *Writer) Write(packages []registry.EnrichedPackage, generatedAt time.Time) (Decision, error) {
	logger := w.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	prev, err := ReadPrevious(w.Path)
	if err != nil {
		logger.Warn("ignoring unreadable previous artifact", "error", err)
		prev = nil
	}

	var d Decision
	if prev != nil {
		d.PreviousVersion = prev.Header.Version
	}

	fresh := &Artifact{
		Header: registry.Header{
			GeneratedAt:   registry.FormatTime(generatedAt),
			Version:       d.PreviousVersion + 1,
			TotalPackages: len(packages),
			Packages:      registry.Collection,
		},
		Packages: packages,
	}
	if w.Unversioned {
		fresh.Header.Version = 0
	}

	data, err := encode(fresh)
	if err != nil {
		return d, pmerrors.Wrap(pmerrors.ErrCodeInternal, err, "encode artifact")
	}

	// Compare what will actually be on disk, not the in-memory values.
	decoded, err := ReadJSON(bytes.NewReader(data))
	if err != nil {
		return d, pmerrors.Wrap(pmerrors.ErrCodeInternal, err, "decode fresh artifact")
	}
	d.Changed = prev == nil || !SamePackages(prev.Packages, decoded.Packages)

	if !d.Changed && !w.Unversioned {
		d.Version = d.PreviousVersion
		return d, nil
	}
	d.Version = fresh.Header.Version
	if w.DryRun {
		if !d.Changed {
			d.Version = d.PreviousVersion
		}
		return d, nil
	}

	if err := replaceFile(w.Path, data); err != nil {
		return d, err
	}
	d.Written = true
	return d, nil
}

// SamePackages reports whether two package lists are structurally equal.
// Nil and empty lists are equal.
func SamePackages(a, b []registry.EnrichedPackage) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

// replaceFile writes data to a scratch file next to path and renames it
// into place, so readers never see a partial artifact.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pmerrors.Wrap(pmerrors.ErrCodeFatal, err, "create output directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return pmerrors.Wrap(pmerrors.ErrCodeFatal, err, "create scratch file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return pmerrors.Wrap(pmerrors.ErrCodeFatal, err, "write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return pmerrors.Wrap(pmerrors.ErrCodeFatal, err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return pmerrors.Wrap(pmerrors.ErrCodeFatal, err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return pmerrors.Wrap(pmerrors.ErrCodeFatal, err, "rename to %s", path)
	}
	return nil
}
