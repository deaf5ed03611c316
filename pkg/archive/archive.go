// Package archive opens mod package archives and extracts them into an
// isolated directory.
//
// The only format shipped is zip, behind the Source interface so tests
// and future formats can substitute their own entry streams. Extraction
// validates every entry path before the first byte is written: an entry
// that is absolute or escapes the extraction directory aborts the whole
// operation with nothing extracted.
package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/modfort/modfort/pkg/errors"
)

// Entry is one file or directory inside a package archive.
type Entry struct {
	// Path is the slash-separated path relative to the archive root.
	Path string
	// IsDir marks directory entries; Open must not be called on them.
	IsDir bool
	// Open streams the entry's contents.
	Open func() (io.ReadCloser, error)
}

// Source yields the entries of one package archive.
type Source interface {
	// Entries lists every entry in archive order. The iterator is
	// materialized up front so path validation can run before extraction.
	Entries() ([]Entry, error)
	// Close releases the underlying archive handle.
	Close() error
}

// ZipSource reads entries from a zip archive on disk.
type ZipSource struct {
	rc *zip.ReadCloser
}

// OpenZip opens a zip archive as a Source. A file that is not a readable
// zip is an INVALID_ARCHIVE input error.
func OpenZip(path string) (*ZipSource, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArchive, err, "open archive %s", path)
	}
	return &ZipSource{rc: rc}, nil
}

// Entries implements Source.
func (s *ZipSource) Entries() ([]Entry, error) {
	entries := make([]Entry, 0, len(s.rc.File))
	for _, f := range s.rc.File {
		f := f
		entries = append(entries, Entry{
			Path:  strings.TrimSuffix(f.Name, "/"),
			IsDir: f.FileInfo().IsDir(),
			Open:  func() (io.ReadCloser, error) { return f.Open() },
		})
	}
	return entries, nil
}

// Close implements Source.
func (s *ZipSource) Close() error { return s.rc.Close() }

// Extract unpacks src into dir. Every entry path is validated first;
// a traversal or absolute path aborts before anything is written. The
// context is checked between entries so a cancelled extraction stops at
// an entry boundary.
func Extract(ctx context.Context, src Source, dir string) error {
	entries, err := src.Entries()
	if err != nil {
		return err
	}

	// Validate all paths before the first write.
	for _, e := range entries {
		if err := errors.ValidateArchiveEntry(e.Path); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidArchive, err, "archive entry %q", e.Path)
		}
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "extraction cancelled")
		}

		target := filepath.Join(dir, filepath.FromSlash(e.Path))

		if e.IsDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeFilesystem, err, "create dir %s", e.Path)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "create dir for %s", e.Path)
		}
		if err := writeEntry(e, target); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(e Entry, target string) error {
	r, err := e.Open()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArchive, err, "open entry %s", e.Path)
	}
	defer r.Close()

	w, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "create %s", e.Path)
	}
	defer w.Close()

	if _, err := io.Copy(w, r); err != nil {
		return errors.Wrap(errors.ErrCodeFilesystem, err, "write %s", e.Path)
	}
	return nil
}
