package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modfort/modfort/pkg/errors"
)

// Locate finds and decodes the package descriptor inside an extracted
// package directory. The descriptor may live at the root or exactly one
// directory level down (archives are commonly wrapped in a single top
// folder). Deeper nesting is rejected: a package that hides its
// descriptor two levels deep is malformed.
//
// Returns the decoded manifest and the directory containing it, which
// becomes the package root for staging.
func Locate(dir string) (*Manifest, string, error) {
	if m, root, err := locateIn(dir); err != nil || m != nil {
		return m, root, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeFilesystem, err, "read %s", dir)
	}

	// One nested level: scan subdirectories in name order so the pick is
	// deterministic when more than one wrapper dir exists.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		sub := filepath.Join(dir, name)
		if m, root, err := locateIn(sub); err != nil || m != nil {
			return m, root, err
		}
	}

	return nil, "", errors.New(errors.ErrCodeInvalidManifest,
		"no package descriptor found (expected one of: %s)", strings.Join(Filenames, ", "))
}

// locateIn checks a single directory for a descriptor file.
// Returns (nil, "", nil) when none of the known names is present.
func locateIn(dir string) (*Manifest, string, error) {
	for _, name := range Filenames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeFilesystem, err, "read %s", path)
		}
		m, err := Decode(name, data)
		if err != nil {
			return nil, "", err
		}
		return m, dir, nil
	}
	return nil, "", nil
}

// ResolveEntryFile determines the package's entry file within root.
//
// If the descriptor names one, it must exist. If it does not, the entry is
// auto-detected only in the unambiguous case: the package contains exactly
// one file besides the descriptor itself. Anything else is an
// ENTRY_POINT_MISSING error - guessing among several candidates would
// silently load the wrong artifact.
func (m *Manifest) ResolveEntryFile(root string) (string, error) {
	if m.EntryFile != "" {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(m.EntryFile))); err != nil {
			return "", errors.New(errors.ErrCodeEntryMissing,
				"declared entry file %q not found in package", m.EntryFile)
		}
		return m.EntryFile, nil
	}

	var candidates []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if IsDescriptor(filepath.Base(rel)) {
			return nil
		}
		candidates = append(candidates, rel)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFilesystem, err, "scan package %s", root)
	}

	if len(candidates) != 1 {
		return "", errors.New(errors.ErrCodeEntryMissing,
			"entry point missing: descriptor names no entry file and the package holds %d candidate files", len(candidates))
	}
	return candidates[0], nil
}
