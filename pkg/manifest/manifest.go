// Package manifest defines the package descriptor bundled with a mod
// archive and the codecs that read and write it.
//
// A manifest is the contract a package must satisfy before installation:
// identity, version, entry file, declared files and dependencies. It is
// validated independently of dependency resolution - a manifest can be
// well-formed while its dependencies are unsatisfiable, and vice versa.
//
// # Formats
//
// The canonical descriptor is mod.toml. mod.json and mod.yaml are
// accepted as fallbacks because third-party packaging tools emit all
// three. Detection is by filename; see Detect.
package manifest

import (
	"strings"

	"github.com/modfort/modfort/pkg/errors"
	"github.com/modfort/modfort/pkg/mod"
	"github.com/modfort/modfort/pkg/version"
)

// Well-known descriptor filenames, in detection order.
var Filenames = []string{"mod.toml", "mod.json", "mod.yaml", "mod.yml"}

// Manifest is the package descriptor bundled with a mod archive.
type Manifest struct {
	ID      string `json:"id" toml:"id" yaml:"id"`
	Name    string `json:"name" toml:"name" yaml:"name"`
	Version string `json:"version" toml:"version" yaml:"version"`
	Author  string `json:"author,omitempty" toml:"author,omitempty" yaml:"author,omitempty"`

	// EntryFile is the artifact the host framework loads. May be empty in
	// the descriptor if the package contains exactly one artifact; see
	// ResolveEntryFile.
	EntryFile string `json:"entry_file,omitempty" toml:"entry_file,omitempty" yaml:"entry_file,omitempty"`

	// Files is the full relative file list the package claims to contain.
	Files []string `json:"files,omitempty" toml:"files,omitempty" yaml:"files,omitempty"`

	Dependencies      []mod.Dependency      `json:"dependencies,omitempty" toml:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Incompatibilities []mod.Incompatibility `json:"incompatibilities,omitempty" toml:"incompatibilities,omitempty" yaml:"incompatibilities,omitempty"`
	LoadBefore        []string              `json:"load_before,omitempty" toml:"load_before,omitempty" yaml:"load_before,omitempty"`
	LoadAfter         []string              `json:"load_after,omitempty" toml:"load_after,omitempty" yaml:"load_after,omitempty"`

	// MinFrameworkVersion gates installation on the host framework.
	MinFrameworkVersion string `json:"min_framework_version,omitempty" toml:"min_framework_version,omitempty" yaml:"min_framework_version,omitempty"`

	Checksum   string   `json:"checksum,omitempty" toml:"checksum,omitempty" yaml:"checksum,omitempty"`
	Provenance string   `json:"provenance,omitempty" toml:"provenance,omitempty" yaml:"provenance,omitempty"`
	Tags       []string `json:"tags,omitempty" toml:"tags,omitempty" yaml:"tags,omitempty"`
}

// Validate checks the manifest's required fields and syntax. It returns
// the first violation found as an INVALID_MANIFEST (or more specific)
// error. Validation never consults the installed set.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return errors.New(errors.ErrCodeInvalidManifest, "missing required field: id")
	}
	if err := errors.ValidateModID(mod.CanonicalID(m.ID)); err != nil {
		return err
	}
	if m.Name == "" {
		return errors.New(errors.ErrCodeInvalidManifest, "missing required field: name")
	}
	if m.Version == "" {
		return errors.New(errors.ErrCodeInvalidManifest, "missing required field: version")
	}
	if _, err := version.Parse(m.Version); err != nil {
		return err
	}
	if m.MinFrameworkVersion != "" {
		if _, err := version.Parse(m.MinFrameworkVersion); err != nil {
			return err
		}
	}
	for _, d := range m.Dependencies {
		if err := errors.ValidateModID(mod.CanonicalID(d.ID)); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidManifest, err, "dependency %q", d.ID)
		}
		if d.VersionRange != "" {
			if _, err := version.ParseRange(d.VersionRange); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidManifest, err, "dependency %q", d.ID)
			}
		}
	}
	for _, f := range m.Files {
		if err := errors.ValidateArchiveEntry(f); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidManifest, err, "file entry %q", f)
		}
	}
	if m.EntryFile != "" {
		if err := errors.ValidateArchiveEntry(m.EntryFile); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidManifest, err, "entry file %q", m.EntryFile)
		}
	}
	return nil
}

// Record converts the manifest into a mod.Record with canonical ids.
// Install bookkeeping (paths, timestamps, checksum) is filled in by the
// transaction that performs the install.
func (m *Manifest) Record() (*mod.Record, error) {
	r := &mod.Record{
		ID:                m.ID,
		Name:              m.Name,
		Version:           m.Version,
		Author:            m.Author,
		EntryFile:         m.EntryFile,
		Dependencies:      append([]mod.Dependency(nil), m.Dependencies...),
		Incompatibilities: append([]mod.Incompatibility(nil), m.Incompatibilities...),
		LoadBefore:        append([]string(nil), m.LoadBefore...),
		LoadAfter:         append([]string(nil), m.LoadAfter...),
		Checksum:          m.Checksum,
	}
	if err := r.Normalize(); err != nil {
		return nil, err
	}
	return r, nil
}

// IsDescriptor reports whether filename is a recognized manifest name.
func IsDescriptor(filename string) bool {
	lower := strings.ToLower(filename)
	for _, n := range Filenames {
		if lower == n {
			return true
		}
	}
	return false
}
