// Package mod defines the canonical record types for installed mods.
//
// A Record is the persisted description of one installed mod: identity,
// version, declared dependencies and incompatibilities, soft ordering
// hints, and install bookkeeping. Records are keyed by a canonical id -
// lower-cased, compared case-insensitively - and the id is the only join
// key the resolver and the stores ever use.
package mod

import (
	"strings"
	"time"

	"github.com/modfort/modfort/pkg/errors"
	"github.com/modfort/modfort/pkg/version"
)

// Dependency declares that a mod requires another mod to be present.
type Dependency struct {
	ID           string `json:"id" toml:"id" yaml:"id"`
	VersionRange string `json:"version_range,omitempty" toml:"version_range,omitempty" yaml:"version_range,omitempty"`
	Optional     bool   `json:"optional,omitempty" toml:"optional,omitempty" yaml:"optional,omitempty"`
}

// Incompatibility declares that a mod cannot coexist with another mod.
type Incompatibility struct {
	ID     string `json:"id" toml:"id" yaml:"id"`
	Reason string `json:"reason,omitempty" toml:"reason,omitempty" yaml:"reason,omitempty"`
}

// Record is the canonical persisted description of an installed mod.
type Record struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Author  string `json:"author,omitempty"`

	Dependencies      []Dependency      `json:"dependencies,omitempty"`
	Incompatibilities []Incompatibility `json:"incompatibilities,omitempty"`

	// Soft ordering hints: ordering-only, never produce diagnostics.
	LoadBefore []string `json:"load_before,omitempty"`
	LoadAfter  []string `json:"load_after,omitempty"`

	Enabled     bool      `json:"enabled"`
	InstallPath string    `json:"install_path,omitempty"`
	EntryFile   string    `json:"entry_file,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	InstalledAt time.Time `json:"installed_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// CanonicalID lower-cases and trims an id so records compare
// case-insensitively. It does not validate; see errors.ValidateModID.
func CanonicalID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Normalize canonicalizes the record's own id and every id it references.
// Returns an error if the canonical id fails validation.
func (r *Record) Normalize() error {
	r.ID = CanonicalID(r.ID)
	if err := errors.ValidateModID(r.ID); err != nil {
		return err
	}
	for i := range r.Dependencies {
		r.Dependencies[i].ID = CanonicalID(r.Dependencies[i].ID)
	}
	for i := range r.Incompatibilities {
		r.Incompatibilities[i].ID = CanonicalID(r.Incompatibilities[i].ID)
	}
	for i := range r.LoadBefore {
		r.LoadBefore[i] = CanonicalID(r.LoadBefore[i])
	}
	for i := range r.LoadAfter {
		r.LoadAfter[i] = CanonicalID(r.LoadAfter[i])
	}
	return nil
}

// metadataRichness scores how much descriptive metadata a record carries.
// Used only as a duplicate tiebreaker.
func (r *Record) metadataRichness() int {
	score := 0
	if r.Name != "" {
		score++
	}
	if r.Author != "" {
		score++
	}
	if r.EntryFile != "" {
		score++
	}
	if r.Checksum != "" {
		score++
	}
	score += len(r.Dependencies) + len(r.Incompatibilities)
	return score
}

// PriorityRule is one criterion for choosing between two records that
// claim the same canonical id.
type PriorityRule string

const (
	// PreferEnabled keeps the enabled record over the disabled one.
	PreferEnabled PriorityRule = "enabled"
	// PreferRicherMetadata keeps the record with more descriptive metadata.
	PreferRicherMetadata PriorityRule = "metadata"
	// PreferHigherVersion keeps the record with the higher version.
	PreferHigherVersion PriorityRule = "version"
	// PreferNewerInstall keeps the record installed more recently.
	PreferNewerInstall PriorityRule = "installed"
)

// PriorityPolicy is the ordered rule chain applied to duplicate ids.
// Rules are tried in order; the first rule that distinguishes the two
// records decides. A policy is a heuristic carried over from observed
// behavior, not ground truth, which is why it is configurable.
type PriorityPolicy []PriorityRule

// DefaultPriority is the default duplicate-resolution chain:
// enabled > richer metadata > higher version > newer install date.
var DefaultPriority = PriorityPolicy{
	PreferEnabled,
	PreferRicherMetadata,
	PreferHigherVersion,
	PreferNewerInstall,
}

// Preferred applies the policy to two records with the same canonical id
// and returns the record to keep. Ties fall through to a; callers relying
// on determinism should pass records in a stable order.
func (p PriorityPolicy) Preferred(a, b *Record) *Record {
	for _, rule := range p {
		switch rule {
		case PreferEnabled:
			if a.Enabled != b.Enabled {
				if a.Enabled {
					return a
				}
				return b
			}
		case PreferRicherMetadata:
			ar, br := a.metadataRichness(), b.metadataRichness()
			if ar != br {
				if ar > br {
					return a
				}
				return b
			}
		case PreferHigherVersion:
			av, aerr := version.Parse(a.Version)
			bv, berr := version.Parse(b.Version)
			if aerr != nil || berr != nil {
				continue
			}
			if c := version.Compare(av, bv); c != 0 {
				if c > 0 {
					return a
				}
				return b
			}
		case PreferNewerInstall:
			if !a.InstalledAt.Equal(b.InstalledAt) {
				if a.InstalledAt.After(b.InstalledAt) {
					return a
				}
				return b
			}
		}
	}
	return a
}

// Dedupe collapses records with duplicate canonical ids using the policy.
// The input order is preserved for the surviving records.
func Dedupe(records []*Record, policy PriorityPolicy) []*Record {
	if len(policy) == 0 {
		policy = DefaultPriority
	}
	byID := make(map[string]*Record, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		id := CanonicalID(r.ID)
		if existing, ok := byID[id]; ok {
			byID[id] = policy.Preferred(existing, r)
			continue
		}
		byID[id] = r
		order = append(order, id)
	}
	out := make([]*Record, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}
