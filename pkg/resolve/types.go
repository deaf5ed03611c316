// Package resolve builds the dependency graph for a mod set and decides
// whether the set can coexist: missing dependencies, version conflicts,
// circular dependencies, incompatibilities, and a deterministic
// activation order.
//
// Resolution is pure and CPU-bound: a function of its inputs only, with
// no shared mutable state, safe to call repeatedly and from tests without
// setup. The graph nodes built here are ephemeral per-resolution wrappers
// and are never persisted.
//
// # Policy
//
// Missing non-optional dependencies and cycles always make a set
// unresolvable (OK=false). Version conflicts and incompatibilities are
// advisory: they populate the Outcome but do not alone flip OK - callers
// decide whether advisory findings block a given operation.
package resolve

import (
	"fmt"
	"strings"

	"github.com/modfort/modfort/pkg/version"
)

// MissingDependency records a hard dependency whose target is absent from
// the resolved set.
type MissingDependency struct {
	Requirer     string // id of the mod declaring the dependency
	ID           string // id of the absent dependency
	VersionRange string // declared range, if any
}

// String renders the finding for diagnostics.
func (m MissingDependency) String() string {
	if m.VersionRange != "" {
		return fmt.Sprintf("%s requires %s %s (not installed)", m.Requirer, m.ID, m.VersionRange)
	}
	return fmt.Sprintf("%s requires %s (not installed)", m.Requirer, m.ID)
}

// VersionConflict records a dependency whose target is present but does
// not satisfy the declared version range.
type VersionConflict struct {
	Requirer  string               // id of the mod declaring the range
	ID        string               // id of the conflicting dependency
	Installed string               // version actually present
	Range     string               // declared range
	Kind      version.ConflictKind // too-old, too-new, invalid-format, unsatisfiable-range
}

// String renders the finding for diagnostics.
func (c VersionConflict) String() string {
	return fmt.Sprintf("%s requires %s %s, installed %s (%s)",
		c.Requirer, c.ID, c.Range, c.Installed, c.Kind)
}

// Cycle records one circular dependency. IDs holds the ids on the cycle
// in traversal order; Path is the rendered form "a -> b -> c -> a".
type Cycle struct {
	IDs  []string
	Path string
}

// Contains reports whether id participates in the cycle.
func (c Cycle) Contains(id string) bool {
	for _, v := range c.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// IncompatiblePair records a mutual exclusion between two present mods.
// The pair is unordered; A sorts before B so equal pairs dedupe.
type IncompatiblePair struct {
	A, B   string
	Reason string
}

// String renders the finding for diagnostics.
func (p IncompatiblePair) String() string {
	if p.Reason != "" {
		return fmt.Sprintf("%s and %s are incompatible: %s", p.A, p.B, p.Reason)
	}
	return fmt.Sprintf("%s and %s are incompatible", p.A, p.B)
}

// Outcome is the full result of resolving one candidate mod set.
type Outcome struct {
	// Order is the activation sequence: every id follows all its hard
	// dependencies. Empty when OK is false.
	Order []string

	Missing      []MissingDependency
	Conflicts    []VersionConflict
	Cycles       []Cycle
	Incompatible []IncompatiblePair

	// OK is true only with zero missing non-optional dependencies and
	// zero cycles. Advisory findings do not affect it.
	OK bool
}

// Blocked reports whether the outcome carries hard-blocking findings.
func (o *Outcome) Blocked() bool { return !o.OK }

// Advisory reports whether the outcome carries advisory findings
// (version conflicts or incompatibilities).
func (o *Outcome) Advisory() bool {
	return len(o.Conflicts) > 0 || len(o.Incompatible) > 0
}

// Summary renders a short multi-line report of all findings.
func (o *Outcome) Summary() string {
	var b strings.Builder
	for _, m := range o.Missing {
		fmt.Fprintf(&b, "missing: %s\n", m)
	}
	for _, c := range o.Conflicts {
		fmt.Fprintf(&b, "conflict: %s\n", c)
	}
	for _, c := range o.Cycles {
		fmt.Fprintf(&b, "cycle: %s\n", c.Path)
	}
	for _, p := range o.Incompatible {
		fmt.Fprintf(&b, "incompatible: %s\n", p)
	}
	return strings.TrimRight(b.String(), "\n")
}
