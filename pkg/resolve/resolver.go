package resolve

import (
	"sort"

	"github.com/modfort/modfort/pkg/mod"
	"github.com/modfort/modfort/pkg/version"
)

// Options tunes one resolution run.
type Options struct {
	// Priority resolves duplicate canonical ids before graph build.
	// Nil means mod.DefaultPriority.
	Priority mod.PriorityPolicy
}

// Resolve evaluates a candidate mod set: the currently installed records
// plus any prospective addition the caller merged in. It never mutates
// its input and performs no I/O.
//
// The returned Outcome carries every finding the set produced. The
// activation order is computed only when the set is resolvable (no
// missing non-optional dependencies, no cycles).
func Resolve(records []*mod.Record, opts Options) *Outcome {
	set := mod.Dedupe(records, opts.Priority)

	byID := make(map[string]*mod.Record, len(set))
	g := newGraph()
	for _, r := range set {
		id := mod.CanonicalID(r.ID)
		byID[id] = r
		g.addNode(id)
	}

	out := &Outcome{}

	// Hard dependencies: satisfied, conflicting, or missing.
	for _, r := range set {
		rid := mod.CanonicalID(r.ID)
		for _, d := range r.Dependencies {
			did := mod.CanonicalID(d.ID)
			target, present := byID[did]
			if !present {
				if !d.Optional {
					out.Missing = append(out.Missing, MissingDependency{
						Requirer:     rid,
						ID:           did,
						VersionRange: d.VersionRange,
					})
				}
				continue
			}

			// Present: the ordering edge holds regardless of version
			// agreement - a conflicting dependency still loads first.
			g.addEdge(did, rid)

			if d.VersionRange == "" {
				continue
			}
			ok, err := version.Satisfies(target.Version, d.VersionRange)
			if err != nil || !ok {
				out.Conflicts = append(out.Conflicts, VersionConflict{
					Requirer:  rid,
					ID:        did,
					Installed: target.Version,
					Range:     d.VersionRange,
					Kind:      version.Classify(target.Version, d.VersionRange),
				})
			}
		}

		// Soft hints: ordering-only edges, and only when the other end is
		// present. An absent hint target is not a finding of any kind.
		for _, after := range r.LoadAfter {
			if _, ok := byID[mod.CanonicalID(after)]; ok {
				g.addEdge(mod.CanonicalID(after), rid)
			}
		}
		for _, before := range r.LoadBefore {
			if _, ok := byID[mod.CanonicalID(before)]; ok {
				g.addEdge(rid, mod.CanonicalID(before))
			}
		}
	}

	g.sortAll()
	out.Cycles = g.findCycles()
	out.Incompatible = incompatiblePairs(set, byID)

	out.OK = len(out.Missing) == 0 && len(out.Cycles) == 0
	if out.OK {
		out.Order = g.topoOrder()
	}

	sort.Slice(out.Missing, func(i, j int) bool {
		if out.Missing[i].Requirer != out.Missing[j].Requirer {
			return out.Missing[i].Requirer < out.Missing[j].Requirer
		}
		return out.Missing[i].ID < out.Missing[j].ID
	})
	sort.Slice(out.Conflicts, func(i, j int) bool {
		if out.Conflicts[i].Requirer != out.Conflicts[j].Requirer {
			return out.Conflicts[i].Requirer < out.Conflicts[j].Requirer
		}
		return out.Conflicts[i].ID < out.Conflicts[j].ID
	})

	return out
}

// incompatiblePairs scans declared incompatibilities and emits one
// deduplicated unordered pair per relation where both ends are present.
func incompatiblePairs(set []*mod.Record, byID map[string]*mod.Record) []IncompatiblePair {
	seen := make(map[[2]string]bool)
	var pairs []IncompatiblePair

	for _, r := range set {
		rid := mod.CanonicalID(r.ID)
		for _, inc := range r.Incompatibilities {
			iid := mod.CanonicalID(inc.ID)
			if _, present := byID[iid]; !present || iid == rid {
				continue
			}
			a, b := rid, iid
			if a > b {
				a, b = b, a
			}
			key := [2]string{a, b}
			if seen[key] {
				continue
			}
			seen[key] = true
			pairs = append(pairs, IncompatiblePair{A: a, B: b, Reason: inc.Reason})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}
