package resolve

import (
	"sort"
	"testing"

	"github.com/modfort/modfort/pkg/mod"
	"github.com/modfort/modfort/pkg/version"
)

func rec(id, ver string, deps ...mod.Dependency) *mod.Record {
	return &mod.Record{ID: id, Name: id, Version: ver, Dependencies: deps, Enabled: true}
}

func dep(id, rng string) mod.Dependency {
	return mod.Dependency{ID: id, VersionRange: rng}
}

// indexOf returns the position of id in order, or -1.
func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestResolveSatisfiedSet(t *testing.T) {
	out := Resolve([]*mod.Record{
		rec("app", "1.0.0", dep("libcore", ">=2.0.0"), dep("libui", "")),
		rec("libui", "1.0.0", dep("libcore", "")),
		rec("libcore", "2.1.0"),
	}, Options{})

	if !out.OK {
		t.Fatalf("OK = false, findings: %s", out.Summary())
	}
	if len(out.Order) != 3 {
		t.Fatalf("Order = %v", out.Order)
	}

	// Every id follows all its hard dependencies.
	if indexOf(out.Order, "libcore") > indexOf(out.Order, "app") {
		t.Errorf("libcore after app in %v", out.Order)
	}
	if indexOf(out.Order, "libcore") > indexOf(out.Order, "libui") {
		t.Errorf("libcore after libui in %v", out.Order)
	}
	if indexOf(out.Order, "libui") > indexOf(out.Order, "app") {
		t.Errorf("libui after app in %v", out.Order)
	}
}

func TestResolveDeterministicOrder(t *testing.T) {
	records := []*mod.Record{
		rec("zeta", "1.0.0"),
		rec("alpha", "1.0.0"),
		rec("mid", "1.0.0", dep("zeta", "")),
	}

	first := Resolve(records, Options{})
	if !first.OK {
		t.Fatalf("OK = false: %s", first.Summary())
	}
	for range 10 {
		again := Resolve(records, Options{})
		if len(again.Order) != len(first.Order) {
			t.Fatalf("order length changed: %v vs %v", again.Order, first.Order)
		}
		for i := range first.Order {
			if again.Order[i] != first.Order[i] {
				t.Fatalf("order not deterministic: %v vs %v", again.Order, first.Order)
			}
		}
	}

	// Independent ids stay in lexicographic order.
	if indexOf(first.Order, "alpha") > indexOf(first.Order, "zeta") {
		t.Errorf("ties not broken by id: %v", first.Order)
	}
}

func TestResolveMissingDependency(t *testing.T) {
	out := Resolve([]*mod.Record{
		rec("app", "1.0.0", dep("ghost", ">=1.0.0")),
	}, Options{})

	if out.OK {
		t.Fatal("OK = true with missing non-optional dependency")
	}
	if len(out.Missing) != 1 {
		t.Fatalf("Missing = %v", out.Missing)
	}
	m := out.Missing[0]
	if m.Requirer != "app" || m.ID != "ghost" || m.VersionRange != ">=1.0.0" {
		t.Errorf("Missing[0] = %+v", m)
	}
	if len(out.Order) != 0 {
		t.Errorf("Order computed despite block: %v", out.Order)
	}
}

func TestResolveOptionalMissingIsFine(t *testing.T) {
	out := Resolve([]*mod.Record{
		rec("app", "1.0.0", mod.Dependency{ID: "ghost", Optional: true}),
	}, Options{})

	if !out.OK {
		t.Fatalf("OK = false: %s", out.Summary())
	}
	if len(out.Missing) != 0 {
		t.Errorf("optional absence recorded as missing: %v", out.Missing)
	}
}

func TestResolveVersionConflictTooOld(t *testing.T) {
	// A depends on B >=2.0.0; B installed at 1.0.0.
	out := Resolve([]*mod.Record{
		rec("a", "1.0.0", dep("b", ">=2.0.0")),
		rec("b", "1.0.0"),
	}, Options{})

	if len(out.Conflicts) != 1 {
		t.Fatalf("Conflicts = %v", out.Conflicts)
	}
	c := out.Conflicts[0]
	if c.Requirer != "a" || c.ID != "b" || c.Installed != "1.0.0" {
		t.Errorf("Conflicts[0] = %+v", c)
	}
	if c.Kind != version.ConflictTooOld {
		t.Errorf("Kind = %v, want %v", c.Kind, version.ConflictTooOld)
	}

	// Advisory policy: a version conflict alone does not flip OK.
	if !out.OK {
		t.Error("OK = false on advisory-only findings")
	}
	if !out.Advisory() {
		t.Error("Advisory() = false")
	}
}

func TestResolveConflictKinds(t *testing.T) {
	tests := []struct {
		name      string
		installed string
		rng       string
		want      version.ConflictKind
	}{
		{"too new", "3.0.0", ">=1.0.0, <2.0.0", version.ConflictTooNew},
		{"invalid installed version", "not.a.version.at all....x", ">=1.0.0", version.ConflictInvalidFormat},
		{"unsatisfiable range", "1.0.0", ">=>nope", version.ConflictUnsatisfiableRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resolve([]*mod.Record{
				rec("a", "1.0.0", dep("b", tt.rng)),
				rec("b", tt.installed),
			}, Options{})
			if len(out.Conflicts) != 1 {
				t.Fatalf("Conflicts = %v", out.Conflicts)
			}
			if out.Conflicts[0].Kind != tt.want {
				t.Errorf("Kind = %v, want %v", out.Conflicts[0].Kind, tt.want)
			}
		})
	}
}

func TestResolveTwoCycle(t *testing.T) {
	out := Resolve([]*mod.Record{
		rec("a", "1.0.0", dep("b", "")),
		rec("b", "1.0.0", dep("a", "")),
	}, Options{})

	if out.OK {
		t.Fatal("OK = true with cycle")
	}
	if len(out.Cycles) != 1 {
		t.Fatalf("Cycles = %v", out.Cycles)
	}
	c := out.Cycles[0]
	if !c.Contains("a") || !c.Contains("b") {
		t.Errorf("cycle ids = %v, want a and b", c.IDs)
	}
	if c.Path == "" {
		t.Error("cycle path not rendered")
	}
}

func TestResolveThreeCycle(t *testing.T) {
	// A -> B -> C -> A: exactly one cycle whose id set is {a, b, c}.
	out := Resolve([]*mod.Record{
		rec("a", "1.0.0", dep("b", "")),
		rec("b", "1.0.0", dep("c", "")),
		rec("c", "1.0.0", dep("a", "")),
	}, Options{})

	if out.OK {
		t.Fatal("OK = true with cycle")
	}
	if len(out.Cycles) != 1 {
		t.Fatalf("want exactly one cycle, got %v", out.Cycles)
	}
	ids := append([]string(nil), out.Cycles[0].IDs...)
	sort.Strings(ids)
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("cycle id set = %v, want [a b c]", ids)
	}
}

func TestResolveOverlappingCyclesTerminate(t *testing.T) {
	// Two cycles sharing node b. At least one must be found; the
	// traversal must terminate.
	out := Resolve([]*mod.Record{
		rec("a", "1.0.0", dep("b", "")),
		rec("b", "1.0.0", dep("a", ""), dep("c", "")),
		rec("c", "1.0.0", dep("b", "")),
	}, Options{})

	if out.OK {
		t.Fatal("OK = true with cycles")
	}
	if len(out.Cycles) == 0 {
		t.Fatal("no cycle found")
	}
}

func TestResolveSoftHints(t *testing.T) {
	records := []*mod.Record{
		rec("early", "1.0.0"),
		rec("late", "1.0.0"),
	}
	records[1].LoadAfter = []string{"early"}

	out := Resolve(records, Options{})
	if !out.OK {
		t.Fatalf("OK = false: %s", out.Summary())
	}
	if indexOf(out.Order, "early") > indexOf(out.Order, "late") {
		t.Errorf("load-after ignored: %v", out.Order)
	}

	// load-before in the other direction.
	records2 := []*mod.Record{
		rec("m1", "1.0.0"),
		rec("m2", "1.0.0"),
	}
	records2[1].LoadBefore = []string{"m1"}
	out2 := Resolve(records2, Options{})
	if indexOf(out2.Order, "m2") > indexOf(out2.Order, "m1") {
		t.Errorf("load-before ignored: %v", out2.Order)
	}
}

func TestResolveSoftHintAbsentTargetNoFinding(t *testing.T) {
	records := []*mod.Record{rec("solo", "1.0.0")}
	records[0].LoadAfter = []string{"never-installed"}

	out := Resolve(records, Options{})
	if !out.OK || len(out.Missing) != 0 {
		t.Errorf("soft hint produced findings: %s", out.Summary())
	}
}

func TestResolveIncompatibilityDedup(t *testing.T) {
	a := rec("a", "1.0.0")
	a.Incompatibilities = []mod.Incompatibility{{ID: "b", Reason: "same subsystem"}}
	b := rec("b", "1.0.0")
	b.Incompatibilities = []mod.Incompatibility{{ID: "a", Reason: "same subsystem"}}

	out := Resolve([]*mod.Record{a, b}, Options{})
	if len(out.Incompatible) != 1 {
		t.Fatalf("Incompatible = %v, want one deduplicated pair", out.Incompatible)
	}
	p := out.Incompatible[0]
	if p.A != "a" || p.B != "b" {
		t.Errorf("pair = %+v", p)
	}

	// Advisory: does not flip OK.
	if !out.OK {
		t.Error("OK = false on advisory-only findings")
	}
}

func TestResolveIncompatibilityAbsentEnd(t *testing.T) {
	a := rec("a", "1.0.0")
	a.Incompatibilities = []mod.Incompatibility{{ID: "not-here"}}

	out := Resolve([]*mod.Record{a}, Options{})
	if len(out.Incompatible) != 0 {
		t.Errorf("Incompatible = %v, want none", out.Incompatible)
	}
}

func TestResolveDuplicateIDs(t *testing.T) {
	// Two records claiming the same id collapse by priority before the
	// graph is built: the enabled one wins.
	enabled := rec("twin", "1.0.0")
	disabled := rec("twin", "2.0.0")
	disabled.Enabled = false

	out := Resolve([]*mod.Record{disabled, enabled}, Options{})
	if !out.OK {
		t.Fatalf("OK = false: %s", out.Summary())
	}
	if len(out.Order) != 1 || out.Order[0] != "twin" {
		t.Errorf("Order = %v", out.Order)
	}
}

func TestResolveCaseInsensitiveIDs(t *testing.T) {
	out := Resolve([]*mod.Record{
		rec("App", "1.0.0", dep("LibCore", "")),
		rec("libcore", "1.0.0"),
	}, Options{})

	if !out.OK {
		t.Fatalf("case-insensitive match failed: %s", out.Summary())
	}
}

func TestResolveEmptySet(t *testing.T) {
	out := Resolve(nil, Options{})
	if !out.OK {
		t.Error("empty set should resolve")
	}
	if len(out.Order) != 0 {
		t.Errorf("Order = %v", out.Order)
	}
}
