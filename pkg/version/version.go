// Package version parses, compares and range-matches mod versions.
//
// Third-party mods rarely ship strict semver, so Parse is lenient: when a
// string is not valid semver it best-effort-extracts up to three leading
// integer groups ("1.2.3.4-beta nightly" parses as 1.2.3) instead of
// rejecting outright. Range matching is strict the other way: Satisfies
// never coerces an invalid version or range to false - callers always see
// the parse error.
//
// Ordering follows semver: major, minor, patch, then a release version
// beats any prerelease of the same triple. Build metadata is ignored.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"

	"github.com/modfort/modfort/pkg/errors"
)

// Version is a parsed mod version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3.
type Version struct {
	v *mm.Version

	// raw preserves the original input for diagnostics.
	raw string
}

// Range is a parsed version constraint, e.g. ">=1.2.0", ">=1.0.0, <2.0.0",
// "^1.4" or "~2.1.0".
type Range struct {
	c   *mm.Constraints
	raw string
}

// leadingGroups matches up to three leading dot-separated integer groups,
// tolerating a "v" prefix and arbitrary trailing junk.
var leadingGroups = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// Parse parses raw into a Version. Strict semver is tried first; on
// failure the leading integer groups are extracted instead. Only when not
// even one leading integer exists does Parse return INVALID_VERSION.
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Version{}, errors.New(errors.ErrCodeInvalidVersion, "empty version string")
	}

	if v, err := mm.NewVersion(trimmed); err == nil {
		return Version{v: v, raw: raw}, nil
	}

	m := leadingGroups.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, errors.New(errors.ErrCodeInvalidVersion, "unparsable version %q", raw)
	}

	major, _ := strconv.ParseUint(m[1], 10, 64)
	var minor, patch uint64
	if m[2] != "" {
		minor, _ = strconv.ParseUint(m[2], 10, 64)
	}
	if m[3] != "" {
		patch, _ = strconv.ParseUint(m[3], 10, 64)
	}
	return Version{v: mm.New(major, minor, patch, "", ""), raw: raw}, nil
}

// MustParse parses raw and panics on failure. For tests and constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseRange parses a constraint expression. Unlike Parse there is no
// lenient fallback: a range either parses or is an input error.
func ParseRange(raw string) (Range, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Range{}, errors.New(errors.ErrCodeInvalidRange, "empty version range")
	}
	c, err := mm.NewConstraint(trimmed)
	if err != nil {
		return Range{}, errors.Wrap(errors.ErrCodeInvalidRange, err, "unparsable range %q", raw)
	}
	return Range{c: c, raw: raw}, nil
}

// MustParseRange parses raw and panics on failure. For tests and constants.
func MustParseRange(raw string) Range {
	r, err := ParseRange(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the original input the version was parsed from.
func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	if v.v != nil {
		return v.v.String()
	}
	return ""
}

// Canonical returns the normalized semver rendering (no "v" prefix,
// lenient-parse junk stripped). Built from components because the
// underlying library's String preserves the original input.
func (v Version) Canonical() string {
	if v.v == nil {
		return ""
	}
	s := fmt.Sprintf("%d.%d.%d", v.v.Major(), v.v.Minor(), v.v.Patch())
	if p := v.v.Prerelease(); p != "" {
		s += "-" + p
	}
	if m := v.v.Metadata(); m != "" {
		s += "+" + m
	}
	return s
}

// IsZero reports whether v is the zero Version (never parsed).
func (v Version) IsZero() bool { return v.v == nil }

// Major returns the major component.
func (v Version) Major() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Major()
}

// Prerelease returns the prerelease tag, if any.
func (v Version) Prerelease() string {
	if v.v == nil {
		return ""
	}
	return v.v.Prerelease()
}

// String returns the original range expression.
func (r Range) String() string { return r.raw }

// IsZero reports whether r is the zero Range (never parsed).
func (r Range) IsZero() bool { return r.c == nil }

// Compare returns -1, 0 or 1 as a is lower than, equal to or higher than b.
// Build metadata is ignored. A zero Version sorts below everything.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// Satisfies reports whether version raw satisfies the range expression
// rng. The result is tri-state: (true, nil), (false, nil), or an error
// when either side fails to parse. A parse failure is never reported as a
// plain false.
func Satisfies(raw, rng string) (bool, error) {
	v, err := Parse(raw)
	if err != nil {
		return false, err
	}
	r, err := ParseRange(rng)
	if err != nil {
		return false, err
	}
	return r.Check(v), nil
}

// Check reports whether v satisfies the range. Both sides must be parsed;
// a zero Version or Range never satisfies.
func (r Range) Check(v Version) bool {
	if r.c == nil || v.v == nil {
		return false
	}
	return r.c.Check(v.v)
}

// ConflictKind classifies why a version failed a range check.
type ConflictKind string

const (
	// ConflictTooOld: the installed version sorts below every version the
	// range accepts.
	ConflictTooOld ConflictKind = "too-old"
	// ConflictTooNew: the installed version sorts above every version the
	// range accepts.
	ConflictTooNew ConflictKind = "too-new"
	// ConflictInvalidFormat: the installed version could not be parsed.
	ConflictInvalidFormat ConflictKind = "invalid-format"
	// ConflictUnsatisfiableRange: the declared range could not be parsed.
	ConflictUnsatisfiableRange ConflictKind = "unsatisfiable-range"
)

// rangeLiterals matches the version literals inside a range expression,
// e.g. ">=1.2.0, <2.0.0" yields "1.2.0" and "2.0.0".
var rangeLiterals = regexp.MustCompile(`\d+(?:\.\d+){0,2}(?:-[0-9A-Za-z.-]+)?`)

// Classify determines the ConflictKind for a version that does not satisfy
// rng. The installed version is compared against the version literals in
// the range: below the lowest literal means too old, above the highest
// means too new. Equal to a literal but still failing (an exclusive bound)
// defaults to too old, matching how a "needs at least X" range reads.
func Classify(raw, rng string) ConflictKind {
	v, err := Parse(raw)
	if err != nil {
		return ConflictInvalidFormat
	}
	if _, err := ParseRange(rng); err != nil {
		return ConflictUnsatisfiableRange
	}

	lits := rangeLiterals.FindAllString(rng, -1)
	var low, high Version
	for _, lit := range lits {
		lv, err := Parse(lit)
		if err != nil {
			continue
		}
		if low.IsZero() || Compare(lv, low) < 0 {
			low = lv
		}
		if high.IsZero() || Compare(lv, high) > 0 {
			high = lv
		}
	}
	if high.IsZero() {
		return ConflictUnsatisfiableRange
	}

	if Compare(v, high) > 0 {
		return ConflictTooNew
	}
	return ConflictTooOld
}

// Render formats a version/range pair for diagnostics, e.g.
// "1.0.0 (requires >=2.0.0)".
func Render(raw, rng string) string {
	return fmt.Sprintf("%s (requires %s)", raw, rng)
}
