package version

import (
	"testing"

	"github.com/modfort/modfort/pkg/errors"
)

func TestParseStrict(t *testing.T) {
	v, err := Parse("1.2.3-beta.1+build.5")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v.Canonical() != "1.2.3-beta.1+build.5" {
		t.Errorf("Canonical() = %q", v.Canonical())
	}
	if v.Prerelease() != "beta.1" {
		t.Errorf("Prerelease() = %q, want beta.1", v.Prerelease())
	}
}

func TestParseLenient(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string // canonical
	}{
		{"v prefix", "v1.2.3", "1.2.3"},
		{"four groups", "1.2.3.4", "1.2.3"},
		{"trailing junk", "2.1 final", "2.1.0"},
		{"major only", "3", "3.0.0"},
		{"underscored tail", "1.0_RC2", "1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.raw, err)
			}
			if v.Canonical() != tt.want {
				t.Errorf("Parse(%q).Canonical() = %q, want %q", tt.raw, v.Canonical(), tt.want)
			}
			if v.String() != tt.raw {
				t.Errorf("String() = %q, want original %q", v.String(), tt.raw)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "release-candidate"} {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q) = nil error, want INVALID_VERSION", raw)
		} else if !errors.Is(err, errors.ErrCodeInvalidVersion) {
			t.Errorf("Parse(%q) code = %v", raw, errors.GetCode(err))
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.2.3", "1.2.3", 0},
		{"1.2.3-beta", "1.2.3", -1}, // release beats prerelease
		{"1.2.3+build.1", "1.2.3+build.2", 0}, // build metadata ignored
	}

	for _, tt := range tests {
		got := Compare(MustParse(tt.a), MustParse(tt.b))
		if got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		v, rng  string
		want    bool
		wantErr bool
	}{
		{"1.2.0", ">=1.2.0", true, false},
		{"1.2.1", ">=1.2.0", true, false},
		{"2.0.0", ">=1.2.0", true, false},
		{"1.1.9", ">=1.2.0", false, false},
		{"1.5.0", ">=1.0.0, <2.0.0", true, false},
		{"2.0.0", ">=1.0.0, <2.0.0", false, false},
		{"1.4.7", "^1.4", true, false},
		{"not-a-version", ">=1.0.0", false, true},
		{"1.0.0", ">=>broken", false, true},
		{"1.0.0", "", false, true},
	}

	for _, tt := range tests {
		got, err := Satisfies(tt.v, tt.rng)
		if (err != nil) != tt.wantErr {
			t.Errorf("Satisfies(%q, %q) error = %v, wantErr %v", tt.v, tt.rng, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.v, tt.rng, got, tt.want)
		}
	}
}

func TestSatisfiesNeverSilentlyFalse(t *testing.T) {
	// An invalid version must surface as an error, not a false result that
	// callers could mistake for a legitimate mismatch.
	_, err := Satisfies("garbage input", ">=1.0.0")
	if err == nil {
		t.Fatal("Satisfies with invalid version returned nil error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidVersion) {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidVersion)
	}

	_, err = Satisfies("1.0.0", "~~nope")
	if err == nil {
		t.Fatal("Satisfies with invalid range returned nil error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidRange) {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidRange)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		v    string
		rng  string
		want ConflictKind
	}{
		{"below minimum", "1.0.0", ">=2.0.0", ConflictTooOld},
		{"above maximum", "3.0.0", ">=1.0.0, <2.0.0", ConflictTooNew},
		{"above upper bound", "1.5.0", "<1.0.0", ConflictTooNew},
		{"unparsable version", "garbage", ">=1.0.0", ConflictInvalidFormat},
		{"unparsable range", "1.0.0", ">=>broken", ConflictUnsatisfiableRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.v, tt.rng); got != tt.want {
				t.Errorf("Classify(%q, %q) = %v, want %v", tt.v, tt.rng, got, tt.want)
			}
		})
	}
}
