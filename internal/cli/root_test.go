package cli

import (
	"testing"

	"github.com/modfort/modfort/pkg/mod"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.0.0", "abc123", "2024-01-01")

	if version != "1.0.0" {
		t.Errorf("version = %q, want %q", version, "1.0.0")
	}
	if commit != "abc123" {
		t.Errorf("commit = %q, want %q", commit, "abc123")
	}
	if date != "2024-01-01" {
		t.Errorf("date = %q, want %q", date, "2024-01-01")
	}
}

func TestPriorityPolicy(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  mod.PriorityPolicy
	}{
		{
			name:  "full chain",
			names: []string{"version", "enabled"},
			want:  mod.PriorityPolicy{mod.PreferHigherVersion, mod.PreferEnabled},
		},
		{
			name:  "unknown names skipped",
			names: []string{"bogus", "enabled"},
			want:  mod.PriorityPolicy{mod.PreferEnabled},
		},
		{
			name:  "empty falls back to default",
			names: nil,
			want:  mod.DefaultPriority,
		},
		{
			name:  "all unknown falls back to default",
			names: []string{"bogus"},
			want:  mod.DefaultPriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := priorityPolicy(tt.names)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("rule %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
