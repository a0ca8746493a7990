package version

import (
	"strings"
	"testing"
)

func withBuild(t *testing.T, version, commit, date string) {
	t.Helper()
	v, c, d := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = v, c, d })
	Version, Commit, BuildDate = version, commit, date
}

func TestInfo(t *testing.T) {
	tests := []struct {
		commit string
		want   string
	}{
		{"unknown", "1.0.0"},
		{"abc", "1.0.0"},
		{"1234567", "1.0.0"},
		{"12345678", "1.0.0 (1234567)"},
		{"abc1234567890", "1.0.0 (abc1234)"},
	}
	for _, tt := range tests {
		t.Run(tt.commit, func(t *testing.T) {
			withBuild(t, "1.0.0", tt.commit, "unknown")
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFullAndGet(t *testing.T) {
	withBuild(t, "1.2.3", "abcdef123456", "2026-01-15")

	full := Full()
	for _, part := range []string{"kaizen version 1.2.3", "Commit: abcdef123456", "Built: 2026-01-15"} {
		if !strings.Contains(full, part) {
			t.Errorf("Full() = %q, want to contain %q", full, part)
		}
	}

	info := Get()
	if info.Version != "1.2.3" || info.Commit != "abcdef123456" || info.BuildDate != "2026-01-15" {
		t.Errorf("Get() = %+v", info)
	}
}

func TestDefaultVersionIsSemver(t *testing.T) {
	if parts := strings.Split(Version, "."); len(parts) != 3 {
		t.Errorf("Version %q doesn't appear to be semver", Version)
	}
}
