package testutil

import (
	"strings"
	"testing"
)

func TestNormalizeIDs(t *testing.T) {
	got := NormalizeIDs("id: 3f2b9c1e-8a4d-4e6f-9b7a-1c2d3e4f5a6b, scope: acme:web")
	if got != "id: <id>, scope: acme:web" {
		t.Errorf("NormalizeIDs() = %q", got)
	}
}

func TestUnifiedDiff(t *testing.T) {
	diff := unifiedDiff("a\nb\nc\n", "a\nx\nc\n", "testdata/x.golden")

	for _, want := range []string{"--- testdata/x.golden (expected)", "-b", "+x", " a"} {
		if !strings.Contains(diff, want) {
			t.Errorf("diff missing %q:\n%s", want, diff)
		}
	}
}

func TestUnifiedDiffIdentical(t *testing.T) {
	diff := unifiedDiff("a\nb\n", "a\nb\n", "p")
	if strings.Contains(diff, "@@") {
		t.Errorf("expected no hunks, got:\n%s", diff)
	}
}
