package redis

import (
	"strings"
	"testing"
)

func TestKeyConstruction(t *testing.T) {
	if got := DashboardKey(1, "2026-09-01"); got != "lottery:dashboard:v1:2026-09-01" {
		t.Fatalf("dashboard key: %q", got)
	}
	if got := DrawDetailKey(3, "2026-09-01"); got != "lottery:draw:v3:2026-09-01" {
		t.Fatalf("detail key: %q", got)
	}
	if got := DrawsListKey(2, 5); got != "lottery:draws:v2:p5" {
		t.Fatalf("list key: %q", got)
	}
}

func TestVersionBumpChangesEveryKey(t *testing.T) {
	v1 := DrawScopedKeys(1, "2026-09-01")
	v2 := DrawScopedKeys(2, "2026-09-01")
	if len(v1) == 0 || len(v1) != len(v2) {
		t.Fatalf("scoped key sets: %d vs %d", len(v1), len(v2))
	}
	seen := map[string]bool{}
	for _, k := range v1 {
		seen[k] = true
	}
	for _, k := range v2 {
		if seen[k] {
			t.Fatalf("key unchanged across version bump: %q", k)
		}
	}
}

func TestDrawScopedKeysCoverDrawCaches(t *testing.T) {
	keys := DrawScopedKeys(1, "2026-09-01")
	for _, prefix := range []string{PrefixDashboard, PrefixDrawDetail, PrefixDrawPool, PrefixParticipants} {
		found := false
		for _, k := range keys {
			if strings.HasPrefix(k, prefix) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("no scoped key with prefix %q", prefix)
		}
	}
}
