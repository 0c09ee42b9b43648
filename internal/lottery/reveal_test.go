package lottery

import (
	"strings"
	"testing"
)

func TestSeedCommitReveal(t *testing.T) {
	for i := 0; i < 50; i++ {
		seed := NewSeed("2025-12-27")
		if !strings.HasPrefix(seed, "seed_2025-12-27_") {
			t.Fatalf("unexpected seed format: %s", seed)
		}
		hash := SHA256Hex(seed)
		if len(hash) != 64 {
			t.Fatalf("hash length != 64: %s", hash)
		}
		if !VerifySeed(seed, hash) {
			t.Fatalf("verify failed for own commitment: %s", seed)
		}
		if VerifySeed(seed+"x", hash) {
			t.Fatalf("verify accepted tampered seed")
		}
	}
}

func TestWinningFromDigest(t *testing.T) {
	// 0xffffffff = 4294967295, % 10000 = 7295
	if got := WinningFromDigest("ffffffff" + strings.Repeat("0", 56)); got != "7295" {
		t.Fatalf("want 7295, got %s", got)
	}
	if got := WinningFromDigest("00000000" + strings.Repeat("0", 56)); got != "0000" {
		t.Fatalf("want 0000, got %s", got)
	}
	if got := WinningFromDigest("abc"); got != "" {
		t.Fatalf("short digest should yield empty, got %s", got)
	}
}

func TestWinningNumberDeterministic(t *testing.T) {
	tickets := []TicketMaterial{{1, "1234"}, {2, "5678"}, {3, "0001"}}
	h := TicketsHash(tickets)
	w1 := WinningNumber("2025-12-27", "seed_x", h)
	w2 := WinningNumber("2025-12-27", "seed_x", h)
	if w1 != w2 || len(w1) != 4 {
		t.Fatalf("winning not deterministic or malformed: %s vs %s", w1, w2)
	}
}

func TestRevealBoundToTicketSet(t *testing.T) {
	// 票集任何变化都必须改变指纹，从而改变中奖号码（防止事后塞票）
	base := []TicketMaterial{{1, "1234"}, {2, "5678"}}
	h1 := TicketsHash(base)
	h2 := TicketsHash(append(base[:len(base):len(base)], TicketMaterial{3, "9999"}))
	h3 := TicketsHash([]TicketMaterial{{1, "1234"}, {2, "5679"}})
	if h1 == h2 || h1 == h3 {
		t.Fatalf("tickets hash not sensitive to changes: %s %s %s", h1, h2, h3)
	}
	w1 := WinningNumber("2025-12-27", "seed_x", h1)
	w2 := WinningNumber("2025-12-27", "seed_x", h2)
	// 指纹不同，摘要必然不同；号码取模后撞车概率极低，这里只要求摘要变化
	if SHA256Hex("2025-12-27|seed_x|"+h1) == SHA256Hex("2025-12-27|seed_x|"+h2) {
		t.Fatalf("digest identical for different ticket sets: %s %s", w1, w2)
	}
}

func TestTicketsHashOrderSensitive(t *testing.T) {
	a := TicketsHash([]TicketMaterial{{1, "1111"}, {2, "2222"}})
	b := TicketsHash([]TicketMaterial{{2, "2222"}, {1, "1111"}})
	if a == b {
		t.Fatalf("hash should depend on insertion order")
	}
}
