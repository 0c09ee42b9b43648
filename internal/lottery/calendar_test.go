package lottery

import (
	"testing"
	"time"
)

func TestCurrentAndDueDrawID(t *testing.T) {
	// 2025-12-27 07:30 UTC+8：27 期仍在售，26 期待结算
	early := time.Date(2025, 12, 27, 7, 30, 0, 0, bizZone)
	if got := CurrentDrawID(early); got != "2025-12-27" {
		t.Fatalf("current before 08:00 = %s", got)
	}
	if got := DueDrawID(early); got != "2025-12-26" {
		t.Fatalf("due before 08:00 = %s", got)
	}

	// 08:00 切期：28 期开售，27 期进入待结算
	late := time.Date(2025, 12, 27, 8, 0, 0, 0, bizZone)
	if got := CurrentDrawID(late); got != "2025-12-28" {
		t.Fatalf("current at 08:00 = %s", got)
	}
	if got := DueDrawID(late); got != "2025-12-27" {
		t.Fatalf("due at 08:00 = %s", got)
	}
}

func TestCurrentDrawIDUsesBusinessZone(t *testing.T) {
	// UTC 23:30 = UTC+8 次日 07:30，仍属于次日期号的销售时间
	utc := time.Date(2025, 12, 26, 23, 30, 0, 0, time.UTC)
	if got := CurrentDrawID(utc); got != "2025-12-27" {
		t.Fatalf("current in utc = %s", got)
	}
}

func TestSalesWindow(t *testing.T) {
	start, end, err := SalesWindow("2025-12-27")
	if err != nil {
		t.Fatalf("sales window error: %v", err)
	}
	wantStart := time.Date(2025, 12, 26, 8, 0, 0, 0, bizZone).Unix()
	wantEnd := time.Date(2025, 12, 27, 7, 59, 59, 0, bizZone).Unix()
	if start != wantStart || end != wantEnd {
		t.Fatalf("window mismatch: [%d,%d] want [%d,%d]", start, end, wantStart, wantEnd)
	}
	if end-start != 24*3600-1 {
		t.Fatalf("window length mismatch: %d", end-start)
	}
}

func TestPrevNextDrawID(t *testing.T) {
	prev, err := PrevDrawID("2026-01-01")
	if err != nil || prev != "2025-12-31" {
		t.Fatalf("prev = %s, err = %v", prev, err)
	}
	next, err := NextDrawID("2025-12-31")
	if err != nil || next != "2026-01-01" {
		t.Fatalf("next = %s, err = %v", next, err)
	}
	if _, err := NextDrawID("not-a-date"); err == nil {
		t.Fatalf("expected error for bad draw id")
	}
}

func TestValidDrawID(t *testing.T) {
	good := []string{"2025-12-27", "2026-02-28", "2024-02-29"}
	bad := []string{"2025-13-01", "2025-02-30", "20251227", "2025-1-2", "abcd-ef-gh", ""}
	for _, g := range good {
		if !ValidDrawID(g) {
			t.Fatalf("should be valid: %s", g)
		}
	}
	for _, b := range bad {
		if ValidDrawID(b) {
			t.Fatalf("should be invalid: %s", b)
		}
	}
}

func TestOrderHelpers(t *testing.T) {
	expireMs := int64(OrderExpireSeconds) * 1000
	if !IsOrderExpired(0, expireMs) {
		t.Fatalf("order at expiry boundary should be expired")
	}
	if IsOrderExpired(0, expireMs-1) {
		t.Fatalf("order inside window should not be expired")
	}
	if got := EffectiveOrderStatus(OrderStatusPending, 0, expireMs+1); got != OrderStatusCanceled {
		t.Fatalf("expired pending should read canceled, got %s", got)
	}
	if got := EffectiveOrderStatus(OrderStatusPaid, 0, expireMs+1); got != OrderStatusPaid {
		t.Fatalf("paid should stay paid, got %s", got)
	}
	for i := 0; i < 100; i++ {
		if n := RandomTicketNumber(); !ValidTicketNumber(n) {
			t.Fatalf("random ticket number invalid: %s", n)
		}
	}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		no := NewOutTradeNo("d20251227")
		if seen[no] {
			t.Fatalf("duplicate out_trade_no: %s", no)
		}
		seen[no] = true
	}
}
