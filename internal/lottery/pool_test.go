package lottery

import (
	"testing"
)

func TestCalculatePoolScenario(t *testing.T) {
	// paid=1000, carry=0, feeRate=0 -> net=1000, 50/800/100/50
	p := CalculatePool(1000, 0, 0)
	if p.GrossPoints != 1000 || p.NetPoints != 1000 {
		t.Fatalf("gross/net mismatch: %+v", p)
	}
	if p.OperatorFeePoints != 50 || p.P1Points != 800 || p.P2Points != 100 || p.P3Points != 50 {
		t.Fatalf("shares mismatch: %+v", p)
	}
}

func TestCalculatePoolNoRoundingLoss(t *testing.T) {
	rates := []float64{0, 0.01, 0.03, 0.05, 0.1, 0.5, 1}
	for _, rate := range rates {
		for paid := int64(0); paid < 5000; paid += 37 {
			for carry := int64(0); carry < 300; carry += 91 {
				p := CalculatePool(paid, carry, rate)
				if p.GrossPoints != paid+carry {
					t.Fatalf("gross != paid+carry: %+v", p)
				}
				if p.NetPoints != p.GrossPoints-p.PlatformFeePoints {
					t.Fatalf("net != gross-fee: %+v", p)
				}
				sum := p.OperatorFeePoints + p.P1Points + p.P2Points + p.P3Points
				if sum != p.NetPoints {
					t.Fatalf("shares do not sum to net: rate=%v paid=%d carry=%d %+v", rate, paid, carry, p)
				}
			}
		}
	}
}

func TestPrizeTierScenarios(t *testing.T) {
	cases := []struct {
		ticket, winning string
		want            int8
	}{
		{"1234", "1234", 1},
		{"5234", "1234", 2},
		{"9934", "1234", 3},
		{"9999", "1234", 0},
		{"0000", "0000", 1},
		{"1000", "0000", 2},
	}
	for _, c := range cases {
		if got := PrizeTier(c.ticket, c.winning); got != c.want {
			t.Fatalf("PrizeTier(%s, %s) = %d, want %d", c.ticket, c.winning, got, c.want)
		}
	}
}

func TestPrizeTierMutuallyExclusive(t *testing.T) {
	// 任意组合必须恰好落在 {0,1,2,3}，且 tier1 不会同时按 tier2/3 计
	winning := "1234"
	for n := 0; n < 10000; n++ {
		ticket := fourDigits(n)
		tier := PrizeTier(ticket, winning)
		if tier < 0 || tier > 3 {
			t.Fatalf("tier out of range: %s -> %d", ticket, tier)
		}
		switch tier {
		case 1:
			if ticket != winning {
				t.Fatalf("tier1 without full match: %s", ticket)
			}
		case 2:
			if ticket == winning || ticket[1:] != winning[1:] {
				t.Fatalf("tier2 misclassified: %s", ticket)
			}
		case 3:
			if ticket[1:] == winning[1:] || ticket[2:] != winning[2:] {
				t.Fatalf("tier3 misclassified: %s", ticket)
			}
		case 0:
			if ticket[2:] == winning[2:] {
				t.Fatalf("tier0 but suffix matches: %s", ticket)
			}
		}
	}
}

func TestSplitPoolScenario(t *testing.T) {
	// pool=800, winners=3 -> per=266, rollover=2
	tp := SplitPool(800, 3)
	if tp.PerPoints != 266 || tp.RolloverPoints != 2 || tp.Winners != 3 {
		t.Fatalf("split mismatch: %+v", tp)
	}
}

func TestSplitPoolInvariant(t *testing.T) {
	for pool := int64(0); pool < 2000; pool += 13 {
		for winners := int64(0); winners < 17; winners++ {
			tp := SplitPool(pool, winners)
			if tp.PerPoints*tp.Winners+tp.RolloverPoints != pool {
				t.Fatalf("per*winners+rollover != pool: pool=%d winners=%d %+v", pool, winners, tp)
			}
			if winners == 0 && tp.RolloverPoints != pool {
				t.Fatalf("zero winners should roll over whole pool: %+v", tp)
			}
		}
	}
}

func TestCalculateTierPayoutsCarryOver(t *testing.T) {
	pool := CalculatePool(1000, 0, 0)
	// 二等奖、三等奖无人中 -> 整池滚存
	out := CalculateTierPayouts(pool, 3, 0, 0)
	if out.P1.PerPoints != 266 {
		t.Fatalf("p1 per mismatch: %+v", out.P1)
	}
	want := out.P1.RolloverPoints + pool.P2Points + pool.P3Points
	if out.NextCarryOverPoints != want {
		t.Fatalf("carry over mismatch: got %d want %d", out.NextCarryOverPoints, want)
	}
}

func fourDigits(n int) string {
	b := []byte{'0', '0', '0', '0'}
	for i := 3; i >= 0 && n > 0; i-- {
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b)
}
