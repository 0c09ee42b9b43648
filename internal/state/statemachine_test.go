package state

import "testing"

func TestNextStateForward(t *testing.T) {
	s, err := NextState(StateOpen, EvtCloseSales)
	if err != nil || s != StateClosing {
		t.Fatalf("open --close_sales--> got %q err=%v", s, err)
	}
	s, err = NextState(StateClosing, EvtFinalize)
	if err != nil || s != StateDrawn {
		t.Fatalf("closing --finalize--> got %q err=%v", s, err)
	}
}

func TestNextStateRejectsInvalid(t *testing.T) {
	bad := []struct{ cur, evt string }{
		{StateOpen, EvtFinalize},
		{StateClosing, EvtCloseSales},
		{StateDrawn, EvtCloseSales},
		{StateDrawn, EvtFinalize},
		{"bogus", EvtCloseSales},
	}
	for _, c := range bad {
		if _, err := NextState(c.cur, c.evt); err == nil {
			t.Fatalf("transition %s --%s--> should fail", c.cur, c.evt)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(StateOpen) || IsTerminal(StateClosing) {
		t.Fatal("open/closing must not be terminal")
	}
	if !IsTerminal(StateDrawn) {
		t.Fatal("drawn must be terminal")
	}
}
