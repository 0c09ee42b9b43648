package helper

import (
	"strings"
	"testing"
)

func TestValidateOrder(t *testing.T) {
	cases := []struct {
		name string
		in   OrderParsed
		ok   bool
	}{
		{"single ok", OrderParsed{TicketCount: 5, Number: "1234"}, true},
		{"random ok", OrderParsed{TicketCount: 1}, true},
		{"count zero", OrderParsed{TicketCount: 0, Number: "1234"}, false},
		{"count over max", OrderParsed{TicketCount: 201, Number: "1234"}, false},
		{"count at max", OrderParsed{TicketCount: 200, Number: "1234"}, true},
		{"bad number short", OrderParsed{TicketCount: 1, Number: "123"}, false},
		{"bad number alpha", OrderParsed{TicketCount: 1, Number: "12a4"}, false},
		{"multi ok", OrderParsed{TicketCount: 2, Numbers: []string{"0001", "9999"}}, true},
		{"multi length mismatch", OrderParsed{TicketCount: 3, Numbers: []string{"0001", "9999"}}, false},
		{"multi bad entry", OrderParsed{TicketCount: 2, Numbers: []string{"0001", "99x9"}}, false},
	}
	for _, c := range cases {
		ok, msg := ValidateOrder(&c.in)
		if ok != c.ok {
			t.Fatalf("%s: got ok=%v msg=%q", c.name, ok, msg)
		}
		if !ok && msg == "" {
			t.Fatalf("%s: rejected without message", c.name)
		}
	}
}

func TestValidateDrawRun(t *testing.T) {
	if ok, _ := ValidateDrawRun(&DrawRunParsed{DrawID: ""}); !ok {
		t.Fatal("empty draw_id should be accepted (defaults to due draw)")
	}
	if ok, _ := ValidateDrawRun(&DrawRunParsed{DrawID: "2026-09-01"}); !ok {
		t.Fatal("valid draw_id rejected")
	}
	for _, bad := range []string{"20260901", "2026/09/01", "2026-13-01", "abc"} {
		if ok, _ := ValidateDrawRun(&DrawRunParsed{DrawID: bad}); ok {
			t.Fatalf("invalid draw_id accepted: %q", bad)
		}
	}
}

func TestParseOrderFromJSON(t *testing.T) {
	in, ok, _ := ParseOrderFromJSON(strings.NewReader(`{"ticket_count":3,"number":"0042"}`))
	if !ok {
		t.Fatal("valid json rejected")
	}
	if in.TicketCount != 3 || in.Number != "0042" {
		t.Fatalf("unexpected parse result: %+v", in)
	}

	if _, ok, msg := ParseOrderFromJSON(strings.NewReader(`{"ticket_count":`)); ok || msg == "" {
		t.Fatal("truncated json should fail with message")
	}
}

func TestIsJSONContentType(t *testing.T) {
	for _, ct := range []string{"application/json", "application/json; charset=utf-8"} {
		if !IsJSONContentType(ct) {
			t.Fatalf("should be json: %q", ct)
		}
	}
	for _, ct := range []string{"", "application/x-www-form-urlencoded", "text/plain"} {
		if IsJSONContentType(ct) {
			t.Fatalf("should not be json: %q", ct)
		}
	}
}
