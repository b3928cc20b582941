package bet

import (
	"testing"

	"github.com/matka-platform/result-engine/internal/app/domain/numbers"
)

func TestParseSelectionPlain(t *testing.T) {
	sel, err := ParseSelection("7", 50)
	if err != nil {
		t.Fatalf("parse single: %v", err)
	}
	if sel.Kind != KindSingle || sel.Value != 7 || sel.Rate != numbers.RateSingle {
		t.Errorf("single = %+v", sel)
	}

	sel, err = ParseSelection("45", 20)
	if err != nil {
		t.Fatalf("parse double: %v", err)
	}
	if sel.Kind != KindDouble || sel.Value != 45 || sel.Rate != numbers.RateDouble {
		t.Errorf("double = %+v", sel)
	}

	sel, err = ParseSelection("128", 100)
	if err != nil {
		t.Fatalf("parse panna: %v", err)
	}
	if sel.Kind != KindPanna || sel.Panna != "128" || sel.Rate != numbers.RateSinglePanna {
		t.Errorf("panna = %+v", sel)
	}
}

func TestParseSelectionHalfSangam(t *testing.T) {
	sel, err := ParseSelection("356X1", 10)
	if err != nil {
		t.Fatalf("parse half sangam: %v", err)
	}
	if sel.Kind != KindHalfSangam || sel.Rate != numbers.RateHalfSangam {
		t.Errorf("half sangam = %+v", sel)
	}
	if sel.Half == nil || sel.Half.Left != "356" || sel.Half.Right != "1" {
		t.Errorf("half sangam segments = %+v", sel.Half)
	}

	// Ank-first order is also legal.
	if _, err := ParseSelection("4X128", 10); err != nil {
		t.Fatalf("parse ank-first half sangam: %v", err)
	}
}

func TestParseSelectionFullSangam(t *testing.T) {
	sel, err := ParseSelection("356X41X128", 10)
	if err != nil {
		t.Fatalf("parse full sangam: %v", err)
	}
	if sel.Kind != KindFullSangam || sel.Rate != numbers.RateFullSangam {
		t.Errorf("full sangam = %+v", sel)
	}
	if sel.Full == nil || sel.Full.Open != "356" || sel.Full.Anks != "41" || sel.Full.Close != "128" {
		t.Errorf("full sangam segments = %+v", sel.Full)
	}

	// The middle segment is kept verbatim, leading zero included.
	sel, err = ParseSelection("190X01X128", 10)
	if err != nil {
		t.Fatalf("parse zero-padded full sangam: %v", err)
	}
	if sel.Full == nil || sel.Full.Anks != "01" {
		t.Errorf("zero-padded anks = %+v", sel.Full)
	}
}

func TestParseSelectionRejects(t *testing.T) {
	cases := []struct {
		key    string
		amount float64
	}{
		{"", 10},
		{"abc", 10},
		{"1234", 10},
		{"128", 0},
		{"128", -5},
		{"12X1", 10},      // half sangam needs a 3-digit segment
		{"356XX128", 10},  // empty segment
		{"12X41X128", 10}, // full sangam outer segments must be 3 digits
		{"356X412X128", 10},
		{"1X2X3X4", 10},
	}

	for _, tc := range cases {
		if _, err := ParseSelection(tc.key, tc.amount); err == nil {
			t.Errorf("ParseSelection(%q, %v) succeeded, want error", tc.key, tc.amount)
		}
	}
}

func TestTotalStake(t *testing.T) {
	b := Bet{Selections: []Selection{{Amount: 10}, {Amount: 25.5}}}
	if got := b.TotalStake(); got != 35.5 {
		t.Errorf("TotalStake() = %v, want 35.5", got)
	}
}
