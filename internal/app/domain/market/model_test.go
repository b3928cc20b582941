package market

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("21:30")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if hour != 21 || minute != 30 {
		t.Errorf("got %d:%d", hour, minute)
	}

	for _, bad := range []string{"", "9:30pm", "25:00", "12:61", "noon"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) succeeded, want error", bad)
		}
	}
}

func TestClosedOn(t *testing.T) {
	m := Market{Timezone: "UTC", OffDays: []string{"Saturday", "sunday"}}

	saturday := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if !m.ClosedOn(saturday) {
		t.Error("expected Saturday to be an off day")
	}
	monday := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	if m.ClosedOn(monday) {
		t.Error("expected Monday to be a working day")
	}
}

func TestScheduleTimes(t *testing.T) {
	m := Market{OpenTime: "09:30", CloseTime: "21:30", Timezone: "UTC"}
	at := time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)

	open, err := m.OpenAt(at)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	if open.Hour() != 9 || open.Minute() != 30 || open.Day() != 29 {
		t.Errorf("open = %v", open)
	}

	closeAt, err := m.CloseAt(at)
	if err != nil {
		t.Fatalf("CloseAt: %v", err)
	}
	if closeAt.Hour() != 21 || closeAt.Minute() != 30 {
		t.Errorf("close = %v", closeAt)
	}
}

func TestLocationFallback(t *testing.T) {
	if loc := (Market{}).Location(); loc.String() != DefaultTimezone {
		t.Errorf("default location = %v", loc)
	}
	if loc := (Market{Timezone: "Nowhere/Nothing"}).Location(); loc != time.UTC {
		t.Errorf("bad zone fallback = %v", loc)
	}
}
