// Package market defines the market entity and its draw schedule helpers.
package market

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimezone is used when a market does not carry its own zone.
const DefaultTimezone = "Asia/Kolkata"

// Market is a betting market with a daily open and close draw.
type Market struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OpenTime    string    `json:"open_time"`  // HH:MM, market-local
	CloseTime   string    `json:"close_time"` // HH:MM, market-local
	Timezone    string    `json:"timezone"`
	OffDays     []string  `json:"off_days,omitempty"` // lowercase weekday names
	Active      bool      `json:"active"`
	AutoDeclare bool      `json:"auto_declare"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Location resolves the market's time zone, falling back to the default.
func (m Market) Location() *time.Location {
	name := m.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClosedOn reports whether the market skips draws on the given day.
func (m Market) ClosedOn(t time.Time) bool {
	weekday := strings.ToLower(t.In(m.Location()).Weekday().String())
	for _, off := range m.OffDays {
		if strings.ToLower(off) == weekday {
			return true
		}
	}
	return false
}

// OpenAt returns the scheduled open draw time on the day containing t.
func (m Market) OpenAt(t time.Time) (time.Time, error) {
	return m.scheduleAt(t, m.OpenTime)
}

// CloseAt returns the scheduled close draw time on the day containing t.
func (m Market) CloseAt(t time.Time) (time.Time, error) {
	return m.scheduleAt(t, m.CloseTime)
}

func (m Market) scheduleAt(t time.Time, hhmm string) (time.Time, error) {
	hour, minute, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	local := t.In(m.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, m.Location()), nil
}

// ParseClock parses an HH:MM string into hour and minute components.
func ParseClock(hhmm string) (int, int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", hhmm)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
