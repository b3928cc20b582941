// Package result defines the per-market, per-day declaration record.
package result

import "time"

// DayLayout is the canonical calendar-day key format.
const DayLayout = "2006-01-02"

// Status is the declaration state of a market day. Transitions only move
// forward: no_result -> open_declared -> close_declared.
type Status string

const (
	StatusNoResult      Status = "no_result"
	StatusOpenDeclared  Status = "open_declared"
	StatusCloseDeclared Status = "close_declared"
)

// MarketDayResult is the single source of truth for one market's declared
// numbers on one calendar day. Close may only be set when Open is set.
type MarketDayResult struct {
	ID              string     `json:"id"`
	MarketID        string     `json:"market_id"`
	Day             string     `json:"day"`
	Open            string     `json:"open,omitempty"`
	Main            string     `json:"main,omitempty"`
	Close           string     `json:"close,omitempty"`
	OpenDeclaredAt  *time.Time `json:"open_declared_at,omitempty"`
	CloseDeclaredAt *time.Time `json:"close_declared_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Status derives the declaration state from the stored numbers.
func (r MarketDayResult) Status() Status {
	switch {
	case r.Close != "":
		return StatusCloseDeclared
	case r.Open != "":
		return StatusOpenDeclared
	default:
		return StatusNoResult
	}
}

// Day formats a point in time as a calendar-day key.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}
