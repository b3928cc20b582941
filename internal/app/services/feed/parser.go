package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// feedDateLayout is the date format the upstream feed publishes.
const feedDateLayout = "02-01-2006"

// Result is one market's raw entry from the external feed.
type Result struct {
	MarketName  string `json:"market_name"`
	Result      string `json:"result"`
	UpdatedDate string `json:"updated_date"` // DD-MM-YYYY
}

// MatchesDay reports whether the entry's updated date is the given calendar
// day (YYYY-MM-DD). A stale or unparseable date means the feed has not
// published today's result yet; the entry is skipped, not an error.
func (r Result) MatchesDay(day string) bool {
	parsed, err := time.Parse(feedDateLayout, strings.TrimSpace(r.UpdatedDate))
	if err != nil {
		return false
	}
	return parsed.Format("2006-01-02") == day
}

// Parsed is a validated feed result string.
type Parsed struct {
	Open     string
	OpenAnk  int
	Close    string
	HasClose bool
}

// ParseResultString validates a raw feed string. Two dash-separated parts
// ("NNN-M") carry an open-only result; three parts ("NNN-MM-NNN") carry a
// combined open and close. The close-side ank is never carried in the
// string; callers derive it from the close number.
func ParseResultString(raw string) (Parsed, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	switch len(parts) {
	case 2:
		open, err := parseDraw(parts[0])
		if err != nil {
			return Parsed{}, fmt.Errorf("open number: %w", err)
		}
		ank, err := parseAnk(parts[1])
		if err != nil {
			return Parsed{}, fmt.Errorf("open ank: %w", err)
		}
		return Parsed{Open: open, OpenAnk: ank}, nil
	case 3:
		open, err := parseDraw(parts[0])
		if err != nil {
			return Parsed{}, fmt.Errorf("open number: %w", err)
		}
		ank, err := parseAnk(parts[1])
		if err != nil {
			return Parsed{}, fmt.Errorf("main: %w", err)
		}
		closeNum, err := parseDraw(parts[2])
		if err != nil {
			return Parsed{}, fmt.Errorf("close number: %w", err)
		}
		return Parsed{Open: open, OpenAnk: ank, Close: closeNum, HasClose: true}, nil
	default:
		return Parsed{}, fmt.Errorf("result %q: expected 2 or 3 dash-separated parts, got %d", raw, len(parts))
	}
}

func parseDraw(s string) (string, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return "", fmt.Errorf("%q is not numeric", s)
	}
	if n < 100 || n > 999 {
		return "", fmt.Errorf("%q out of range [100,999]", s)
	}
	return s, nil
}

func parseAnk(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not numeric", s)
	}
	if n < 0 || n > 99 {
		return 0, fmt.Errorf("%q out of range [0,99]", s)
	}
	return n, nil
}
