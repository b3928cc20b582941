package bet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matka-platform/result-engine/internal/app/domain/numbers"
)

// Kind tags the parsed shape of a selection key.
type Kind string

const (
	KindSingle     Kind = "single"
	KindDouble     Kind = "double"
	KindPanna      Kind = "panna"
	KindHalfSangam Kind = "half_sangam"
	KindFullSangam Kind = "full_sangam"
)

// Selection is one staked number or pattern within a bet. Keys are parsed
// into a tagged variant when the bet is placed so settlement never has to
// re-interpret raw strings.
type Selection struct {
	Key    string  `json:"key"`
	Amount float64 `json:"amount"`
	Kind   Kind    `json:"kind"`
	Rate   int     `json:"rate"`

	// Single and double selections carry their numeric value.
	Value int `json:"value,omitempty"`

	// Panna selections carry the three-digit number and its class.
	Panna string        `json:"panna,omitempty"`
	Class numbers.Class `json:"class,omitempty"`

	// Sangam selections carry their split segments.
	Half *HalfSangam `json:"half,omitempty"`
	Full *FullSangam `json:"full,omitempty"`
}

// HalfSangam pairs a full number on one side with an ank on the other.
// Which side is the panna side is decided at match time, as either order
// is a legal key.
type HalfSangam struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// FullSangam combines an open panna, the pair of draw digit sums, and a
// close panna. Anks keeps the key's middle segment verbatim; "01" and "1"
// are distinct patterns.
type FullSangam struct {
	Open  string `json:"open"`
	Anks  string `json:"anks"`
	Close string `json:"close"`
}

// ParseSelection validates and classifies a raw selection key. Plain keys
// are 1-3 digit numbers; sangam keys use a literal X separator between two
// (half) or three (full) numeric segments.
func ParseSelection(key string, amount float64) (Selection, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Selection{}, fmt.Errorf("selection key is required")
	}
	if amount <= 0 {
		return Selection{}, fmt.Errorf("selection %q: amount must be positive", key)
	}

	if strings.Contains(key, "X") {
		return parseSangam(key, amount)
	}

	if !digitsOnly(key) || len(key) > 3 {
		return Selection{}, fmt.Errorf("selection %q: expected a 1-3 digit number", key)
	}

	class, rate := numbers.Classify(key)
	sel := Selection{Key: key, Amount: amount, Rate: rate, Class: class}
	switch len(key) {
	case 1:
		sel.Kind = KindSingle
		sel.Value, _ = strconv.Atoi(key)
	case 2:
		sel.Kind = KindDouble
		sel.Value, _ = strconv.Atoi(key)
	default:
		sel.Kind = KindPanna
		sel.Panna = key
	}
	return sel, nil
}

func parseSangam(key string, amount float64) (Selection, error) {
	parts := strings.Split(key, "X")
	for _, part := range parts {
		if part == "" || !digitsOnly(part) {
			return Selection{}, fmt.Errorf("selection %q: sangam segments must be numeric", key)
		}
	}

	switch len(parts) {
	case 2:
		// One side is a three-digit panna, the other a single-digit ank.
		if !(len(parts[0]) == 3 && len(parts[1]) == 1) && !(len(parts[0]) == 1 && len(parts[1]) == 3) {
			return Selection{}, fmt.Errorf("selection %q: half sangam needs a 3-digit and a 1-digit segment", key)
		}
		return Selection{
			Key:    key,
			Amount: amount,
			Kind:   KindHalfSangam,
			Rate:   numbers.RateHalfSangam,
			Half:   &HalfSangam{Left: parts[0], Right: parts[1]},
		}, nil
	case 3:
		if len(parts[0]) != 3 || len(parts[2]) != 3 {
			return Selection{}, fmt.Errorf("selection %q: full sangam needs 3-digit outer segments", key)
		}
		if len(parts[1]) > 2 {
			return Selection{}, fmt.Errorf("selection %q: full sangam middle segment must be 1-2 digits", key)
		}
		return Selection{
			Key:    key,
			Amount: amount,
			Kind:   KindFullSangam,
			Rate:   numbers.RateFullSangam,
			Full:   &FullSangam{Open: parts[0], Anks: parts[1], Close: parts[2]},
		}, nil
	default:
		return Selection{}, fmt.Errorf("selection %q: sangam keys have two or three segments", key)
	}
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
