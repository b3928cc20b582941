// Package numbers holds the static matka number classification tables and
// the digit arithmetic shared by declaration and settlement.
package numbers

import (
	"fmt"
	"strconv"
)

// Class identifies the payout class of a bet number.
type Class string

const (
	ClassSingle      Class = "single"
	ClassDouble      Class = "double"
	ClassSinglePanna Class = "single_panna"
	ClassDoublePanna Class = "double_panna"
	ClassTriplePanna Class = "triple_panna"
)

// Payout rates per class. Fixed by the game rules.
const (
	RateSingle      = 9
	RateDouble      = 90
	RateSinglePanna = 150
	RateDoublePanna = 300
	RateTriplePanna = 1000
	RateHalfSangam  = 1000
	RateFullSangam  = 10000
)

var (
	singlePanna = make(map[string]struct{})
	doublePanna = make(map[string]struct{})
	triplePanna = make(map[string]struct{})
)

// The panna tables contain only canonical numbers: digits in ascending order
// with zero ranked last (so 120 is a valid panna, 210 is not). 120 single
// pannas, 90 double pannas, 10 triple pannas.
func init() {
	for a := 0; a <= 9; a++ {
		for b := 0; b <= 9; b++ {
			for c := 0; c <= 9; c++ {
				ra, rb, rc := rank(a), rank(b), rank(c)
				if ra > rb || rb > rc {
					continue
				}
				num := fmt.Sprintf("%d%d%d", a, b, c)
				switch {
				case a == b && b == c:
					triplePanna[num] = struct{}{}
				case a == b || b == c:
					doublePanna[num] = struct{}{}
				default:
					singlePanna[num] = struct{}{}
				}
			}
		}
	}
}

func rank(d int) int {
	if d == 0 {
		return 10
	}
	return d
}

// Classify returns the payout class and rate for a bet number. One digit is
// a single, two digits a double (jodi), three digits a panna looked up in
// the fixed tables. Three-digit numbers outside every table settle at the
// plain double rate, mirroring the published rate card.
func Classify(number string) (Class, int) {
	switch len(number) {
	case 1:
		return ClassSingle, RateSingle
	case 2:
		return ClassDouble, RateDouble
	case 3:
		if _, ok := triplePanna[number]; ok {
			return ClassTriplePanna, RateTriplePanna
		}
		if _, ok := singlePanna[number]; ok {
			return ClassSinglePanna, RateSinglePanna
		}
		if _, ok := doublePanna[number]; ok {
			return ClassDoublePanna, RateDoublePanna
		}
		return ClassDouble, RateDouble
	default:
		return ClassDouble, RateDouble
	}
}

// DigitSum returns the ank of a number string: the sum of its digits mod 10.
// Non-digit characters contribute nothing.
func DigitSum(number string) int {
	sum := 0
	for _, r := range number {
		if r >= '0' && r <= '9' {
			sum += int(r - '0')
		}
	}
	return sum % 10
}

// CombineAnks derives the two-digit main from the open and close anks by
// decimal concatenation, truncated to the last two digits on overflow.
func CombineAnks(openAnk, closeAnk int) int {
	combined, _ := strconv.Atoi(strconv.Itoa(openAnk) + strconv.Itoa(closeAnk))
	if combined > 99 {
		combined %= 100
	}
	return combined
}

// IsPanna reports whether the number appears in any panna table.
func IsPanna(number string) bool {
	if _, ok := triplePanna[number]; ok {
		return true
	}
	if _, ok := singlePanna[number]; ok {
		return true
	}
	_, ok := doublePanna[number]
	return ok
}
