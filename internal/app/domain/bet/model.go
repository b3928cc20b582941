// Package bet defines placed bets and their parsed number selections.
package bet

import "time"

// Type determines which draw phase a bet resolves against.
type Type string

const (
	TypeOpen  Type = "open"
	TypeClose Type = "close"
	TypeBoth  Type = "both"
)

// ValidType reports whether t is a known bet type.
func ValidType(t Type) bool {
	return t == TypeOpen || t == TypeClose || t == TypeBoth
}

// Outcome is the settlement result of a bet.
type Outcome string

const (
	OutcomeUnsettled Outcome = "unsettled"
	OutcomeWon       Outcome = "won"
	OutcomeLoss      Outcome = "loss"
)

// Bet is a player's stake against one market day. Selections are parsed at
// ingestion; only the outcome fields change afterwards, and only through
// settlement.
type Bet struct {
	ID         string      `json:"id"`
	PlayerID   string      `json:"player_id"`
	MarketID   string      `json:"market_id"`
	Day        string      `json:"day"`
	Type       Type        `json:"type"`
	Selections []Selection `json:"selections"`
	Outcome    Outcome     `json:"outcome"`
	WinAmount  float64     `json:"win_amount"`
	PlacedAt   time.Time   `json:"placed_at"`
	SettledAt  *time.Time  `json:"settled_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TotalStake sums the staked amounts across all selections.
func (b Bet) TotalStake() float64 {
	total := 0.0
	for _, sel := range b.Selections {
		total += sel.Amount
	}
	return total
}
