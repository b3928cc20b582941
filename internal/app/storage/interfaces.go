// Package storage defines the persistence contracts for the engine.
package storage

import (
	"context"
	"errors"

	"github.com/matka-platform/result-engine/internal/app/domain/bet"
	"github.com/matka-platform/result-engine/internal/app/domain/market"
	"github.com/matka-platform/result-engine/internal/app/domain/result"
)

// ErrNotFound is returned when a requested record does not exist. Stores
// wrap it so callers can branch with errors.Is.
var ErrNotFound = errors.New("record not found")

// MarketStore persists market definitions.
type MarketStore interface {
	CreateMarket(ctx context.Context, m market.Market) (market.Market, error)
	UpdateMarket(ctx context.Context, m market.Market) (market.Market, error)
	GetMarket(ctx context.Context, id string) (market.Market, error)
	ListMarkets(ctx context.Context) ([]market.Market, error)
	ListAutoDeclareMarkets(ctx context.Context) ([]market.Market, error)
}

// ResultStore persists the per-market, per-day declaration records. It is
// the single source of truth for declaration state.
type ResultStore interface {
	// EnsureDayResult atomically finds or creates the row for (market, day).
	// Concurrent callers racing on first creation all receive the same row.
	EnsureDayResult(ctx context.Context, marketID, day string) (result.MarketDayResult, error)
	GetDayResult(ctx context.Context, marketID, day string) (result.MarketDayResult, error)
	UpdateDayResult(ctx context.Context, r result.MarketDayResult) (result.MarketDayResult, error)
	ListDayResults(ctx context.Context, marketID string, limit int) ([]result.MarketDayResult, error)
}

// BetStore persists bets and their settlement outcomes.
type BetStore interface {
	CreateBet(ctx context.Context, b bet.Bet) (bet.Bet, error)
	UpdateBet(ctx context.Context, b bet.Bet) (bet.Bet, error)
	GetBet(ctx context.Context, id string) (bet.Bet, error)
	// ListUnsettledBets returns unsettled bets on (market, day) whose type is
	// one of the given types.
	ListUnsettledBets(ctx context.Context, marketID, day string, types []bet.Type) ([]bet.Bet, error)
	ListBetsByMarketDay(ctx context.Context, marketID, day string) ([]bet.Bet, error)
	ListBetsByPlayer(ctx context.Context, playerID string, limit int) ([]bet.Bet, error)
}
