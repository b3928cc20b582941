// Package bets handles bet ingestion and queries.
package bets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matka-platform/result-engine/internal/app/domain/bet"
	"github.com/matka-platform/result-engine/internal/app/domain/result"
	"github.com/matka-platform/result-engine/internal/app/storage"
	"github.com/matka-platform/result-engine/pkg/logger"
)

// Errors
var (
	ErrMarketNotFound  = errors.New("market not found")
	ErrMarketInactive  = errors.New("market is not accepting bets")
	ErrBettingClosed   = errors.New("betting is closed for this market day")
	ErrOpenPhaseClosed = errors.New("open result already declared, open bets are closed")
	ErrBetNotFound     = errors.New("bet not found")
)

// PlaceRequest is one incoming bet.
type PlaceRequest struct {
	PlayerID   string             `json:"player_id"`
	MarketID   string             `json:"market_id"`
	Day        string             `json:"day,omitempty"`
	Type       bet.Type           `json:"type"`
	Selections map[string]float64 `json:"selections"`
}

// Service ingests bets, guarding against placement after a relevant result
// has been declared.
type Service struct {
	markets storage.MarketStore
	results storage.ResultStore
	store   storage.BetStore
	log     *logger.Logger
}

// New constructs a bets service.
func New(markets storage.MarketStore, results storage.ResultStore, store storage.BetStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("bets")
	}
	return &Service{markets: markets, results: results, store: store, log: log}
}

// Place validates and stores a bet. Bets are refused once the close result
// is declared, and open-type bets are refused once the open result is
// declared.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (bet.Bet, error) {
	if req.PlayerID == "" {
		return bet.Bet{}, errors.New("player_id is required")
	}
	if !bet.ValidType(req.Type) {
		return bet.Bet{}, fmt.Errorf("invalid bet type %q", req.Type)
	}
	if len(req.Selections) == 0 {
		return bet.Bet{}, errors.New("at least one selection is required")
	}

	m, err := s.markets.GetMarket(ctx, req.MarketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return bet.Bet{}, ErrMarketNotFound
		}
		return bet.Bet{}, err
	}
	if !m.Active {
		return bet.Bet{}, ErrMarketInactive
	}

	day := req.Day
	if day == "" {
		day = result.Day(time.Now().In(m.Location()))
	}
	if _, err := time.Parse(result.DayLayout, day); err != nil {
		return bet.Bet{}, errors.New("day must be formatted YYYY-MM-DD")
	}

	if err := s.checkPhase(ctx, req.MarketID, day, req.Type); err != nil {
		return bet.Bet{}, err
	}

	selections := make([]bet.Selection, 0, len(req.Selections))
	for key, amount := range req.Selections {
		sel, err := bet.ParseSelection(key, amount)
		if err != nil {
			return bet.Bet{}, err
		}
		selections = append(selections, sel)
	}

	b := bet.Bet{
		PlayerID:   req.PlayerID,
		MarketID:   req.MarketID,
		Day:        day,
		Type:       req.Type,
		Selections: selections,
		Outcome:    bet.OutcomeUnsettled,
		PlacedAt:   time.Now().UTC(),
	}

	created, err := s.store.CreateBet(ctx, b)
	if err != nil {
		return bet.Bet{}, fmt.Errorf("store bet: %w", err)
	}
	s.log.WithField("bet_id", created.ID).
		WithField("market_id", created.MarketID).
		WithField("day", created.Day).
		WithField("type", string(created.Type)).
		WithField("stake", created.TotalStake()).
		Info("bet placed")
	return created, nil
}

// checkPhase rejects bets that arrive after the draw they target.
func (s *Service) checkPhase(ctx context.Context, marketID, day string, t bet.Type) error {
	row, err := s.results.GetDayResult(ctx, marketID, day)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if row.Close != "" {
		return ErrBettingClosed
	}
	if t == bet.TypeOpen && row.Open != "" {
		return ErrOpenPhaseClosed
	}
	return nil
}

// Get returns one bet by ID.
func (s *Service) Get(ctx context.Context, id string) (bet.Bet, error) {
	b, err := s.store.GetBet(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return bet.Bet{}, ErrBetNotFound
	}
	return b, err
}

// ListByMarketDay returns every bet placed on a market day.
func (s *Service) ListByMarketDay(ctx context.Context, marketID, day string) ([]bet.Bet, error) {
	return s.store.ListBetsByMarketDay(ctx, marketID, day)
}

// ListByPlayer returns a player's most recent bets.
func (s *Service) ListByPlayer(ctx context.Context, playerID string, limit int) ([]bet.Bet, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListBetsByPlayer(ctx, playerID, limit)
}
