// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matka-platform/result-engine/internal/app/domain/bet"
	"github.com/matka-platform/result-engine/internal/app/domain/market"
	"github.com/matka-platform/result-engine/internal/app/domain/result"
	"github.com/matka-platform/result-engine/internal/app/storage"
)

// Store is the in-memory store.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	markets     map[string]market.Market
	results     map[string]result.MarketDayResult // keyed by marketID|day
	bets        map[string]bet.Bet
	betsByDay   map[string][]string // marketID|day -> bet IDs in placement order
	marketOrder []string
}

var _ storage.MarketStore = (*Store)(nil)
var _ storage.ResultStore = (*Store)(nil)
var _ storage.BetStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:    1,
		markets:   make(map[string]market.Market),
		results:   make(map[string]result.MarketDayResult),
		bets:      make(map[string]bet.Bet),
		betsByDay: make(map[string][]string),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func dayKey(marketID, day string) string {
	return marketID + "|" + day
}

// MarketStore implementation -------------------------------------------------

func (s *Store) CreateMarket(_ context.Context, m market.Market) (market.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = s.nextIDLocked()
	} else if _, exists := s.markets[m.ID]; exists {
		return market.Market{}, fmt.Errorf("market %s already exists", m.ID)
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.OffDays = cloneStrings(m.OffDays)

	s.markets[m.ID] = m
	s.marketOrder = append(s.marketOrder, m.ID)
	return cloneMarket(m), nil
}

func (s *Store) UpdateMarket(_ context.Context, m market.Market) (market.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.markets[m.ID]
	if !ok {
		return market.Market{}, fmt.Errorf("market %s: %w", m.ID, storage.ErrNotFound)
	}

	m.CreatedAt = original.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	m.OffDays = cloneStrings(m.OffDays)

	s.markets[m.ID] = m
	return cloneMarket(m), nil
}

func (s *Store) GetMarket(_ context.Context, id string) (market.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return market.Market{}, fmt.Errorf("market %s: %w", id, storage.ErrNotFound)
	}
	return cloneMarket(m), nil
}

func (s *Store) ListMarkets(_ context.Context) ([]market.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]market.Market, 0, len(s.marketOrder))
	for _, id := range s.marketOrder {
		if m, ok := s.markets[id]; ok {
			out = append(out, cloneMarket(m))
		}
	}
	return out, nil
}

func (s *Store) ListAutoDeclareMarkets(_ context.Context) ([]market.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []market.Market
	for _, id := range s.marketOrder {
		if m, ok := s.markets[id]; ok && m.Active && m.AutoDeclare {
			out = append(out, cloneMarket(m))
		}
	}
	return out, nil
}

// ResultStore implementation -------------------------------------------------

func (s *Store) EnsureDayResult(_ context.Context, marketID, day string) (result.MarketDayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(marketID, day)
	if existing, ok := s.results[key]; ok {
		return cloneResult(existing), nil
	}

	now := time.Now().UTC()
	row := result.MarketDayResult{
		ID:        s.nextIDLocked(),
		MarketID:  marketID,
		Day:       day,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.results[key] = row
	return cloneResult(row), nil
}

func (s *Store) GetDayResult(_ context.Context, marketID, day string) (result.MarketDayResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.results[dayKey(marketID, day)]
	if !ok {
		return result.MarketDayResult{}, fmt.Errorf("result for market %s on %s: %w", marketID, day, storage.ErrNotFound)
	}
	return cloneResult(row), nil
}

// UpdateDayResult applies the same phase guards as the postgres store: a
// declared number is never overwritten. A guarded-out write returns the
// stored row unchanged, so the losing declarer in a race sees the winner's
// result.
func (s *Store) UpdateDayResult(_ context.Context, r result.MarketDayResult) (result.MarketDayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(r.MarketID, r.Day)
	original, ok := s.results[key]
	if !ok {
		return result.MarketDayResult{}, fmt.Errorf("result for market %s on %s: %w", r.MarketID, r.Day, storage.ErrNotFound)
	}

	if r.Close == "" {
		if original.Open != "" {
			return cloneResult(original), nil
		}
	} else {
		if original.Open == "" || original.Close != "" {
			return cloneResult(original), nil
		}
	}

	r.ID = original.ID
	r.CreatedAt = original.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	s.results[key] = cloneResult(r)
	return cloneResult(r), nil
}

func (s *Store) ListDayResults(_ context.Context, marketID string, limit int) ([]result.MarketDayResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []result.MarketDayResult
	for _, row := range s.results {
		if row.MarketID == marketID {
			out = append(out, cloneResult(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BetStore implementation ----------------------------------------------------

func (s *Store) CreateBet(_ context.Context, b bet.Bet) (bet.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = s.nextIDLocked()
	} else if _, exists := s.bets[b.ID]; exists {
		return bet.Bet{}, fmt.Errorf("bet %s already exists", b.ID)
	}

	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Outcome == "" {
		b.Outcome = bet.OutcomeUnsettled
	}
	b.Selections = cloneSelections(b.Selections)

	s.bets[b.ID] = b
	key := dayKey(b.MarketID, b.Day)
	s.betsByDay[key] = append(s.betsByDay[key], b.ID)
	return cloneBet(b), nil
}

func (s *Store) UpdateBet(_ context.Context, b bet.Bet) (bet.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.bets[b.ID]
	if !ok {
		return bet.Bet{}, fmt.Errorf("bet %s: %w", b.ID, storage.ErrNotFound)
	}

	b.CreatedAt = original.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	b.Selections = cloneSelections(b.Selections)
	s.bets[b.ID] = b
	return cloneBet(b), nil
}

func (s *Store) GetBet(_ context.Context, id string) (bet.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bets[id]
	if !ok {
		return bet.Bet{}, fmt.Errorf("bet %s: %w", id, storage.ErrNotFound)
	}
	return cloneBet(b), nil
}

func (s *Store) ListUnsettledBets(_ context.Context, marketID, day string, types []bet.Type) ([]bet.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[bet.Type]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	var out []bet.Bet
	for _, id := range s.betsByDay[dayKey(marketID, day)] {
		b, ok := s.bets[id]
		if !ok {
			continue
		}
		if b.Outcome == bet.OutcomeUnsettled && wanted[b.Type] {
			out = append(out, cloneBet(b))
		}
	}
	return out, nil
}

func (s *Store) ListBetsByMarketDay(_ context.Context, marketID, day string) ([]bet.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []bet.Bet
	for _, id := range s.betsByDay[dayKey(marketID, day)] {
		if b, ok := s.bets[id]; ok {
			out = append(out, cloneBet(b))
		}
	}
	return out, nil
}

func (s *Store) ListBetsByPlayer(_ context.Context, playerID string, limit int) ([]bet.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []bet.Bet
	for _, b := range s.bets {
		if b.PlayerID == playerID {
			out = append(out, cloneBet(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// helpers ---------------------------------------------------------------------

func cloneMarket(m market.Market) market.Market {
	m.OffDays = cloneStrings(m.OffDays)
	return m
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneResult(r result.MarketDayResult) result.MarketDayResult {
	if r.OpenDeclaredAt != nil {
		at := *r.OpenDeclaredAt
		r.OpenDeclaredAt = &at
	}
	if r.CloseDeclaredAt != nil {
		at := *r.CloseDeclaredAt
		r.CloseDeclaredAt = &at
	}
	return r
}

func cloneBet(b bet.Bet) bet.Bet {
	b.Selections = cloneSelections(b.Selections)
	if b.SettledAt != nil {
		at := *b.SettledAt
		b.SettledAt = &at
	}
	return b
}

func cloneSelections(in []bet.Selection) []bet.Selection {
	if in == nil {
		return nil
	}
	out := make([]bet.Selection, len(in))
	copy(out, in)
	for i := range out {
		if out[i].Half != nil {
			half := *out[i].Half
			out[i].Half = &half
		}
		if out[i].Full != nil {
			full := *out[i].Full
			out[i].Full = &full
		}
	}
	return out
}
