// Package markets manages market definitions.
package markets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matka-platform/result-engine/internal/app/domain/market"
	"github.com/matka-platform/result-engine/internal/app/storage"
	"github.com/matka-platform/result-engine/pkg/logger"
)

// ErrNotFound is returned when the requested market does not exist.
var ErrNotFound = errors.New("market not found")

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// Service manages the market catalog.
type Service struct {
	store storage.MarketStore
	log   *logger.Logger
}

// New constructs a markets service.
func New(store storage.MarketStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("markets")
	}
	return &Service{store: store, log: log}
}

// Create validates and stores a new market. New markets default to active
// with auto-declaration enabled.
func (s *Service) Create(ctx context.Context, m market.Market) (market.Market, error) {
	if err := validate(m); err != nil {
		return market.Market{}, err
	}
	m.Active = true
	m.AutoDeclare = true

	created, err := s.store.CreateMarket(ctx, m)
	if err != nil {
		return market.Market{}, fmt.Errorf("create market: %w", err)
	}
	s.log.WithField("market_id", created.ID).WithField("name", created.Name).Info("market created")
	return created, nil
}

// Update replaces a market's definition.
func (s *Service) Update(ctx context.Context, m market.Market) (market.Market, error) {
	if err := validate(m); err != nil {
		return market.Market{}, err
	}

	updated, err := s.store.UpdateMarket(ctx, m)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return market.Market{}, ErrNotFound
		}
		return market.Market{}, fmt.Errorf("update market: %w", err)
	}
	s.log.WithField("market_id", updated.ID).Info("market updated")
	return updated, nil
}

// Get returns one market by ID.
func (s *Service) Get(ctx context.Context, id string) (market.Market, error) {
	m, err := s.store.GetMarket(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return market.Market{}, ErrNotFound
	}
	return m, err
}

// List returns all markets.
func (s *Service) List(ctx context.Context) ([]market.Market, error) {
	return s.store.ListMarkets(ctx)
}

// SetActive toggles whether the market accepts bets.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (market.Market, error) {
	return s.toggle(ctx, id, func(m *market.Market) { m.Active = active }, "active", active)
}

// SetAutoDeclare toggles whether the recovery sweep declares for the market.
func (s *Service) SetAutoDeclare(ctx context.Context, id string, auto bool) (market.Market, error) {
	return s.toggle(ctx, id, func(m *market.Market) { m.AutoDeclare = auto }, "auto_declare", auto)
}

func (s *Service) toggle(ctx context.Context, id string, apply func(*market.Market), field string, value bool) (market.Market, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return market.Market{}, err
	}
	apply(&m)
	m.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateMarket(ctx, m)
	if err != nil {
		return market.Market{}, fmt.Errorf("update market: %w", err)
	}
	s.log.WithField("market_id", id).WithField(field, value).Info("market flag changed")
	return updated, nil
}

func validate(m market.Market) error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("market name is required")
	}
	if _, _, err := market.ParseClock(m.OpenTime); err != nil {
		return fmt.Errorf("open time: %w", err)
	}
	if _, _, err := market.ParseClock(m.CloseTime); err != nil {
		return fmt.Errorf("close time: %w", err)
	}
	if m.Timezone != "" {
		if _, err := time.LoadLocation(m.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q", m.Timezone)
		}
	}
	for _, day := range m.OffDays {
		if !weekdays[strings.ToLower(day)] {
			return fmt.Errorf("invalid off day %q", day)
		}
	}
	return nil
}
