// Package results enforces the per-market, per-day declaration state
// machine and writes through the result store.
package results

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/matka-platform/result-engine/internal/app/domain/numbers"
	"github.com/matka-platform/result-engine/internal/app/domain/result"
	"github.com/matka-platform/result-engine/internal/app/events"
	"github.com/matka-platform/result-engine/internal/app/metrics"
	"github.com/matka-platform/result-engine/internal/app/storage"
	"github.com/matka-platform/result-engine/pkg/logger"
)

// Errors
var (
	ErrOpenNotDeclared = errors.New("open result must be declared before declaring close result")
	ErrInvalidNumber   = errors.New("result number must be a 3-digit string")
	ErrUnknownMarket   = errors.New("market not found")
	ErrInvalidDay      = errors.New("target date must be formatted YYYY-MM-DD")
	ErrInvalidPhase    = errors.New("result type must be open or close")
)

var threeDigits = regexp.MustCompile(`^\d{3}$`)

// Settler runs the settlement pass after a successful declaration write.
type Settler interface {
	SettleOpen(ctx context.Context, marketID, day, openNumber string, openAnk int) (int, error)
	SettleClose(ctx context.Context, marketID, day, openNumber string, openAnk int, closeNumber string, closeAnk int) (int, error)
}

// Service is the result declaration state machine. Declarations only move
// forward (no result -> open -> close) and revisiting a declared state is a
// no-op, which lets the recovery scheduler retry freely.
type Service struct {
	markets storage.MarketStore
	store   storage.ResultStore
	settler Settler
	events  *events.Publisher
	log     *logger.Logger
}

// New constructs a results service.
func New(markets storage.MarketStore, store storage.ResultStore, settler Settler, publisher *events.Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("results")
	}
	return &Service{
		markets: markets,
		store:   store,
		settler: settler,
		events:  publisher,
		log:     log,
	}
}

// DeclareOpen declares the open result for (market, day). Declaring an
// already-open day returns the stored row unchanged. source labels the
// caller for metrics ("manual" or "scheduler").
func (s *Service) DeclareOpen(ctx context.Context, marketID, day, openNumber string, openAnk int, source string) (result.MarketDayResult, error) {
	if err := s.validate(ctx, marketID, day, openNumber); err != nil {
		return result.MarketDayResult{}, err
	}

	row, err := s.store.EnsureDayResult(ctx, marketID, day)
	if err != nil {
		return result.MarketDayResult{}, fmt.Errorf("ensure day result: %w", err)
	}
	if row.Open != "" {
		return row, nil
	}

	now := time.Now().UTC()
	row.Open = openNumber
	row.Main = fmt.Sprintf("%02d", openAnk)
	row.OpenDeclaredAt = &now

	row, err = s.store.UpdateDayResult(ctx, row)
	if err != nil {
		return result.MarketDayResult{}, fmt.Errorf("write open result: %w", err)
	}
	if row.Open != openNumber {
		// A concurrent declarer won the guarded write; their result stands
		// and they own the settlement pass.
		return row, nil
	}

	metrics.RecordDeclaration("open", source)
	s.log.WithField("market_id", marketID).
		WithField("day", day).
		WithField("open", openNumber).
		WithField("ank", openAnk).
		Info("open result declared")
	s.events.Publish(ctx, events.OpenDeclared, map[string]any{
		"market_id": marketID,
		"day":       day,
		"open":      openNumber,
		"main":      row.Main,
	})

	if s.settler != nil {
		if _, err := s.settler.SettleOpen(ctx, marketID, day, openNumber, openAnk); err != nil {
			s.log.WithError(err).
				WithField("market_id", marketID).
				WithField("day", day).
				Warn("open settlement pass failed")
		}
	}
	return row, nil
}

// DeclareClose declares the close result for (market, day). It is rejected
// when no open result exists and is a no-op when close is already set. The
// stored main becomes the two-digit combination of open and close anks.
func (s *Service) DeclareClose(ctx context.Context, marketID, day, closeNumber string, closeAnk int, source string) (result.MarketDayResult, error) {
	if err := s.validate(ctx, marketID, day, closeNumber); err != nil {
		return result.MarketDayResult{}, err
	}

	row, err := s.store.GetDayResult(ctx, marketID, day)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return result.MarketDayResult{}, ErrOpenNotDeclared
		}
		return result.MarketDayResult{}, fmt.Errorf("load day result: %w", err)
	}
	if row.Open == "" {
		return result.MarketDayResult{}, ErrOpenNotDeclared
	}
	if row.Close != "" {
		return row, nil
	}

	openAnk, err := strconv.Atoi(row.Main)
	if err != nil {
		openAnk = numbers.DigitSum(row.Open)
	}

	now := time.Now().UTC()
	row.Close = closeNumber
	row.Main = strconv.Itoa(numbers.CombineAnks(openAnk, closeAnk))
	row.CloseDeclaredAt = &now

	row, err = s.store.UpdateDayResult(ctx, row)
	if err != nil {
		return result.MarketDayResult{}, fmt.Errorf("write close result: %w", err)
	}
	if row.Close != closeNumber {
		return row, nil
	}

	metrics.RecordDeclaration("close", source)
	s.log.WithField("market_id", marketID).
		WithField("day", day).
		WithField("close", closeNumber).
		WithField("main", row.Main).
		Info("close result declared")
	s.events.Publish(ctx, events.CloseDeclared, map[string]any{
		"market_id": marketID,
		"day":       day,
		"open":      row.Open,
		"close":     closeNumber,
		"main":      row.Main,
	})

	if s.settler != nil {
		if _, err := s.settler.SettleClose(ctx, marketID, day, row.Open, openAnk, closeNumber, closeAnk); err != nil {
			s.log.WithError(err).
				WithField("market_id", marketID).
				WithField("day", day).
				Warn("close settlement pass failed")
		}
	}
	return row, nil
}

// Result returns the declaration row for (market, day). When nothing has
// been declared yet it returns a well-formed placeholder rather than an
// error, so readers never see a not-found for an undeclared day.
func (s *Service) Result(ctx context.Context, marketID, day string) (result.MarketDayResult, error) {
	if day == "" {
		day = result.Day(time.Now().UTC())
	}
	if _, err := time.Parse(result.DayLayout, day); err != nil {
		return result.MarketDayResult{}, ErrInvalidDay
	}

	row, err := s.store.GetDayResult(ctx, marketID, day)
	if errors.Is(err, storage.ErrNotFound) {
		return result.MarketDayResult{MarketID: marketID, Day: day}, nil
	}
	return row, err
}

// History lists the most recent declaration rows for a market.
func (s *Service) History(ctx context.Context, marketID string, limit int) ([]result.MarketDayResult, error) {
	if limit <= 0 {
		limit = 30
	}
	return s.store.ListDayResults(ctx, marketID, limit)
}

func (s *Service) validate(ctx context.Context, marketID, day, number string) error {
	if !threeDigits.MatchString(number) {
		return ErrInvalidNumber
	}
	if _, err := time.Parse(result.DayLayout, day); err != nil {
		return ErrInvalidDay
	}
	if s.markets != nil {
		if _, err := s.markets.GetMarket(ctx, marketID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrUnknownMarket
			}
			return err
		}
	}
	return nil
}
