// Package recovery runs the periodic auto-declaration sweep. Every tick it
// pulls the external feed once and attempts any declaration a market has
// missed, including full-day backfills where open and close both land in
// the same tick.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/matka-platform/result-engine/internal/app/domain/market"
	"github.com/matka-platform/result-engine/internal/app/domain/numbers"
	"github.com/matka-platform/result-engine/internal/app/domain/result"
	"github.com/matka-platform/result-engine/internal/app/metrics"
	"github.com/matka-platform/result-engine/internal/app/services/feed"
	"github.com/matka-platform/result-engine/internal/app/storage"
	"github.com/matka-platform/result-engine/pkg/logger"
)

const declareSource = "scheduler"

// Fetcher is the feed dependency the sweep needs.
type Fetcher interface {
	FetchResults(ctx context.Context) ([]feed.Result, error)
}

// Declarer is the declaration dependency the sweep needs.
type Declarer interface {
	DeclareOpen(ctx context.Context, marketID, day, openNumber string, openAnk int, source string) (result.MarketDayResult, error)
	DeclareClose(ctx context.Context, marketID, day, closeNumber string, closeAnk int, source string) (result.MarketDayResult, error)
}

// Config tunes the scheduler.
type Config struct {
	// Schedule is a cron expression for the sweep cadence.
	Schedule string
	// Grace is subtracted from each draw time before the sweep will act,
	// letting a declaration land slightly before the published draw time.
	Grace time.Duration
	// FetchTimeout bounds a single feed pull.
	FetchTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Schedule == "" {
		c.Schedule = "@every 1m"
	}
	if c.Grace <= 0 {
		c.Grace = 10 * time.Minute
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
}

// Scheduler sweeps auto-declare markets against the external feed.
type Scheduler struct {
	cfg      Config
	markets  storage.MarketStore
	resStore storage.ResultStore
	fetcher  Fetcher
	declarer Declarer
	log      *logger.Logger

	now func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler constructs the sweep service.
func NewScheduler(cfg Config, markets storage.MarketStore, resStore storage.ResultStore, fetcher Fetcher, declarer Declarer, log *logger.Logger) *Scheduler {
	cfg.applyDefaults()
	if log == nil {
		log = logger.NewDefault("recovery")
	}
	return &Scheduler{
		cfg:      cfg,
		markets:  markets,
		resStore: resStore,
		fetcher:  fetcher,
		declarer: declarer,
		log:      log,
		now:      time.Now,
	}
}

// Name implements system.Service.
func (s *Scheduler) Name() string { return "recovery-scheduler" }

// Start begins the periodic sweep.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		tickCtx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout+time.Minute)
		defer cancel()
		s.Tick(tickCtx)
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()

	s.cron = c
	s.running = true
	s.log.WithField("schedule", s.cfg.Schedule).Info("recovery scheduler started")
	return nil
}

// Stop halts the sweep and waits for an in-flight tick to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("recovery scheduler stopped")
	return nil
}

// Tick runs one sweep: a single feed pull, then one declaration attempt per
// eligible market. A feed failure aborts the whole tick; a failure on one
// market never blocks the others.
func (s *Scheduler) Tick(ctx context.Context) {
	metrics.RecordSchedulerTick()

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	entries, err := s.fetcher.FetchResults(fetchCtx)
	cancel()
	if err != nil {
		s.log.WithError(err).Warn("feed fetch failed, skipping tick")
		return
	}

	markets, err := s.markets.ListAutoDeclareMarkets(ctx)
	if err != nil {
		s.log.WithError(err).Error("list auto-declare markets failed")
		return
	}

	byName := indexByName(entries)
	now := s.now()

	for _, m := range markets {
		if err := s.sweepMarket(ctx, m, byName, now); err != nil {
			s.log.WithError(err).WithField("market_id", m.ID).Warn("market sweep failed")
		}
	}
}

// sweepMarket attempts whatever declaration the market is missing for the
// current day. When the day was fully missed and the feed already carries
// the close, the open is backfilled first and the close follows in the same
// pass.
func (s *Scheduler) sweepMarket(ctx context.Context, m market.Market, byName map[string]feed.Result, now time.Time) error {
	if m.ClosedOn(now) {
		return nil
	}

	day := result.Day(now.In(m.Location()))

	entry, ok := byName[normalizeName(m.Name)]
	if !ok || !entry.MatchesDay(day) {
		return nil
	}

	parsed, err := feed.ParseResultString(entry.Result)
	if err != nil {
		return fmt.Errorf("feed result for %s: %w", m.Name, err)
	}

	openAt, err := m.OpenAt(now)
	if err != nil {
		return err
	}
	closeAt, err := m.CloseAt(now)
	if err != nil {
		return err
	}

	row, err := s.resStore.GetDayResult(ctx, m.ID, day)
	if err != nil && !isNotFound(err) {
		return err
	}

	openDue := !now.Before(openAt.Add(-s.cfg.Grace))
	closeDue := !now.Before(closeAt.Add(-s.cfg.Grace))

	if row.Open == "" && openDue {
		// A 3-part feed entry carries the combined jodi in its middle
		// segment, not the open ank, so the open ank comes from the open
		// number itself. A 2-part entry's middle segment is the open ank.
		openAnk := parsed.OpenAnk
		if parsed.HasClose {
			openAnk = numbers.DigitSum(parsed.Open)
		}
		row, err = s.declarer.DeclareOpen(ctx, m.ID, day, parsed.Open, openAnk, declareSource)
		if err != nil {
			return fmt.Errorf("declare open: %w", err)
		}
	}

	if row.Open != "" && row.Close == "" && closeDue && parsed.HasClose {
		closeAnk := numbers.DigitSum(parsed.Close)
		if _, err := s.declarer.DeclareClose(ctx, m.ID, day, parsed.Close, closeAnk, declareSource); err != nil {
			return fmt.Errorf("declare close: %w", err)
		}
	}
	return nil
}

func indexByName(entries []feed.Result) map[string]feed.Result {
	byName := make(map[string]feed.Result, len(entries))
	for _, e := range entries {
		byName[normalizeName(e.MarketName)] = e
	}
	return byName
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
