// Package app wires stores, services, and background systems into one
// runnable engine.
package app

import (
	"context"

	"github.com/matka-platform/result-engine/internal/app/events"
	"github.com/matka-platform/result-engine/internal/app/services/bets"
	"github.com/matka-platform/result-engine/internal/app/services/markets"
	"github.com/matka-platform/result-engine/internal/app/services/results"
	"github.com/matka-platform/result-engine/internal/app/services/settlement"
	"github.com/matka-platform/result-engine/internal/app/storage"
	"github.com/matka-platform/result-engine/internal/app/storage/memory"
	"github.com/matka-platform/result-engine/internal/app/system"
	"github.com/matka-platform/result-engine/pkg/logger"
)

// Stores groups the persistence backends. Nil fields fall back to the
// in-memory store, which is the development and test default.
type Stores struct {
	Markets storage.MarketStore
	Results storage.ResultStore
	Bets    storage.BetStore
}

// Application is the assembled engine.
type Application struct {
	Markets    *markets.Service
	Results    *results.Service
	Bets       *bets.Service
	Settlement *settlement.Service

	Stores  Stores
	Events  *events.Publisher
	Manager *system.Manager
	Log     *logger.Logger
}

// New assembles the application from its stores. publisher may be nil when
// event publishing is disabled.
func New(stores Stores, publisher *events.Publisher, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if stores.Markets == nil || stores.Results == nil || stores.Bets == nil {
		mem := memory.New()
		if stores.Markets == nil {
			stores.Markets = mem
		}
		if stores.Results == nil {
			stores.Results = mem
		}
		if stores.Bets == nil {
			stores.Bets = mem
		}
	}

	settle := settlement.New(stores.Bets, publisher, log.WithField("service", "settlement"))
	res := results.New(stores.Markets, stores.Results, settle, publisher, log.WithField("service", "results"))

	return &Application{
		Markets:    markets.New(stores.Markets, log.WithField("service", "markets")),
		Results:    res,
		Bets:       bets.New(stores.Markets, stores.Results, stores.Bets, log.WithField("service", "bets")),
		Settlement: settle,
		Stores:     stores,
		Events:     publisher,
		Manager:    system.NewManager(),
		Log:        log,
	}
}

// Attach registers a background service with the application's manager.
func (a *Application) Attach(svc system.Service) error {
	return a.Manager.Register(svc)
}

// Start brings up all attached background services.
func (a *Application) Start(ctx context.Context) error {
	return a.Manager.Start(ctx)
}

// Stop shuts down attached services and the event publisher.
func (a *Application) Stop(ctx context.Context) error {
	err := a.Manager.Stop(ctx)
	if cerr := a.Events.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
