// Package main runs the result declaration and settlement engine.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matka-platform/result-engine/internal/app"
	"github.com/matka-platform/result-engine/internal/app/events"
	"github.com/matka-platform/result-engine/internal/app/httpapi"
	"github.com/matka-platform/result-engine/internal/app/metrics"
	"github.com/matka-platform/result-engine/internal/app/services/feed"
	"github.com/matka-platform/result-engine/internal/app/services/recovery"
	"github.com/matka-platform/result-engine/internal/app/storage/postgres"
	"github.com/matka-platform/result-engine/internal/config"
	"github.com/matka-platform/result-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault("main").WithError(err).Error("load configuration failed")
		os.Exit(1)
	}

	log := logger.New("engine", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores := app.Stores{}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			log.WithError(err).Error("connect to postgres failed")
			os.Exit(1)
		}
		defer db.Close()

		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.WithError(err).Error("ensure schema failed")
			os.Exit(1)
		}

		pg := postgres.New(db)
		stores = app.Stores{Markets: pg, Results: pg, Bets: pg}
		log.Info("using postgres storage")
	} else {
		log.Warn("no database configured, using in-memory storage")
	}

	publisher := events.NewPublisher(cfg.Redis.Addr, cfg.Redis.Channel, log.WithField("component", "events"))

	application := app.New(stores, publisher, log)

	if cfg.Feed.URL != "" {
		client, err := feed.NewClient(nil, cfg.Feed.URL, cfg.Feed.APIKey, cfg.Feed.APISecret, cfg.Feed.RatePerMinute, log.WithField("component", "feed"))
		if err != nil {
			log.WithError(err).Error("feed client setup failed")
			os.Exit(1)
		}

		scheduler := recovery.NewScheduler(recovery.Config{
			Schedule:     cfg.Scheduler.Schedule,
			Grace:        cfg.Scheduler.Grace(),
			FetchTimeout: cfg.Scheduler.FetchTimeout,
		}, application.Stores.Markets, application.Stores.Results, client, application.Results, log.WithField("component", "recovery"))

		if err := application.Attach(scheduler); err != nil {
			log.WithError(err).Error("attach scheduler failed")
			os.Exit(1)
		}
	} else {
		log.Warn("no feed configured, auto-declaration disabled")
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start services failed")
		os.Exit(1)
	}

	handler := httpapi.NewHandler(application, log.WithField("component", "httpapi"))
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      metrics.InstrumentHandler(handler.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown failed")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown failed")
	}
	log.Info("engine stopped")
}
