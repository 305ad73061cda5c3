package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/enervolt/enervolt-backend/internal/api"
	"github.com/enervolt/enervolt-backend/internal/config"
	"github.com/enervolt/enervolt-backend/internal/db"
	"github.com/enervolt/enervolt-backend/internal/db/memory"
	"github.com/enervolt/enervolt-backend/internal/db/postgres"
	"github.com/enervolt/enervolt-backend/internal/entities"
	"github.com/enervolt/enervolt-backend/internal/log"
	"github.com/enervolt/enervolt-backend/internal/metrics"
	"github.com/enervolt/enervolt-backend/internal/store"
	"github.com/enervolt/enervolt-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting EnerVolt API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db_backend", cfg.Database.Backend,
	)

	metricsObj, metricsHandler, err := metrics.Setup("enervolt-api")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	driver, err := newDriver(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	client := db.NewClient(driver)
	defer client.Close(context.Background())
	logger.Infow("Database initialized")

	cache, err := store.NewCache(cfg.Cache.RedisAddr, logger, metricsObj)
	if err != nil {
		logger.Fatalw("Failed to setup cache", "error", err)
	}
	defer cache.Close()

	hub := ws.NewHub(cache, logger, metricsObj)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	handler := api.NewHandler(client, cache, hub, cfg, logger)
	mw := api.NewMiddleware(logger, metricsObj)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Routes(mw, metricsHandler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infow("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Graceful shutdown failed", "error", err)
	}
}

func newDriver(ctx context.Context, cfg *config.Config) (db.Driver, error) {
	switch cfg.Database.Backend {
	case "postgres":
		return postgres.Connect(ctx, cfg.Database.PostgresDSN)
	default:
		drv := memory.New(entities.All()...)
		if cfg.IsDev() {
			if err := seedDev(drv); err != nil {
				return nil, err
			}
		}
		return drv, nil
	}
}

// seedDev loads a handful of fixture rows so the frontend has content
// to render against the in-memory backend.
func seedDev(drv *memory.Driver) error {
	fixtures := map[string][]db.Row{
		"services": {
			{"name": "Power Audit", "slug": "power-audit", "summary": "Full electrical load survey", "category": "audit", "featured": true, "published": true},
			{"name": "Substation Design", "slug": "substation-design", "summary": "MV/LV substation engineering", "category": "design", "featured": false, "published": true},
		},
		"products": {
			{"name": "Surge Protector SP-40", "slug": "sp-40", "price": "129.90", "category": "protection", "in_stock": true, "published": true},
			{"name": "Panel Meter PM-300", "slug": "pm-300", "price": "342.00", "category": "metering", "in_stock": true, "published": true},
		},
		"testimonials": {
			{"author": "J. Okafor", "company": "Brightline Mills", "quote": "Cut our peak demand charges by a third.", "rating": 5, "published": true},
		},
	}
	for table, rows := range fixtures {
		if err := drv.Seed(table, rows); err != nil {
			return err
		}
	}
	return nil
}
