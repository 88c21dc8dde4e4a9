package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/haukened/sitegate/internal/gate/common/clock"
	"github.com/haukened/sitegate/internal/gate/common/log"
	"github.com/haukened/sitegate/internal/gate/config"
	"github.com/haukened/sitegate/internal/gate/gateways/httpapi"
	"github.com/haukened/sitegate/internal/gate/repos/creds"
	credsbolt "github.com/haukened/sitegate/internal/gate/repos/creds/bolt"
	"github.com/haukened/sitegate/internal/gate/repos/rules"
	rulesbolt "github.com/haukened/sitegate/internal/gate/repos/rules/bolt"
	"github.com/haukened/sitegate/internal/gate/repos/rules/bloom"
	"github.com/haukened/sitegate/internal/gate/repos/verdicts"
	"github.com/haukened/sitegate/internal/gate/services/engine"
	"github.com/haukened/sitegate/internal/gate/services/sweeper"
	"github.com/haukened/sitegate/internal/gate/services/vault"
)

const (
	version = "0.1.0-dev"
	appName = "sitegated"

	rulesDBFile = "rules.db"
	credsDBFile = "creds.db"

	// Target false-positive rate for the origin filter.
	filterFPRate = 0.01

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds all the components of the gateway daemon.
type Application struct {
	config     *config.AppConfig
	gateway    *httpapi.Server
	sweeper    *sweeper.Sweeper
	rulesStore rules.Store
	credsStore creds.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.LogLevel,
		"listen":     cfg.Listen,
		"data_dir":   cfg.DataDir,
		"cache_size": cfg.CacheSize,
		"match_mode": cfg.MatchMode,
	}, "Starting sitegate daemon")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Daemon failed")
	}

	log.Info(nil, "Sitegate daemon stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	mode, err := engine.ParseMatchMode(cfg.MatchMode)
	if err != nil {
		return nil, err
	}

	rulesStore, err := rulesbolt.New(filepath.Join(cfg.DataDir, rulesDBFile), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule store: %w", err)
	}

	credsStore, err := credsbolt.New(filepath.Join(cfg.DataDir, credsDBFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	repo, err := rules.NewRepository(rulesStore, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule repository: %w", err)
	}

	cache, err := verdicts.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create verdict cache: %w", err)
	}
	if cfg.CacheSize <= 0 {
		log.Info(map[string]any{"disabled": true}, "Verdict caching disabled")
	} else {
		log.Info(map[string]any{
			"type": "LRU",
			"size": cfg.CacheSize,
		}, "Verdict cache configured")
	}

	dec := engine.New(engine.Options{
		Rules:  repo,
		Cache:  cache,
		Clock:  clk,
		Logger: logger,
		Mode:   mode,
		BuildFilter: func(origins []string) engine.OriginFilter {
			return bloom.FromOrigins(origins, filterFPRate)
		},
	})

	swp := sweeper.New(repo, clk, logger, time.Duration(cfg.SweepIntervalSeconds)*time.Second)

	gw := httpapi.New(httpapi.Options{
		Addr:        cfg.Listen,
		BlockedPage: cfg.BlockedPage,
		Engine:      dec,
		Rules:       repo,
		Auth:        vault.New(credsStore, logger),
		Cache:       cache,
		Clock:       clk,
		Logger:      logger,
	})

	return &Application{
		config:     cfg,
		gateway:    gw,
		sweeper:    swp,
		rulesStore: rulesStore,
		credsStore: credsStore,
	}, nil
}

// Run starts the gateway and the timer sweep, then blocks until the
// context is cancelled.
func (app *Application) Run(ctx context.Context) error {
	if err := app.gateway.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http gateway: %w", err)
	}

	go app.sweeper.Run(ctx)

	log.Info(map[string]any{
		"address":   app.gateway.Address(),
		"transport": "http",
	}, "Sitegate daemon started")

	<-ctx.Done()

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := app.gateway.Stop(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error during gateway shutdown")
		}
		if err := app.rulesStore.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing rule store")
		}
		if err := app.credsStore.Close(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error closing credential store")
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info(nil, "Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout")
	}
}
