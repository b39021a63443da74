// Kite - FNOL claims triage and decisioning engine.
// Copyright (c) 2026 openclaims
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/openclaims/kite/internal/api"
	"github.com/openclaims/kite/internal/audit"
	"github.com/openclaims/kite/internal/bus"
	"github.com/openclaims/kite/internal/cache"
	"github.com/openclaims/kite/internal/coverage"
	"github.com/openclaims/kite/internal/domain"
	"github.com/openclaims/kite/internal/extract"
	"github.com/openclaims/kite/internal/fraud"
	"github.com/openclaims/kite/internal/history"
	"github.com/openclaims/kite/internal/investigation"
	"github.com/openclaims/kite/internal/orchestrator"
	"github.com/openclaims/kite/internal/regulatory"
	"github.com/openclaims/kite/internal/repository"
	"github.com/openclaims/kite/internal/reserve"
	"github.com/openclaims/kite/internal/severity"
	"github.com/openclaims/kite/internal/valuation"
	"github.com/openclaims/kite/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Optional .env file for local development
	_ = godotenv.Load()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KITE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kite",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KITE_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize claim history service (frequency counters)
	historySvc := history.NewService(repo, cacheImpl)
	slog.Info("history service initialized")

	// Initialize CEL fraud rule engine
	engine, err := fraud.NewEngine(100)
	if err != nil {
		slog.Error("failed to initialize fraud rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Built-in rules first, then database rules on top
	if err := engine.LoadRules(fraud.DefaultRules()); err != nil {
		slog.Error("failed to load built-in fraud rules", "error", err)
		os.Exit(1)
	}
	if err := loadRulesFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load fraud rules", "error", err)
		os.Exit(1)
	}
	slog.Info("fraud rule engine initialized", "rules_count", engine.RulesCount())

	// Fraud detector: rules + watchlist + claim frequency patterns
	watchlist := repository.NewWatchlistScreen(repo)
	detector := fraud.NewDetector(engine, nil, watchlist, historySvc.GetFrequencyGetter(), cfg.Pipeline, logger)
	slog.Info("fraud detector initialized")

	// Valuation engine: internal depreciation model unless pricing sources
	// are configured
	pricingTimeout := time.Duration(cfg.Pipeline.PricingTimeoutSeconds) * time.Second
	valuationEngine := valuation.NewEngine(nil, nil, pricingTimeout, logger)

	// Audit sink
	auditor := audit.NewSink(repo, busImpl, logger)

	// Orchestrator runs the full decision pipeline
	orch := orchestrator.New(orchestrator.Config{
		Pipeline:      cfg.Pipeline,
		Coverage:      coverage.NewValidator(),
		Severity:      severity.NewScorer(cfg.Pipeline.AutoApprovalCeiling),
		Fraud:         detector,
		Investigation: investigation.NewService(extract.NewService(nil, pricingTimeout, logger), logger),
		Valuation:     valuationEngine,
		Reserve:       reserve.NewCalculator(cfg.Pipeline),
		Regulatory:    regulatory.NewValidator(),
		Repository:    repo,
		EventBus:      busImpl,
		Audit:         auditor,
		Logger:        logger,
	})
	slog.Info("orchestrator initialized")

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("KITE_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, orch)

		var tenantIDs []string
		if envTenants := os.Getenv("KITE_TENANTS"); envTenants != "" {
			tenantIDs = strings.Split(envTenants, ",")
		}

		workerCfg := worker.Config{
			TenantIDs: tenantIDs,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, orch, auditor, historySvc, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kite is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kite shutdown complete")
}

// applyEnvOverrides layers KITE_* environment variables over the tier
// defaults.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("KITE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("KITE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KITE_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("KITE_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("KITE_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("KITE_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("KITE_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("KITE_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("KITE_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("KITE_AUTO_APPROVAL_CEILING"); v != "" {
		if ceiling, err := strconv.ParseFloat(v, 64); err == nil && ceiling > 0 {
			cfg.Pipeline.AutoApprovalCeiling = ceiling
		}
	}
	if v := os.Getenv("KITE_NETWORK_RISK_MULTIPLIER"); v != "" {
		if mult, err := strconv.ParseFloat(v, 64); err == nil && mult > 0 {
			cfg.Pipeline.NetworkRiskMultiplier = mult
		}
	}
}

// loadRulesFromDatabase loads fraud rules from the database into the engine.
// Database rules layer on top of the built-ins and can be managed via the
// /fraud-rules API.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *fraud.Engine) error {
	dbRules, err := repo.ListFraudRules(ctx, api.GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list fraud rules from database", "error", err)
		return nil // Start with built-ins only - rules can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading fraud rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no fraud rules in database - configure via POST /fraud-rules API")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ==============================================")
	fmt.Println("                     KITE")
	fmt.Println("        FNOL Claims Triage & Decisioning")
	fmt.Println("  ==============================================")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /claims                  - Submit a first notice of loss")
	fmt.Println("    GET  /claims/{id}             - Get claim by ID")
	fmt.Println("    GET  /claims/{id}/decision    - Get latest decision for a claim")
	fmt.Println("    GET  /claims/{id}/audit       - Get claim audit trail")
	fmt.Println("    GET  /decisions/{id}          - Get decision by ID")
	fmt.Println("    GET  /fraud-rules             - List loaded fraud rules")
	fmt.Println("    POST /fraud-rules             - Create a fraud rule")
	fmt.Println("    POST /fraud-rules/reload      - Hot-reload rules from database")
	fmt.Println("    POST /watchlist               - Add a watchlist entry")
	fmt.Println("    GET  /watchlist/{party}/{name} - Check a watchlist entry")
	fmt.Println("    GET  /health                  - Health check")
	fmt.Println()
}
