package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/api"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/binance"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/config"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/database"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/ledger"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/pricing"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/progress"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/repository"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open price cache database
	if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
		log.Fatalf("Failed to create cache directory: %v", err)
	}
	db, err := database.Open(cfg.Cache.Path)
	if err != nil {
		log.Fatalf("Failed to open price cache: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate price cache: %v", err)
	}
	log.Printf("Price cache ready: %s", cfg.Cache.Path)

	// Lifetime context for background analysis runs
	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create the pricing pipeline: sqlite-backed cache, rate-limited
	// Binance client, bounded concurrent resolver
	cacheRepo := repository.NewPriceCacheRepository(db)
	client := binance.NewClient(cfg.Pricing.BinanceBaseURL, cfg.Pricing.ReportingCurrency, cfg.Pricing.RequestsPerSecond)
	resolver := pricing.NewResolver(cacheRepo, client, pricing.Options{
		ReportingCurrency: cfg.Pricing.ReportingCurrency,
		Workers:           int64(cfg.Pricing.Workers),
		RetryAttempts:     cfg.Pricing.RetryAttempts,
		Reporter:          progress.LogReporter{},
	})

	// Create services
	classifier := ledger.NewClassifier(ledger.DefaultLabels(), cfg.Pricing.FiatCurrencies)
	registry := service.NewRunRegistry()
	analysisService := service.NewAnalysisService(
		baseCtx,
		classifier,
		resolver,
		cfg.Pricing.ReportingCurrency,
		registry,
		progress.LogReporter{},
	)

	// Refresh current values of completed runs once a day, shortly after
	// the price source rolls its daily candles
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("15 0 * * *", func() {
		analysisService.RefreshCurrentValues(baseCtx)
	}); err != nil {
		log.Fatalf("Failed to schedule current-value refresh: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(analysisService, db, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	// Graceful shutdown with timeout
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
