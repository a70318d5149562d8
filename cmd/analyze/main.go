// Command analyze runs the full analysis pipeline over a CSV export and
// prints the yearly fiscal report and final portfolio figures, without
// starting the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/binance"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/config"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/database"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/ledger"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/pricing"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/progress"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/repository"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/service"
)

func main() {
	csvPath := flag.String("csv", "", "path to the exchange CSV transaction export (required)")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

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

	var reporter progress.Reporter = progress.LogReporter{}
	if *quiet {
		reporter = progress.Nop{}
	}

	cacheRepo := repository.NewPriceCacheRepository(db)
	client := binance.NewClient(cfg.Pricing.BinanceBaseURL, cfg.Pricing.ReportingCurrency, cfg.Pricing.RequestsPerSecond)
	resolver := pricing.NewResolver(cacheRepo, client, pricing.Options{
		ReportingCurrency: cfg.Pricing.ReportingCurrency,
		Workers:           int64(cfg.Pricing.Workers),
		RetryAttempts:     cfg.Pricing.RetryAttempts,
		Reporter:          reporter,
	})

	classifier := ledger.NewClassifier(ledger.DefaultLabels(), cfg.Pricing.FiatCurrencies)
	analysisService := service.NewAnalysisService(
		context.Background(),
		classifier,
		resolver,
		cfg.Pricing.ReportingCurrency,
		service.NewRunRegistry(),
		reporter,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV export: %v", err)
	}
	defer file.Close()

	result, err := analysisService.Analyze(ctx, file, reporter)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	printResult(result, cfg.Pricing.ReportingCurrency)
}

// printResult writes the fiscal report and portfolio summary to stdout.
func printResult(result *model.AnalysisResult, currency string) {
	fmt.Printf("\nTransactions analyzed: %d\n", result.TotalTransactions)
	fmt.Printf("Net invested:          %s %s\n", result.NetInvested.StringFixed(2), currency)
	fmt.Printf("Current value:         %s %s\n", result.CurrentValue.StringFixed(2), currency)

	fmt.Println("\nFinal holdings:")
	assets := make([]string, 0, len(result.FinalHoldings))
	for asset := range result.FinalHoldings {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	for _, asset := range assets {
		fmt.Printf("  %-8s %s\n", asset, result.FinalHoldings[asset].String())
	}

	years := make([]int, 0, len(result.FiscalReport))
	for year := range result.FiscalReport {
		years = append(years, year)
	}
	sort.Ints(years)

	fmt.Println("\nFiscal report:")
	for _, year := range years {
		bucket := result.FiscalReport[year]
		fmt.Printf("  %d: deposits %s, withdrawals %s, taxable disposals %s (%d sells)\n",
			year,
			bucket.TotalDeposits.StringFixed(2),
			bucket.TotalWithdrawals.StringFixed(2),
			bucket.TaxableVolume.StringFixed(2),
			len(bucket.SellTransactions),
		)
	}
}
