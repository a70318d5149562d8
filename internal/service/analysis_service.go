// Package service orchestrates the analysis pipeline: parse, classify,
// aggregate, replay. It owns run tracking and the scheduled refresh of
// completed runs.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/fiscal"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/ledger"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/progress"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/valuation"
)

// Progress bands for the pipeline stages. Valuation dominates wall-clock
// time because it is the only stage doing network I/O.
const (
	bandParsed     = 5
	bandClassified = 10
	bandAggregated = 15
	bandValuedHi   = 98
)

// AnalysisService runs the full analysis pipeline over an uploaded ledger
// and tracks each run in the registry.
type AnalysisService struct {
	classifier *ledger.Classifier
	prices     valuation.PriceSource
	registry   *RunRegistry
	reporter   progress.Reporter
	reporting  string

	// baseCtx governs background runs started by Submit, so server
	// shutdown cancels in-flight analyses.
	baseCtx context.Context
}

// NewAnalysisService creates the analysis orchestrator.
//
// Parameters:
//   - baseCtx: lifetime context for background runs
//   - classifier: operation-label classifier with the configured fiat set
//   - prices: price resolution service
//   - reporting: reporting currency code, e.g. "EUR"
//   - registry: run tracker shared with the API layer
//   - reporter: log sink for run output, may be progress.Nop
func NewAnalysisService(
	baseCtx context.Context,
	classifier *ledger.Classifier,
	prices valuation.PriceSource,
	reporting string,
	registry *RunRegistry,
	reporter progress.Reporter,
) *AnalysisService {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &AnalysisService{
		classifier: classifier,
		prices:     prices,
		reporting:  reporting,
		registry:   registry,
		reporter:   reporter,
		baseCtx:    baseCtx,
	}
}

// Registry exposes the run tracker for the API layer.
func (s *AnalysisService) Registry() *RunRegistry {
	return s.registry
}

// Submit registers a new run for the uploaded CSV and starts the analysis
// in the background. The returned run ID is immediately pollable.
func (s *AnalysisService) Submit(data []byte) string {
	id := s.registry.Create()

	go func() {
		s.registry.start(id)

		reporter := &runReporter{registry: s.registry, id: id, inner: s.reporter}
		result, err := s.Analyze(s.baseCtx, bytes.NewReader(data), reporter)
		if err != nil {
			reporter.Log(progress.LevelError, fmt.Sprintf("analysis %s failed: %v", id, err))
			s.registry.fail(id, err)
			return
		}
		s.registry.complete(id, result)
	}()

	return id
}

// Analyze runs the pipeline synchronously: parse the CSV, classify and sort
// the rows, aggregate the fiscal report, then replay the ledger against the
// price service. The reporter receives overall progress in percent.
func (s *AnalysisService) Analyze(ctx context.Context, r io.Reader, reporter progress.Reporter) (*model.AnalysisResult, error) {
	if reporter == nil {
		reporter = progress.Nop{}
	}

	reporter.Progress(0, "parsing transaction export")
	records, err := ledger.ParseCSV(r)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger: %w", err)
	}
	reporter.Progress(bandParsed, "parsed transaction export")

	classified, unknown := s.classifier.Classify(records)
	for _, label := range unknown {
		reporter.Log(progress.LevelWarn, fmt.Sprintf("unknown operation label %q, rows ignored", label))
	}
	reporter.Progress(bandClassified, "classified operations")

	aggregator := fiscal.NewAggregator(s.classifier.IsFiat, s.reporting)
	fiscalReport := aggregator.Aggregate(classified)
	reporter.Progress(bandAggregated, "aggregated fiscal report")

	engine := valuation.NewEngine(s.prices, s.classifier.IsFiat, &bandReporter{
		inner:    reporter,
		lo:       bandAggregated,
		hi:       bandValuedHi,
		stepName: "valuing portfolio",
	})
	replay, err := engine.Replay(ctx, classified)
	if err != nil {
		return nil, fmt.Errorf("replaying ledger: %w", err)
	}

	result := &model.AnalysisResult{
		TotalTransactions: len(classified),
		NetInvested:       replay.NetInvested,
		CurrentValue:      replay.CurrentValue,
		FinalHoldings:     replay.FinalHoldings,
		Series:            replay.Series,
		FiscalReport:      fiscalReport.Fiscal,
		FiatActivity:      fiscalReport.FiatActivity,
	}
	reporter.Progress(100, "analysis complete")
	return result, nil
}

// RefreshCurrentValues reprices the final holdings of every completed run
// at today's prices. Invoked by the daily scheduler so long-lived runs keep
// a current portfolio value without re-replaying the ledger.
func (s *AnalysisService) RefreshCurrentValues(ctx context.Context) {
	engine := valuation.NewEngine(s.prices, s.classifier.IsFiat, s.reporter)

	for _, run := range s.registry.Completed() {
		value := engine.HoldingsValue(ctx, run.Result.FinalHoldings)

		updated := *run.Result
		updated.CurrentValue = value
		s.registry.setResult(run.ID, &updated)

		s.reporter.Log(progress.LevelInfo,
			fmt.Sprintf("refreshed current value for run %s: %s", run.ID, value.StringFixed(2)))
	}
}
