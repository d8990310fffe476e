// Package orchestrator coordinates a full quarterly run: analysis,
// report generation, and output files on disk.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"thirteenf-lab/internal/idhash"
	"thirteenf-lab/internal/observability"
	"thirteenf-lab/internal/pipeline"
	"thirteenf-lab/internal/reporting"
)

// Orchestrator runs the analyzer for one quarter and materializes the
// report artifacts.
type Orchestrator struct {
	analyzer    *pipeline.Analyzer
	outputDir   string
	topFindings int
	logger      zerolog.Logger
	clock       func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	// Analyzer is required.
	Analyzer *pipeline.Analyzer

	// OutputDir receives the markdown report and CSV extracts.
	// Defaults to "output".
	OutputDir string

	// TopFindings caps the ranked findings in the report.
	TopFindings int

	Logger zerolog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.OutputDir == "" {
		opts.OutputDir = "output"
	}
	return &Orchestrator{
		analyzer:    opts.Analyzer,
		outputDir:   opts.OutputDir,
		topFindings: opts.TopFindings,
		logger:      opts.Logger.With().Str("component", "orchestrator").Logger(),
		clock:       time.Now,
	}
}

// WithClock injects a time source for testing.
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// RunResult summarizes one orchestrated run.
type RunResult struct {
	ReportID      string
	ReportPath    string
	DiffsCSVPath  string
	TradesCSVPath string

	FundsAnalyzed int
	FundsSkipped  int
	Findings      int

	// Errors carries the analyzer's non-fatal per-fund failures.
	Errors []string
}

// Run executes the analysis for the given quarter end and writes the
// markdown report plus the two CSV extracts to the output directory.
func (o *Orchestrator) Run(ctx context.Context, quarter time.Time) (*RunResult, error) {
	analysis, err := o.analyzer.Run(ctx, quarter)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	report := reporting.NewGenerator().
		WithClock(o.clock).
		WithTopFindings(o.topFindings).
		Generate(analysis.FundDiffs, analysis.Signals, analysis.Baselines, analysis.SkippedFunds)

	ciks := make([]string, len(analysis.FundDiffs))
	for i, fd := range analysis.FundDiffs {
		ciks[i] = fd.Fund.CIK
	}
	reportID := idhash.ComputeReportID(quarter, ciks)

	result := &RunResult{
		ReportID:      reportID,
		FundsAnalyzed: len(analysis.FundDiffs),
		FundsSkipped:  len(analysis.SkippedFunds),
		Findings:      len(report.Findings),
		Errors:        analysis.Errors,
	}

	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	label := strings.ReplaceAll(reporting.QuarterLabel(quarter), " ", "_")

	markdown := reporting.RenderMarkdown(report)
	markdown += fmt.Sprintf("\n---\n\n*Report ID: %s*\n", reportID)
	result.ReportPath = filepath.Join(o.outputDir, fmt.Sprintf("REPORT_%s.md", label))
	if err := os.WriteFile(result.ReportPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	result.DiffsCSVPath = filepath.Join(o.outputDir, fmt.Sprintf("position_diffs_%s.csv", label))
	if err := os.WriteFile(result.DiffsCSVPath, []byte(reporting.RenderPositionDiffsCSV(analysis.FundDiffs)), 0o644); err != nil {
		return nil, fmt.Errorf("write position diffs csv: %w", err)
	}

	result.TradesCSVPath = filepath.Join(o.outputDir, fmt.Sprintf("crowded_trades_%s.csv", label))
	if err := os.WriteFile(result.TradesCSVPath, []byte(reporting.RenderCrowdedTradesCSV(analysis.Signals)), 0o644); err != nil {
		return nil, fmt.Errorf("write crowded trades csv: %w", err)
	}

	observability.DefaultMetrics.ReportsGenerated.Inc()
	o.logger.Info().
		Str("report_id", reportID).
		Str("report", result.ReportPath).
		Int("funds", result.FundsAnalyzed).
		Int("skipped", result.FundsSkipped).
		Int("findings", result.Findings).
		Msg("run complete")

	return result, nil
}
