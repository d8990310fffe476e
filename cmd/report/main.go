// Package main re-renders the report for a quarter that was already
// ingested, without touching the baseline history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"thirteenf-lab/internal/config"
	"thirteenf-lab/internal/logging"
	"thirteenf-lab/internal/orchestrator"
	"thirteenf-lab/internal/pipeline"
	"thirteenf-lab/internal/reporting"
	"thirteenf-lab/internal/storage/clickhouse"
	"thirteenf-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	quarterFlag := flag.String("quarter", "", "Quarter end date YYYY-MM-DD (required)")
	toStdout := flag.Bool("stdout", false, "Print the markdown report instead of writing files")
	flag.Parse()

	if *quarterFlag == "" {
		fmt.Fprintln(os.Stderr, "--quarter is required")
		os.Exit(1)
	}
	quarter, err := time.Parse("2006-01-02", *quarterFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse quarter: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.LoadWithEnv(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}
	if cfg.Postgres.DSN == "" || cfg.ClickHouse.DSN == "" {
		fmt.Fprintln(os.Stderr, "postgres and clickhouse DSNs are required")
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()
	conn, err := clickhouse.NewConn(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect clickhouse")
	}
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("clickhouse close")
		}
	}()

	analyzer := pipeline.NewAnalyzer(pipeline.Options{
		Funds:                postgres.NewFundStore(pool),
		Holdings:             postgres.NewHoldingStore(pool),
		Securities:           postgres.NewSecurityStore(pool),
		Activity:             clickhouse.NewQuarterActivityStore(conn),
		MinFundsForCrowd:     cfg.Analysis.MinFundsForCrowd,
		MinFundsForConsensus: cfg.Analysis.MinFundsForConsensus,
		OptionsAUMThreshold:  cfg.Analysis.OptionsAUMThreshold,
		BaselineMinQuarters:  cfg.Analysis.BaselineMinQuarters,
		TopFindings:          cfg.Analysis.TopFindings,
		Workers:              cfg.Analysis.Workers,
		SkipActivityRecord:   true,
	}, logger)

	if *toStdout {
		analysis, err := analyzer.Run(ctx, quarter)
		if err != nil {
			logger.Fatal().Err(err).Msg("analysis failed")
		}
		report := reporting.NewGenerator().
			WithTopFindings(cfg.Analysis.TopFindings).
			Generate(analysis.FundDiffs, analysis.Signals, analysis.Baselines, analysis.SkippedFunds)
		fmt.Print(reporting.RenderMarkdown(report))
		return
	}

	orch := orchestrator.New(orchestrator.Options{
		Analyzer:    analyzer,
		OutputDir:   cfg.Output.Dir,
		TopFindings: cfg.Analysis.TopFindings,
		Logger:      logger,
	})
	result, err := orch.Run(ctx, quarter)
	if err != nil {
		logger.Fatal().Err(err).Msg("render failed")
	}
	logger.Info().Str("report", result.ReportPath).Str("report_id", result.ReportID).Msg("report rendered")
}
