// Package main runs the quarterly 13F analysis: diff every watched
// fund against its prior filing, aggregate cross-fund signals, and
// write the report artifacts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"thirteenf-lab/internal/config"
	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/logging"
	"thirteenf-lab/internal/observability"
	"thirteenf-lab/internal/orchestrator"
	"thirteenf-lab/internal/pipeline"
	"thirteenf-lab/internal/storage"
	"thirteenf-lab/internal/storage/clickhouse"
	"thirteenf-lab/internal/storage/memory"
	"thirteenf-lab/internal/storage/migrations"
	"thirteenf-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	quarterFlag := flag.String("quarter", "", "Quarter end date YYYY-MM-DD (default: most recent completed quarter)")
	useFixtures := flag.Bool("use-fixtures", false, "Run against in-memory fixture data instead of the databases")
	migrate := flag.Bool("migrate", false, "Apply database migrations before running")
	outputDir := flag.String("output-dir", "", "Override the configured output directory")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	quarter, err := resolveQuarter(*quarterFlag, time.Now())
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid quarter")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("cancelling run")
		cancel()
	}()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	stores, cleanup, err := buildStores(ctx, cfg, *useFixtures, *migrate, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage setup failed")
	}
	defer cleanup()

	if !*useFixtures {
		if err := syncWatchlist(ctx, cfg, stores.funds); err != nil {
			logger.Fatal().Err(err).Msg("watchlist sync failed")
		}
	}

	analyzer := pipeline.NewAnalyzer(pipeline.Options{
		Funds:                stores.funds,
		Holdings:             stores.holdings,
		Securities:           stores.securities,
		Activity:             stores.activity,
		MinFundsForCrowd:     cfg.Analysis.MinFundsForCrowd,
		MinFundsForConsensus: cfg.Analysis.MinFundsForConsensus,
		OptionsAUMThreshold:  cfg.Analysis.OptionsAUMThreshold,
		BaselineMinQuarters:  cfg.Analysis.BaselineMinQuarters,
		TopFindings:          cfg.Analysis.TopFindings,
		Workers:              cfg.Analysis.Workers,
	}, logger)

	orch := orchestrator.New(orchestrator.Options{
		Analyzer:    analyzer,
		OutputDir:   cfg.Output.Dir,
		TopFindings: cfg.Analysis.TopFindings,
		Logger:      logger,
	})

	result, err := orch.Run(ctx, quarter)
	if err != nil {
		logger.Fatal().Err(err).Msg("run failed")
	}

	for _, e := range result.Errors {
		logger.Warn().Str("error", e).Msg("fund-level failure")
	}
	logger.Info().
		Str("report", result.ReportPath).
		Str("report_id", result.ReportID).
		Int("funds", result.FundsAnalyzed).
		Int("skipped", result.FundsSkipped).
		Msg("analysis finished")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadWithEnv(path)
}

// resolveQuarter parses the flag or falls back to the most recent
// calendar quarter end that has already passed.
func resolveQuarter(flagValue string, now time.Time) (time.Time, error) {
	if flagValue != "" {
		q, err := time.Parse("2006-01-02", flagValue)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse %q: %w", flagValue, err)
		}
		return q, nil
	}
	return mostRecentQuarterEnd(now.UTC()), nil
}

func mostRecentQuarterEnd(now time.Time) time.Time {
	year := now.Year()
	ends := []time.Time{
		time.Date(year-1, time.December, 31, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.March, 31, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.September, 30, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	best := ends[0]
	for _, q := range ends {
		if !q.After(now) && q.After(best) {
			best = q
		}
	}
	return best
}

type analysisStores struct {
	funds      storage.FundStore
	holdings   storage.HoldingStore
	securities storage.SecurityStore
	activity   storage.QuarterActivityStore
}

// buildStores wires either the real Postgres/ClickHouse stores or the
// in-memory fixture set. The returned cleanup closes any connections.
func buildStores(ctx context.Context, cfg *config.Config, useFixtures, migrate bool, logger zerolog.Logger) (*analysisStores, func(), error) {
	if useFixtures {
		funds := memory.NewFundStore()
		holdings := memory.NewHoldingStore()
		securities := memory.NewSecurityStore()
		activity := memory.NewQuarterActivityStore()
		if err := pipeline.LoadFixtures(ctx, funds, holdings, securities, activity); err != nil {
			return nil, nil, fmt.Errorf("load fixtures: %w", err)
		}
		logger.Info().Msg("using in-memory fixture stores")
		return &analysisStores{funds: funds, holdings: holdings, securities: securities, activity: activity}, func() {}, nil
	}

	if cfg.Postgres.DSN == "" || cfg.ClickHouse.DSN == "" {
		return nil, nil, errors.New("postgres and clickhouse DSNs are required without --use-fixtures")
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	var conn *clickhouse.Conn
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		logger.Info().Msg("migrations applied")
	} else {
		conn, err = clickhouse.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect clickhouse: %w", err)
		}
	}

	cleanup := func() {
		pool.Close()
		if err := conn.Close(); err != nil {
			logger.Warn().Err(err).Msg("clickhouse close")
		}
	}
	return &analysisStores{
		funds:      postgres.NewFundStore(pool),
		holdings:   postgres.NewHoldingStore(pool),
		securities: postgres.NewSecurityStore(pool),
		activity:   clickhouse.NewQuarterActivityStore(conn),
	}, cleanup, nil
}

// syncWatchlist inserts configured funds into the registry. Funds that
// already exist are left alone.
func syncWatchlist(ctx context.Context, cfg *config.Config, funds storage.FundStore) error {
	for _, wf := range cfg.Watchlist {
		f := &domain.FundInfo{
			Name:    wf.Name,
			CIK:     wf.CIK,
			Tier:    domain.Tier(wf.Tier),
			Aliases: wf.Aliases,
		}
		if err := funds.Insert(ctx, f); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			return fmt.Errorf("insert %s: %w", wf.Name, err)
		}
	}
	return nil
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics listener stopped")
	}
}
