package storage

import (
	"context"
	"time"

	"thirteenf-lab/internal/domain"
)

// FundStore provides access to the watched-fund registry.
type FundStore interface {
	// Insert adds a fund. Returns ErrDuplicateKey if the CIK exists.
	Insert(ctx context.Context, f *domain.FundInfo) error

	// GetByCIK retrieves a fund by CIK. Returns ErrNotFound if not exists.
	GetByCIK(ctx context.Context, cik string) (*domain.FundInfo, error)

	// GetAll retrieves every watched fund, ordered by name.
	GetAll(ctx context.Context) ([]*domain.FundInfo, error)
}

// HoldingStore provides access to quarterly filing snapshots.
type HoldingStore interface {
	// InsertSnapshot stores one fund-quarter snapshot with all its rows.
	// Returns ErrDuplicateKey if the (CIK, quarter) pair exists.
	InsertSnapshot(ctx context.Context, snapshot *domain.FundHoldings) error

	// GetSnapshot retrieves one fund-quarter snapshot. Returns
	// ErrNotFound if the fund never filed for that quarter.
	GetSnapshot(ctx context.Context, cik string, quarterEnd time.Time) (*domain.FundHoldings, error)

	// GetAvailableQuarters lists the quarters a fund has filed for, most
	// recent first.
	GetAvailableQuarters(ctx context.Context, cik string) ([]time.Time, error)
}

// SecurityStore provides access to CUSIP reference data used for ticker,
// sector, and float enrichment.
type SecurityStore interface {
	// InsertBulk adds reference rows. Fails the entire batch on any
	// duplicate CUSIP.
	InsertBulk(ctx context.Context, securities []*domain.SecurityInfo) error

	// GetByCUSIPs retrieves reference data for the given CUSIPs. Missing
	// CUSIPs are simply absent from the result, not an error.
	GetByCUSIPs(ctx context.Context, cusips []string) (map[string]*domain.SecurityInfo, error)

	// GetByTickers retrieves reference data keyed by ticker. Missing
	// tickers are absent from the result.
	GetByTickers(ctx context.Context, tickers []string) (map[string]*domain.SecurityInfo, error)
}

// QuarterActivityStore provides access to the append-only per-fund
// activity log that feeds historical baselines.
type QuarterActivityStore interface {
	// Insert appends one fund-quarter activity record.
	Insert(ctx context.Context, a *domain.QuarterActivity) error

	// GetCrossQuarterActivity retrieves a fund's activity history
	// excluding the given quarter, most recent first.
	GetCrossQuarterActivity(ctx context.Context, fundName string, excludeQuarter time.Time) ([]*domain.QuarterActivity, error)
}
