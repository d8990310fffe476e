package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/storage"
)

// SecurityStore implements storage.SecurityStore using PostgreSQL.
type SecurityStore struct {
	pool *Pool
}

// NewSecurityStore creates a new SecurityStore.
func NewSecurityStore(pool *Pool) *SecurityStore {
	return &SecurityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SecurityStore = (*SecurityStore)(nil)

// InsertBulk adds reference rows in one transaction. Fails the entire
// batch on any duplicate CUSIP.
func (s *SecurityStore) InsertBulk(ctx context.Context, securities []*domain.SecurityInfo) error {
	for _, sec := range securities {
		if sec == nil || sec.CUSIP == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin securities tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO securities (cusip, ticker, issuer_name, sector, industry, market_cap, float_shares)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, sec := range securities {
		_, err := tx.Exec(ctx, query,
			sec.CUSIP,
			sec.Ticker,
			sec.IssuerName,
			sec.Sector,
			sec.Industry,
			sec.MarketCap,
			sec.FloatShares,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert security: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit securities tx: %w", err)
	}
	return nil
}

// GetByCUSIPs retrieves reference data for the given CUSIPs. Missing
// CUSIPs are simply absent from the result.
func (s *SecurityStore) GetByCUSIPs(ctx context.Context, cusips []string) (map[string]*domain.SecurityInfo, error) {
	query := `
		SELECT cusip, ticker, issuer_name, sector, industry, market_cap, float_shares
		FROM securities
		WHERE cusip = ANY($1)
	`
	return s.lookup(ctx, query, cusips, func(sec *domain.SecurityInfo) string { return sec.CUSIP })
}

// GetByTickers retrieves reference data keyed by ticker. Missing tickers
// are absent from the result.
func (s *SecurityStore) GetByTickers(ctx context.Context, tickers []string) (map[string]*domain.SecurityInfo, error) {
	query := `
		SELECT cusip, ticker, issuer_name, sector, industry, market_cap, float_shares
		FROM securities
		WHERE ticker = ANY($1)
	`
	return s.lookup(ctx, query, tickers, func(sec *domain.SecurityInfo) string { return sec.Ticker })
}

func (s *SecurityStore) lookup(ctx context.Context, query string, keys []string, keyOf func(*domain.SecurityInfo) string) (map[string]*domain.SecurityInfo, error) {
	if len(keys) == 0 {
		return map[string]*domain.SecurityInfo{}, nil
	}

	rows, err := s.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("lookup securities: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*domain.SecurityInfo)
	for rows.Next() {
		sec, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan security row: %w", err)
		}
		result[keyOf(sec)] = sec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security rows: %w", err)
	}
	return result, nil
}

// scanSecurity scans a single row into a SecurityInfo. The reference
// columns are nullable, absent values come back as zero values.
func scanSecurity(row pgx.Row) (*domain.SecurityInfo, error) {
	var (
		sec            domain.SecurityInfo
		ticker, sector *string
		industry       *string
		marketCap      *int64
		floatShares    *int64
	)
	err := row.Scan(
		&sec.CUSIP,
		&ticker,
		&sec.IssuerName,
		&sector,
		&industry,
		&marketCap,
		&floatShares,
	)
	if err != nil {
		return nil, err
	}
	if ticker != nil {
		sec.Ticker = *ticker
	}
	if sector != nil {
		sec.Sector = *sector
	}
	if industry != nil {
		sec.Industry = *industry
	}
	if marketCap != nil {
		sec.MarketCap = *marketCap
	}
	if floatShares != nil {
		sec.FloatShares = *floatShares
	}
	return &sec, nil
}
