package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/idhash"
	"thirteenf-lab/internal/storage"
)

// HoldingStore implements storage.HoldingStore using PostgreSQL. A
// snapshot is one row in filings plus its rows in holdings, written in a
// single transaction.
type HoldingStore struct {
	pool *Pool
}

// NewHoldingStore creates a new HoldingStore.
func NewHoldingStore(pool *Pool) *HoldingStore {
	return &HoldingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HoldingStore = (*HoldingStore)(nil)

// InsertSnapshot stores one fund-quarter snapshot with all its rows.
// Returns ErrDuplicateKey if the (CIK, quarter) pair exists.
func (s *HoldingStore) InsertSnapshot(ctx context.Context, snapshot *domain.FundHoldings) error {
	if snapshot == nil || snapshot.Fund == nil || snapshot.Fund.CIK == "" || snapshot.QuarterEnd.IsZero() {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	snapshotID := idhash.ComputeSnapshotID(
		snapshot.Fund.CIK, snapshot.QuarterEnd, snapshot.FilingDate, snapshot.TotalValueThousands)

	filingQuery := `
		INSERT INTO filings (snapshot_id, cik, quarter_end, filing_date, total_value_thousands)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.Exec(ctx, filingQuery,
		snapshotID,
		snapshot.Fund.CIK,
		snapshot.QuarterEnd,
		snapshot.FilingDate,
		snapshot.TotalValueThousands,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert filing: %w", err)
	}

	rows := make([][]any, len(snapshot.Holdings))
	for i, h := range snapshot.Holdings {
		rows[i] = []any{
			snapshot.Fund.CIK,
			snapshot.QuarterEnd,
			h.CUSIP,
			string(h.Option),
			h.IssuerName,
			h.TitleOfClass,
			h.ValueThousands,
			h.SharesOrPrnAmt,
			h.ShPrnType,
			h.Discretion,
			h.VotingSole,
			h.VotingShared,
			h.VotingNone,
		}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"holdings"},
		[]string{
			"cik", "quarter_end", "cusip", "option_type", "issuer_name",
			"title_of_class", "value_thousands", "shares_or_prn", "sh_prn_type",
			"discretion", "voting_sole", "voting_shared", "voting_none",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy holdings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	return nil
}

// GetSnapshot retrieves one fund-quarter snapshot. Returns ErrNotFound if
// the fund never filed for that quarter.
func (s *HoldingStore) GetSnapshot(ctx context.Context, cik string, quarterEnd time.Time) (*domain.FundHoldings, error) {
	filingQuery := `
		SELECT f.filing_date, fu.name, fu.tier
		FROM filings f
		JOIN funds fu ON fu.cik = f.cik
		WHERE f.cik = $1 AND f.quarter_end = $2
	`

	var filingDate time.Time
	var fundName, tierStr string
	err := s.pool.QueryRow(ctx, filingQuery, cik, quarterEnd).Scan(&filingDate, &fundName, &tierStr)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get filing: %w", err)
	}

	holdingsQuery := `
		SELECT cusip, option_type, issuer_name, title_of_class, value_thousands,
		       shares_or_prn, sh_prn_type, discretion, voting_sole, voting_shared, voting_none
		FROM holdings
		WHERE cik = $1 AND quarter_end = $2
		ORDER BY value_thousands DESC, cusip ASC, option_type ASC
	`

	rows, err := s.pool.Query(ctx, holdingsQuery, cik, quarterEnd)
	if err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*domain.Holding
	for rows.Next() {
		var h domain.Holding
		var optStr string
		err := rows.Scan(
			&h.CUSIP,
			&optStr,
			&h.IssuerName,
			&h.TitleOfClass,
			&h.ValueThousands,
			&h.SharesOrPrnAmt,
			&h.ShPrnType,
			&h.Discretion,
			&h.VotingSole,
			&h.VotingShared,
			&h.VotingNone,
		)
		if err != nil {
			return nil, fmt.Errorf("scan holding row: %w", err)
		}
		h.Option = domain.OptionType(optStr)
		holdings = append(holdings, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holding rows: %w", err)
	}

	fund := &domain.FundInfo{Name: fundName, CIK: cik, Tier: domain.Tier(tierStr)}
	return domain.NewFundHoldings(fund, quarterEnd, filingDate, holdings), nil
}

// GetAvailableQuarters lists the quarters a fund has filed for, most
// recent first.
func (s *HoldingStore) GetAvailableQuarters(ctx context.Context, cik string) ([]time.Time, error) {
	query := `
		SELECT quarter_end
		FROM filings
		WHERE cik = $1
		ORDER BY quarter_end DESC
	`

	rows, err := s.pool.Query(ctx, query, cik)
	if err != nil {
		return nil, fmt.Errorf("get available quarters: %w", err)
	}
	defer rows.Close()

	var quarters []time.Time
	for rows.Next() {
		var q time.Time
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan quarter row: %w", err)
		}
		quarters = append(quarters, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quarter rows: %w", err)
	}
	return quarters, nil
}
