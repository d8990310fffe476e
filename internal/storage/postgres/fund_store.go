package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/storage"
)

// FundStore implements storage.FundStore using PostgreSQL.
type FundStore struct {
	pool *Pool
}

// NewFundStore creates a new FundStore.
func NewFundStore(pool *Pool) *FundStore {
	return &FundStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FundStore = (*FundStore)(nil)

// Insert adds a fund. Returns ErrDuplicateKey if the CIK exists.
func (s *FundStore) Insert(ctx context.Context, f *domain.FundInfo) error {
	if f == nil || f.CIK == "" || f.Name == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO funds (cik, name, tier, aliases)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, f.CIK, f.Name, string(f.Tier), f.Aliases)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert fund: %w", err)
	}
	return nil
}

// GetByCIK retrieves a fund by CIK. Returns ErrNotFound if not exists.
func (s *FundStore) GetByCIK(ctx context.Context, cik string) (*domain.FundInfo, error) {
	query := `
		SELECT cik, name, tier, aliases
		FROM funds
		WHERE cik = $1
	`

	row := s.pool.QueryRow(ctx, query, cik)
	f, err := scanFund(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get fund by cik: %w", err)
	}
	return f, nil
}

// GetAll retrieves every watched fund, ordered by name.
func (s *FundStore) GetAll(ctx context.Context) ([]*domain.FundInfo, error) {
	query := `
		SELECT cik, name, tier, aliases
		FROM funds
		ORDER BY name ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all funds: %w", err)
	}
	defer rows.Close()

	var funds []*domain.FundInfo
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fund row: %w", err)
		}
		funds = append(funds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fund rows: %w", err)
	}
	return funds, nil
}

// scanFund scans a single row into a FundInfo.
func scanFund(row pgx.Row) (*domain.FundInfo, error) {
	var f domain.FundInfo
	var tierStr string

	if err := row.Scan(&f.CIK, &f.Name, &tierStr, &f.Aliases); err != nil {
		return nil, err
	}

	f.Tier = domain.Tier(tierStr)
	return &f, nil
}
