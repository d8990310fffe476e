package clickhouse

import (
	"context"
	"fmt"
	"time"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/storage"
)

// QuarterActivityStore implements storage.QuarterActivityStore using ClickHouse.
type QuarterActivityStore struct {
	conn *Conn
}

var _ storage.QuarterActivityStore = (*QuarterActivityStore)(nil)

// NewQuarterActivityStore creates a new ClickHouse-backed quarter activity store.
func NewQuarterActivityStore(conn *Conn) *QuarterActivityStore {
	return &QuarterActivityStore{conn: conn}
}

// Insert records one fund's activity summary for a quarter pair.
func (s *QuarterActivityStore) Insert(ctx context.Context, activity *domain.QuarterActivity) error {
	if activity == nil || activity.FundName == "" || activity.Quarter.IsZero() {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO fund_quarter_activity
		(fund_name, quarter, new_count, exited_count, hhi_change, max_new_weight_pct, recorded_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare activity batch: %w", err)
	}

	recordedAt := activity.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	if err := batch.Append(
		activity.FundName,
		activity.Quarter,
		uint32(activity.NewCount),
		uint32(activity.ExitedCount),
		activity.HHIChange,
		activity.MaxNewWeightPct,
		recordedAt,
	); err != nil {
		return fmt.Errorf("append activity row: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send activity batch: %w", err)
	}

	return nil
}

// GetCrossQuarterActivity returns a fund's activity history excluding the
// given quarter, most recent first.
func (s *QuarterActivityStore) GetCrossQuarterActivity(ctx context.Context, fundName string, excludeQuarter time.Time) ([]*domain.QuarterActivity, error) {
	if fundName == "" {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.conn.Query(ctx, `
		SELECT fund_name, quarter, new_count, exited_count, hhi_change, max_new_weight_pct, recorded_at
		FROM fund_quarter_activity
		WHERE fund_name = ? AND quarter != ?
		ORDER BY quarter DESC
	`, fundName, excludeQuarter)
	if err != nil {
		return nil, fmt.Errorf("query activity history: %w", err)
	}
	defer rows.Close()

	var history []*domain.QuarterActivity
	for rows.Next() {
		var (
			activity    domain.QuarterActivity
			newCount    uint32
			exitedCount uint32
		)
		if err := rows.Scan(
			&activity.FundName,
			&activity.Quarter,
			&newCount,
			&exitedCount,
			&activity.HHIChange,
			&activity.MaxNewWeightPct,
			&activity.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		activity.NewCount = int(newCount)
		activity.ExitedCount = int(exitedCount)
		history = append(history, &activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	return history, nil
}
