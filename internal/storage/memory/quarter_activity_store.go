package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/storage"
)

// QuarterActivityStore is an in-memory implementation of
// storage.QuarterActivityStore.
type QuarterActivityStore struct {
	mu   sync.RWMutex
	data []*domain.QuarterActivity
}

// NewQuarterActivityStore creates a new in-memory activity store.
func NewQuarterActivityStore() *QuarterActivityStore {
	return &QuarterActivityStore{}
}

// Insert appends one fund-quarter activity record.
func (s *QuarterActivityStore) Insert(_ context.Context, a *domain.QuarterActivity) error {
	if a == nil || a.FundName == "" || a.Quarter.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *a
	s.data = append(s.data, &recordCopy)
	return nil
}

// GetCrossQuarterActivity retrieves a fund's activity history excluding
// the given quarter, most recent first.
func (s *QuarterActivityStore) GetCrossQuarterActivity(_ context.Context, fundName string, excludeQuarter time.Time) ([]*domain.QuarterActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.QuarterActivity
	for _, a := range s.data {
		if a.FundName != fundName || a.Quarter.Equal(excludeQuarter) {
			continue
		}
		recordCopy := *a
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Quarter.After(result[j].Quarter)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.QuarterActivityStore = (*QuarterActivityStore)(nil)
