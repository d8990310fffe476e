package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/storage"
)

type snapshotKey struct {
	cik     string
	quarter time.Time
}

// HoldingStore is an in-memory implementation of storage.HoldingStore.
type HoldingStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.FundHoldings
}

// NewHoldingStore creates a new in-memory holding store.
func NewHoldingStore() *HoldingStore {
	return &HoldingStore{
		data: make(map[snapshotKey]*domain.FundHoldings),
	}
}

// InsertSnapshot stores one fund-quarter snapshot with all its rows.
// Returns ErrDuplicateKey if the (CIK, quarter) pair exists.
func (s *HoldingStore) InsertSnapshot(_ context.Context, snapshot *domain.FundHoldings) error {
	if snapshot == nil || snapshot.Fund == nil || snapshot.Fund.CIK == "" || snapshot.QuarterEnd.IsZero() {
		return storage.ErrInvalidInput
	}

	key := snapshotKey{cik: snapshot.Fund.CIK, quarter: snapshot.QuarterEnd.UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copySnapshot(snapshot)
	return nil
}

// GetSnapshot retrieves one fund-quarter snapshot. Returns ErrNotFound if
// the fund never filed for that quarter.
func (s *HoldingStore) GetSnapshot(_ context.Context, cik string, quarterEnd time.Time) (*domain.FundHoldings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, exists := s.data[snapshotKey{cik: cik, quarter: quarterEnd.UTC()}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snapshot), nil
}

// GetAvailableQuarters lists the quarters a fund has filed for, most
// recent first.
func (s *HoldingStore) GetAvailableQuarters(_ context.Context, cik string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var quarters []time.Time
	for key := range s.data {
		if key.cik == cik {
			quarters = append(quarters, key.quarter)
		}
	}

	sort.Slice(quarters, func(i, j int) bool {
		return quarters[i].After(quarters[j])
	})

	return quarters, nil
}

// copySnapshot returns a deep copy to prevent external mutation.
func copySnapshot(snapshot *domain.FundHoldings) *domain.FundHoldings {
	snapCopy := *snapshot
	snapCopy.Fund = copyFund(snapshot.Fund)
	snapCopy.Holdings = make([]*domain.Holding, len(snapshot.Holdings))
	for i, h := range snapshot.Holdings {
		holdingCopy := *h
		snapCopy.Holdings[i] = &holdingCopy
	}
	return &snapCopy
}

// Verify interface compliance at compile time.
var _ storage.HoldingStore = (*HoldingStore)(nil)
