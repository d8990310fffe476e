package memory

import (
	"context"
	"sort"
	"sync"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/storage"
)

// FundStore is an in-memory implementation of storage.FundStore.
type FundStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FundInfo // keyed by CIK
}

// NewFundStore creates a new in-memory fund store.
func NewFundStore() *FundStore {
	return &FundStore{
		data: make(map[string]*domain.FundInfo),
	}
}

// Insert adds a fund. Returns ErrDuplicateKey if the CIK exists.
func (s *FundStore) Insert(_ context.Context, f *domain.FundInfo) error {
	if f == nil || f.CIK == "" || f.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[f.CIK]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[f.CIK] = copyFund(f)
	return nil
}

// GetByCIK retrieves a fund by CIK. Returns ErrNotFound if not exists.
func (s *FundStore) GetByCIK(_ context.Context, cik string) (*domain.FundInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, exists := s.data[cik]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyFund(f), nil
}

// GetAll retrieves every watched fund, ordered by name.
func (s *FundStore) GetAll(_ context.Context) ([]*domain.FundInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FundInfo, 0, len(s.data))
	for _, f := range s.data {
		result = append(result, copyFund(f))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// copyFund returns a deep copy to prevent external mutation.
func copyFund(f *domain.FundInfo) *domain.FundInfo {
	fundCopy := *f
	if f.Aliases != nil {
		fundCopy.Aliases = append([]string(nil), f.Aliases...)
	}
	return &fundCopy
}

// Verify interface compliance at compile time.
var _ storage.FundStore = (*FundStore)(nil)
