package memory

import (
	"context"
	"sync"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/storage"
)

// SecurityStore is an in-memory implementation of storage.SecurityStore.
type SecurityStore struct {
	mu       sync.RWMutex
	byCUSIP  map[string]*domain.SecurityInfo
	byTicker map[string]*domain.SecurityInfo
}

// NewSecurityStore creates a new in-memory security store.
func NewSecurityStore() *SecurityStore {
	return &SecurityStore{
		byCUSIP:  make(map[string]*domain.SecurityInfo),
		byTicker: make(map[string]*domain.SecurityInfo),
	}
}

// InsertBulk adds reference rows. Fails the entire batch on any duplicate
// CUSIP, leaving the store unmodified.
func (s *SecurityStore) InsertBulk(_ context.Context, securities []*domain.SecurityInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sec := range securities {
		if sec == nil || sec.CUSIP == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.byCUSIP[sec.CUSIP]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, sec := range securities {
		secCopy := *sec
		s.byCUSIP[sec.CUSIP] = &secCopy
		if sec.Ticker != "" {
			s.byTicker[sec.Ticker] = &secCopy
		}
	}
	return nil
}

// GetByCUSIPs retrieves reference data for the given CUSIPs. Missing
// CUSIPs are simply absent from the result.
func (s *SecurityStore) GetByCUSIPs(_ context.Context, cusips []string) (map[string]*domain.SecurityInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.SecurityInfo)
	for _, cusip := range cusips {
		if sec, exists := s.byCUSIP[cusip]; exists {
			secCopy := *sec
			result[cusip] = &secCopy
		}
	}
	return result, nil
}

// GetByTickers retrieves reference data keyed by ticker. Missing tickers
// are absent from the result.
func (s *SecurityStore) GetByTickers(_ context.Context, tickers []string) (map[string]*domain.SecurityInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.SecurityInfo)
	for _, ticker := range tickers {
		if sec, exists := s.byTicker[ticker]; exists {
			secCopy := *sec
			result[ticker] = &secCopy
		}
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SecurityStore = (*SecurityStore)(nil)
