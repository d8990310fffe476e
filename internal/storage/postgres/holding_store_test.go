package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/storage"
)

func insertTestFund(t *testing.T, pool *Pool, name, cik string) *domain.FundInfo {
	t.Helper()
	fund := &domain.FundInfo{Name: name, CIK: cik, Tier: domain.TierMultiStrat}
	require.NoError(t, NewFundStore(pool).Insert(context.Background(), fund))
	return fund
}

func testSnapshot(fund *domain.FundInfo, quarterEnd, filingDate time.Time) *domain.FundHoldings {
	holdings := []*domain.Holding{
		{
			CUSIP:          "037833100",
			IssuerName:     "APPLE INC",
			TitleOfClass:   "COM",
			ValueThousands: 150_000_000,
			SharesOrPrnAmt: 915_000_000,
			ShPrnType:      "SH",
			Discretion:     "SOLE",
			VotingSole:     915_000_000,
		},
		{
			CUSIP:          "594918104",
			IssuerName:     "MICROSOFT CORP",
			TitleOfClass:   "COM",
			ValueThousands: 50_000_000,
			SharesOrPrnAmt: 120_000_000,
			ShPrnType:      "SH",
			Discretion:     "SOLE",
			VotingSole:     120_000_000,
		},
		{
			CUSIP:          "594918104",
			IssuerName:     "MICROSOFT CORP",
			TitleOfClass:   "CALL",
			ValueThousands: 2_000_000,
			SharesOrPrnAmt: 5_000_000,
			ShPrnType:      "SH",
			Option:         domain.OptionCall,
			Discretion:     "SOLE",
		},
	}
	return domain.NewFundHoldings(fund, quarterEnd, filingDate, holdings)
}

func TestHoldingStore_InsertSnapshot(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHoldingStore(pool)
	ctx := context.Background()

	fund := insertTestFund(t, pool, "Berkshire Hathaway", "0001067983")
	quarterEnd := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	filingDate := time.Date(2024, time.August, 14, 0, 0, 0, 0, time.UTC)

	snapshot := testSnapshot(fund, quarterEnd, filingDate)
	require.NoError(t, store.InsertSnapshot(ctx, snapshot))

	got, err := store.GetSnapshot(ctx, fund.CIK, quarterEnd)
	require.NoError(t, err)
	assert.Equal(t, "Berkshire Hathaway", got.Fund.Name)
	assert.True(t, got.QuarterEnd.Equal(quarterEnd))
	assert.True(t, got.FilingDate.Equal(filingDate))
	assert.Equal(t, snapshot.TotalValueThousands, got.TotalValueThousands)
	require.Len(t, got.Holdings, 3)

	// Rows come back ordered by value descending.
	assert.Equal(t, "APPLE INC", got.Holdings[0].IssuerName)
	assert.Equal(t, int64(150_000_000), got.Holdings[0].ValueThousands)
	assert.Equal(t, int64(915_000_000), got.Holdings[0].SharesOrPrnAmt)
	assert.Equal(t, domain.OptionNone, got.Holdings[0].Option)
	assert.Equal(t, domain.OptionCall, got.Holdings[2].Option)
}

func TestHoldingStore_InsertSnapshot_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHoldingStore(pool)
	ctx := context.Background()

	fund := insertTestFund(t, pool, "Appaloosa", "0001656456")
	quarterEnd := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	filingDate := time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC)

	snapshot := testSnapshot(fund, quarterEnd, filingDate)
	require.NoError(t, store.InsertSnapshot(ctx, snapshot))

	err := store.InsertSnapshot(ctx, testSnapshot(fund, quarterEnd, filingDate))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestHoldingStore_InsertSnapshot_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHoldingStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.InsertSnapshot(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.InsertSnapshot(ctx, &domain.FundHoldings{}), storage.ErrInvalidInput)
}

func TestHoldingStore_GetSnapshot_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHoldingStore(pool)
	ctx := context.Background()

	insertTestFund(t, pool, "Baupost Group", "0001061768")

	_, err := store.GetSnapshot(ctx, "0001061768", time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHoldingStore_GetAvailableQuarters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHoldingStore(pool)
	ctx := context.Background()

	fund := insertTestFund(t, pool, "Pershing Square", "0001336528")

	quarters := []time.Time{
		time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
	for _, q := range quarters {
		filingDate := q.AddDate(0, 0, 44)
		require.NoError(t, store.InsertSnapshot(ctx, testSnapshot(fund, q, filingDate)))
	}

	got, err := store.GetAvailableQuarters(ctx, fund.CIK)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Most recent first.
	assert.True(t, got[0].Equal(time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got[1].Equal(time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got[2].Equal(time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)))
}
