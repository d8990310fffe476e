package pipeline

import (
	"context"
	"time"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/storage"
)

// Fixture quarter boundaries used by tests and the --use-fixtures demo
// mode.
var (
	FixturePriorQuarter   = time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	FixtureCurrentQuarter = time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
)

// LoadFixtures populates the stores with a small synthetic watchlist and
// two quarters of filings that exercise every signal path: a three-fund
// consensus initiation, a divergence, significant adds and trims, an
// options hedge, float crowding, and a fund with no prior quarter.
func LoadFixtures(
	ctx context.Context,
	fundStore storage.FundStore,
	holdingStore storage.HoldingStore,
	securityStore storage.SecurityStore,
	activityStore storage.QuarterActivityStore,
) error {
	funds, err := loadFixtureFunds(ctx, fundStore)
	if err != nil {
		return err
	}
	if err := loadFixtureSecurities(ctx, securityStore); err != nil {
		return err
	}
	if err := loadFixtureHoldings(ctx, holdingStore, funds); err != nil {
		return err
	}
	return loadFixtureActivity(ctx, activityStore)
}

func loadFixtureFunds(ctx context.Context, store storage.FundStore) (map[string]*domain.FundInfo, error) {
	funds := []*domain.FundInfo{
		{Name: "Alpha Partners", CIK: "1000001", Tier: domain.TierMultiStrat, Aliases: []string{"ALPHA PARTNERS LP"}},
		{Name: "Beta Capital", CIK: "1000002", Tier: domain.TierStockPicker},
		{Name: "Gamma Advisors", CIK: "1000003", Tier: domain.TierStockPicker},
		{Name: "Delta Management", CIK: "1000004", Tier: domain.TierEmerging},
	}
	out := make(map[string]*domain.FundInfo, len(funds))
	for _, f := range funds {
		if err := store.Insert(ctx, f); err != nil {
			return nil, err
		}
		out[f.Name] = f
	}
	return out, nil
}

func loadFixtureSecurities(ctx context.Context, store storage.SecurityStore) error {
	securities := []*domain.SecurityInfo{
		{CUSIP: "037833100", Ticker: "AAPL", IssuerName: "APPLE INC", Sector: "Technology", Industry: "Consumer Electronics", MarketCap: 3_400_000_000_000, FloatShares: 15_000_000_000},
		{CUSIP: "594918104", Ticker: "MSFT", IssuerName: "MICROSOFT CORP", Sector: "Technology", Industry: "Software", MarketCap: 3_100_000_000_000, FloatShares: 7_400_000_000},
		{CUSIP: "02079K305", Ticker: "GOOGL", IssuerName: "ALPHABET INC", Sector: "Communication Services", Industry: "Internet Content", MarketCap: 2_200_000_000_000, FloatShares: 5_800_000_000},
		{CUSIP: "67066G104", Ticker: "NVDA", IssuerName: "NVIDIA CORP", Sector: "Technology", Industry: "Semiconductors", MarketCap: 3_000_000_000_000, FloatShares: 2_400_000_000},
		{CUSIP: "88160R101", Ticker: "TSLA", IssuerName: "TESLA INC", Sector: "Consumer Cyclical", Industry: "Auto Manufacturers", MarketCap: 700_000_000_000, FloatShares: 2_700_000_000},
		// Deliberately tiny float so tracked ownership crosses the
		// crowding-risk threshold.
		{CUSIP: "111111118", Ticker: "SMLC", IssuerName: "SMALLCO HOLDINGS", Sector: "Industrials", Industry: "Specialty Machinery", MarketCap: 250_000_000, FloatShares: 10_000_000},
	}
	return store.InsertBulk(ctx, securities)
}

func loadFixtureHoldings(ctx context.Context, store storage.HoldingStore, funds map[string]*domain.FundInfo) error {
	priorFiling := FixturePriorQuarter.AddDate(0, 0, 45)
	currentFiling := FixtureCurrentQuarter.AddDate(0, 0, 44)
	// Beta files late enough to be flagged stale.
	betaFiling := FixtureCurrentQuarter.AddDate(0, 0, 58)

	snapshots := []*domain.FundHoldings{
		domain.NewFundHoldings(funds["Alpha Partners"], FixturePriorQuarter, priorFiling, []*domain.Holding{
			equity("037833100", "APPLE INC", 100_000, 15_000_000),
			equity("594918104", "MICROSOFT CORP", 50_000, 20_000_000),
			equity("111111118", "SMALLCO HOLDINGS", 300_000, 3_000_000),
		}),
		domain.NewFundHoldings(funds["Alpha Partners"], FixtureCurrentQuarter, currentFiling, []*domain.Holding{
			equity("037833100", "APPLE INC", 100_000, 17_000_000),
			// +60% shares, comfortably over the significant-add bar.
			equity("594918104", "MICROSOFT CORP", 80_000, 35_000_000),
			equity("67066G104", "NVIDIA CORP", 20_000, 2_500_000),
			equity("88160R101", "TESLA INC", 10_000, 2_000_000),
			equity("111111118", "SMALLCO HOLDINGS", 300_000, 3_200_000),
		}),

		domain.NewFundHoldings(funds["Beta Capital"], FixturePriorQuarter, priorFiling, []*domain.Holding{
			equity("037833100", "APPLE INC", 200_000, 30_000_000),
			equity("88160R101", "TESLA INC", 30_000, 5_000_000),
			equity("111111118", "SMALLCO HOLDINGS", 200_000, 2_000_000),
		}),
		domain.NewFundHoldings(funds["Beta Capital"], FixtureCurrentQuarter, betaFiling, []*domain.Holding{
			// -60% shares, a significant trim. Tesla is gone entirely,
			// the other leg of the divergence against Alpha.
			equity("037833100", "APPLE INC", 80_000, 13_600_000),
			equity("67066G104", "NVIDIA CORP", 30_000, 3_700_000),
			equity("111111118", "SMALLCO HOLDINGS", 250_000, 2_700_000),
		}),

		domain.NewFundHoldings(funds["Gamma Advisors"], FixturePriorQuarter, priorFiling, []*domain.Holding{
			equity("594918104", "MICROSOFT CORP", 40_000, 16_000_000),
			equity("02079K305", "ALPHABET INC", 60_000, 10_000_000),
		}),
		domain.NewFundHoldings(funds["Gamma Advisors"], FixtureCurrentQuarter, currentFiling, []*domain.Holding{
			equity("594918104", "MICROSOFT CORP", 40_000, 17_000_000),
			equity("02079K305", "ALPHABET INC", 60_000, 11_000_000),
			equity("67066G104", "NVIDIA CORP", 25_000, 3_100_000),
			// Fresh put with no Apple equity: a directional bet, not a
			// hedge.
			option("037833100", "APPLE INC", domain.OptionPut, 10_000, 500_000),
		}),

		// Delta has only the current quarter, so the analyzer skips it.
		domain.NewFundHoldings(funds["Delta Management"], FixtureCurrentQuarter, currentFiling, []*domain.Holding{
			equity("037833100", "APPLE INC", 15_000, 2_550_000),
		}),
	}

	for _, snap := range snapshots {
		if err := store.InsertSnapshot(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

// loadFixtureActivity seeds three historical quarter pairs per fund so
// baselines have enough history on the first fixture run.
func loadFixtureActivity(ctx context.Context, store storage.QuarterActivityStore) error {
	quarters := []time.Time{
		time.Date(2023, time.September, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
		FixturePriorQuarter,
	}
	history := map[string][]struct {
		newCount, exitedCount int
		hhiChange, maxWeight  float64
	}{
		"Alpha Partners": {{2, 1, 0.003, 1.5}, {1, 2, -0.002, 0.8}, {2, 1, 0.001, 1.2}},
		"Beta Capital":   {{3, 2, 0.010, 2.5}, {2, 3, -0.008, 1.9}, {4, 1, 0.012, 3.1}},
		"Gamma Advisors": {{1, 0, 0.001, 0.6}, {0, 1, -0.001, 0.0}, {1, 1, 0.002, 0.9}},
	}

	for fund, rows := range history {
		for i, row := range rows {
			rec := &domain.QuarterActivity{
				FundName:        fund,
				Quarter:         quarters[i],
				NewCount:        row.newCount,
				ExitedCount:     row.exitedCount,
				HHIChange:       row.hhiChange,
				MaxNewWeightPct: row.maxWeight,
				RecordedAt:      quarters[i].AddDate(0, 0, 50),
			}
			if err := store.Insert(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func equity(cusip, issuer string, shares, valueThousands int64) *domain.Holding {
	return &domain.Holding{
		CUSIP:          cusip,
		IssuerName:     issuer,
		TitleOfClass:   "COM",
		ValueThousands: valueThousands,
		SharesOrPrnAmt: shares,
		ShPrnType:      "SH",
		Discretion:     "SOLE",
		VotingSole:     shares,
	}
}

func option(cusip, issuer string, opt domain.OptionType, shares, valueThousands int64) *domain.Holding {
	return &domain.Holding{
		CUSIP:          cusip,
		IssuerName:     issuer,
		TitleOfClass:   "COM",
		ValueThousands: valueThousands,
		SharesOrPrnAmt: shares,
		ShPrnType:      "SH",
		Option:         opt,
		Discretion:     "SOLE",
	}
}
