package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func q(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func TestFundHoldingsWeight(t *testing.T) {
	fund := &FundInfo{Name: "Test Fund", CIK: "123", Tier: TierStockPicker}
	holdings := []*Holding{
		{CUSIP: "037833100", IssuerName: "APPLE INC", ValueThousands: 400_000, SharesOrPrnAmt: 1_000_000, ShPrnType: "SH"},
		{CUSIP: "594918104", IssuerName: "MICROSOFT CORP", ValueThousands: 600_000, SharesOrPrnAmt: 2_000_000, ShPrnType: "SH"},
	}
	fh := NewFundHoldings(fund, q(2025, 3, 31), q(2025, 5, 15), holdings)

	assert.Equal(t, int64(1_000_000), fh.TotalValueThousands)
	assert.InDelta(t, 40.0, fh.Weight(holdings[0]), 1e-9)
	assert.InDelta(t, 60.0, fh.Weight(holdings[1]), 1e-9)
	assert.Equal(t, 45, fh.FilingLagDays())
}

func TestFundHoldingsWeightZeroTotal(t *testing.T) {
	fund := &FundInfo{Name: "Empty Fund", CIK: "1"}
	h := &Holding{CUSIP: "037833100", ValueThousands: 0}
	fh := NewFundHoldings(fund, q(2025, 3, 31), q(2025, 5, 1), []*Holding{h})

	assert.Equal(t, 0.0, fh.Weight(h))
}

func TestPositionKeyDistinguishesOptions(t *testing.T) {
	equity := &Holding{CUSIP: "594918104"}
	put := &Holding{CUSIP: "594918104", Option: OptionPut}

	assert.NotEqual(t, equity.Key(), put.Key())
	assert.Equal(t, PositionKey{CUSIP: "594918104", Option: OptionPut}, put.Key())
}

func TestIsEquityRequiresShareType(t *testing.T) {
	shares := &Holding{CUSIP: "594918104", ShPrnType: "SH"}
	assert.True(t, shares.IsEquity())

	bond := &Holding{CUSIP: "594918AB1", ShPrnType: "PRN"}
	assert.False(t, bond.IsEquity())

	call := &Holding{CUSIP: "594918104", ShPrnType: "SH", Option: OptionCall}
	assert.False(t, call.IsEquity())
}

func TestPaddedCIK(t *testing.T) {
	f := &FundInfo{CIK: "1067983"}
	assert.Equal(t, "0001067983", f.PaddedCIK())

	full := &FundInfo{CIK: "0001067983"}
	assert.Equal(t, "0001067983", full.PaddedCIK())
}

func TestSignificantAddAndTrim(t *testing.T) {
	add := &PositionDiff{
		Change:          ChangeAdded,
		SharesChangePct: 0.50,
		CurrentWeight:   0.25,
	}
	assert.True(t, add.IsSignificantAdd())

	smallWeight := &PositionDiff{
		Change:          ChangeAdded,
		SharesChangePct: 2.0,
		CurrentWeight:   0.1,
	}
	assert.False(t, smallWeight.IsSignificantAdd())

	// Option rows are judged by the same thresholds as equities.
	optionAdd := &PositionDiff{
		Key:             PositionKey{CUSIP: "594918104", Option: OptionCall},
		Change:          ChangeAdded,
		SharesChangePct: 1.0,
		CurrentWeight:   1.5,
	}
	assert.True(t, optionAdd.IsSignificantAdd())

	optionTrim := &PositionDiff{
		Key:             PositionKey{CUSIP: "594918104", Option: OptionPut},
		Change:          ChangeTrimmed,
		SharesChangePct: -0.75,
		PriorWeight:     0.40,
	}
	assert.True(t, optionTrim.IsSignificantTrim())

	trim := &PositionDiff{
		Change:          ChangeTrimmed,
		SharesChangePct: -0.60,
		PriorWeight:     0.30,
	}
	assert.True(t, trim.IsSignificantTrim())

	shallowTrim := &PositionDiff{
		Change:          ChangeTrimmed,
		SharesChangePct: -0.30,
		PriorWeight:     5.0,
	}
	assert.False(t, shallowTrim.IsSignificantTrim())
}

func TestFundDiffStaleness(t *testing.T) {
	fresh := &FundDiff{CurrentQuarter: q(2025, 3, 31), FilingDate: q(2025, 5, 15)}
	assert.False(t, fresh.IsStale())

	stale := &FundDiff{CurrentQuarter: q(2025, 3, 31), FilingDate: q(2025, 5, 21)}
	assert.True(t, stale.IsStale())
}

func TestCrowdedTradeSentiment(t *testing.T) {
	ct := &CrowdedTrade{
		Actions: []FundAction{
			{FundName: "A", Change: ChangeNew},
			{FundName: "B", Change: ChangeAdded},
			{FundName: "C", Change: ChangeNew},
			{FundName: "D", Change: ChangeTrimmed},
		},
	}
	assert.Equal(t, 3, ct.BuyerCount())
	assert.Equal(t, 1, ct.SellerCount())
	assert.Equal(t, 2, ct.NetSentiment())
	assert.Equal(t, 2, ct.InitiatorCount())
	assert.Equal(t, []string{"A", "C"}, ct.InitiatorNames())
}

func TestBaselineZScores(t *testing.T) {
	b := &FundBaseline{
		MeanActivity:     10,
		StdActivity:      4,
		MeanAbsHHIChange: 0.01,
		StdAbsHHIChange:  0,
	}
	assert.InDelta(t, 2.5, b.ActivityZScore(20), 1e-9)
	assert.Equal(t, 0.0, b.HHIChangeZScore(0.5))
}

func TestQuarterActivityCount(t *testing.T) {
	qa := &QuarterActivity{NewCount: 4, ExitedCount: 3}
	assert.Equal(t, 7, qa.ActivityCount())
}
