package findings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirteenf-lab/internal/domain"
)

func fund(name string) *domain.FundInfo {
	return &domain.FundInfo{Name: name, CIK: "1"}
}

func quarterDiff(name string) *domain.FundDiff {
	return &domain.FundDiff{
		Fund:           fund(name),
		CurrentQuarter: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		PriorQuarter:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func crowded(cusip string, initiators, adders, exiters int) *domain.CrowdedTrade {
	ct := &domain.CrowdedTrade{
		Key:        domain.PositionKey{CUSIP: cusip},
		IssuerName: "ACME CORP",
	}
	for i := 0; i < initiators; i++ {
		ct.Actions = append(ct.Actions, domain.FundAction{FundName: "Fund", Change: domain.ChangeNew})
	}
	for i := 0; i < adders; i++ {
		ct.Actions = append(ct.Actions, domain.FundAction{FundName: "Fund", Change: domain.ChangeAdded})
	}
	for i := 0; i < exiters; i++ {
		ct.Actions = append(ct.Actions, domain.FundAction{FundName: "Fund", Change: domain.ChangeExited})
	}
	return ct
}

func TestComputeTopEmptyInput(t *testing.T) {
	assert.Nil(t, ComputeTop(nil, nil, 5, nil))
}

func TestComputeTopConsensusScoring(t *testing.T) {
	signals := &domain.CrossFundSignals{
		ConsensusInitiations: []*domain.CrowdedTrade{crowded("C1", 4, 0, 0)},
	}
	diffs := []*domain.FundDiff{quarterDiff("Fund A")}

	findings := ComputeTop(diffs, signals, 5, nil)

	require.NotEmpty(t, findings)
	f := findings[0]
	assert.Equal(t, CategoryCrowdedBuy, f.Category)
	assert.Contains(t, f.Headline, "4 funds initiated")
	assert.InDelta(t, 140.0, f.Score, 1e-9)
}

func TestComputeTopCrowdedSkipsConsensusCovered(t *testing.T) {
	shared := crowded("C1", 3, 0, 0)
	other := crowded("C2", 0, 3, 0)
	signals := &domain.CrossFundSignals{
		ConsensusInitiations: []*domain.CrowdedTrade{shared},
		CrowdedTrades:        []*domain.CrowdedTrade{shared, other},
	}
	diffs := []*domain.FundDiff{quarterDiff("Fund A")}

	findings := ComputeTop(diffs, signals, 10, nil)

	crowdedHeadlines := 0
	for _, f := range findings {
		if f.Category == CategoryCrowdedBuy {
			crowdedHeadlines++
		}
	}
	// One consensus finding plus one crowded finding for C2; the crowded
	// candidate for C1 is suppressed as a duplicate.
	assert.Equal(t, 2, crowdedHeadlines)
}

func TestComputeTopCrowdedScore(t *testing.T) {
	signals := &domain.CrossFundSignals{
		CrowdedTrades: []*domain.CrowdedTrade{crowded("C1", 2, 2, 1)},
	}
	diffs := []*domain.FundDiff{quarterDiff("Fund A")}

	findings := ComputeTop(diffs, signals, 5, nil)

	require.NotEmpty(t, findings)
	// Net sentiment 3: base 80 + 15.
	assert.InDelta(t, 95.0, findings[0].Score, 1e-9)
}

func TestComputeTopDivergence(t *testing.T) {
	signals := &domain.CrossFundSignals{
		Divergences: []*domain.FundDivergence{{
			Key:        domain.PositionKey{CUSIP: "C1"},
			IssuerName: "ACME CORP",
			Buyers:     []domain.FundAction{{FundName: "Fund A", Change: domain.ChangeNew}},
			Sellers:    []domain.FundAction{{FundName: "Fund B", Change: domain.ChangeExited}},
		}},
	}
	diffs := []*domain.FundDiff{quarterDiff("Fund A")}

	findings := ComputeTop(diffs, signals, 5, nil)

	require.NotEmpty(t, findings)
	f := findings[0]
	assert.Equal(t, CategoryDivergence, f.Category)
	assert.Contains(t, f.Detail, "Fund A")
	assert.Contains(t, f.Detail, "Fund B")
	assert.InDelta(t, 77.0, f.Score, 1e-9)
}

func TestComputeTopActivityAbsoluteScore(t *testing.T) {
	fd := quarterDiff("Busy Fund")
	for i := 0; i < 8; i++ {
		fd.New = append(fd.New, &domain.PositionDiff{Change: domain.ChangeNew, CurrentWeight: 0.5})
	}
	for i := 0; i < 4; i++ {
		fd.Exited = append(fd.Exited, &domain.PositionDiff{Change: domain.ChangeExited})
	}

	findings := ComputeTop([]*domain.FundDiff{fd}, nil, 5, nil)

	var activity *Finding
	for i := range findings {
		if findings[i].Category == CategoryActivity {
			activity = &findings[i]
		}
	}
	require.NotNil(t, activity)
	assert.Contains(t, activity.Headline, "12 moves")
	assert.InDelta(t, 52.0, activity.Score, 1e-9)
}

func TestComputeTopActivityBaselineDampsRoutineQuarter(t *testing.T) {
	fd := quarterDiff("Busy Fund")
	for i := 0; i < 12; i++ {
		fd.New = append(fd.New, &domain.PositionDiff{Change: domain.ChangeNew, CurrentWeight: 0.5})
	}

	// 12 moves is dead-on this fund's historical mean.
	baselines := map[string]*domain.FundBaseline{
		"Busy Fund": {FundName: "Busy Fund", MeanActivity: 12, StdActivity: 3},
	}

	findings := ComputeTop([]*domain.FundDiff{fd}, nil, 5, baselines)

	var activity *Finding
	for i := range findings {
		if findings[i].Category == CategoryActivity {
			activity = &findings[i]
		}
	}
	require.NotNil(t, activity)
	assert.InDelta(t, 26.0, activity.Score, 1e-9) // (40+12) * 0.5
}

func TestComputeTopActivityBaselineBoostsUnusualQuarter(t *testing.T) {
	fd := quarterDiff("Quiet Fund")
	for i := 0; i < 12; i++ {
		fd.New = append(fd.New, &domain.PositionDiff{Change: domain.ChangeNew, CurrentWeight: 0.5})
	}

	baselines := map[string]*domain.FundBaseline{
		"Quiet Fund": {FundName: "Quiet Fund", MeanActivity: 2, StdActivity: 2},
	}

	findings := ComputeTop([]*domain.FundDiff{fd}, nil, 5, baselines)

	var activity *Finding
	for i := range findings {
		if findings[i].Category == CategoryActivity {
			activity = &findings[i]
		}
	}
	require.NotNil(t, activity)
	assert.InDelta(t, 83.2, activity.Score, 1e-9) // (40+12) * 1.6
}

func TestComputeTopNewPositionGatedAtOnePercent(t *testing.T) {
	fd := quarterDiff("Fund A")
	fd.New = []*domain.PositionDiff{{
		Change:        domain.ChangeNew,
		IssuerName:    "ACME CORP",
		CurrentWeight: 0.9,
		CurrentValue:  10_000,
	}}

	findings := ComputeTop([]*domain.FundDiff{fd}, nil, 5, nil)

	for _, f := range findings {
		assert.NotEqual(t, CategoryNewPosition, f.Category)
	}
}

func TestComputeTopNewPositionScore(t *testing.T) {
	fd := quarterDiff("Fund A")
	fd.New = []*domain.PositionDiff{{
		Change:        domain.ChangeNew,
		IssuerName:    "ACME CORP",
		CurrentWeight: 4.0,
		CurrentValue:  250_000,
	}}

	findings := ComputeTop([]*domain.FundDiff{fd}, nil, 5, nil)

	var np *Finding
	for i := range findings {
		if findings[i].Category == CategoryNewPosition {
			np = &findings[i]
		}
	}
	require.NotNil(t, np)
	assert.Contains(t, np.Headline, "at 4.0%")
	assert.InDelta(t, 75.0, np.Score, 1e-9)
}

func TestComputeTopConcentrationShift(t *testing.T) {
	fd := quarterDiff("Fund A")
	fd.CurrentConcentration = &domain.ConcentrationStats{HHI: 0.060, Top10Weight: 0.75}
	fd.PriorConcentration = &domain.ConcentrationStats{HHI: 0.050, Top10Weight: 0.65}

	findings := ComputeTop([]*domain.FundDiff{fd}, nil, 5, nil)

	var conc *Finding
	for i := range findings {
		if findings[i].Category == CategoryConcentration {
			conc = &findings[i]
		}
	}
	require.NotNil(t, conc)
	assert.Contains(t, conc.Headline, "concentrating")
	assert.Contains(t, conc.Detail, "+100 bps")
	// 35 + min(5000*0.01, 20) = 35 + 20.
	assert.InDelta(t, 55.0, conc.Score, 1e-6)
}

func TestComputeTopConcentrationBelowGate(t *testing.T) {
	fd := quarterDiff("Fund A")
	fd.CurrentConcentration = &domain.ConcentrationStats{HHI: 0.052}
	fd.PriorConcentration = &domain.ConcentrationStats{HHI: 0.050}

	findings := ComputeTop([]*domain.FundDiff{fd}, nil, 5, nil)

	for _, f := range findings {
		assert.NotEqual(t, CategoryConcentration, f.Category)
	}
}

func TestComputeTopTruncatesToN(t *testing.T) {
	signals := &domain.CrossFundSignals{
		ConsensusInitiations: []*domain.CrowdedTrade{
			crowded("C1", 5, 0, 0),
			crowded("C2", 4, 0, 0),
			crowded("C3", 3, 0, 0),
		},
		Divergences: []*domain.FundDivergence{{
			Key:        domain.PositionKey{CUSIP: "C4"},
			IssuerName: "ACME CORP",
			Buyers:     []domain.FundAction{{FundName: "A", Change: domain.ChangeNew}},
			Sellers:    []domain.FundAction{{FundName: "B", Change: domain.ChangeExited}},
		}},
	}
	diffs := []*domain.FundDiff{quarterDiff("Fund A")}

	findings := ComputeTop(diffs, signals, 2, nil)

	require.Len(t, findings, 2)
	assert.InDelta(t, 150.0, findings[0].Score, 1e-9)
	assert.InDelta(t, 140.0, findings[1].Score, 1e-9)
}

func TestBaselineMultiplierBands(t *testing.T) {
	assert.Equal(t, 0.5, baselineMultiplier(0.0))
	assert.Equal(t, 0.8, baselineMultiplier(0.5))
	assert.Equal(t, 1.0, baselineMultiplier(1.0))
	assert.Equal(t, 1.3, baselineMultiplier(1.5))
	assert.Equal(t, 1.6, baselineMultiplier(2.0))
}

func TestFormatThousands(t *testing.T) {
	assert.Equal(t, "$1.5B", FormatThousands(1_500_000))
	assert.Equal(t, "$250.0M", FormatThousands(250_000))
	assert.Equal(t, "$75K", FormatThousands(75))
}
