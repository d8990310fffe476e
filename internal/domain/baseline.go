package domain

import "time"

// QuarterActivity records how much a fund moved across one consecutive
// quarter pair. One row is appended to the activity log per analyzed
// fund-quarter and later feeds the fund's historical baseline.
type QuarterActivity struct {
	FundName        string
	Quarter         time.Time
	NewCount        int
	ExitedCount     int
	HHIChange       float64
	MaxNewWeightPct float64
	RecordedAt      time.Time
}

// ActivityCount returns new positions plus exits, the headline measure of
// how busy the quarter was.
func (q *QuarterActivity) ActivityCount() int {
	return q.NewCount + q.ExitedCount
}

// FundBaseline is a fund's historical activity profile. Scoring uses it to
// ask "is this busy for this fund" rather than comparing raw counts across
// funds of very different size.
type FundBaseline struct {
	FundName string
	Quarters int

	MeanActivity float64
	StdActivity  float64

	MeanAbsHHIChange float64
	StdAbsHHIChange  float64

	MeanMaxNewWeight float64
	StdMaxNewWeight  float64
}

// zScore returns 0 when the historical spread is zero.
func zScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0.0
	}
	return (value - mean) / std
}

// ActivityZScore measures how unusual an activity count (new + exited) is
// against the fund's history.
func (b *FundBaseline) ActivityZScore(count int) float64 {
	return zScore(float64(count), b.MeanActivity, b.StdActivity)
}

// HHIChangeZScore measures how unusual a concentration shift is against
// the fund's history. The caller passes the absolute HHI change.
func (b *FundBaseline) HHIChangeZScore(absChange float64) float64 {
	return zScore(absChange, b.MeanAbsHHIChange, b.StdAbsHHIChange)
}

// MaxNewWeightZScore measures how unusual a new-position sizing is against
// the fund's history.
func (b *FundBaseline) MaxNewWeightZScore(weightPct float64) float64 {
	return zScore(weightPct, b.MeanMaxNewWeight, b.StdMaxNewWeight)
}
