// Package baseline computes per-fund historical activity statistics. The
// findings ranker uses them to judge whether a quarter is unusual for the
// specific fund rather than unusual in absolute terms.
package baseline

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"thirteenf-lab/internal/domain"
)

// DefaultMinQuarters is the minimum quarter-pair history a fund needs
// before a baseline is computed for it.
const DefaultMinQuarters = 3

// HistoryReader supplies per-fund activity records for consecutive quarter
// pairs, most recent first, excluding the quarter under analysis.
type HistoryReader interface {
	GetCrossQuarterActivity(ctx context.Context, fundName string, excludeQuarter time.Time) ([]*domain.QuarterActivity, error)
}

// ComputeFundBaselines builds baselines for every fund with enough
// history. Funds below minQuarters are omitted from the result; that is
// the expected steady state for newly tracked funds, not an error.
func ComputeFundBaselines(
	ctx context.Context,
	reader HistoryReader,
	fundNames []string,
	currentQuarter time.Time,
	minQuarters int,
) (map[string]*domain.FundBaseline, error) {
	if minQuarters <= 0 {
		minQuarters = DefaultMinQuarters
	}

	out := make(map[string]*domain.FundBaseline)
	for _, name := range fundNames {
		history, err := reader.GetCrossQuarterActivity(ctx, name, currentQuarter)
		if err != nil {
			return nil, fmt.Errorf("read activity history for %s: %w", name, err)
		}
		if len(history) < minQuarters {
			continue
		}

		activity := make([]float64, len(history))
		hhiChanges := make([]float64, len(history))
		maxWeights := make([]float64, len(history))
		for i, rec := range history {
			activity[i] = float64(rec.ActivityCount())
			hhiChanges[i] = math.Abs(rec.HHIChange)
			maxWeights[i] = rec.MaxNewWeightPct
		}

		b := &domain.FundBaseline{
			FundName: name,
			Quarters: len(history),
		}
		b.MeanActivity, b.StdActivity = meanStd(activity)
		b.MeanAbsHHIChange, b.StdAbsHHIChange = meanStd(hhiChanges)
		b.MeanMaxNewWeight, b.StdMaxNewWeight = meanStd(maxWeights)
		out[name] = b
	}
	return out, nil
}

// meanStd returns the arithmetic mean and sample standard deviation. A
// single-element or perfectly uniform series yields std 0, which the
// z-score functions treat as "no spread".
func meanStd(values []float64) (float64, float64) {
	mean := stat.Mean(values, nil)
	std := stat.StdDev(values, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}
