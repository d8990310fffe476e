package reporting

import (
	"sort"
	"time"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/findings"
)

// Generator assembles quarterly reports from computed analysis results.
type Generator struct {
	topFindings int
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		topFindings: findings.DefaultTopN,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTopFindings overrides how many ranked findings the report carries.
func (g *Generator) WithTopFindings(n int) *Generator {
	g.topFindings = n
	return g
}

// Generate assembles a report for one quarter from the per-fund diffs,
// the cross-fund signals, and the per-fund baselines.
func (g *Generator) Generate(
	fundDiffs []*domain.FundDiff,
	signals *domain.CrossFundSignals,
	baselines map[string]*domain.FundBaseline,
	skippedFunds []string,
) *Report {
	sorted := make([]*domain.FundDiff, len(fundDiffs))
	copy(sorted, fundDiffs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fund.Name < sorted[j].Fund.Name
	})

	staleCount := 0
	for _, d := range sorted {
		if d.IsStale() {
			staleCount++
		}
	}

	report := &Report{
		GeneratedAt:   g.now(),
		FundsAnalyzed: len(sorted),
		StaleCount:    staleCount,
		Findings:      findings.ComputeTop(fundDiffs, signals, g.topFindings, baselines),
		Signals:       signals,
		FundDiffs:     sorted,
		SkippedFunds:  skippedFunds,
	}
	if signals != nil {
		report.Quarter = signals.Quarter
		report.PriorQuarter = signals.PriorQuarter
	} else if len(sorted) > 0 {
		report.Quarter = sorted[0].CurrentQuarter
		report.PriorQuarter = sorted[0].PriorQuarter
	}
	return report
}
