package reporting

import (
	"fmt"
	"time"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/findings"
)

// Report is the assembled quarterly analysis, ready for rendering.
type Report struct {
	Quarter       time.Time
	PriorQuarter  time.Time
	GeneratedAt   time.Time
	FundsAnalyzed int
	StaleCount    int

	Findings  []findings.Finding
	Signals   *domain.CrossFundSignals
	FundDiffs []*domain.FundDiff // sorted by fund name

	// Funds skipped because no prior quarter was on record.
	SkippedFunds []string
}

// QuarterLabel formats a quarter-end date as "Q2 2024".
func QuarterLabel(d time.Time) string {
	q := (int(d.Month())-1)/3 + 1
	return fmt.Sprintf("Q%d %d", q, d.Year())
}
