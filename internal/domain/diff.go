package domain

import "time"

// ChangeType classifies a position's quarter-over-quarter movement.
type ChangeType string

const (
	ChangeNew       ChangeType = "NEW"
	ChangeExited    ChangeType = "EXITED"
	ChangeAdded     ChangeType = "ADDED"
	ChangeTrimmed   ChangeType = "TRIMMED"
	ChangeUnchanged ChangeType = "UNCHANGED"
)

// FilterAction is the options filter's verdict on a diff row.
type FilterAction string

const (
	ActionInclude FilterAction = "INCLUDE"
	ActionExclude FilterAction = "EXCLUDE"
	ActionFlag    FilterAction = "FLAG"
)

// Filing lag beyond which a snapshot pair is considered stale.
const StaleFilingLagDays = 50

// Significance thresholds for adds and trims, applied to equity rows only.
const (
	significantAddPct      = 0.50
	significantTrimPct     = -0.60
	significantWeightFloor = 0.25
)

// PositionDiff is one position's movement between two adjacent quarters.
// Dollar values are in thousands. SharesChangePct is fractional: +0.5 is a
// 50% increase, and a new position is reported as +1.0.
type PositionDiff struct {
	Key             PositionKey
	IssuerName      string
	Change          ChangeType
	CurrentShares   int64
	PriorShares     int64
	CurrentValue    int64
	PriorValue      int64
	SharesChangePct float64
	CurrentWeight   float64
	PriorWeight     float64
	Action          FilterAction
	FilterReason    string

	// Enrichment carried over from the current (or, for exits, prior)
	// holding row.
	Ticker            *string
	Sector            *string
	Industry          *string
	FloatShares       *int64
	FloatOwnershipPct *float64
}

// ValueChangeThousands returns the dollar move in thousands, negative for
// reductions.
func (d *PositionDiff) ValueChangeThousands() int64 {
	return d.CurrentValue - d.PriorValue
}

// WeightChangePct returns the portfolio-weight move in percentage points.
func (d *PositionDiff) WeightChangePct() float64 {
	return d.CurrentWeight - d.PriorWeight
}

// IsSignificantAdd reports an ADDED position that grew at least 50% and now
// carries at least 0.25% of the portfolio.
func (d *PositionDiff) IsSignificantAdd() bool {
	return d.Change == ChangeAdded &&
		d.SharesChangePct >= significantAddPct &&
		d.CurrentWeight >= significantWeightFloor
}

// IsSignificantTrim reports a TRIMMED position that shrank at least 60% from
// a prior weight of at least 0.25%.
func (d *PositionDiff) IsSignificantTrim() bool {
	return d.Change == ChangeTrimmed &&
		d.SharesChangePct <= significantTrimPct &&
		d.PriorWeight >= significantWeightFloor
}

// DisplayLabel returns the ticker or shortened issuer name, with an
// option-type suffix for put and call rows.
func (d *PositionDiff) DisplayLabel() string {
	return PositionLabel(d.Ticker, d.IssuerName, d.Key.Option)
}

// FundDiff is the complete quarter-over-quarter comparison for one fund,
// partitioned by change type. New positions sort by current value, exits
// by prior value, adds and trims by percent change.
type FundDiff struct {
	Fund           *FundInfo
	CurrentQuarter time.Time
	PriorQuarter   time.Time
	FilingDate     time.Time
	CurrentAUM     int64
	PriorAUM       int64
	AUMChangePct   float64

	New       []*PositionDiff
	Exited    []*PositionDiff
	Added     []*PositionDiff
	Trimmed   []*PositionDiff
	Unchanged []*PositionDiff

	CurrentConcentration *ConcentrationStats
	PriorConcentration   *ConcentrationStats
}

// AllChanges returns every non-unchanged diff row in partition order.
func (fd *FundDiff) AllChanges() []*PositionDiff {
	out := make([]*PositionDiff, 0, len(fd.New)+len(fd.Exited)+len(fd.Added)+len(fd.Trimmed))
	out = append(out, fd.New...)
	out = append(out, fd.Exited...)
	out = append(out, fd.Added...)
	out = append(out, fd.Trimmed...)
	return out
}

// IsStale reports whether the filing arrived more than StaleFilingLagDays
// after quarter end.
func (fd *FundDiff) IsStale() bool {
	return int(fd.FilingDate.Sub(fd.CurrentQuarter).Hours()/24) > StaleFilingLagDays
}

// HHIChange returns the quarter-over-quarter concentration delta. Zero
// when either snapshot's stats are missing.
func (fd *FundDiff) HHIChange() float64 {
	if fd.CurrentConcentration == nil || fd.PriorConcentration == nil {
		return 0.0
	}
	return fd.CurrentConcentration.HHI - fd.PriorConcentration.HHI
}

// ConcentrationStats summarizes portfolio concentration for one snapshot.
// Weights are fractions of total value, not percentages.
type ConcentrationStats struct {
	HHI                float64
	Top5Weight         float64
	Top10Weight        float64
	Top20Weight        float64
	EffectivePositions float64
	PositionCount      int
}
