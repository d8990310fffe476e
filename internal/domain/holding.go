package domain

import "time"

// OptionType marks a 13F row reported as a listed option rather than a
// direct equity position.
type OptionType string

const (
	OptionNone OptionType = ""
	OptionPut  OptionType = "PUT"
	OptionCall OptionType = "CALL"
)

// PositionKey uniquely identifies a position within a filing. Equity and
// option rows on the same CUSIP are distinct positions.
type PositionKey struct {
	CUSIP  string
	Option OptionType
}

// Holding is a single information-table row from a 13F-HR filing.
// ValueThousands is the reported market value in thousands of dollars.
type Holding struct {
	CUSIP          string
	IssuerName     string
	TitleOfClass   string
	ValueThousands int64
	SharesOrPrnAmt int64
	ShPrnType      string // "SH" or "PRN"
	Option         OptionType
	Discretion     string
	VotingSole     int64
	VotingShared   int64
	VotingNone     int64

	// Enrichment fields resolved from the securities reference data.
	// Nil when the CUSIP is not in the reference set.
	Ticker            *string
	Sector            *string
	Industry          *string
	FloatShares       *int64
	FloatOwnershipPct *float64
}

// Key returns the position identity for diffing and aggregation.
func (h *Holding) Key() PositionKey {
	return PositionKey{CUSIP: h.CUSIP, Option: h.Option}
}

// IsOption reports whether the row is a put or call position.
func (h *Holding) IsOption() bool {
	return h.Option != OptionNone
}

// IsEquity reports whether the row is a direct share position. Principal
// amount (PRN) rows are debt, not shares.
func (h *Holding) IsEquity() bool {
	return h.Option == OptionNone && h.ShPrnType == "SH"
}

// IssuerPrefix returns the first six CUSIP characters, which identify the
// issuer across share classes and option rows.
func (h *Holding) IssuerPrefix() string {
	if len(h.CUSIP) < 6 {
		return h.CUSIP
	}
	return h.CUSIP[:6]
}

// FundHoldings is one fund's complete position snapshot for one quarter.
type FundHoldings struct {
	Fund                *FundInfo
	QuarterEnd          time.Time
	FilingDate          time.Time
	Holdings            []*Holding
	TotalValueThousands int64
}

// NewFundHoldings builds a snapshot and computes the total reported value.
func NewFundHoldings(fund *FundInfo, quarterEnd, filingDate time.Time, holdings []*Holding) *FundHoldings {
	var total int64
	for _, h := range holdings {
		total += h.ValueThousands
	}
	return &FundHoldings{
		Fund:                fund,
		QuarterEnd:          quarterEnd,
		FilingDate:          filingDate,
		Holdings:            holdings,
		TotalValueThousands: total,
	}
}

// FilingLagDays returns the number of days between quarter end and the
// filing date.
func (f *FundHoldings) FilingLagDays() int {
	return int(f.FilingDate.Sub(f.QuarterEnd).Hours() / 24)
}

// Weight returns the holding's share of total reported value as a
// percentage. Returns 0 when the snapshot total is zero.
func (f *FundHoldings) Weight(h *Holding) float64 {
	if f.TotalValueThousands == 0 {
		return 0.0
	}
	return float64(h.ValueThousands) / float64(f.TotalValueThousands) * 100.0
}

// HoldingByKey returns the holding with the given position key, or nil.
func (f *FundHoldings) HoldingByKey(key PositionKey) *Holding {
	for _, h := range f.Holdings {
		if h.Key() == key {
			return h
		}
	}
	return nil
}
