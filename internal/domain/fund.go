package domain

import "strings"

// Tier classifies a watched fund by investing style.
type Tier string

const (
	TierMultiStrat  Tier = "A" // multi-strategy, filter to top positions
	TierStockPicker Tier = "B" // concentrated stock pickers
	TierEventDriven Tier = "C" // event-driven / activist
	TierEmerging    Tier = "D" // newer managers with short filing history
	TierHealthcare  Tier = "E" // healthcare specialists
)

// FundInfo is static fund metadata from the watchlist.
type FundInfo struct {
	Name    string
	CIK     string
	Tier    Tier
	Aliases []string
}

// PaddedCIK returns the 10-digit zero-padded CIK used in EDGAR identifiers.
func (f *FundInfo) PaddedCIK() string {
	if len(f.CIK) >= 10 {
		return f.CIK
	}
	return strings.Repeat("0", 10-len(f.CIK)) + f.CIK
}
