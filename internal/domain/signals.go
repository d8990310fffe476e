package domain

import "time"

// FundAction is one fund's move on a crowded position.
type FundAction struct {
	FundName string
	Change   ChangeType
	Weight   float64
}

// CrowdedTrade is a position touched by several funds in the same quarter.
type CrowdedTrade struct {
	Key        PositionKey
	IssuerName string
	Ticker     *string
	Sector     *string
	Actions    []FundAction

	TotalValueThousands int64
	TotalShares         int64

	// Float-crowding fields, populated when reference float data exists.
	FloatShares       *int64
	FloatHeldPct      *float64
	FloatCrowdingRisk bool
}

// BuyerCount returns the number of funds that opened or added.
func (c *CrowdedTrade) BuyerCount() int {
	n := 0
	for _, a := range c.Actions {
		if a.Change == ChangeNew || a.Change == ChangeAdded {
			n++
		}
	}
	return n
}

// SellerCount returns the number of funds that exited or trimmed.
func (c *CrowdedTrade) SellerCount() int {
	n := 0
	for _, a := range c.Actions {
		if a.Change == ChangeExited || a.Change == ChangeTrimmed {
			n++
		}
	}
	return n
}

// NetSentiment is buyers minus sellers.
func (c *CrowdedTrade) NetSentiment() int {
	return c.BuyerCount() - c.SellerCount()
}

// InitiatorCount returns the number of funds that opened the position
// fresh this quarter.
func (c *CrowdedTrade) InitiatorCount() int {
	n := 0
	for _, a := range c.Actions {
		if a.Change == ChangeNew {
			n++
		}
	}
	return n
}

// InitiatorNames returns the initiating funds in action order.
func (c *CrowdedTrade) InitiatorNames() []string {
	var names []string
	for _, a := range c.Actions {
		if a.Change == ChangeNew {
			names = append(names, a.FundName)
		}
	}
	return names
}

// FundDivergence is a position where watched funds moved in opposite
// directions in the same quarter.
type FundDivergence struct {
	Key        PositionKey
	IssuerName string
	Ticker     *string
	Buyers     []FundAction
	Sellers    []FundAction
}

// SectorFlow counts funds buying and selling within one sector. A fund is
// counted at most once per side regardless of how many positions it moved.
type SectorFlow struct {
	Buying  int
	Selling int
	Net     int
}

// SectorDollarFlow sums dollar movement within one sector, in thousands.
type SectorDollarFlow struct {
	Buying  int64
	Selling int64
	Net     int64
}

// WidelyHeldPosition is a position ranked by how many funds hold it,
// regardless of quarter-over-quarter activity.
type WidelyHeldPosition struct {
	Key                 PositionKey
	IssuerName          string
	Ticker              *string
	HolderCount         int
	TotalValueThousands int64
	HolderNames         []string
}

// CrossFundSignals is the aggregate view across all fund diffs for one
// quarter boundary.
type CrossFundSignals struct {
	Quarter      time.Time
	PriorQuarter time.Time
	FundCount    int

	CrowdedTrades        []*CrowdedTrade
	ConsensusInitiations []*CrowdedTrade
	Divergences          []*FundDivergence
	SectorFlows          map[string]*SectorFlow
	SectorDollarFlows    map[string]*SectorDollarFlow
	CrowdingRisk         []*CrowdedTrade
	WidelyHeld           []*WidelyHeldPosition

	GeneratedAt time.Time
}
