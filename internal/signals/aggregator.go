// Package signals aggregates per-fund diffs into cross-fund signals:
// crowded trades, consensus initiations, divergences, sector flows, and
// float-crowding risk.
package signals

import (
	"sort"
	"time"

	"thirteenf-lab/internal/domain"
)

// Options configures the aggregation thresholds and enrichment data.
type Options struct {
	MinFundsForCrowd     int
	MinFundsForConsensus int

	// SectorData maps resolved tickers to reference data. Best-effort:
	// instruments without an entry simply carry no float figures.
	SectorData map[string]*domain.SecurityInfo

	// Clock stamps the output; defaults to time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the standard thresholds: three funds for a crowd
// and three initiators for a consensus.
func DefaultOptions() Options {
	return Options{MinFundsForCrowd: 3, MinFundsForConsensus: 3}
}

// Tracked-fund ownership of float at or above this percentage is a
// crowding risk.
const floatCrowdingPct = 5.0

type instrumentAgg struct {
	trade     *domain.CrowdedTrade
	initiated []domain.FundAction
	added     []domain.FundAction
	trimmed   []domain.FundAction
	exited    []domain.FundAction
}

// Aggregate reduces all fund diffs for one quarter boundary into
// cross-fund signals. Input order does not matter; every output slice has
// a deterministic order.
func Aggregate(fundDiffs []*domain.FundDiff, quarter time.Time, opts Options) *domain.CrossFundSignals {
	if opts.MinFundsForCrowd == 0 {
		opts.MinFundsForCrowd = 3
	}
	if opts.MinFundsForConsensus == 0 {
		opts.MinFundsForConsensus = 3
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	out := &domain.CrossFundSignals{
		Quarter:           quarter,
		FundCount:         len(fundDiffs),
		SectorFlows:       make(map[string]*domain.SectorFlow),
		SectorDollarFlows: make(map[string]*domain.SectorDollarFlow),
		GeneratedAt:       clock(),
	}
	if len(fundDiffs) > 0 {
		out.PriorQuarter = fundDiffs[0].PriorQuarter
	}

	aggs := buildInstrumentAggs(fundDiffs, opts.SectorData)

	keys := make([]domain.PositionKey, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CUSIP != keys[j].CUSIP {
			return keys[i].CUSIP < keys[j].CUSIP
		}
		return keys[i].Option < keys[j].Option
	})

	for _, key := range keys {
		agg := aggs[key]
		trade := agg.trade

		if len(trade.Actions) > 0 {
			if trade.BuyerCount() >= opts.MinFundsForCrowd {
				out.CrowdedTrades = append(out.CrowdedTrades, trade)
			}
			if len(agg.initiated) >= opts.MinFundsForConsensus {
				out.ConsensusInitiations = append(out.ConsensusInitiations, trade)
			}
			if len(agg.initiated) >= 1 && len(agg.exited) >= 1 {
				out.Divergences = append(out.Divergences, &domain.FundDivergence{
					Key:        trade.Key,
					IssuerName: trade.IssuerName,
					Ticker:     trade.Ticker,
					Buyers:     agg.initiated,
					Sellers:    agg.exited,
				})
			}
		}

		// Crowding risk is a pure filter over the aggregate, not gated by
		// the crowd thresholds: one fund alone can own too much float.
		if trade.FloatHeldPct != nil && *trade.FloatHeldPct >= floatCrowdingPct {
			trade.FloatCrowdingRisk = true
			out.CrowdingRisk = append(out.CrowdingRisk, trade)
		}
	}

	sort.SliceStable(out.CrowdedTrades, func(i, j int) bool {
		return out.CrowdedTrades[i].NetSentiment() > out.CrowdedTrades[j].NetSentiment()
	})
	sort.SliceStable(out.ConsensusInitiations, func(i, j int) bool {
		return out.ConsensusInitiations[i].InitiatorCount() > out.ConsensusInitiations[j].InitiatorCount()
	})
	sort.SliceStable(out.Divergences, func(i, j int) bool {
		di, dj := out.Divergences[i], out.Divergences[j]
		return len(di.Buyers)+len(di.Sellers) > len(dj.Buyers)+len(dj.Sellers)
	})
	sort.SliceStable(out.CrowdingRisk, func(i, j int) bool {
		return *out.CrowdingRisk[i].FloatHeldPct > *out.CrowdingRisk[j].FloatHeldPct
	})

	computeSectorFlows(fundDiffs, out)

	return out
}

func buildInstrumentAggs(fundDiffs []*domain.FundDiff, sectorData map[string]*domain.SecurityInfo) map[domain.PositionKey]*instrumentAgg {
	aggs := make(map[domain.PositionKey]*instrumentAgg)

	get := func(d *domain.PositionDiff) *instrumentAgg {
		agg, ok := aggs[d.Key]
		if !ok {
			agg = &instrumentAgg{trade: &domain.CrowdedTrade{
				Key:        d.Key,
				IssuerName: d.IssuerName,
				Ticker:     d.Ticker,
				Sector:     d.Sector,
			}}
			aggs[d.Key] = agg
		}
		if agg.trade.Ticker == nil && d.Ticker != nil {
			agg.trade.Ticker = d.Ticker
			agg.trade.Sector = d.Sector
		}
		return agg
	}

	for _, fd := range fundDiffs {
		fundName := fd.Fund.Name

		for _, p := range fd.New {
			agg := get(p)
			act := domain.FundAction{FundName: fundName, Change: domain.ChangeNew, Weight: p.CurrentWeight}
			agg.initiated = append(agg.initiated, act)
			agg.trade.Actions = append(agg.trade.Actions, act)
			agg.trade.TotalValueThousands += p.CurrentValue
			agg.trade.TotalShares += p.CurrentShares
		}
		for _, p := range fd.Added {
			agg := get(p)
			act := domain.FundAction{FundName: fundName, Change: domain.ChangeAdded, Weight: p.CurrentWeight}
			agg.added = append(agg.added, act)
			agg.trade.Actions = append(agg.trade.Actions, act)
			agg.trade.TotalValueThousands += p.CurrentValue
			agg.trade.TotalShares += p.CurrentShares
		}
		for _, p := range fd.Trimmed {
			agg := get(p)
			act := domain.FundAction{FundName: fundName, Change: domain.ChangeTrimmed, Weight: p.CurrentWeight}
			agg.trimmed = append(agg.trimmed, act)
			agg.trade.Actions = append(agg.trade.Actions, act)
			agg.trade.TotalValueThousands += p.CurrentValue
			agg.trade.TotalShares += p.CurrentShares
		}
		for _, p := range fd.Exited {
			agg := get(p)
			act := domain.FundAction{FundName: fundName, Change: domain.ChangeExited, Weight: p.PriorWeight}
			agg.exited = append(agg.exited, act)
			agg.trade.Actions = append(agg.trade.Actions, act)
			// An exit holds nothing now; its prior value still counts
			// toward how much money touched the name.
			agg.trade.TotalValueThousands += p.PriorValue
		}
		for _, p := range fd.Unchanged {
			// No action bucket, but standing positions count toward the
			// instrument aggregate used for float crowding.
			agg := get(p)
			agg.trade.TotalValueThousands += p.CurrentValue
			agg.trade.TotalShares += p.CurrentShares
		}
	}

	for _, agg := range aggs {
		attachFloat(agg.trade, sectorData)
	}

	return aggs
}

func attachFloat(trade *domain.CrowdedTrade, sectorData map[string]*domain.SecurityInfo) {
	if trade.Ticker == nil || sectorData == nil {
		return
	}
	info, ok := sectorData[*trade.Ticker]
	if !ok || info.FloatShares <= 0 {
		return
	}
	floatShares := info.FloatShares
	pct := float64(trade.TotalShares) / float64(floatShares) * 100
	trade.FloatShares = &floatShares
	trade.FloatHeldPct = &pct
	if trade.Sector == nil && info.Sector != "" {
		sector := info.Sector
		trade.Sector = &sector
	}
}

func sectorOf(p *domain.PositionDiff) string {
	if p.Sector != nil && *p.Sector != "" {
		return *p.Sector
	}
	return "Unknown"
}

func computeSectorFlows(fundDiffs []*domain.FundDiff, out *domain.CrossFundSignals) {
	countFlow := func(sector string) *domain.SectorFlow {
		f, ok := out.SectorFlows[sector]
		if !ok {
			f = &domain.SectorFlow{}
			out.SectorFlows[sector] = f
		}
		return f
	}
	dollarFlow := func(sector string) *domain.SectorDollarFlow {
		f, ok := out.SectorDollarFlows[sector]
		if !ok {
			f = &domain.SectorDollarFlow{}
			out.SectorDollarFlows[sector] = f
		}
		return f
	}

	for _, fd := range fundDiffs {
		// Count flows deduplicate per fund-sector pair so one hyperactive
		// fund cannot dominate the tally.
		seenBuy := make(map[string]struct{})
		seenSell := make(map[string]struct{})

		for _, p := range append(append([]*domain.PositionDiff{}, fd.New...), fd.Added...) {
			sector := sectorOf(p)
			if _, ok := seenBuy[sector]; !ok {
				f := countFlow(sector)
				f.Buying++
				f.Net++
				seenBuy[sector] = struct{}{}
			}
			df := dollarFlow(sector)
			df.Buying += p.CurrentValue
			df.Net += p.CurrentValue
		}

		for _, p := range fd.Exited {
			sector := sectorOf(p)
			if _, ok := seenSell[sector]; !ok {
				f := countFlow(sector)
				f.Selling++
				f.Net--
				seenSell[sector] = struct{}{}
			}
			df := dollarFlow(sector)
			df.Selling += p.PriorValue
			df.Net -= p.PriorValue
		}

		for _, p := range fd.Trimmed {
			sector := sectorOf(p)
			if _, ok := seenSell[sector]; !ok {
				f := countFlow(sector)
				f.Selling++
				f.Net--
				seenSell[sector] = struct{}{}
			}
			if dec := p.PriorValue - p.CurrentValue; dec > 0 {
				df := dollarFlow(sector)
				df.Selling += dec
				df.Net -= dec
			}
		}
	}
}
