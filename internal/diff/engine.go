// Package diff computes quarter-over-quarter position diffs for a single
// fund. Ranking favors shares_change_pct and portfolio weight over raw
// dollar value, so a mega-fund's routine rebalancing does not drown out
// genuine conviction moves.
package diff

import (
	"sort"

	"thirteenf-lab/internal/domain"
)

// ComputeFundDiff compares two adjacent quarterly snapshots for one fund
// and returns the categorized position changes with concentration metrics.
// Option rows the filter excludes are dropped from every partition.
func ComputeFundDiff(current, prior *domain.FundHoldings) *domain.FundDiff {
	return ComputeFundDiffWithThreshold(current, prior, DefaultOptionsAUMThreshold)
}

// ComputeFundDiffWithThreshold is ComputeFundDiff with a configurable AUM
// fraction for the large-call option rule.
func ComputeFundDiffWithThreshold(current, prior *domain.FundHoldings, optionsAUMThreshold float64) *domain.FundDiff {
	currentAUM := current.TotalValueThousands
	priorAUM := prior.TotalValueThousands

	currentMap := make(map[domain.PositionKey]*domain.Holding, len(current.Holdings))
	for _, h := range current.Holdings {
		currentMap[h.Key()] = h
	}
	priorMap := make(map[domain.PositionKey]*domain.Holding, len(prior.Holdings))
	for _, h := range prior.Holdings {
		priorMap[h.Key()] = h
	}

	keySet := make(map[domain.PositionKey]struct{}, len(currentMap)+len(priorMap))
	for k := range currentMap {
		keySet[k] = struct{}{}
	}
	for k := range priorMap {
		keySet[k] = struct{}{}
	}
	// Deterministic iteration so equal-value sorts tie-break the same way
	// on every run.
	keys := make([]domain.PositionKey, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CUSIP != keys[j].CUSIP {
			return keys[i].CUSIP < keys[j].CUSIP
		}
		return keys[i].Option < keys[j].Option
	})

	fd := &domain.FundDiff{
		Fund:           current.Fund,
		CurrentQuarter: current.QuarterEnd,
		PriorQuarter:   prior.QuarterEnd,
		FilingDate:     current.FilingDate,
		CurrentAUM:     currentAUM,
		PriorAUM:       priorAUM,
	}
	if priorAUM > 0 {
		fd.AUMChangePct = float64(currentAUM-priorAUM) / float64(priorAUM)
	}

	for _, key := range keys {
		d := buildPositionDiff(key, currentMap[key], priorMap[key], currentAUM, priorAUM, current.Holdings, optionsAUMThreshold)

		if key.Option != domain.OptionNone && d.Action == domain.ActionExclude {
			continue
		}

		switch d.Change {
		case domain.ChangeNew:
			fd.New = append(fd.New, d)
		case domain.ChangeExited:
			fd.Exited = append(fd.Exited, d)
		case domain.ChangeAdded:
			fd.Added = append(fd.Added, d)
		case domain.ChangeTrimmed:
			fd.Trimmed = append(fd.Trimmed, d)
		case domain.ChangeUnchanged:
			fd.Unchanged = append(fd.Unchanged, d)
		}
	}

	sortPartitions(fd)

	fd.CurrentConcentration = ComputeConcentration(current.Holdings, currentAUM)
	fd.PriorConcentration = ComputeConcentration(prior.Holdings, priorAUM)

	return fd
}

func buildPositionDiff(
	key domain.PositionKey,
	curr, prev *domain.Holding,
	currentAUM, priorAUM int64,
	allCurrent []*domain.Holding,
	optionsAUMThreshold float64,
) *domain.PositionDiff {
	var currShares, prevShares, currValue, prevValue int64
	if curr != nil {
		currShares = curr.SharesOrPrnAmt
		currValue = curr.ValueThousands
	}
	if prev != nil {
		prevShares = prev.SharesOrPrnAmt
		prevValue = prev.ValueThousands
	}

	var change domain.ChangeType
	switch {
	case prevShares == 0 && currShares > 0:
		change = domain.ChangeNew
	case currShares == 0 && prevShares > 0:
		change = domain.ChangeExited
	case currShares > prevShares:
		change = domain.ChangeAdded
	case currShares < prevShares:
		change = domain.ChangeTrimmed
	default:
		change = domain.ChangeUnchanged
	}

	// A fresh position reads as a 100% increase.
	var sharesChangePct float64
	switch {
	case prevShares > 0:
		sharesChangePct = float64(currShares-prevShares) / float64(prevShares)
	case currShares > 0:
		sharesChangePct = 1.0
	}

	var currentWeight, priorWeight float64
	if currentAUM > 0 {
		currentWeight = float64(currValue) / float64(currentAUM) * 100
	}
	if priorAUM > 0 {
		priorWeight = float64(prevValue) / float64(priorAUM) * 100
	}

	d := &domain.PositionDiff{
		Key:             key,
		Change:          change,
		CurrentShares:   currShares,
		PriorShares:     prevShares,
		CurrentValue:    currValue,
		PriorValue:      prevValue,
		SharesChangePct: sharesChangePct,
		CurrentWeight:   currentWeight,
		PriorWeight:     priorWeight,
		Action:          domain.ActionInclude,
	}

	src := curr
	if src == nil {
		src = prev
	}
	if src != nil {
		d.IssuerName = src.IssuerName
		d.Ticker = src.Ticker
		d.Sector = src.Sector
		d.Industry = src.Industry
		d.FloatShares = src.FloatShares
		d.FloatOwnershipPct = src.FloatOwnershipPct
	}

	if key.Option != domain.OptionNone {
		if curr != nil {
			d.Action, d.FilterReason = ClassifyOption(curr, allCurrent, currentAUM, change, prev, optionsAUMThreshold)
		} else {
			// Exited option rows always surface.
			d.Action = domain.ActionInclude
			d.FilterReason = "exited option"
		}
	}

	return d
}

func sortPartitions(fd *domain.FundDiff) {
	sort.SliceStable(fd.New, func(i, j int) bool {
		return fd.New[i].CurrentValue > fd.New[j].CurrentValue
	})
	sort.SliceStable(fd.Exited, func(i, j int) bool {
		return fd.Exited[i].PriorValue > fd.Exited[j].PriorValue
	})
	sort.SliceStable(fd.Added, func(i, j int) bool {
		return fd.Added[i].SharesChangePct > fd.Added[j].SharesChangePct
	})
	sort.SliceStable(fd.Trimmed, func(i, j int) bool {
		return fd.Trimmed[i].SharesChangePct < fd.Trimmed[j].SharesChangePct
	})
	sort.SliceStable(fd.Unchanged, func(i, j int) bool {
		return fd.Unchanged[i].CurrentValue > fd.Unchanged[j].CurrentValue
	})
}
