package signals

import (
	"sort"

	"thirteenf-lab/internal/domain"
)

// ComputeMostWidelyHeld ranks equity positions by how many tracked funds
// hold them, regardless of quarter-over-quarter activity. Snapshots with
// zero total value are skipped. Returns at most topN entries, most widely
// held first.
func ComputeMostWidelyHeld(snapshots []*domain.FundHoldings, topN int) []*domain.WidelyHeldPosition {
	byCUSIP := make(map[string]*domain.WidelyHeldPosition)

	for _, snap := range snapshots {
		if snap.TotalValueThousands == 0 {
			continue
		}
		for _, h := range snap.Holdings {
			if h.IsOption() {
				continue
			}
			entry, ok := byCUSIP[h.CUSIP]
			if !ok {
				entry = &domain.WidelyHeldPosition{
					Key:        domain.PositionKey{CUSIP: h.CUSIP},
					IssuerName: h.IssuerName,
					Ticker:     h.Ticker,
				}
				byCUSIP[h.CUSIP] = entry
			}
			if entry.Ticker == nil && h.Ticker != nil {
				entry.Ticker = h.Ticker
			}
			entry.HolderCount++
			entry.HolderNames = append(entry.HolderNames, snap.Fund.Name)
			entry.TotalValueThousands += h.ValueThousands
		}
	}

	out := make([]*domain.WidelyHeldPosition, 0, len(byCUSIP))
	for _, entry := range byCUSIP {
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].HolderCount != out[j].HolderCount {
			return out[i].HolderCount > out[j].HolderCount
		}
		if out[i].TotalValueThousands != out[j].TotalValueThousands {
			return out[i].TotalValueThousands > out[j].TotalValueThousands
		}
		return out[i].Key.CUSIP < out[j].Key.CUSIP
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
