package diff

import (
	"sort"

	"thirteenf-lab/internal/domain"
)

// DefaultOptionsAUMThreshold is the portfolio-weight fraction above which
// an option row is always included.
const DefaultOptionsAUMThreshold = 0.005

// Below this weight an option row counts toward the market-making noise
// tally.
const smallOptionWeight = 0.002

// ClassifyOption decides whether an option row belongs in the diff output.
// The rules run in priority order: directional bets and oversized options
// are included, routine hedges and market-making noise are excluded, and
// everything else is flagged for annotated display. Returns the verdict
// and a short reason for report footnotes.
func ClassifyOption(
	h *domain.Holding,
	allHoldings []*domain.Holding,
	totalAUM int64,
	change domain.ChangeType,
	prior *domain.Holding,
	aumThreshold float64,
) (domain.FilterAction, string) {
	if !h.IsOption() {
		return domain.ActionInclude, ""
	}

	var weight float64
	if totalAUM > 0 {
		weight = float64(h.ValueThousands) / float64(totalAUM)
	}

	// New PUT on a stock the fund does not own as equity is a directional
	// bearish bet, not a hedge.
	if change == domain.ChangeNew && h.Option == domain.OptionPut {
		if !hasEquityInIssuer(h.IssuerPrefix(), allHoldings) {
			return domain.ActionInclude, "new put without equity"
		}
	}

	if change == domain.ChangeNew && h.Option == domain.OptionCall && weight >= aumThreshold {
		return domain.ActionInclude, "large new call"
	}

	// A small option alongside a large equity stake in the same issuer is
	// a routine hedge. This outranks the weight threshold: a 0.5% hedge on
	// a 5% equity position is still just a hedge.
	equityValue := equityValueForIssuer(h.IssuerPrefix(), allHoldings)
	if equityValue > 0 && float64(h.ValueThousands) < float64(equityValue)*0.10 {
		return domain.ActionExclude, "hedge against equity stake"
	}

	if weight >= aumThreshold {
		return domain.ActionInclude, "above weight threshold"
	}

	if countSmallOptions(allHoldings, totalAUM) >= 20 {
		return domain.ActionExclude, "market-making noise"
	}

	if len(allHoldings) >= 10 && inTopNByValue(h, allHoldings, 10) {
		return domain.ActionInclude, "top-10 position"
	}

	if prior != nil && prior.ValueThousands > 0 {
		changePct := float64(abs64(h.ValueThousands-prior.ValueThousands)) / float64(prior.ValueThousands)
		if changePct >= 0.50 {
			return domain.ActionInclude, "large exposure change"
		}
	}

	if change == domain.ChangeNew && h.ValueThousands >= 10_000 {
		return domain.ActionInclude, "meaningful new notional"
	}

	return domain.ActionFlag, ""
}

func hasEquityInIssuer(issuerPrefix string, holdings []*domain.Holding) bool {
	for _, h := range holdings {
		if h.IssuerPrefix() == issuerPrefix && h.IsEquity() {
			return true
		}
	}
	return false
}

func equityValueForIssuer(issuerPrefix string, holdings []*domain.Holding) int64 {
	var total int64
	for _, h := range holdings {
		if h.IssuerPrefix() == issuerPrefix && h.IsEquity() {
			total += h.ValueThousands
		}
	}
	return total
}

func countSmallOptions(holdings []*domain.Holding, totalAUM int64) int {
	if totalAUM <= 0 {
		return 0
	}
	n := 0
	for _, h := range holdings {
		if h.IsOption() && float64(h.ValueThousands)/float64(totalAUM) < smallOptionWeight {
			n++
		}
	}
	return n
}

func inTopNByValue(target *domain.Holding, holdings []*domain.Holding, n int) bool {
	sorted := make([]*domain.Holding, len(holdings))
	copy(sorted, holdings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ValueThousands > sorted[j].ValueThousands
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	for _, h := range sorted[:n] {
		if h.Key() == target.Key() {
			return true
		}
	}
	return false
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
