// Package findings extracts a short ranked list of headline-worthy
// observations from one quarter's diffs and cross-fund signals.
package findings

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"thirteenf-lab/internal/domain"
)

// Category tags a finding for display grouping.
type Category string

const (
	CategoryCrowdedBuy    Category = "crowded_buy"
	CategoryDivergence    Category = "divergence"
	CategoryActivity      Category = "activity"
	CategoryNewPosition   Category = "new_position"
	CategoryConcentration Category = "concentration"
)

// Finding is one headline observation with an internal ranking score.
type Finding struct {
	Category Category
	Headline string
	Detail   string
	Score    float64
	Ticker   *string
}

// DefaultTopN is the number of findings surfaced by default.
const DefaultTopN = 5

// ComputeTop scores candidate findings and returns the top n by score.
// Scores are overlapping bands rather than strict tiers, so a strongly
// baseline-boosted fund finding can outrank a weak consensus one.
// Baselines are optional: funds without one score on absolute numbers.
func ComputeTop(
	fundDiffs []*domain.FundDiff,
	signals *domain.CrossFundSignals,
	n int,
	baselines map[string]*domain.FundBaseline,
) []Finding {
	if len(fundDiffs) == 0 {
		return nil
	}
	if n <= 0 {
		n = DefaultTopN
	}

	var candidates []Finding
	candidates = append(candidates, consensusFindings(signals)...)
	candidates = append(candidates, crowdedFindings(signals)...)
	candidates = append(candidates, divergenceFinding(signals)...)
	candidates = append(candidates, activityFinding(fundDiffs, baselines)...)
	candidates = append(candidates, newPositionFinding(fundDiffs, baselines)...)
	candidates = append(candidates, concentrationFinding(fundDiffs, baselines)...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// baselineMultiplier maps a z-score to a score multiplier. Ordinary
// behavior is damped so it cannot crowd out genuine surprises; unusual
// quarters are boosted.
func baselineMultiplier(z float64) float64 {
	switch {
	case z < 0.5:
		return 0.5
	case z < 1.0:
		return 0.8
	case z < 1.5:
		return 1.0
	case z < 2.0:
		return 1.3
	default:
		return 1.6
	}
}

func consensusFindings(signals *domain.CrossFundSignals) []Finding {
	if signals == nil {
		return nil
	}
	var out []Finding
	for _, ct := range top(signals.ConsensusInitiations, 3) {
		initiators := ct.InitiatorNames()
		names := strings.Join(firstN(initiators, 4), ", ")
		if len(initiators) > 4 {
			names += fmt.Sprintf(" +%d", len(initiators)-4)
		}
		label := domain.PositionLabel(ct.Ticker, ct.IssuerName, ct.Key.Option)
		out = append(out, Finding{
			Category: CategoryCrowdedBuy,
			Headline: fmt.Sprintf("%s: %d funds initiated", label, len(initiators)),
			Detail:   fmt.Sprintf("New consensus position opened by %s.", names),
			Score:    100 + float64(len(initiators))*10,
			Ticker:   ct.Ticker,
		})
	}
	return out
}

func crowdedFindings(signals *domain.CrossFundSignals) []Finding {
	if signals == nil {
		return nil
	}
	covered := make(map[domain.PositionKey]struct{})
	for _, ct := range top(signals.ConsensusInitiations, 3) {
		covered[ct.Key] = struct{}{}
	}

	var out []Finding
	for _, ct := range top(signals.CrowdedTrades, 2) {
		if _, ok := covered[ct.Key]; ok {
			continue
		}
		label := domain.PositionLabel(ct.Ticker, ct.IssuerName, ct.Key.Option)
		out = append(out, Finding{
			Category: CategoryCrowdedBuy,
			Headline: fmt.Sprintf("%s: %d funds buying", label, ct.BuyerCount()),
			Detail: fmt.Sprintf("Net sentiment %+d (%d buying vs. %d selling).",
				ct.NetSentiment(), ct.BuyerCount(), ct.SellerCount()),
			Score:  80 + float64(ct.NetSentiment())*5,
			Ticker: ct.Ticker,
		})
	}
	return out
}

func divergenceFinding(signals *domain.CrossFundSignals) []Finding {
	if signals == nil || len(signals.Divergences) == 0 {
		return nil
	}
	div := signals.Divergences[0]
	label := domain.PositionLabel(div.Ticker, div.IssuerName, div.Key.Option)
	return []Finding{{
		Category: CategoryDivergence,
		Headline: fmt.Sprintf("%s: funds disagree", label),
		Detail: fmt.Sprintf("Initiated by %s; exited by %s. Funds are split on this name.",
			strings.Join(actionNames(div.Buyers, 2), ", "),
			strings.Join(actionNames(div.Sellers, 2), ", ")),
		Score:  75 + float64(len(div.Buyers)+len(div.Sellers)),
		Ticker: div.Ticker,
	}}
}

func activityFinding(fundDiffs []*domain.FundDiff, baselines map[string]*domain.FundBaseline) []Finding {
	var best *domain.FundDiff
	bestCount := 0
	for _, fd := range fundDiffs {
		count := moveCount(fd)
		if count > bestCount {
			bestCount = count
			best = fd
		}
	}
	if best == nil || bestCount == 0 {
		return nil
	}

	score := 40 + float64(min(bestCount, 20))
	if b, ok := baselines[best.Fund.Name]; ok {
		score *= baselineMultiplier(b.ActivityZScore(bestCount))
	}
	return []Finding{{
		Category: CategoryActivity,
		Headline: fmt.Sprintf("%s most active (%d moves)", best.Fund.Name, bestCount),
		Detail: fmt.Sprintf("%d new, %d exits, AUM %s.",
			len(best.New), len(best.Exited), FormatThousands(best.CurrentAUM)),
		Score: score,
	}}
}

func newPositionFinding(fundDiffs []*domain.FundDiff, baselines map[string]*domain.FundBaseline) []Finding {
	var bestDiff *domain.FundDiff
	var bestPos *domain.PositionDiff
	bestWeight := 0.0
	for _, fd := range fundDiffs {
		for _, p := range fd.New {
			if p.CurrentWeight > bestWeight {
				bestWeight = p.CurrentWeight
				bestDiff = fd
				bestPos = p
			}
		}
	}
	if bestPos == nil || bestWeight < 1.0 {
		return nil
	}

	score := 55 + bestWeight*5
	if b, ok := baselines[bestDiff.Fund.Name]; ok {
		score *= baselineMultiplier(b.MaxNewWeightZScore(bestWeight))
	}
	return []Finding{{
		Category: CategoryNewPosition,
		Headline: fmt.Sprintf("%s initiated %s at %.1f%%",
			bestDiff.Fund.Name, bestPos.DisplayLabel(), bestWeight),
		Detail: fmt.Sprintf("New %s position with high conviction sizing.",
			FormatThousands(bestPos.CurrentValue)),
		Score:  score,
		Ticker: bestPos.Ticker,
	}}
}

func concentrationFinding(fundDiffs []*domain.FundDiff, baselines map[string]*domain.FundBaseline) []Finding {
	var best *domain.FundDiff
	bestShift := 0.0
	for _, fd := range fundDiffs {
		if shift := math.Abs(fd.HHIChange()); shift > bestShift {
			bestShift = shift
			best = fd
		}
	}
	if best == nil || bestShift <= 0.005 {
		return nil
	}

	direction := "concentrating"
	if best.HHIChange() < 0 {
		direction = "diversifying"
	}
	score := 35 + min(5000*bestShift, 20)
	if b, ok := baselines[best.Fund.Name]; ok {
		score *= baselineMultiplier(b.HHIChangeZScore(bestShift))
	}
	return []Finding{{
		Category: CategoryConcentration,
		Headline: fmt.Sprintf("%s %s", best.Fund.Name, direction),
		Detail: fmt.Sprintf("Top-10 weight: %.1f%% to %.1f%%. HHI moved %+.0f bps.",
			best.PriorConcentration.Top10Weight*100,
			best.CurrentConcentration.Top10Weight*100,
			best.HHIChange()*10000),
		Score: score,
	}}
}

// moveCount is the raw activity measure: every new position and exit, plus
// only the significant adds and trims.
func moveCount(fd *domain.FundDiff) int {
	count := len(fd.New) + len(fd.Exited)
	for _, p := range fd.Added {
		if p.IsSignificantAdd() {
			count++
		}
	}
	for _, p := range fd.Trimmed {
		if p.IsSignificantTrim() {
			count++
		}
	}
	return count
}

// FormatThousands renders a dollar amount given in thousands as a compact
// human string: $1.2B, $450.0M, $75K.
func FormatThousands(thousands int64) string {
	dollars := float64(thousands) * 1000
	abs := dollars
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("$%.1fB", dollars/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.1fM", dollars/1e6)
	default:
		return fmt.Sprintf("$%.0fK", dollars/1e3)
	}
}

func top(trades []*domain.CrowdedTrade, n int) []*domain.CrowdedTrade {
	if len(trades) > n {
		return trades[:n]
	}
	return trades
}

func firstN(names []string, n int) []string {
	if len(names) > n {
		return names[:n]
	}
	return names
}

func actionNames(actions []domain.FundAction, limit int) []string {
	names := make([]string, 0, limit)
	for _, a := range actions {
		if len(names) == limit {
			break
		}
		names = append(names, a.FundName)
	}
	return names
}
