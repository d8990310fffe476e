package reporting

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/findings"
)

const (
	maxPositionsPerSection = 15
	maxPositionsPerFund    = 10
)

// RenderMarkdown renders the quarterly report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	label := QuarterLabel(r.Quarter)
	sb.WriteString(fmt.Sprintf("# 13F Fund Tracker Report — %s\n\n", label))
	sb.WriteString(fmt.Sprintf("*Generated %s*\n\n", r.GeneratedAt.Format("2006-01-02 15:04")))

	// Executive Summary
	sb.WriteString("## Executive Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Quarter**: %s (ending %s)\n", label, r.Quarter.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("- **Funds Analyzed**: %d\n", r.FundsAnalyzed))
	if r.StaleCount > 0 {
		sb.WriteString(fmt.Sprintf("- **Stale Filings**: %d filed %d+ days after quarter end\n",
			r.StaleCount, domain.StaleFilingLagDays))
	}
	if r.Signals != nil {
		sb.WriteString(fmt.Sprintf("- **Consensus Initiations**: %d\n", len(r.Signals.ConsensusInitiations)))
		sb.WriteString(fmt.Sprintf("- **Crowded Trades**: %d\n", len(r.Signals.CrowdedTrades)))
		sb.WriteString(fmt.Sprintf("- **Divergences**: %d\n", len(r.Signals.Divergences)))
	}
	sb.WriteString("\n")

	// Top Findings
	if len(r.Findings) > 0 {
		sb.WriteString("### Top Findings\n\n")
		for i, f := range r.Findings {
			sb.WriteString(fmt.Sprintf("%d. **%s** — %s\n", i+1, f.Headline, f.Detail))
		}
		sb.WriteString("\n")
	}

	if r.Signals != nil {
		renderSignals(&sb, r.Signals)
	}

	// Individual Fund Summaries
	if len(r.FundDiffs) > 0 {
		sb.WriteString("---\n\n")
		sb.WriteString("## Individual Fund Summaries\n\n")
		for _, d := range r.FundDiffs {
			renderFundSection(&sb, d)
		}
	}

	renderDataQuality(&sb, r)

	return sb.String()
}

// renderSignals writes the cross-fund signal tables.
func renderSignals(sb *strings.Builder, signals *domain.CrossFundSignals) {
	sb.WriteString("---\n\n")
	sb.WriteString("## Cross-Fund Signals\n\n")

	// Consensus Initiations
	if len(signals.ConsensusInitiations) > 0 {
		sb.WriteString("### Consensus New Positions\n\n")
		sb.WriteString("Stocks that several watched funds initiated for the first time this quarter.\n\n")
		sb.WriteString("| Stock | Funds Initiated | Funds Added | Sector |\n")
		sb.WriteString("|-------|----------------|-------------|--------|\n")
		for _, ct := range truncateTrades(signals.ConsensusInitiations) {
			names := ct.InitiatorNames()
			label := strings.Join(names[:min(len(names), 5)], ", ")
			if len(names) > 5 {
				label += fmt.Sprintf(" +%d", len(names)-5)
			}
			sb.WriteString(fmt.Sprintf("| **%s** | %d (%s) | %d | %s |\n",
				tradeLabel(ct), ct.InitiatorCount(), label, countActions(ct, domain.ChangeAdded), sectorLabel(ct.Sector)))
		}
		sb.WriteString("\n")
	}

	// Crowded Trades
	if len(signals.CrowdedTrades) > 0 {
		sb.WriteString("### Crowded Trades (3+ Funds Buying)\n\n")
		sb.WriteString("| Stock | Buying | Selling | Net | Sector |\n")
		sb.WriteString("|-------|--------|---------|-----|--------|\n")
		for _, ct := range truncateTrades(signals.CrowdedTrades) {
			sb.WriteString(fmt.Sprintf("| **%s** | %d | %d | %+d | %s |\n",
				tradeLabel(ct), ct.BuyerCount(), ct.SellerCount(), ct.NetSentiment(), sectorLabel(ct.Sector)))
		}
		sb.WriteString("\n")
	}

	// Divergences
	if len(signals.Divergences) > 0 {
		sb.WriteString("### Divergences (One In, One Out)\n\n")
		sb.WriteString("| Stock | Initiated By | Exited By |\n")
		sb.WriteString("|-------|-------------|-----------|\n")
		divs := signals.Divergences
		if len(divs) > maxPositionsPerSection {
			divs = divs[:maxPositionsPerSection]
		}
		for _, div := range divs {
			sb.WriteString(fmt.Sprintf("| **%s** | %s | %s |\n",
				domain.PositionLabel(div.Ticker, div.IssuerName, div.Key.Option),
				actionNameList(div.Buyers), actionNameList(div.Sellers)))
		}
		sb.WriteString("\n")
	}

	// Crowding Risk
	if len(signals.CrowdingRisk) > 0 {
		sb.WriteString("---\n\n")
		sb.WriteString("## Crowding Risk (Float Ownership)\n\n")
		sb.WriteString("Stocks where tracked funds collectively own 5%+ of the public float. ")
		sb.WriteString("High float ownership creates liquidation risk.\n\n")
		sb.WriteString("| Stock | Float % | Agg. Value | Sector |\n")
		sb.WriteString("|-------|---------|-----------|--------|\n")
		for _, ct := range truncateTrades(signals.CrowdingRisk) {
			fp := "—"
			if ct.FloatHeldPct != nil {
				fp = fmt.Sprintf("%.1f%%", *ct.FloatHeldPct)
			}
			sb.WriteString(fmt.Sprintf("| **%s** | %s | %s | %s |\n",
				tradeLabel(ct), fp, findings.FormatThousands(ct.TotalValueThousands), sectorLabel(ct.Sector)))
		}
		sb.WriteString("\n")
	}

	// Sector Flows
	if len(signals.SectorFlows) > 0 {
		sb.WriteString("---\n\n")
		sb.WriteString("## Sector Flows\n\n")
		sb.WriteString("| Sector | Funds Buying | Funds Selling | Net |\n")
		sb.WriteString("|--------|-------------|---------------|-----|\n")
		for _, sector := range sortedFlowSectors(signals.SectorFlows) {
			flow := signals.SectorFlows[sector]
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %+d |\n",
				sector, flow.Buying, flow.Selling, flow.Net))
		}
		sb.WriteString("\n")
	}

	// Dollar-weighted sector flows
	if len(signals.SectorDollarFlows) > 0 {
		sb.WriteString("### Dollar-Weighted Sector Flows\n\n")
		sb.WriteString("| Sector | Buying | Selling | Net Flow |\n")
		sb.WriteString("|--------|--------|---------|----------|\n")
		for _, sector := range sortedDollarSectors(signals.SectorDollarFlows) {
			flow := signals.SectorDollarFlows[sector]
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				sector,
				findings.FormatThousands(flow.Buying),
				findings.FormatThousands(flow.Selling),
				findings.FormatThousands(flow.Net)))
		}
		sb.WriteString("\n")
	}

	// Most Widely Held
	if len(signals.WidelyHeld) > 0 {
		sb.WriteString("---\n\n")
		sb.WriteString("## Most Widely Held\n\n")
		sb.WriteString("| Stock | Funds | Agg. Value | Holders |\n")
		sb.WriteString("|-------|-------|-----------|--------|\n")
		for _, wh := range signals.WidelyHeld {
			holders := strings.Join(wh.HolderNames[:min(len(wh.HolderNames), 5)], ", ")
			if len(wh.HolderNames) > 5 {
				holders += fmt.Sprintf(" +%d", len(wh.HolderNames)-5)
			}
			sb.WriteString(fmt.Sprintf("| **%s** | %d | %s | %s |\n",
				domain.PositionLabel(wh.Ticker, wh.IssuerName, wh.Key.Option),
				wh.HolderCount, findings.FormatThousands(wh.TotalValueThousands), holders))
		}
		sb.WriteString("\n")
	}
}

// renderFundSection writes one fund's quarter summary.
func renderFundSection(sb *strings.Builder, d *domain.FundDiff) {
	sb.WriteString(fmt.Sprintf("### %s (%s)\n\n", d.Fund.Name, d.Fund.Tier))
	sb.WriteString(fmt.Sprintf("- **AUM**: %s (%+.1f%% QoQ)\n",
		findings.FormatThousands(d.CurrentAUM), d.AUMChangePct*100))

	lag := filingLagDays(d)
	staleNote := ""
	if d.IsStale() {
		staleNote = " — STALE"
	}
	sb.WriteString(fmt.Sprintf("- **Filing Lag**: %d days%s\n", lag, staleNote))

	if d.CurrentConcentration != nil && d.PriorConcentration != nil {
		sb.WriteString(fmt.Sprintf("- **Top-10 Concentration**: %.1f%% (was %.1f%%)\n",
			d.CurrentConcentration.Top10Weight*100, d.PriorConcentration.Top10Weight*100))
	}
	sb.WriteString(fmt.Sprintf("- **Positions**: %d new, %d exited, %d added, %d trimmed\n\n",
		len(d.New), len(d.Exited), len(d.Added), len(d.Trimmed)))

	if len(d.New) > 0 {
		sb.WriteString("**New Positions:**\n\n")
		for _, pos := range truncateDiffs(d.New) {
			sb.WriteString(fmt.Sprintf("- %s: %s (%.1f%% of AUM)\n",
				pos.DisplayLabel(), findings.FormatThousands(pos.CurrentValue), pos.CurrentWeight))
		}
		sb.WriteString("\n")
	}

	if len(d.Exited) > 0 {
		sb.WriteString("**Exited Positions:**\n\n")
		for _, pos := range truncateDiffs(d.Exited) {
			sb.WriteString(fmt.Sprintf("- %s: was %s (%.1f%% of AUM)\n",
				pos.DisplayLabel(), findings.FormatThousands(pos.PriorValue), pos.PriorWeight))
		}
		sb.WriteString("\n")
	}

	sigAdds := significantOnly(d.Added, (*domain.PositionDiff).IsSignificantAdd)
	if len(sigAdds) > 0 {
		sb.WriteString("**Significant Adds (50%+ increase):**\n\n")
		for _, pos := range truncateDiffs(sigAdds) {
			sb.WriteString(fmt.Sprintf("- %s: %+.1f%% shares (%s → %s, weight %.1f%% → %.1f%%)\n",
				pos.DisplayLabel(), pos.SharesChangePct*100,
				findings.FormatThousands(pos.PriorValue), findings.FormatThousands(pos.CurrentValue),
				pos.PriorWeight, pos.CurrentWeight))
		}
		sb.WriteString("\n")
	}

	sigTrims := significantOnly(d.Trimmed, (*domain.PositionDiff).IsSignificantTrim)
	if len(sigTrims) > 0 {
		sb.WriteString("**Significant Trims (60%+ decrease):**\n\n")
		for _, pos := range truncateDiffs(sigTrims) {
			sb.WriteString(fmt.Sprintf("- %s: %+.1f%% shares (%s → %s)\n",
				pos.DisplayLabel(), pos.SharesChangePct*100,
				findings.FormatThousands(pos.PriorValue), findings.FormatThousands(pos.CurrentValue)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n\n")
}

// renderDataQuality writes the stale-filing and skipped-fund notes.
func renderDataQuality(sb *strings.Builder, r *Report) {
	stale := make([]*domain.FundDiff, 0)
	for _, d := range r.FundDiffs {
		if d.IsStale() {
			stale = append(stale, d)
		}
	}
	if len(stale) == 0 && len(r.SkippedFunds) == 0 {
		return
	}

	sb.WriteString("## Data Quality Notes\n\n")
	if len(stale) > 0 {
		sb.WriteString(fmt.Sprintf("**Stale Filings (%d+ days after quarter end):**\n\n", domain.StaleFilingLagDays))
		for _, d := range stale {
			sb.WriteString(fmt.Sprintf("- %s: filed %d days late (filed %s)\n",
				d.Fund.Name, filingLagDays(d), d.FilingDate.Format("2006-01-02")))
		}
		sb.WriteString("\n")
	}
	if len(r.SkippedFunds) > 0 {
		sb.WriteString("**Skipped (no prior quarter on record):**\n\n")
		for _, name := range r.SkippedFunds {
			sb.WriteString(fmt.Sprintf("- %s\n", name))
		}
		sb.WriteString("\n")
	}
}

func tradeLabel(ct *domain.CrowdedTrade) string {
	return domain.PositionLabel(ct.Ticker, ct.IssuerName, ct.Key.Option)
}

func sectorLabel(sector *string) string {
	if sector == nil || *sector == "" {
		return "—"
	}
	return *sector
}

func filingLagDays(d *domain.FundDiff) int {
	return int(d.FilingDate.Sub(d.CurrentQuarter).Hours() / 24)
}

func countActions(ct *domain.CrowdedTrade, change domain.ChangeType) int {
	n := 0
	for _, a := range ct.Actions {
		if a.Change == change {
			n++
		}
	}
	return n
}

func actionNameList(actions []domain.FundAction) string {
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.FundName)
		if len(names) == 3 {
			break
		}
	}
	return strings.Join(names, ", ")
}

func truncateTrades(trades []*domain.CrowdedTrade) []*domain.CrowdedTrade {
	if len(trades) > maxPositionsPerSection {
		return trades[:maxPositionsPerSection]
	}
	return trades
}

func truncateDiffs(diffs []*domain.PositionDiff) []*domain.PositionDiff {
	if len(diffs) > maxPositionsPerFund {
		return diffs[:maxPositionsPerFund]
	}
	return diffs
}

func significantOnly(diffs []*domain.PositionDiff, keep func(*domain.PositionDiff) bool) []*domain.PositionDiff {
	out := make([]*domain.PositionDiff, 0, len(diffs))
	for _, d := range diffs {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// sortedFlowSectors orders sectors by absolute net fund count, descending,
// dropping the Unknown bucket.
func sortedFlowSectors(flows map[string]*domain.SectorFlow) []string {
	sectors := make([]string, 0, len(flows))
	for sector := range flows {
		if sector == "Unknown" {
			continue
		}
		sectors = append(sectors, sector)
	}
	sort.SliceStable(sectors, func(i, j int) bool {
		ni := abs(flows[sectors[i]].Net)
		nj := abs(flows[sectors[j]].Net)
		if ni != nj {
			return ni > nj
		}
		return sectors[i] < sectors[j]
	})
	return sectors
}

func sortedDollarSectors(flows map[string]*domain.SectorDollarFlow) []string {
	sectors := make([]string, 0, len(flows))
	for sector := range flows {
		if sector == "Unknown" {
			continue
		}
		sectors = append(sectors, sector)
	}
	sort.SliceStable(sectors, func(i, j int) bool {
		ni := math.Abs(float64(flows[sectors[i]].Net))
		nj := math.Abs(float64(flows[sectors[j]].Net))
		if ni != nj {
			return ni > nj
		}
		return sectors[i] < sectors[j]
	})
	return sectors
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
