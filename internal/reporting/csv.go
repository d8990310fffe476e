package reporting

import (
	"encoding/csv"
	"fmt"
	"strings"

	"thirteenf-lab/internal/domain"
)

// RenderPositionDiffsCSV renders every classified position change across all
// funds as CSV.
func RenderPositionDiffsCSV(fundDiffs []*domain.FundDiff) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{
		"fund", "quarter", "cusip", "option_type", "label", "change",
		"current_shares", "prior_shares", "current_value_thousands", "prior_value_thousands",
		"shares_change_pct", "current_weight_pct", "prior_weight_pct",
		"filter_action", "filter_reason",
	})

	for _, fd := range fundDiffs {
		quarter := fd.CurrentQuarter.Format("2006-01-02")
		for _, pos := range fd.AllChanges() {
			_ = w.Write([]string{
				fd.Fund.Name,
				quarter,
				pos.Key.CUSIP,
				string(pos.Key.Option),
				pos.DisplayLabel(),
				string(pos.Change),
				fmt.Sprintf("%d", pos.CurrentShares),
				fmt.Sprintf("%d", pos.PriorShares),
				fmt.Sprintf("%d", pos.CurrentValue),
				fmt.Sprintf("%d", pos.PriorValue),
				fmt.Sprintf("%.6f", pos.SharesChangePct),
				fmt.Sprintf("%.4f", pos.CurrentWeight),
				fmt.Sprintf("%.4f", pos.PriorWeight),
				string(pos.Action),
				pos.FilterReason,
			})
		}
	}

	w.Flush()
	return sb.String()
}

// RenderCrowdedTradesCSV renders the cross-fund crowded trade rows as CSV.
func RenderCrowdedTradesCSV(signals *domain.CrossFundSignals) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{
		"cusip", "option_type", "label", "sector",
		"buying", "selling", "net_sentiment",
		"total_value_thousands", "total_shares", "float_held_pct",
	})

	if signals != nil {
		for _, ct := range signals.CrowdedTrades {
			floatPct := ""
			if ct.FloatHeldPct != nil {
				floatPct = fmt.Sprintf("%.4f", *ct.FloatHeldPct)
			}
			sector := ""
			if ct.Sector != nil {
				sector = *ct.Sector
			}
			_ = w.Write([]string{
				ct.Key.CUSIP,
				string(ct.Key.Option),
				tradeLabel(ct),
				sector,
				fmt.Sprintf("%d", ct.BuyerCount()),
				fmt.Sprintf("%d", ct.SellerCount()),
				fmt.Sprintf("%d", ct.NetSentiment()),
				fmt.Sprintf("%d", ct.TotalValueThousands),
				fmt.Sprintf("%d", ct.TotalShares),
				floatPct,
			})
		}
	}

	w.Flush()
	return sb.String()
}
