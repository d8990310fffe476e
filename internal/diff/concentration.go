package diff

import (
	"sort"

	"thirteenf-lab/internal/domain"
)

// ComputeConcentration computes HHI and top-N weight metrics for one
// portfolio snapshot. Weights are fractions of total value; the effective
// position count is the reciprocal of HHI, the number of equally weighted
// positions that would produce the same concentration.
func ComputeConcentration(holdings []*domain.Holding, totalValueThousands int64) *domain.ConcentrationStats {
	if totalValueThousands == 0 || len(holdings) == 0 {
		return &domain.ConcentrationStats{}
	}

	weights := make([]float64, len(holdings))
	for i, h := range holdings {
		weights[i] = float64(h.ValueThousands) / float64(totalValueThousands)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(weights)))

	var hhi float64
	for _, w := range weights {
		hhi += w * w
	}

	var effective float64
	if hhi > 0 {
		effective = 1.0 / hhi
	}

	return &domain.ConcentrationStats{
		HHI:                hhi,
		Top5Weight:         sumTop(weights, 5),
		Top10Weight:        sumTop(weights, 10),
		Top20Weight:        sumTop(weights, 20),
		EffectivePositions: effective,
		PositionCount:      len(holdings),
	}
}

func sumTop(sortedWeights []float64, n int) float64 {
	if n > len(sortedWeights) {
		n = len(sortedWeights)
	}
	var sum float64
	for _, w := range sortedWeights[:n] {
		sum += w
	}
	return sum
}
