package diff

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"thirteenf-lab/internal/domain"
)

func TestClassifyOptionEquityAlwaysIncluded(t *testing.T) {
	h := equity("037833100", "APPLE INC", 100, 1000)

	action, _ := ClassifyOption(h, []*domain.Holding{h}, 1000, domain.ChangeAdded, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionInclude, action)
}

func TestClassifyOptionNewPutWithoutEquity(t *testing.T) {
	put := option("88160R101", "TESLA INC", domain.OptionPut, 100, 50)
	all := []*domain.Holding{
		equity("037833100", "APPLE INC", 1000, 99_950),
		put,
	}

	action, reason := ClassifyOption(put, all, 100_000, domain.ChangeNew, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionInclude, action)
	assert.Equal(t, "new put without equity", reason)
}

func TestClassifyOptionNewPutNextToDebtOnly(t *testing.T) {
	// A principal-amount row in the same issuer is debt, not an equity
	// stake, so the put still reads as a directional bet.
	put := option("88160R101", "TESLA INC", domain.OptionPut, 100, 50)
	bond := &domain.Holding{
		CUSIP:          "88160RAB1",
		IssuerName:     "TESLA INC",
		TitleOfClass:   "NOTE",
		ValueThousands: 30_000,
		SharesOrPrnAmt: 30_000_000,
		ShPrnType:      "PRN",
	}
	all := []*domain.Holding{
		equity("037833100", "APPLE INC", 1000, 69_950),
		bond,
		put,
	}

	action, reason := ClassifyOption(put, all, 100_000, domain.ChangeNew, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionInclude, action)
	assert.Equal(t, "new put without equity", reason)
}

func TestClassifyOptionNewPutOutranksNoiseExclusion(t *testing.T) {
	// The directional-put rule fires before the market-making-noise rule,
	// even in a book where the small-options tally alone would exclude.
	all := make([]*domain.Holding, 0, 24)
	for i := 0; i < 22; i++ {
		all = append(all, option(fmt.Sprintf("%09d", i), "ISSUER", domain.OptionCall, 10, 100))
	}
	put := option("88160R101", "TESLA INC", domain.OptionPut, 100, 500)
	all = append(all, put)

	action, reason := ClassifyOption(put, all, 1_000_000, domain.ChangeNew, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionInclude, action)
	assert.Equal(t, "new put without equity", reason)
}

func TestClassifyOptionHedgeExcluded(t *testing.T) {
	put := option("037833100", "APPLE INC", domain.OptionPut, 100, 900)
	all := []*domain.Holding{
		equity("037833100", "APPLE INC", 10_000, 50_000),
		put,
	}

	action, reason := ClassifyOption(put, all, 100_000, domain.ChangeAdded, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionExclude, action)
	assert.Equal(t, "hedge against equity stake", reason)
}

func TestClassifyOptionHedgeOutranksWeightThreshold(t *testing.T) {
	// 0.9% of AUM would pass the weight gate, but it sits next to a 10x
	// equity stake in the same issuer.
	put := option("037833100", "APPLE INC", domain.OptionPut, 100, 900)
	all := []*domain.Holding{
		equity("037833100", "APPLE INC", 10_000, 50_000),
		put,
	}

	action, _ := ClassifyOption(put, all, 100_000, domain.ChangeAdded, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionExclude, action)
}

func TestClassifyOptionLargeWeightIncluded(t *testing.T) {
	call := option("67066G104", "NVIDIA CORP", domain.OptionCall, 100, 600)
	all := []*domain.Holding{
		equity("037833100", "APPLE INC", 1000, 99_400),
		call,
	}

	action, reason := ClassifyOption(call, all, 100_000, domain.ChangeAdded, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionInclude, action)
	assert.Equal(t, "above weight threshold", reason)
}

func TestClassifyOptionMarketMakingNoiseExcluded(t *testing.T) {
	all := make([]*domain.Holding, 0, 25)
	for i := 0; i < 25; i++ {
		all = append(all, option(fmt.Sprintf("%09d", i), "ISSUER", domain.OptionCall, 10, 100))
	}
	target := all[0]

	action, reason := ClassifyOption(target, all, 1_000_000, domain.ChangeAdded, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionExclude, action)
	assert.Equal(t, "market-making noise", reason)
}

func TestClassifyOptionTopTenIncluded(t *testing.T) {
	all := make([]*domain.Holding, 0, 12)
	for i := 0; i < 11; i++ {
		all = append(all, equity(fmt.Sprintf("%09d", i), "ISSUER", 100, int64(100+i)))
	}
	call := option("67066G104", "NVIDIA CORP", domain.OptionCall, 100, 5000)
	all = append(all, call)

	action, reason := ClassifyOption(call, all, 10_000_000, domain.ChangeAdded, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionInclude, action)
	assert.Equal(t, "top-10 position", reason)
}

func TestClassifyOptionLargeExposureChange(t *testing.T) {
	call := option("67066G104", "NVIDIA CORP", domain.OptionCall, 100, 3000)
	prior := option("67066G104", "NVIDIA CORP", domain.OptionCall, 50, 1500)
	all := make([]*domain.Holding, 0, 12)
	for i := 0; i < 11; i++ {
		all = append(all, equity(fmt.Sprintf("%09d", i), "ISSUER", 100, 500_000))
	}
	all = append(all, call)

	action, reason := ClassifyOption(call, all, 10_000_000, domain.ChangeAdded, prior, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionInclude, action)
	assert.Equal(t, "large exposure change", reason)
}

func TestClassifyOptionNewMeaningfulNotional(t *testing.T) {
	call := option("67066G104", "NVIDIA CORP", domain.OptionCall, 100, 12_000)
	all := make([]*domain.Holding, 0, 12)
	for i := 0; i < 11; i++ {
		all = append(all, equity(fmt.Sprintf("%09d", i), "ISSUER", 100, 500_000))
	}
	all = append(all, call)

	action, reason := ClassifyOption(call, all, 10_000_000, domain.ChangeNew, nil, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionInclude, action)
	assert.Equal(t, "meaningful new notional", reason)
}

func TestClassifyOptionDefaultFlag(t *testing.T) {
	put := option("67066G104", "NVIDIA CORP", domain.OptionPut, 100, 3000)
	prior := option("67066G104", "NVIDIA CORP", domain.OptionPut, 90, 2800)
	all := make([]*domain.Holding, 0, 12)
	for i := 0; i < 11; i++ {
		all = append(all, equity(fmt.Sprintf("%09d", i), "ISSUER", 100, 500_000))
	}
	all = append(all, put)

	action, _ := ClassifyOption(put, all, 10_000_000, domain.ChangeAdded, prior, DefaultOptionsAUMThreshold)

	assert.Equal(t, domain.ActionFlag, action)
}
