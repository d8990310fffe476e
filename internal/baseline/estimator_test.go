package baseline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirteenf-lab/internal/domain"
)

type stubReader struct {
	history map[string][]*domain.QuarterActivity
	err     error
}

func (s *stubReader) GetCrossQuarterActivity(_ context.Context, fundName string, _ time.Time) ([]*domain.QuarterActivity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.history[fundName], nil
}

func activity(newCount, exitedCount int, hhiChange, maxWeight float64) *domain.QuarterActivity {
	return &domain.QuarterActivity{
		NewCount:        newCount,
		ExitedCount:     exitedCount,
		HHIChange:       hhiChange,
		MaxNewWeightPct: maxWeight,
	}
}

func TestComputeFundBaselines(t *testing.T) {
	reader := &stubReader{history: map[string][]*domain.QuarterActivity{
		"Fund A": {
			activity(4, 2, 0.010, 1.5),
			activity(6, 2, -0.020, 2.5),
			activity(2, 2, 0.030, 3.5),
		},
	}}

	baselines, err := ComputeFundBaselines(context.Background(), reader, []string{"Fund A"}, time.Now(), 3)
	require.NoError(t, err)

	b := baselines["Fund A"]
	require.NotNil(t, b)
	assert.Equal(t, 3, b.Quarters)
	// Activity counts: 6, 8, 4 — mean 6, sample std 2.
	assert.InDelta(t, 6.0, b.MeanActivity, 1e-9)
	assert.InDelta(t, 2.0, b.StdActivity, 1e-9)
	// Absolute HHI changes: 0.01, 0.02, 0.03.
	assert.InDelta(t, 0.02, b.MeanAbsHHIChange, 1e-9)
	assert.InDelta(t, 0.01, b.StdAbsHHIChange, 1e-9)
	assert.InDelta(t, 2.5, b.MeanMaxNewWeight, 1e-9)
}

func TestComputeFundBaselinesInsufficientHistoryOmitted(t *testing.T) {
	reader := &stubReader{history: map[string][]*domain.QuarterActivity{
		"New Fund": {
			activity(3, 1, 0.01, 1.0),
			activity(2, 1, 0.02, 1.0),
		},
		"Old Fund": {
			activity(3, 1, 0.01, 1.0),
			activity(2, 1, 0.02, 1.0),
			activity(4, 0, 0.01, 2.0),
		},
	}}

	baselines, err := ComputeFundBaselines(context.Background(), reader, []string{"New Fund", "Old Fund"}, time.Now(), 3)
	require.NoError(t, err)

	assert.NotContains(t, baselines, "New Fund")
	assert.Contains(t, baselines, "Old Fund")
}

func TestComputeFundBaselinesUniformHistoryZeroStd(t *testing.T) {
	reader := &stubReader{history: map[string][]*domain.QuarterActivity{
		"Steady Fund": {
			activity(3, 2, 0.01, 1.0),
			activity(3, 2, 0.01, 1.0),
			activity(3, 2, 0.01, 1.0),
		},
	}}

	baselines, err := ComputeFundBaselines(context.Background(), reader, []string{"Steady Fund"}, time.Now(), 3)
	require.NoError(t, err)

	b := baselines["Steady Fund"]
	require.NotNil(t, b)
	assert.Equal(t, 0.0, b.StdActivity)
	assert.Equal(t, 0.0, b.ActivityZScore(50))
}

func TestComputeFundBaselinesReaderError(t *testing.T) {
	reader := &stubReader{err: errors.New("connection refused")}

	_, err := ComputeFundBaselines(context.Background(), reader, []string{"Fund A"}, time.Now(), 3)

	assert.ErrorContains(t, err, "read activity history")
}
