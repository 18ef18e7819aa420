package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bladesteam/blades/pkg/vector"
)

// breakdownScenario is nine honest updates tightly around zero plus one
// outlier of norm 100.
func breakdownScenario() [][]float64 {
	updates := [][]float64{
		{0.001, -0.002},
		{-0.003, 0.004},
		{0.005, 0.001},
		{-0.002, -0.006},
		{0.007, 0.003},
		{-0.008, 0.002},
		{0.004, -0.009},
		{0.01, 0.01},
		{-0.005, 0.005},
	}

	return append(updates, []float64{60, 80})
}

func TestAutoGMHomogeneity(t *testing.T) {
	v := []float64{1.5, -2.25, 0.75}

	for _, n := range []int{1, 3, 8} {
		updates := make([][]float64, n)
		for i := range updates {
			updates[i] = vector.Clone(v)
		}

		got, err := NewAutoGM().Aggregate(updates)
		require.NoError(t, err)
		assert.InDeltaSlice(t, v, got, 1e-9, "n=%d", n)
	}
}

func TestAutoGMPermutationInvariance(t *testing.T) {
	updates := breakdownScenario()

	a, err := NewAutoGM().Aggregate(updates)
	require.NoError(t, err)

	permuted := [][]float64{
		updates[9], updates[4], updates[0], updates[7], updates[2],
		updates[8], updates[1], updates[6], updates[3], updates[5],
	}
	b, err := NewAutoGM().Aggregate(permuted)
	require.NoError(t, err)

	assert.InDeltaSlice(t, a, b, 1e-9)
}

func TestAutoGMRobustness(t *testing.T) {
	updates := breakdownScenario()

	robust, err := NewAutoGM().Aggregate(updates)
	require.NoError(t, err)

	naive, err := NewMean().Aggregate(updates)
	require.NoError(t, err)

	zero := vector.Zeros(2)
	robustDist := vector.Distance(robust, zero)
	naiveDist := vector.Distance(naive, zero)

	assert.Less(t, robustDist*10, naiveDist,
		"robust aggregate must be an order of magnitude closer to zero than the mean")
}

func TestAutoGMWeightSuppression(t *testing.T) {
	updates := breakdownScenario()
	outlier := len(updates) - 1

	agg := NewAutoGM()
	_, err := agg.Aggregate(updates)
	require.NoError(t, err)

	weights := agg.Weights()
	require.Len(t, weights, len(updates))

	assert.Zero(t, weights[outlier], "outlier weight must be suppressed to exactly zero")

	sum := 0.0
	for i, w := range weights {
		if i == outlier {
			continue
		}
		assert.Positive(t, w, "honest participant %d must retain positive weight", i)
		sum += w
	}
	assert.InDelta(t, 1, sum, 1e-9, "surviving weights form a unit simplex")
}

func TestAutoGMConcreteScenario(t *testing.T) {
	updates := [][]float64{
		{0, 0},
		{0.01, 0},
		{0, 0.01},
		{-0.01, 0.01},
		{10, 10},
	}

	got, err := NewAutoGM().Aggregate(updates)
	require.NoError(t, err)

	assert.LessOrEqual(t, vector.Norm(got), 0.05)
}

func TestAutoGMDeterminism(t *testing.T) {
	updates := breakdownScenario()

	a, err := NewAutoGM().Aggregate(updates)
	require.NoError(t, err)
	b, err := NewAutoGM().Aggregate(updates)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestAutoGMMomentum(t *testing.T) {
	agg := NewAutoGM()
	assert.Nil(t, agg.Momentum())

	first, err := agg.Aggregate([][]float64{{1, 2}, {1, 2}})
	require.NoError(t, err)
	assert.Equal(t, first, agg.Momentum())

	second, err := agg.Aggregate([][]float64{{5, 6}, {5, 6}})
	require.NoError(t, err)
	assert.Equal(t, second, agg.Momentum(), "momentum buffer is overwritten every round")
}

func TestAutoGMMomentumDimensionChange(t *testing.T) {
	agg := NewAutoGM()

	_, err := agg.Aggregate([][]float64{{1, 2}})
	require.NoError(t, err)

	_, err = agg.Aggregate([][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAutoGMIterationBudgetExhausted(t *testing.T) {
	// A single reweighting pass must still produce a usable aggregate;
	// running out of iterations is not an error.
	agg := NewAutoGM()
	agg.MaxIter = 1

	got, err := agg.Aggregate(breakdownScenario())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Less(t, vector.Norm(got), 1.0)
}
