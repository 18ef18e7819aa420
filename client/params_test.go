package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSet(t *testing.T) *ParamSet {
	t.Helper()

	set, err := NewParamSet(
		&Param{Name: "layer1.weight", Value: []float64{1, 2, 3}, Grad: make([]float64, 3)},
		&Param{Name: "layer1.bias", Value: []float64{4}, Grad: make([]float64, 1)},
		&Param{Name: "embedding", Value: []float64{9, 9}}, // frozen
		&Param{Name: "layer2.weight", Value: []float64{5, 6}, Grad: make([]float64, 2)},
	)
	require.NoError(t, err)

	return set
}

func TestNewParamSet(t *testing.T) {
	tests := []struct {
		name      string
		params    []*Param
		expectErr error
	}{
		{
			name:      "empty set",
			params:    nil,
			expectErr: ErrNoParams,
		},
		{
			name:      "missing name",
			params:    []*Param{{Value: []float64{1}, Grad: make([]float64, 1)}},
			expectErr: ErrMissingName,
		},
		{
			name: "duplicate name",
			params: []*Param{
				{Name: "w", Value: []float64{1}, Grad: make([]float64, 1)},
				{Name: "w", Value: []float64{2}, Grad: make([]float64, 1)},
			},
			expectErr: ErrDuplicateParam,
		},
		{
			name:      "gradient slot size mismatch",
			params:    []*Param{{Name: "w", Value: []float64{1, 2}, Grad: make([]float64, 3)}},
			expectErr: ErrGradSlotSize,
		},
		{
			name:      "all frozen",
			params:    []*Param{{Name: "w", Value: []float64{1, 2}}},
			expectErr: ErrNoTrainable,
		},
		{
			name: "valid mixed set",
			params: []*Param{
				{Name: "w", Value: []float64{1, 2}, Grad: make([]float64, 2)},
				{Name: "frozen", Value: []float64{3}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewParamSet(tt.params...)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, set.Dim())
		})
	}
}

func TestParamSetDim(t *testing.T) {
	set := newTestSet(t)

	// Frozen blocks do not count toward D.
	assert.Equal(t, 6, set.Dim())
}

func TestFlattenValuesOrdering(t *testing.T) {
	set := newTestSet(t)

	want := []float64{1, 2, 3, 4, 5, 6}
	assert.Equal(t, want, set.FlattenValues())
	// The ordering is fixed: repeated flattens are identical.
	assert.Equal(t, want, set.FlattenValues())
}

func TestScatterValuesRoundTrip(t *testing.T) {
	set := newTestSet(t)

	require.NoError(t, set.ScatterValues([]float64{10, 20, 30, 40, 50, 60}))
	assert.Equal(t, []float64{10, 20, 30, 40, 50, 60}, set.FlattenValues())

	// The frozen block is untouched by scatter.
	frozen, ok := set.Param("embedding")
	require.True(t, ok)
	assert.Equal(t, []float64{9, 9}, frozen.Value)
}

func TestScatterValuesSizeMismatch(t *testing.T) {
	set := newTestSet(t)
	before := set.FlattenValues()

	err := set.ScatterValues([]float64{1, 2})
	assert.ErrorIs(t, err, ErrValueSize)
	assert.Equal(t, before, set.FlattenValues())
}

func TestGradientRoundTrip(t *testing.T) {
	set := newTestSet(t)

	grad := []float64{0.1, -0.2, 0.3, -0.4, 0.5, -0.6}
	require.NoError(t, set.ScatterGrads(grad))
	assert.Equal(t, grad, set.FlattenGrads())

	// Per-block placement follows the fixed ordering.
	w1, _ := set.Param("layer1.weight")
	assert.Equal(t, []float64{0.1, -0.2, 0.3}, w1.Grad)
	b1, _ := set.Param("layer1.bias")
	assert.Equal(t, []float64{-0.4}, b1.Grad)
	w2, _ := set.Param("layer2.weight")
	assert.Equal(t, []float64{0.5, -0.6}, w2.Grad)

	// The frozen block never grows a gradient.
	frozen, _ := set.Param("embedding")
	assert.Nil(t, frozen.Grad)
}

func TestScatterGradsSizeMismatch(t *testing.T) {
	set := newTestSet(t)
	require.NoError(t, set.ScatterGrads([]float64{1, 1, 1, 1, 1, 1}))

	err := set.ScatterGrads([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrGradientSize)
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1}, set.FlattenGrads())
}

func TestParamLookup(t *testing.T) {
	set := newTestSet(t)

	p, ok := set.Param("layer1.bias")
	require.True(t, ok)
	assert.Equal(t, []float64{4}, p.Value)

	_, ok = set.Param("unknown")
	assert.False(t, ok)
}
