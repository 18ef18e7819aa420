package runtimes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bladesteam/blades/client"
)

func newGuestParams(t *testing.T) *client.ParamSet {
	t.Helper()

	set, err := client.NewParamSet(
		&client.Param{Name: "w", Value: []float64{1, 2}, Grad: make([]float64, 2)},
		&client.Param{Name: "frozen", Value: []float64{7}},
	)
	require.NoError(t, err)

	return set
}

func TestApplyResponse(t *testing.T) {
	set := newGuestParams(t)

	err := applyResponse(set, stepResponse{
		Params: map[string][]float64{"w": {1.5, 2.5}},
		Grads:  map[string][]float64{"w": {0.5, 0.5}},
	})
	require.NoError(t, err)

	p, _ := set.Param("w")
	assert.Equal(t, []float64{1.5, 2.5}, p.Value)
	assert.Equal(t, []float64{0.5, 0.5}, p.Grad)
}

func TestApplyResponseRejectsUnknownParam(t *testing.T) {
	set := newGuestParams(t)

	err := applyResponse(set, stepResponse{Params: map[string][]float64{"nope": {1}}})
	assert.Error(t, err)
}

func TestApplyResponseRejectsFrozenParam(t *testing.T) {
	set := newGuestParams(t)

	err := applyResponse(set, stepResponse{Params: map[string][]float64{"frozen": {1}}})
	assert.Error(t, err)

	p, _ := set.Param("frozen")
	assert.Equal(t, []float64{7}, p.Value)
}

func TestApplyResponseRejectsSizeMismatch(t *testing.T) {
	set := newGuestParams(t)

	err := applyResponse(set, stepResponse{Params: map[string][]float64{"w": {1}}})
	assert.Error(t, err)

	err = applyResponse(set, stepResponse{Grads: map[string][]float64{"w": {1, 2, 3}}})
	assert.Error(t, err)
}
