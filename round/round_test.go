package round

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{Collecting, "Collecting"},
		{Aggregating, "Aggregating"},
		{Completed, "Completed"},
		{Failed, "Failed"},
		{State(42), "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.state.String())
	}
}

func TestHasUpdate(t *testing.T) {
	r := Round{Updates: []Update{
		{ClientID: "alice"},
		{ClientID: "bob"},
	}}

	assert.True(t, r.HasUpdate("alice"))
	assert.False(t, r.HasUpdate("carol"))
}

func TestVectorsPreserveSubmissionOrder(t *testing.T) {
	r := Round{Updates: []Update{
		{ClientID: "a", Vector: []float64{1}},
		{ClientID: "b", Vector: []float64{2}},
		{ClientID: "c", Vector: []float64{3}},
	}}

	assert.Equal(t, [][]float64{{1}, {2}, {3}}, r.Vectors())
}

func TestExpired(t *testing.T) {
	now := time.Now()

	r := Round{StartedAt: now.Add(-2 * time.Minute), Timeout: time.Minute}
	assert.True(t, r.Expired(now))

	r.Timeout = 0
	assert.False(t, r.Expired(now), "rounds without a timeout never expire")

	r = Round{StartedAt: now, Timeout: time.Minute}
	assert.False(t, r.Expired(now))
}
