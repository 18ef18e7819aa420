package coordinator

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/bladesteam/blades/aggregator"
	pkgerrors "github.com/bladesteam/blades/pkg/errors"
	"github.com/bladesteam/blades/pkg/mqtt"
	"github.com/bladesteam/blades/pkg/mqtt/mocks"
	"github.com/bladesteam/blades/pkg/storage"
	"github.com/bladesteam/blades/round"
)

const baseTopic = "blades"

func newTestService(t *testing.T, algorithm string, pubsub mqtt.PubSub) Service {
	t.Helper()

	agg, err := aggregator.New(algorithm)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewService(storage.NewInMemoryStorage(), agg, pubsub, baseTopic, logger)
}

func TestCreateRound(t *testing.T) {
	cases := []struct {
		name  string
		round round.Round
		err   error
	}{
		{
			name:  "valid round",
			round: round.Round{Quorum: 3},
		},
		{
			name:  "valid round with explicit id",
			round: round.Round{ID: "round-1", Quorum: 1},
		},
		{
			name:  "zero quorum",
			round: round.Round{},
			err:   ErrInvalidQuorum,
		},
		{
			name:  "negative quorum",
			round: round.Round{Quorum: -2},
			err:   ErrInvalidQuorum,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, aggregator.AlgorithmMean, nil)

			r, err := svc.CreateRound(context.Background(), tc.round)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, r.ID)
			assert.NotEmpty(t, r.Name)
			if tc.round.ID != "" {
				assert.Equal(t, tc.round.ID, r.ID)
			}
			assert.Equal(t, round.Collecting, r.State)
			assert.False(t, r.StartedAt.IsZero())

			stored, err := svc.GetRound(context.Background(), r.ID)
			require.NoError(t, err)
			assert.Equal(t, r.ID, stored.ID)
		})
	}
}

func TestCreateRoundResetsDerivedFields(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	r, err := svc.CreateRound(context.Background(), round.Round{
		Quorum:    2,
		Dim:       7,
		State:     round.Completed,
		Aggregate: []float64{1, 2, 3},
		Weights:   []float64{0.5, 0.5},
		Updates:   []round.Update{{ClientID: "stale"}},
		Error:     "stale",
	})
	require.NoError(t, err)

	assert.Equal(t, round.Collecting, r.State)
	assert.Zero(t, r.Dim)
	assert.Nil(t, r.Aggregate)
	assert.Nil(t, r.Weights)
	assert.Empty(t, r.Updates)
	assert.Empty(t, r.Error)
}

func TestCreateRoundDuplicateID(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	_, err := svc.CreateRound(context.Background(), round.Round{ID: "round-1", Quorum: 1})
	require.NoError(t, err)

	_, err = svc.CreateRound(context.Background(), round.Round{ID: "round-1", Quorum: 1})
	assert.ErrorIs(t, err, pkgerrors.ErrEntityExists)
}

func TestGetRoundNotFound(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	_, err := svc.GetRound(context.Background(), "missing")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestListRounds(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	for range 3 {
		_, err := svc.CreateRound(context.Background(), round.Round{Quorum: 1})
		require.NoError(t, err)
	}

	page, err := svc.ListRounds(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	assert.Len(t, page.Rounds, 3)

	page, err = svc.ListRounds(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	assert.Len(t, page.Rounds, 1)
}

func TestSubmitUpdateValidation(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 2})
	require.NoError(t, err)

	cases := []struct {
		name   string
		update round.Update
		err    error
	}{
		{
			name:   "missing client id",
			update: round.Update{RoundID: r.ID, Vector: []float64{1}},
			err:    ErrMissingClientID,
		},
		{
			name:   "empty vector",
			update: round.Update{RoundID: r.ID, ClientID: "c1"},
			err:    aggregator.ErrEmptyUpdate,
		},
		{
			name:   "unknown round",
			update: round.Update{RoundID: "missing", ClientID: "c1", Vector: []float64{1}},
			err:    pkgerrors.ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SubmitUpdate(context.Background(), tc.update)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSubmitUpdateBarrier(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 3})
	require.NoError(t, err)

	vectors := [][]float64{
		{1, 2},
		{3, 4},
		{5, 6},
	}

	for i, v := range vectors[:2] {
		resp, err := svc.SubmitUpdate(context.Background(), round.Update{
			RoundID:  r.ID,
			ClientID: string(rune('a' + i)),
			Vector:   v,
		})
		require.NoError(t, err)
		assert.Equal(t, round.Collecting, resp.State)
		assert.Len(t, resp.Updates, i+1)
	}

	status, err := svc.GetRoundStatus(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Received)
	assert.False(t, status.Completed)

	closed, err := svc.SubmitUpdate(context.Background(), round.Update{
		RoundID:  r.ID,
		ClientID: "c",
		Vector:   vectors[2],
	})
	require.NoError(t, err)
	assert.Equal(t, round.Completed, closed.State)
	assert.Equal(t, []float64{3, 4}, closed.Aggregate)
	assert.False(t, closed.CompletedAt.IsZero())

	status, err = svc.GetRoundStatus(context.Background(), r.ID)
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.Equal(t, 3, status.Received)
}

func TestSubmitUpdateDuplicateClient(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 3})
	require.NoError(t, err)

	u := round.Update{RoundID: r.ID, ClientID: "c1", Vector: []float64{1}}
	_, err = svc.SubmitUpdate(context.Background(), u)
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(context.Background(), u)
	assert.ErrorIs(t, err, ErrDuplicateUpdate)
}

func TestSubmitUpdateDimensionMismatch(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 3})
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(context.Background(), round.Update{RoundID: r.ID, ClientID: "c1", Vector: []float64{1, 2, 3}})
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(context.Background(), round.Update{RoundID: r.ID, ClientID: "c2", Vector: []float64{1, 2}})
	assert.ErrorIs(t, err, aggregator.ErrDimensionMismatch)
}

func TestSubmitUpdateSanitizesVector(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 1})
	require.NoError(t, err)

	hostile := []float64{math.NaN(), math.Inf(1), 2}
	closed, err := svc.SubmitUpdate(context.Background(), round.Update{
		RoundID:  r.ID,
		ClientID: "c1",
		Vector:   hostile,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 2}, closed.Aggregate)

	// The caller's slice must stay untouched.
	assert.True(t, math.IsNaN(hostile[0]))
	assert.True(t, math.IsInf(hostile[1], 1))
}

func TestSubmitUpdateAfterCompletion(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 1})
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(context.Background(), round.Update{RoundID: r.ID, ClientID: "c1", Vector: []float64{1}})
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(context.Background(), round.Update{RoundID: r.ID, ClientID: "c2", Vector: []float64{2}})
	assert.ErrorIs(t, err, ErrRoundClosed)
}

func TestSubmitUpdateRecordsWeights(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmAutoGM, nil)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 3})
	require.NoError(t, err)

	updates := []round.Update{
		{RoundID: r.ID, ClientID: "honest-1", Vector: []float64{0.1, -0.1}},
		{RoundID: r.ID, ClientID: "honest-2", Vector: []float64{-0.1, 0.1}},
		{RoundID: r.ID, ClientID: "byzantine", Vector: []float64{100, 100}},
	}

	var closed round.Round
	for _, u := range updates {
		closed, err = svc.SubmitUpdate(context.Background(), u)
		require.NoError(t, err)
	}

	require.Equal(t, round.Completed, closed.State)
	require.Len(t, closed.Weights, 3)
	assert.Zero(t, closed.Weights[2])
	assert.Positive(t, closed.Weights[0])
	assert.Positive(t, closed.Weights[1])
}

func TestSubmitUpdateAggregationFailure(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmAutoGM, nil)

	// The first round pins the strategy's momentum at dimension 2, so a
	// second round with a different dimension fails at aggregation time.
	r1, err := svc.CreateRound(context.Background(), round.Round{Quorum: 1})
	require.NoError(t, err)
	_, err = svc.SubmitUpdate(context.Background(), round.Update{RoundID: r1.ID, ClientID: "c1", Vector: []float64{1, 2}})
	require.NoError(t, err)

	r2, err := svc.CreateRound(context.Background(), round.Round{Quorum: 1})
	require.NoError(t, err)
	_, err = svc.SubmitUpdate(context.Background(), round.Update{RoundID: r2.ID, ClientID: "c1", Vector: []float64{1, 2, 3}})
	assert.ErrorIs(t, err, aggregator.ErrDimensionMismatch)

	stored, err := svc.GetRound(context.Background(), r2.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Failed, stored.State)
	assert.NotEmpty(t, stored.Error)
}

func TestSubmitUpdateCBOR(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 1})
	require.NoError(t, err)

	data, err := cbor.Marshal(round.Update{RoundID: r.ID, ClientID: "c1", Vector: []float64{1, 2}})
	require.NoError(t, err)

	closed, err := svc.SubmitUpdateCBOR(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, round.Completed, closed.State)
	assert.Equal(t, []float64{1, 2}, closed.Aggregate)

	_, err = svc.SubmitUpdateCBOR(context.Background(), []byte("not cbor"))
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidData)
}

func TestSweepExpired(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	partial, err := svc.CreateRound(context.Background(), round.Round{Quorum: 5, Timeout: 10 * time.Millisecond})
	require.NoError(t, err)
	_, err = svc.SubmitUpdate(context.Background(), round.Update{RoundID: partial.ID, ClientID: "c1", Vector: []float64{2, 4}})
	require.NoError(t, err)

	empty, err := svc.CreateRound(context.Background(), round.Round{Quorum: 5, Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	fresh, err := svc.CreateRound(context.Background(), round.Round{Quorum: 5})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, svc.SweepExpired(context.Background()))

	r, err := svc.GetRound(context.Background(), partial.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Completed, r.State)
	assert.Equal(t, []float64{2, 4}, r.Aggregate)

	r, err = svc.GetRound(context.Background(), empty.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Failed, r.State)
	assert.NotEmpty(t, r.Error)

	r, err = svc.GetRound(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Collecting, r.State)
}

func TestRoundEvents(t *testing.T) {
	pubsub := new(mocks.PubSub)
	pubsub.On("Publish", mock.Anything, baseTopic+"/rounds/started", mock.Anything).Return(nil)
	pubsub.On("Publish", mock.Anything, baseTopic+"/rounds/completed", mock.Anything).Return(nil)

	svc := newTestService(t, aggregator.AlgorithmMean, pubsub)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 1})
	require.NoError(t, err)
	_, err = svc.SubmitUpdate(context.Background(), round.Update{RoundID: r.ID, ClientID: "c1", Vector: []float64{1}})
	require.NoError(t, err)

	pubsub.AssertCalled(t, "Publish", mock.Anything, baseTopic+"/rounds/started", mock.Anything)
	pubsub.AssertCalled(t, "Publish", mock.Anything, baseTopic+"/rounds/completed", mock.Anything)
}

func TestPublishFailureDoesNotFailRound(t *testing.T) {
	pubsub := new(mocks.PubSub)
	pubsub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	svc := newTestService(t, aggregator.AlgorithmMean, pubsub)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 1})
	require.NoError(t, err)

	closed, err := svc.SubmitUpdate(context.Background(), round.Update{RoundID: r.ID, ClientID: "c1", Vector: []float64{1}})
	require.NoError(t, err)
	assert.Equal(t, round.Completed, closed.State)
}

func TestSubscribe(t *testing.T) {
	var handler mqtt.Handler
	pubsub := new(mocks.PubSub)
	pubsub.On("Subscribe", mock.Anything, baseTopic+"/rounds/updates", mock.Anything).
		Run(func(args mock.Arguments) {
			handler = args.Get(2).(mqtt.Handler)
		}).Return(nil)
	pubsub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(t, aggregator.AlgorithmMean, pubsub)
	require.NoError(t, svc.Subscribe(context.Background()))
	require.NotNil(t, handler)

	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: 1})
	require.NoError(t, err)

	msg := map[string]any{
		"round_id":  r.ID,
		"client_id": "c1",
		"vector":    []any{1.0, 2.0},
	}
	require.NoError(t, handler(baseTopic+"/rounds/updates", msg))

	stored, err := svc.GetRound(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Completed, stored.State)
	assert.Equal(t, []float64{1, 2}, stored.Aggregate)

	assert.Error(t, handler(baseTopic+"/rounds/updates", map[string]any{"client_id": "c2"}))
}

func TestSubscribeWithoutPubSub(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)
	assert.NoError(t, svc.Subscribe(context.Background()))
}

func TestSubmitUpdateConcurrent(t *testing.T) {
	svc := newTestService(t, aggregator.AlgorithmMean, nil)

	const quorum = 10
	r, err := svc.CreateRound(context.Background(), round.Round{Quorum: quorum})
	require.NoError(t, err)

	var g errgroup.Group
	for i := range quorum {
		g.Go(func() error {
			_, err := svc.SubmitUpdate(context.Background(), round.Update{
				RoundID:  r.ID,
				ClientID: string(rune('a' + i)),
				Vector:   []float64{1},
			})

			return err
		})
	}
	require.NoError(t, g.Wait())

	stored, err := svc.GetRound(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, round.Completed, stored.State)
	assert.Len(t, stored.Updates, quorum)
	assert.Equal(t, []float64{1}, stored.Aggregate)
}
