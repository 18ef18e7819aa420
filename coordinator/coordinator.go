// Package coordinator implements the round coordination service: it gathers
// one update per participant behind a K-of-N barrier, runs the configured
// aggregation strategy exactly once when the barrier closes, and publishes
// round lifecycle events.
package coordinator

import (
	"context"
	"errors"

	"github.com/bladesteam/blades/round"
)

var (
	ErrRoundClosed     = errors.New("round no longer accepts updates")
	ErrDuplicateUpdate = errors.New("participant already submitted an update for this round")
	ErrMissingClientID = errors.New("update is missing a client id")
	ErrInvalidQuorum   = errors.New("round quorum must be at least one")
)

type Service interface {
	CreateRound(ctx context.Context, r round.Round) (round.Round, error)
	GetRound(ctx context.Context, id string) (round.Round, error)
	GetRoundStatus(ctx context.Context, id string) (round.Status, error)
	ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error)

	// SubmitUpdate records one participant's update. The submission that
	// meets the quorum closes the barrier and aggregates synchronously;
	// the returned round then carries the aggregate.
	SubmitUpdate(ctx context.Context, u round.Update) (round.Round, error)
	SubmitUpdateCBOR(ctx context.Context, data []byte) (round.Round, error)

	// SweepExpired closes the barrier early on rounds whose timeout
	// elapsed: partial quorums aggregate over what arrived, empty rounds
	// fail.
	SweepExpired(ctx context.Context) error

	// Subscribe consumes updates arriving over the broker.
	Subscribe(ctx context.Context) error
}
