package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/bladesteam/blades/aggregator"
	pkgerrors "github.com/bladesteam/blades/pkg/errors"
	"github.com/bladesteam/blades/pkg/mqtt"
	"github.com/bladesteam/blades/pkg/storage"
	"github.com/bladesteam/blades/pkg/vector"
	"github.com/bladesteam/blades/round"
)

const (
	defOffset = 0
	defLimit  = 100

	startedTopicSuffix   = "/rounds/started"
	completedTopicSuffix = "/rounds/completed"
	updatesTopicSuffix   = "/rounds/updates"
)

var namegen = namegenerator.NewGenerator()

type service struct {
	roundsDB   storage.Storage
	aggregator aggregator.Aggregator
	pubsub     mqtt.PubSub
	baseTopic  string
	logger     *slog.Logger

	// mu serializes round mutations so the barrier closes exactly once
	// and stateful strategies never aggregate two rounds concurrently.
	// Reads go straight to storage and stay lock-free here.
	mu sync.Mutex
}

func NewService(roundsDB storage.Storage, agg aggregator.Aggregator, pubsub mqtt.PubSub, baseTopic string, logger *slog.Logger) Service {
	return &service{
		roundsDB:   roundsDB,
		aggregator: agg,
		pubsub:     pubsub,
		baseTopic:  baseTopic,
		logger:     logger,
	}
}

func (svc *service) CreateRound(ctx context.Context, r round.Round) (round.Round, error) {
	if r.Quorum < 1 {
		return round.Round{}, ErrInvalidQuorum
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Name == "" {
		r.Name = namegen.Generate()
	}

	now := time.Now()
	r.State = round.Collecting
	r.Updates = nil
	r.Aggregate = nil
	r.Weights = nil
	r.Dim = 0
	r.Error = ""
	r.StartedAt = now
	r.UpdatedAt = now
	r.CompletedAt = time.Time{}

	if err := svc.roundsDB.Create(ctx, r.ID, r); err != nil {
		return round.Round{}, err
	}

	svc.publish(ctx, startedTopicSuffix, map[string]any{
		"round_id":   r.ID,
		"quorum":     r.Quorum,
		"started_at": r.StartedAt,
	})
	svc.logger.InfoContext(ctx, "Round created",
		slog.String("round_id", r.ID),
		slog.Int("quorum", r.Quorum))

	return r, nil
}

func (svc *service) GetRound(ctx context.Context, id string) (round.Round, error) {
	data, err := svc.roundsDB.Get(ctx, id)
	if err != nil {
		return round.Round{}, err
	}
	r, ok := data.(round.Round)
	if !ok {
		return round.Round{}, pkgerrors.ErrInvalidData
	}

	return r, nil
}

func (svc *service) GetRoundStatus(ctx context.Context, id string) (round.Status, error) {
	r, err := svc.GetRound(ctx, id)
	if err != nil {
		return round.Status{}, err
	}

	return round.Status{
		RoundID:   r.ID,
		State:     r.State.String(),
		Received:  len(r.Updates),
		Quorum:    r.Quorum,
		Completed: r.State == round.Completed,
	}, nil
}

func (svc *service) ListRounds(ctx context.Context, offset, limit uint64) (round.Page, error) {
	if limit == 0 {
		limit = defLimit
	}
	data, total, err := svc.roundsDB.List(ctx, offset, limit)
	if err != nil {
		return round.Page{}, err
	}

	rounds := make([]round.Round, 0, len(data))
	for _, item := range data {
		r, ok := item.(round.Round)
		if !ok {
			return round.Page{}, pkgerrors.ErrInvalidData
		}
		rounds = append(rounds, r)
	}

	return round.Page{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Rounds: rounds,
	}, nil
}

func (svc *service) SubmitUpdate(ctx context.Context, u round.Update) (round.Round, error) {
	if u.ClientID == "" {
		return round.Round{}, ErrMissingClientID
	}
	if len(u.Vector) == 0 {
		return round.Round{}, aggregator.ErrEmptyUpdate
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	r, err := svc.GetRound(ctx, u.RoundID)
	if err != nil {
		return round.Round{}, err
	}
	if !r.Open() {
		return round.Round{}, fmt.Errorf("%w: round %s is %s", ErrRoundClosed, r.ID, r.State)
	}
	if r.HasUpdate(u.ClientID) {
		return round.Round{}, fmt.Errorf("%w: %s", ErrDuplicateUpdate, u.ClientID)
	}
	if r.Dim == 0 {
		r.Dim = len(u.Vector)
	} else if len(u.Vector) != r.Dim {
		return round.Round{}, fmt.Errorf("%w: got %d entries, round dimension is %d", aggregator.ErrDimensionMismatch, len(u.Vector), r.Dim)
	}

	u.Vector = vector.Sanitize(vector.Clone(u.Vector))
	u.ReceivedAt = time.Now()
	r.Updates = append(r.Updates, u)
	r.UpdatedAt = u.ReceivedAt

	svc.logger.InfoContext(ctx, "Update received",
		slog.String("round_id", r.ID),
		slog.String("client_id", u.ClientID),
		slog.Int("received", len(r.Updates)),
		slog.Int("quorum", r.Quorum))

	if len(r.Updates) < r.Quorum {
		if err := svc.roundsDB.Update(ctx, r.ID, r); err != nil {
			return round.Round{}, err
		}

		return r, nil
	}

	return svc.closeRound(ctx, r)
}

func (svc *service) SubmitUpdateCBOR(ctx context.Context, data []byte) (round.Round, error) {
	var u round.Update
	if err := cbor.Unmarshal(data, &u); err != nil {
		return round.Round{}, fmt.Errorf("%w: failed to decode CBOR update: %v", pkgerrors.ErrInvalidData, err)
	}

	return svc.SubmitUpdate(ctx, u)
}

func (svc *service) SweepExpired(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	now := time.Now()
	for offset := uint64(defOffset); ; offset += defLimit {
		data, total, err := svc.roundsDB.List(ctx, offset, defLimit)
		if err != nil {
			return err
		}

		for _, item := range data {
			r, ok := item.(round.Round)
			if !ok {
				return pkgerrors.ErrInvalidData
			}
			if !r.Open() || !r.Expired(now) {
				continue
			}

			if len(r.Updates) == 0 {
				r.State = round.Failed
				r.Error = "round timed out with no updates"
				r.UpdatedAt = now
				if err := svc.roundsDB.Update(ctx, r.ID, r); err != nil {
					return err
				}
				svc.logger.WarnContext(ctx, "Round expired empty", slog.String("round_id", r.ID))

				continue
			}

			svc.logger.WarnContext(ctx, "Round timeout exceeded, aggregating partial quorum",
				slog.String("round_id", r.ID),
				slog.Int("received", len(r.Updates)),
				slog.Int("quorum", r.Quorum))
			if _, err := svc.closeRound(ctx, r); err != nil {
				svc.logger.ErrorContext(ctx, "Partial aggregation failed",
					slog.String("round_id", r.ID),
					slog.Any("error", err))
			}
		}

		if len(data) == 0 || offset+uint64(len(data)) >= total {
			return nil
		}
	}
}

func (svc *service) Subscribe(ctx context.Context) error {
	if svc.pubsub == nil {
		svc.logger.InfoContext(ctx, "Messaging disabled, skipping update subscription")

		return nil
	}

	topic := svc.baseTopic + updatesTopicSuffix
	if err := svc.pubsub.Subscribe(ctx, topic, svc.handleUpdate(ctx)); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	svc.logger.InfoContext(ctx, "Subscribed to update topic", slog.String("topic", topic))

	return nil
}

func (svc *service) handleUpdate(ctx context.Context) mqtt.Handler {
	return func(topic string, msg map[string]any) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode update message: %w", err)
		}
		var u round.Update
		if err := json.Unmarshal(data, &u); err != nil {
			return fmt.Errorf("failed to decode update message: %w", err)
		}
		if _, err := svc.SubmitUpdate(ctx, u); err != nil {
			return fmt.Errorf("failed to apply update from %s: %w", topic, err)
		}

		return nil
	}
}

// closeRound runs the barrier: one aggregation over everything the round
// gathered, then the completion event. Callers hold svc.mu.
func (svc *service) closeRound(ctx context.Context, r round.Round) (round.Round, error) {
	r.State = round.Aggregating
	r.UpdatedAt = time.Now()
	if err := svc.roundsDB.Update(ctx, r.ID, r); err != nil {
		return round.Round{}, err
	}

	agg, err := svc.aggregator.Aggregate(r.Vectors())
	if err != nil {
		r.State = round.Failed
		r.Error = err.Error()
		r.UpdatedAt = time.Now()
		if uerr := svc.roundsDB.Update(ctx, r.ID, r); uerr != nil {
			return round.Round{}, uerr
		}
		svc.logger.ErrorContext(ctx, "Aggregation failed",
			slog.String("round_id", r.ID),
			slog.Any("error", err))

		return round.Round{}, err
	}

	r.Aggregate = agg
	if w, ok := svc.aggregator.(interface{ Weights() []float64 }); ok {
		r.Weights = w.Weights()
	}
	now := time.Now()
	r.State = round.Completed
	r.CompletedAt = now
	r.UpdatedAt = now
	if err := svc.roundsDB.Update(ctx, r.ID, r); err != nil {
		return round.Round{}, err
	}

	svc.publish(ctx, completedTopicSuffix, map[string]any{
		"round_id":     r.ID,
		"num_updates":  len(r.Updates),
		"dim":          r.Dim,
		"completed_at": r.CompletedAt,
	})
	svc.logger.InfoContext(ctx, "Round completed",
		slog.String("round_id", r.ID),
		slog.Int("num_updates", len(r.Updates)))

	return r, nil
}

func (svc *service) publish(ctx context.Context, suffix string, payload map[string]any) {
	if svc.pubsub == nil {
		return
	}

	topic := svc.baseTopic + suffix
	if err := svc.pubsub.Publish(ctx, topic, payload); err != nil {
		svc.logger.WarnContext(ctx, "Failed to publish round event",
			slog.String("topic", topic),
			slog.Any("error", err))
	}
}
