package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bladesteam/blades/pkg/vector"
)

// UpdateTransform is the adversarial hook: a Byzantine participant applies
// an arbitrary transform to its update vector before exposing it. Concrete
// attack strategies live with their experiments, not here.
type UpdateTransform func(update []float64) []float64

// Config assembles a participant.
type Config struct {
	// ID identifies the participant; one is generated when empty.
	ID string
	// Params are the ordered parameter blocks shared with the trainer.
	Params []*Param
	// Trainer runs one local optimization step per batch.
	Trainer Trainer
	// Momentum in [0, 1) selects the gradient buffer: 0 plain, otherwise
	// momentum-smoothed.
	Momentum float64
	// Transform, when set, marks the participant Byzantine.
	Transform UpdateTransform
}

// Client owns one participant's parameters and round state.
type Client struct {
	id        string
	set       *ParamSet
	store     *UpdateStore
	trainer   Trainer
	transform UpdateTransform
}

func New(cfg Config) (*Client, error) {
	if cfg.Trainer == nil {
		return nil, ErrNoTrainer
	}

	set, err := NewParamSet(cfg.Params...)
	if err != nil {
		return nil, err
	}
	store, err := NewUpdateStore(set, cfg.Momentum)
	if err != nil {
		return nil, err
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	return &Client{
		id:        id,
		set:       set,
		store:     store,
		trainer:   cfg.Trainer,
		transform: cfg.Transform,
	}, nil
}

func (c *Client) ID() string {
	return c.id
}

// Byzantine reports whether an adversarial transform is configured.
func (c *Client) Byzantine() bool {
	return c.transform != nil
}

// Params returns the participant's parameter set.
func (c *Client) Params() *ParamSet {
	return c.set
}

// Snapshot records the pre-training parameter state, starting a new round.
func (c *Client) Snapshot() {
	c.store.Snapshot()
}

// Step runs one local training step on a batch and folds the resulting
// gradients into the gradient buffer.
func (c *Client) Step(ctx context.Context, batch Batch) error {
	if err := c.trainer.Step(ctx, c.set, batch); err != nil {
		return fmt.Errorf("trainer step: %w", err)
	}
	c.store.RecordGradient()

	return nil
}

// Finalize derives the round's update from the snapshot.
func (c *Client) Finalize() error {
	return c.store.FinalizeUpdate()
}

// LocalTrain runs a complete local pass: snapshot, one step per batch, then
// the update derivation.
func (c *Client) LocalTrain(ctx context.Context, batches []Batch) error {
	c.Snapshot()
	for _, b := range batches {
		if err := c.Step(ctx, b); err != nil {
			return err
		}
	}

	return c.Finalize()
}

// Update exposes the participant's update vector: the stored update, put
// through the adversarial transform when one is configured, and sanitized so
// the aggregator can never observe a non-finite entry, hostile transforms
// included.
func (c *Client) Update() []float64 {
	u := c.store.Update()
	if c.transform != nil {
		u = c.transform(u)
	}

	return vector.Sanitize(u)
}

// Gradient returns the flattened gradient buffer.
func (c *Client) Gradient() []float64 {
	return c.store.Gradient()
}

// SetGradient scatters a flat gradient into the live gradient slots.
func (c *Client) SetGradient(v []float64) error {
	return c.store.SetGradient(v)
}
