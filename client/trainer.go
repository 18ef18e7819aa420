package client

import "context"

// Batch is one mini-batch of local training data. The update lifecycle
// treats it as opaque and already valid; trainers assert the concrete type
// they expect.
type Batch any

// Trainer is the external local-training capability: one Step computes
// fresh gradients into the Grad slots and applies the parameter change to
// the Value slots. How gradients are produced is entirely the trainer's
// concern.
type Trainer interface {
	Step(ctx context.Context, params *ParamSet, batch Batch) error
}
