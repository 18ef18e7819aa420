package client

import (
	"fmt"

	"github.com/bladesteam/blades/pkg/vector"
)

// UpdateStore tracks one participant's state across a local training pass:
// the pre-training snapshot, the derived update and a per-block gradient
// scratch buffer, plain or momentum-smoothed depending on construction.
type UpdateStore struct {
	set      *ParamSet
	momentum float64

	snapshot []float64
	update   []float64
	scratch  [][]float64
	seeded   bool
}

// NewUpdateStore builds the store for a parameter set. momentum selects the
// gradient buffer behavior: 0 overwrites the buffer on every record, a value
// in (0, 1) blends with ratio momentum after the first observation seeds the
// buffer.
func NewUpdateStore(set *ParamSet, momentum float64) (*UpdateStore, error) {
	if set == nil {
		return nil, ErrNoParams
	}
	if momentum < 0 || momentum >= 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidMomentum, momentum)
	}

	scratch := make([][]float64, len(set.params))
	for i, p := range set.params {
		if p.Grad != nil {
			scratch[i] = make([]float64, len(p.Value))
		}
	}

	return &UpdateStore{set: set, momentum: momentum, scratch: scratch}, nil
}

// Snapshot records the current trainable values as the pre-training
// reference. Calling it again begins a new round and discards the previous
// update.
func (s *UpdateStore) Snapshot() {
	s.snapshot = s.set.FlattenValues()
	s.update = nil
}

// RecordGradient folds the live gradient slots into the scratch buffer:
// overwritten when momentum is disabled, seeded by the first observation and
// blended as buf*m + grad*(1-m) afterwards when it is not.
func (s *UpdateStore) RecordGradient() {
	blend := s.seeded && s.momentum > 0
	for i, p := range s.set.params {
		if p.Grad == nil {
			continue
		}
		if blend {
			for j, g := range p.Grad {
				s.scratch[i][j] = s.scratch[i][j]*s.momentum + g*(1-s.momentum)
			}
		} else {
			copy(s.scratch[i], p.Grad)
		}
	}
	s.seeded = true
}

// FinalizeUpdate derives the round's update as the difference between the
// current trainable values and the snapshot.
func (s *UpdateStore) FinalizeUpdate() error {
	if s.snapshot == nil {
		return ErrNoSnapshot
	}

	post := s.set.FlattenValues()
	vector.Sub(post, s.snapshot)
	s.update = post

	return nil
}

// Update returns a copy of the derived update with every non-finite entry
// replaced by exactly zero. It never fails and always has length D; before
// FinalizeUpdate it is the zero vector, a no-op update.
func (s *UpdateStore) Update() []float64 {
	if s.update == nil {
		return vector.Zeros(s.set.Dim())
	}

	return vector.Sanitize(vector.Clone(s.update))
}

// Gradient returns the flattened gradient scratch buffer, zeros before the
// first RecordGradient.
func (s *UpdateStore) Gradient() []float64 {
	out := make([]float64, 0, s.set.Dim())
	for i, p := range s.set.params {
		if p.Grad == nil {
			continue
		}
		out = append(out, s.scratch[i]...)
	}

	return out
}

// SetGradient scatters v into the live gradient slots in the same fixed
// order Gradient flattens the buffer, skipping frozen blocks identically.
// Nothing is written on a length mismatch.
func (s *UpdateStore) SetGradient(v []float64) error {
	return s.set.ScatterGrads(v)
}
