// Package client implements the participant side of a federated round:
// ordered named parameter records, the snapshot/update/gradient state of one
// local training pass, and the adversarial transform hook. Model semantics
// live behind the Trainer interface; this package only sequences state.
package client

import "fmt"

// Param is one named block of model parameters. A nil Grad marks the block
// frozen: frozen blocks are excluded from snapshots, updates and gradient
// round-trips alike. Trainers mutate Value and fill Grad in place; the slice
// lengths are fixed at construction.
type Param struct {
	Name  string
	Value []float64
	Grad  []float64
}

// ParamSet is a fixed, ordered collection of parameter blocks. The
// construction order is the deterministic ordering every flatten and scatter
// uses for the lifetime of the set. The value and gradient paths share one
// skip rule (frozen blocks out), so they can never diverge in which
// parameters they include.
type ParamSet struct {
	params []*Param
	dim    int
}

// NewParamSet validates the blocks and fixes their order. Each gradient slot
// must match its value block in length, names must be unique and non-empty,
// and at least one block must be trainable.
func NewParamSet(params ...*Param) (*ParamSet, error) {
	if len(params) == 0 {
		return nil, ErrNoParams
	}

	seen := make(map[string]struct{}, len(params))
	dim := 0
	for _, p := range params {
		if p.Name == "" {
			return nil, ErrMissingName
		}
		if _, ok := seen[p.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateParam, p.Name)
		}
		seen[p.Name] = struct{}{}

		if p.Grad == nil {
			continue
		}
		if len(p.Grad) != len(p.Value) {
			return nil, fmt.Errorf("%w: %q has %d values and %d gradient slots", ErrGradSlotSize, p.Name, len(p.Value), len(p.Grad))
		}
		dim += len(p.Value)
	}
	if dim == 0 {
		return nil, ErrNoTrainable
	}

	return &ParamSet{params: params, dim: dim}, nil
}

// Dim returns D, the total trainable dimension: every flattened vector this
// set produces or consumes has exactly this length.
func (s *ParamSet) Dim() int {
	return s.dim
}

// Params returns the ordered blocks for trainers to read and mutate.
func (s *ParamSet) Params() []*Param {
	return s.params
}

// Param returns the block with the given name.
func (s *ParamSet) Param(name string) (*Param, bool) {
	for _, p := range s.params {
		if p.Name == name {
			return p, true
		}
	}

	return nil, false
}

// FlattenValues concatenates the trainable value blocks in the fixed order.
func (s *ParamSet) FlattenValues() []float64 {
	out := make([]float64, 0, s.dim)
	for _, p := range s.params {
		if p.Grad == nil {
			continue
		}
		out = append(out, p.Value...)
	}

	return out
}

// ScatterValues writes v back into the trainable value blocks, the exact
// inverse of FlattenValues. The set is untouched on a length mismatch.
func (s *ParamSet) ScatterValues(v []float64) error {
	if len(v) != s.dim {
		return fmt.Errorf("%w: got %d entries, want %d", ErrValueSize, len(v), s.dim)
	}

	off := 0
	for _, p := range s.params {
		if p.Grad == nil {
			continue
		}
		off += copy(p.Value, v[off:off+len(p.Value)])
	}

	return nil
}

// FlattenGrads concatenates the live gradient slots in the fixed order.
func (s *ParamSet) FlattenGrads() []float64 {
	out := make([]float64, 0, s.dim)
	for _, p := range s.params {
		if p.Grad == nil {
			continue
		}
		out = append(out, p.Grad...)
	}

	return out
}

// ScatterGrads writes v back into the live gradient slots, the exact inverse
// of FlattenGrads. The set is untouched on a length mismatch.
func (s *ParamSet) ScatterGrads(v []float64) error {
	if len(v) != s.dim {
		return fmt.Errorf("%w: got %d entries, want %d", ErrGradientSize, len(v), s.dim)
	}

	off := 0
	for _, p := range s.params {
		if p.Grad == nil {
			continue
		}
		off += copy(p.Grad, v[off:off+len(p.Grad)])
	}

	return nil
}
