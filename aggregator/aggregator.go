// Package aggregator implements the strategies that combine one flattened
// update vector per participant into a single global update of the same
// dimension. Mean is the non-robust baseline, GeoMed the geometric median,
// and AutoGM the Byzantine-robust reweighted geometric median.
package aggregator

import "fmt"

const (
	AlgorithmMean   = "mean"
	AlgorithmGeoMed = "geomed"
	AlgorithmAutoGM = "autogm"
)

// Aggregator combines one update vector per participant into a single
// vector. Implementations are strategy objects, deterministic for identical
// inputs, and must reject empty input and ragged dimensions.
type Aggregator interface {
	Aggregate(updates [][]float64) ([]float64, error)
}

// New returns the aggregator registered under the given algorithm name.
func New(algorithm string) (Aggregator, error) {
	switch algorithm {
	case AlgorithmMean:
		return NewMean(), nil
	case AlgorithmGeoMed:
		return NewGeoMed(), nil
	case AlgorithmAutoGM:
		return NewAutoGM(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregator, algorithm)
	}
}

func validate(updates [][]float64) error {
	if len(updates) == 0 {
		return ErrNoUpdates
	}

	dim := len(updates[0])
	if dim == 0 {
		return ErrEmptyUpdate
	}

	for i, u := range updates {
		if len(u) != dim {
			return fmt.Errorf("%w: update %d has %d entries, want %d", ErrDimensionMismatch, i, len(u), dim)
		}
	}

	return nil
}
