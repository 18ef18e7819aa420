package aggregator

import (
	"fmt"
	"math"

	"github.com/bladesteam/blades/pkg/vector"
)

const (
	defaultMaxIter = 100
	defaultTol     = 1e-6
)

// GeoMed computes the weighted geometric median of a set of vectors with
// Weiszfeld's iterative reweighting. The zero value is usable; MaxIter and
// Tol fall back to their defaults when unset.
type GeoMed struct {
	MaxIter int
	Tol     float64
}

func NewGeoMed() *GeoMed {
	return &GeoMed{MaxIter: defaultMaxIter, Tol: defaultTol}
}

// Aggregate computes the uniformly weighted geometric median of the updates.
func (g *GeoMed) Aggregate(updates [][]float64) ([]float64, error) {
	if err := validate(updates); err != nil {
		return nil, err
	}

	weights := make([]float64, len(updates))
	for i := range weights {
		weights[i] = 1 / float64(len(updates))
	}

	return g.SolveWeighted(updates, weights)
}

// SolveWeighted returns the weighted geometric median of the points: the
// vector minimizing the weighted sum of Euclidean distances to them. Weights
// must be nonnegative with a positive sum and need not be normalized. The
// iteration starts from the weighted average and stops after MaxIter rounds
// or once successive estimates move less than Tol; running out of
// iterations is not an error.
func (g *GeoMed) SolveWeighted(points [][]float64, weights []float64) ([]float64, error) {
	if err := validate(points); err != nil {
		return nil, err
	}
	if len(weights) != len(points) {
		return nil, fmt.Errorf("%w: %d weights for %d points", ErrInvalidWeights, len(weights), len(points))
	}

	total := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("%w: negative weight", ErrInvalidWeights)
		}
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}

	maxIter := g.MaxIter
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	tol := g.Tol
	if tol <= 0 {
		tol = defaultTol
	}

	median := vector.Zeros(len(points[0]))
	for i, p := range points {
		vector.AddScaled(median, weights[i]/total, p)
	}

	next := vector.Zeros(len(median))
	for iter := 0; iter < maxIter; iter++ {
		for i := range next {
			next[i] = 0
		}

		denom := 0.0
		for i, p := range points {
			if weights[i] == 0 {
				continue
			}
			d := vector.Distance(p, median)
			if d < tol {
				// The estimate sits on an input point; clamp the
				// reciprocal distance so the iteration stays stable.
				d = tol
			}
			w := weights[i] / d
			vector.AddScaled(next, w, p)
			denom += w
		}
		vector.Scale(1/denom, next)

		moved := vector.Distance(next, median)
		median, next = next, median
		if moved < tol {
			break
		}
	}

	return median, nil
}
