package aggregator

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bladesteam/blades/pkg/vector"
)

const defaultFtol = 1e-6

// AutoGM is the Byzantine-robust aggregation strategy: a geometric median
// whose participant weights are re-optimized every iteration so updates far
// from the current median are down-weighted, those past an automatically
// chosen distance threshold to exactly zero.
//
// Each iteration minimizes
//
//	sum_i alpha_i * dist(median, update_i) + (lambda/2) * ||alpha||^2
//
// over alpha >= 0 with lambda fixed to the participant count. The closed
// form is a capped projection alpha_i = max(eta - dist_i, 0)/lambda, the
// threshold eta found by a prefix scan over the distances sorted ascending.
//
// AutoGM keeps state between rounds (momentum, last weights) and is not
// safe for concurrent use; callers aggregate one round at a time.
type AutoGM struct {
	MaxIter int
	Eps     float64
	Ftol    float64

	momentum []float64
	weights  []float64
}

func NewAutoGM() *AutoGM {
	return &AutoGM{MaxIter: defaultMaxIter, Eps: defaultTol, Ftol: defaultFtol}
}

// Aggregate runs the reweighting loop on one update per participant and
// returns the robust aggregate, which is also stored as the momentum buffer
// for the next round. The loop stops when the relative objective change
// drops below Ftol; exhausting MaxIter first is not an error, the last
// computed median is used.
func (a *AutoGM) Aggregate(updates [][]float64) ([]float64, error) {
	if err := validate(updates); err != nil {
		return nil, err
	}

	n := len(updates)
	dim := len(updates[0])

	if a.momentum == nil {
		a.momentum = vector.Zeros(dim)
	} else if len(a.momentum) != dim {
		return nil, fmt.Errorf("%w: updates have dimension %d, momentum buffer has %d", ErrDimensionMismatch, dim, len(a.momentum))
	}

	maxIter := a.MaxIter
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	ftol := a.Ftol
	if ftol <= 0 {
		ftol = defaultFtol
	}
	eps := a.Eps
	if eps <= 0 {
		eps = defaultTol
	}
	solver := &GeoMed{MaxIter: maxIter, Tol: eps}

	lambda := float64(n)

	alpha := make([]float64, n)
	for i := range alpha {
		alpha[i] = 1 / lambda
	}

	median, err := solver.SolveWeighted(updates, alpha)
	if err != nil {
		return nil, err
	}
	obj := objective(median, updates, alpha, lambda)

	dist := make([]float64, n)
	for iter := 0; iter < maxIter; iter++ {
		prev := obj

		distances(updates, median, dist)

		eta := optimalThreshold(dist, lambda)
		for i, d := range dist {
			alpha[i] = math.Max(eta-d, 0) / lambda
		}

		median, err = solver.SolveWeighted(updates, alpha)
		if err != nil {
			return nil, err
		}
		obj = objective(median, updates, alpha, lambda)

		if math.Abs(prev-obj) < ftol*obj {
			break
		}
	}

	a.weights = alpha
	copy(a.momentum, median)

	return median, nil
}

// Weights returns a copy of the participant weights from the most recent
// Aggregate call, index-aligned with its updates. Suppressed participants
// carry exactly zero.
func (a *AutoGM) Weights() []float64 {
	return vector.Clone(a.weights)
}

// Momentum returns a copy of the momentum buffer, nil before the first
// round.
func (a *AutoGM) Momentum() []float64 {
	if a.momentum == nil {
		return nil
	}

	return vector.Clone(a.momentum)
}

// distances fills dist with the Euclidean distance from each update to the
// median, one goroutine per participant writing only its own slot, so the
// result does not depend on scheduling order.
func distances(updates [][]float64, median []float64, dist []float64) {
	var g errgroup.Group
	for i := range updates {
		g.Go(func() error {
			dist[i] = vector.Distance(updates[i], median)

			return nil
		})
	}
	_ = g.Wait()
}

// optimalThreshold scans prefixes of the distances sorted ascending (ties
// broken by participant index) and returns the largest threshold eta for
// which every distance in the prefix stays below it. The single-element
// prefix always accepts, since eta exceeds the smallest distance by
// lambda/1.
func optimalThreshold(dist []float64, lambda float64) float64 {
	order := make([]int, len(dist))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		if dist[order[i]] != dist[order[j]] {
			return dist[order[i]] < dist[order[j]]
		}

		return order[i] < order[j]
	})

	var eta float64
	sum := 0.0
	for p, idx := range order {
		sum += dist[idx]
		candidate := (sum + lambda) / float64(p+1)
		if candidate-dist[idx] < 0 {
			break
		}
		eta = candidate
	}

	return eta
}

func objective(median []float64, updates [][]float64, alpha []float64, lambda float64) float64 {
	sum := 0.0
	for i, u := range updates {
		sum += alpha[i] * vector.Distance(median, u)
	}

	sq := 0.0
	for _, w := range alpha {
		sq += w * w
	}

	return sum + lambda*sq/2
}
