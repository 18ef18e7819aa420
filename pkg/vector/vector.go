// Package vector provides the dense float64 primitives shared by the
// aggregation and client state packages. All vectors are flat slices; the
// caller is responsible for dimension agreement unless noted otherwise.
package vector

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Zeros returns a zero vector of dimension n.
func Zeros(n int) []float64 {
	return make([]float64, n)
}

// Clone returns an independent copy of v.
func Clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)

	return out
}

// Add adds v to dst elementwise.
func Add(dst, v []float64) {
	floats.Add(dst, v)
}

// Sub subtracts v from dst elementwise.
func Sub(dst, v []float64) {
	floats.Sub(dst, v)
}

// AddScaled adds c*v to dst elementwise.
func AddScaled(dst []float64, c float64, v []float64) {
	floats.AddScaled(dst, c, v)
}

// Scale multiplies dst by c in place.
func Scale(c float64, dst []float64) {
	floats.Scale(c, dst)
}

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Mean returns the arithmetic mean of the rows. The rows must be non-empty
// and of equal length.
func Mean(rows [][]float64) []float64 {
	out := make([]float64, len(rows[0]))
	for _, r := range rows {
		floats.Add(out, r)
	}
	floats.Scale(1/float64(len(rows)), out)

	return out
}

// Sanitize replaces every NaN and infinity in v with exactly 0 in place and
// returns v. Finite entries pass through untouched.
func Sanitize(v []float64) []float64 {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v[i] = 0
		}
	}

	return v
}
