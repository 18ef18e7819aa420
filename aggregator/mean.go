package aggregator

import "github.com/bladesteam/blades/pkg/vector"

// Mean is the arithmetic-mean baseline. A single large outlier shifts its
// result proportionally, which is exactly what the robust strategies are
// measured against.
type Mean struct{}

func NewMean() Aggregator {
	return &Mean{}
}

func (m *Mean) Aggregate(updates [][]float64) ([]float64, error) {
	if err := validate(updates); err != nil {
		return nil, err
	}

	return vector.Mean(updates), nil
}
