package aggregator

import "errors"

var (
	ErrNoUpdates         = errors.New("no updates provided for aggregation")
	ErrEmptyUpdate       = errors.New("update vector is empty")
	ErrDimensionMismatch = errors.New("update vectors have mismatched dimensions")
	ErrInvalidWeights    = errors.New("invalid aggregation weights")
	ErrUnknownAggregator = errors.New("unknown aggregator algorithm")
)
