package client

import "errors"

var (
	ErrNoParams        = errors.New("parameter set is empty")
	ErrNoTrainable     = errors.New("parameter set has no trainable parameters")
	ErrMissingName     = errors.New("parameter name is empty")
	ErrDuplicateParam  = errors.New("duplicate parameter name")
	ErrGradSlotSize    = errors.New("gradient slot size does not match value size")
	ErrValueSize       = errors.New("scattered values do not match trainable dimension")
	ErrGradientSize    = errors.New("scattered gradient does not match trainable dimension")
	ErrNoSnapshot      = errors.New("no parameter snapshot taken before finalizing")
	ErrInvalidMomentum = errors.New("momentum must be in [0, 1)")
	ErrNoTrainer       = errors.New("trainer is required")
)
