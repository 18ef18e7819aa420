// Package errors holds the sentinels shared by the storage layer and the
// services built on it. Domain-specific failures live with their packages;
// these cover the lookup and typing cases every store user handles.
package errors

import "errors"

var (
	ErrNotFound     = errors.New("entity not found")
	ErrEmptyKey     = errors.New("empty storage key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")
)
