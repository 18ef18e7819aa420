// Package storage provides the key-value store the coordinator keeps its
// round state in. Persistence beyond the process lifetime is an external
// concern, so the insertion-ordered in-memory implementation is the only
// backend.
package storage

import "context"

type Storage interface {
	Create(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string) (any, error)
	Update(ctx context.Context, key string, value any) error
	List(ctx context.Context, offset, limit uint64) ([]any, uint64, error)
	Delete(ctx context.Context, key string) error
}
