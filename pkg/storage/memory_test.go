package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bladesteam/blades/pkg/errors"
)

func TestCreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStorage()

	require.NoError(t, s.Create(ctx, "r1", "round-one"))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "round-one", got)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStorage()

	assert.ErrorIs(t, s.Create(ctx, "", 1), errors.ErrEmptyKey)

	require.NoError(t, s.Create(ctx, "r1", 1))
	assert.ErrorIs(t, s.Create(ctx, "r1", 2), errors.ErrEntityExists)
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStorage()

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, errors.ErrEmptyKey)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStorage()

	assert.ErrorIs(t, s.Update(ctx, "r1", 2), errors.ErrNotFound)

	require.NoError(t, s.Create(ctx, "r1", 1))
	require.NoError(t, s.Update(ctx, "r1", 2))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestListInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStorage()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(ctx, fmt.Sprintf("r%d", i), i))
	}

	items, total, err := s.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
	assert.Equal(t, []any{0, 1, 2, 3, 4}, items)

	items, total, err = s.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
	assert.Equal(t, []any{2, 3}, items)

	items, total, err = s.List(ctx, 9, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
	assert.Empty(t, items)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStorage()

	require.NoError(t, s.Create(ctx, "r1", 1))
	require.NoError(t, s.Create(ctx, "r2", 2))

	require.NoError(t, s.Delete(ctx, "r1"))
	require.NoError(t, s.Delete(ctx, "r1"), "deleting a missing key is a no-op")
	assert.ErrorIs(t, s.Delete(ctx, ""), errors.ErrEmptyKey)

	items, total, err := s.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	assert.Equal(t, []any{2}, items)
}
