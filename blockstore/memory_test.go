package blockstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreBlocks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.ReadBlock(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.AllocateBlock(ctx, 1, 64))
	buf, err := s.ReadBlock(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, buf, 64)

	buf[0] = 0xFF
	again, err := s.ReadBlock(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, again[0], "store must not alias returned buffers")

	require.NoError(t, s.WriteBlock(ctx, 1, []byte{1, 2, 3}))
	buf, err = s.ReadBlock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf)

	n, err := s.CountBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	require.NoError(t, s.DeleteBlock(ctx, 1))
	assert.ErrorIs(t, s.DeleteBlock(ctx, 1), ErrNotFound)
}

func TestMemoryStoreRandomBlockID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.RandomBlockID(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	ids := map[uint64]struct{}{3: {}, 7: {}, 9: {}}
	for id := range ids {
		require.NoError(t, s.AllocateBlock(ctx, id, 8))
	}
	for i := 0; i < 10; i++ {
		id, err := s.RandomBlockID(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id)
	}
}

func TestMemoryStoreMeta(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetMeta(ctx, "config")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutMeta(ctx, "config", []byte("v1")))
	v, err := s.GetMeta(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, s.PutMeta(ctx, "config", []byte("v2")))
	v, err = s.GetMeta(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
}
