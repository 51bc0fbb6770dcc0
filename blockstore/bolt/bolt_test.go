package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecdisk/vecdisk/blockstore"
)

// Compile-time interface checks.
var (
	_ blockstore.Store          = (*Store)(nil)
	_ blockstore.HandleReleaser = (*Store)(nil)
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBlockRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.ReadBlock(ctx, 1)
	assert.ErrorIs(t, err, blockstore.ErrNotFound)

	require.NoError(t, s.AllocateBlock(ctx, 1, 32))
	buf, err := s.ReadBlock(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, buf, 32)

	require.NoError(t, s.WriteBlock(ctx, 1, []byte{9, 8, 7}))
	buf, err = s.ReadBlock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, buf)

	require.NoError(t, s.DeleteBlock(ctx, 1))
	assert.ErrorIs(t, s.DeleteBlock(ctx, 1), blockstore.ErrNotFound)
}

func TestCountBlocks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for id := uint64(1); id <= 5; id++ {
		require.NoError(t, s.AllocateBlock(ctx, id, 8))
	}
	n, err := s.CountBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	require.NoError(t, s.DeleteBlock(ctx, 3))
	n, err = s.CountBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)
}

func TestRandomBlockID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.RandomBlockID(ctx)
	assert.ErrorIs(t, err, blockstore.ErrNotFound)

	ids := []uint64{2, 40, 900}
	for _, id := range ids {
		require.NoError(t, s.AllocateBlock(ctx, id, 8))
	}
	for i := 0; i < 20; i++ {
		id, err := s.RandomBlockID(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetMeta(ctx, "config")
	assert.ErrorIs(t, err, blockstore.ErrNotFound)

	require.NoError(t, s.PutMeta(ctx, "config", []byte("payload")))
	v, err := s.GetMeta(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), v)
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteBlock(ctx, 7, []byte{1, 2, 3}))
	require.NoError(t, s.PutMeta(ctx, "config", []byte("v1")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	buf, err := s.ReadBlock(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf)
	v, err := s.GetMeta(ctx, "config")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)
}
