package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/archive"
	"github.com/wkalt/ckpt/catalog"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/routes"
	"github.com/wkalt/ckpt/service"
	"github.com/wkalt/ckpt/storage"
)

func buildIndex(t *testing.T, dir string, n int) {
	t.Helper()
	ctx := context.Background()
	idx, err := index.NewBTreeIndex(ctx, dir, checkpoint.MustTraceType("long", checkpoint.LongCodec{}))
	require.NoError(t, err)
	for _, cp := range checkpoint.LongSequence(n, 10) {
		require.NoError(t, idx.Insert(ctx, cp))
	}
	idx.SetNbEvents(ctx, int64(n)*100)
	require.NoError(t, idx.Dispose(ctx))
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	buildIndex(t, filepath.Join(dir, "kernel"), 20)
	buildIndex(t, filepath.Join(dir, "ust", "app"), 5)

	tt, err := checkpoint.LookupTraceType("long")
	require.NoError(t, err)
	r := service.NewRegistry(dir, tt)

	names, err := r.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel", "ust/app"}, names)

	idx, err := r.Get(ctx, "ust/app")
	require.NoError(t, err)
	assert.Equal(t, int64(5), idx.Size())
	assert.False(t, idx.CreatedFromScratch())

	again, err := r.Get(ctx, "ust/app")
	require.NoError(t, err)
	assert.Same(t, idx, again)

	for _, name := range []string{"missing", "../kernel", "ust"} {
		_, err := r.Get(ctx, name)
		require.ErrorIs(t, err, routes.ErrIndexNotFound, name)
	}

	require.NoError(t, r.Close(ctx))
	h, err := index.ReadHeader(filepath.Join(dir, "ust", "app", index.BTreeFileName))
	require.NoError(t, err)
	assert.True(t, h.Valid())
}

func TestSyncPushes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	cat := catalog.NewMemCatalog()
	src := t.TempDir()
	buildIndex(t, src, 10)

	for i, name := range []string{"a/kernel", "a/kernel", "b"} {
		m, err := archive.Push(ctx, store, src, name)
		require.NoError(t, err)
		require.NoError(t, cat.Put(ctx, catalog.Entry{
			Name:     m.Name,
			ID:       m.ID,
			Prefix:   m.Prefix,
			PushedAt: time.Unix(int64(i), 0),
		}))
	}

	dst := t.TempDir()
	require.NoError(t, service.SyncPushes(ctx, cat, store, dst))
	for _, name := range []string{"a/kernel", "b"} {
		h, err := index.ReadHeader(filepath.Join(dst, name, index.BTreeFileName))
		require.NoError(t, err)
		assert.Equal(t, int32(10), h.Size)
	}
}
