package storage_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/storage"
	"github.com/wkalt/ckpt/storage/minioutil"
)

func TestStorageProviders(t *testing.T) {
	ctx := context.Background()

	server := minioutil.StartServer(t)

	cases := []struct {
		assertion string
		store     storage.Provider
	}{
		{
			"s3 store",
			server.Store(t),
		},
		{
			"memory store",
			storage.NewMemStore(),
		},
		{
			"directory store",
			storage.NewDirectoryStore(t.TempDir()),
		},
	}

	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			t.Run("put", func(t *testing.T) {
				require.NoError(t, c.store.Put(ctx, "test", bytes.NewReader([]byte("hello"))))
			})
			t.Run("get", func(t *testing.T) {
				require.NoError(t, c.store.Put(ctx, "a/b/test1", bytes.NewReader([]byte("hello"))))
				r, err := c.store.Get(ctx, "a/b/test1")
				require.NoError(t, err)
				defer r.Close()
				data, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, []byte("hello"), data)
			})
			t.Run("get range", func(t *testing.T) {
				require.NoError(t, c.store.Put(ctx, "test2", bytes.NewReader([]byte("hello"))))
				r, err := c.store.GetRange(ctx, "test2", 1, 3)
				require.NoError(t, err)
				defer r.Close()
				data, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, []byte("ell"), data)
			})
			t.Run("put replaces", func(t *testing.T) {
				require.NoError(t, c.store.Put(ctx, "test5", bytes.NewReader([]byte("one"))))
				require.NoError(t, c.store.Put(ctx, "test5", bytes.NewReader([]byte("two"))))
				r, err := c.store.Get(ctx, "test5")
				require.NoError(t, err)
				defer r.Close()
				data, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, []byte("two"), data)
			})
			t.Run("list", func(t *testing.T) {
				for _, id := range []string{"list/x/1", "list/x/2", "list/y/1"} {
					require.NoError(t, c.store.Put(ctx, id, bytes.NewReader([]byte(id))))
				}
				ids, err := c.store.List(ctx, "list/x/")
				require.NoError(t, err)
				assert.Equal(t, []string{"list/x/1", "list/x/2"}, ids)
				ids, err = c.store.List(ctx, "nothing/")
				require.NoError(t, err)
				assert.Empty(t, ids)
			})
			t.Run("delete", func(t *testing.T) {
				require.NoError(t, c.store.Put(ctx, "test3", bytes.NewReader([]byte("hello"))))
				require.NoError(t, c.store.Delete(ctx, "test3"))
				_, err := c.store.Get(ctx, "test3")
				require.ErrorIs(t, err, storage.ErrObjectNotFound)
			})
			t.Run("get object that does not exist returns error", func(t *testing.T) {
				_, err := c.store.GetRange(ctx, "test4", 0, 4)
				require.ErrorIs(t, err, storage.ErrObjectNotFound)
				_, err = c.store.Get(ctx, "test4")
				require.ErrorIs(t, err, storage.ErrObjectNotFound)
			})
			t.Run("deleting object that does not exist returns no error", func(t *testing.T) {
				err := c.store.Delete(ctx, "test100")
				require.NoError(t, err)
			})
			assert.NotEmpty(t, c.store.String())
		})
	}
}
