package index_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
)

func TestMemoryDiskEquivalence(t *testing.T) {
	ctx := context.Background()
	tt := checkpoint.MustTraceType("long", checkpoint.LongCodec{})
	cps := checkpoint.LongSequence(1000, 10)

	mem := index.NewMemoryIndex()
	tree, err := index.NewBTree(ctx, filepath.Join(t.TempDir(), "tree.idx"), tt, index.WithDegree(3))
	require.NoError(t, err)
	defer tree.Dispose(ctx)
	array, err := index.NewFlatArray(ctx, filepath.Join(t.TempDir(), "array.idx"), tt)
	require.NoError(t, err)
	defer array.Dispose(ctx)

	collections := []index.Collection{mem, tree, array}
	for _, c := range collections {
		for _, cp := range cps {
			require.NoError(t, c.Insert(ctx, cp))
		}
	}

	keys := []*checkpoint.Checkpoint{}
	for ts := int64(-15); ts < 10015; ts += 5 {
		keys = append(keys, checkpoint.SearchKey(checkpoint.Timestamp{Value: ts}))
	}
	for _, cp := range cps[:50] {
		keys = append(keys, cp)
		keys = append(keys, checkpoint.New(cp.Timestamp, cp.Location.(checkpoint.LongLocation)+1, 0))
	}
	for _, key := range keys {
		expected, err := mem.BinarySearch(ctx, key)
		require.NoError(t, err)
		for _, c := range collections[1:] {
			actual, err := c.BinarySearch(ctx, key)
			require.NoError(t, err)
			require.Equal(t, expected, actual, "key %s on %T", key, c)
		}
	}

	t.Run("floor example", func(t *testing.T) {
		rank, err := mem.BinarySearch(ctx, checkpoint.SearchKey(checkpoint.Timestamp{Value: 505}))
		require.NoError(t, err)
		assert.Equal(t, int64(-52), rank)
	})
}

func TestMemoryIndex(t *testing.T) {
	ctx := context.Background()
	mem := index.NewMemoryIndex()
	insertCheckpoints(t, mem, checkpoint.LongSequence(10, 1))

	t.Run("get", func(t *testing.T) {
		cp, err := mem.Get(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), cp.Rank)
		_, err = mem.Get(ctx, 10)
		require.ErrorIs(t, err, index.RankOutOfRangeError{})
	})
	t.Run("setters", func(t *testing.T) {
		r := checkpoint.NewTimeRange(checkpoint.Nanos(1), checkpoint.Nanos(2))
		mem.SetTimeRange(ctx, r)
		mem.SetNbEvents(ctx, 99)
		assert.Equal(t, r, mem.TimeRange())
		assert.Equal(t, int64(99), mem.NbEvents())
		assert.True(t, mem.CreatedFromScratch())
	})
	t.Run("equal checkpoints are ignored", func(t *testing.T) {
		insertCheckpoints(t, mem, checkpoint.LongSequence(3, 1))
		assert.Equal(t, int64(10), mem.Size())
		cp, err := mem.Get(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, int64(9), cp.Rank)
	})
	t.Run("dispose clears", func(t *testing.T) {
		require.NoError(t, mem.Dispose(ctx))
		assert.Equal(t, int64(0), mem.Size())
		require.NoError(t, mem.Delete(ctx))
	})
}

func TestFlatArray(t *testing.T) {
	ctx := context.Background()
	tt := checkpoint.MustTraceType("pair", checkpoint.PairCodec{})
	path := filepath.Join(t.TempDir(), "array.idx")
	cps := make([]*checkpoint.Checkpoint, 100)
	for i := range cps {
		cps[i] = checkpoint.New(checkpoint.Nanos(int64(i/2)), checkpoint.PairLocation{Timestamp: int64(i / 2), Index: int64(i % 2)}, int64(i))
	}

	array, err := index.NewFlatArray(ctx, path, tt)
	require.NoError(t, err)
	assert.True(t, array.CreatedFromScratch())
	insertCheckpoints(t, array, cps)
	array.SetNbEvents(ctx, 5000)

	t.Run("get by rank", func(t *testing.T) {
		for _, cp := range cps {
			out, err := array.Get(ctx, cp.Rank)
			require.NoError(t, err)
			require.True(t, cp.Equal(out))
		}
		_, err := array.Get(ctx, -1)
		require.ErrorIs(t, err, index.RankOutOfRangeError{})
	})
	t.Run("ties are broken by location", func(t *testing.T) {
		rank, err := array.BinarySearch(ctx, cps[31])
		require.NoError(t, err)
		assert.Equal(t, int64(31), rank)
	})
	require.NoError(t, array.Dispose(ctx))

	t.Run("restore", func(t *testing.T) {
		array, err := index.NewFlatArray(ctx, path, tt)
		require.NoError(t, err)
		defer array.Dispose(ctx)
		assert.False(t, array.CreatedFromScratch())
		assert.Equal(t, int64(100), array.Size())
		assert.Equal(t, int64(5000), array.NbEvents())
		out, err := array.Get(ctx, 99)
		require.NoError(t, err)
		assert.True(t, cps[99].Equal(out))
	})
	t.Run("short file is rebuilt", func(t *testing.T) {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NoError(t, os.Truncate(path, info.Size()-1))
		array, err := index.NewFlatArray(ctx, path, tt)
		require.NoError(t, err)
		defer array.Dispose(ctx)
		assert.True(t, array.CreatedFromScratch())
		assert.Equal(t, int64(0), array.Size())
	})
	t.Run("btree file is not a flat array", func(t *testing.T) {
		treePath := filepath.Join(t.TempDir(), "tree.idx")
		tree, err := index.NewBTree(ctx, treePath, tt)
		require.NoError(t, err)
		require.NoError(t, tree.Dispose(ctx))
		array, err := index.NewFlatArray(ctx, treePath, tt)
		require.NoError(t, err)
		defer array.Dispose(ctx)
		assert.True(t, array.CreatedFromScratch())
	})
}

func TestBTreeIndex(t *testing.T) {
	ctx := context.Background()
	tt := checkpoint.MustTraceType("long", checkpoint.LongCodec{})
	dir := filepath.Join(t.TempDir(), "trace")
	cps := checkpoint.LongSequence(300, 10)

	idx, err := index.NewBTreeIndex(ctx, dir, tt, index.WithDegree(4))
	require.NoError(t, err)
	assert.True(t, idx.CreatedFromScratch())
	insertCheckpoints(t, idx, cps)
	insertCheckpoints(t, idx, cps[:5])
	assert.Equal(t, int64(300), idx.Size())
	idx.SetNbEvents(ctx, 300*1000)
	require.NoError(t, idx.Dispose(ctx))

	t.Run("restore both files", func(t *testing.T) {
		idx, err := index.NewBTreeIndex(ctx, dir, tt, index.WithDegree(4))
		require.NoError(t, err)
		defer idx.Dispose(ctx)
		assert.False(t, idx.CreatedFromScratch())
		assert.Equal(t, int64(300000), idx.NbEvents())
		rank, err := idx.BinarySearch(ctx, checkpoint.SearchKey(checkpoint.Timestamp{Value: 1234}))
		require.NoError(t, err)
		assert.Equal(t, int64(-(123+1)-1), rank)
		cp, err := idx.Get(ctx, 123)
		require.NoError(t, err)
		assert.True(t, cps[123].Equal(cp))
	})
	t.Run("a lost flat array rebuilds both", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, index.FlatArrayFileName)))
		idx, err := index.NewBTreeIndex(ctx, dir, tt, index.WithDegree(4))
		require.NoError(t, err)
		defer idx.Dispose(ctx)
		assert.True(t, idx.CreatedFromScratch())
		assert.Equal(t, int64(0), idx.Size())
	})
	t.Run("delete removes both files", func(t *testing.T) {
		idx, err := index.NewBTreeIndex(ctx, dir, tt)
		require.NoError(t, err)
		require.NoError(t, idx.Delete(ctx))
		for _, name := range []string{index.BTreeFileName, index.FlatArrayFileName} {
			_, err := os.Stat(filepath.Join(dir, name))
			assert.ErrorIs(t, err, os.ErrNotExist)
		}
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	long := checkpoint.MustTraceType("long", checkpoint.LongCodec{})
	empty := checkpoint.MustTraceType("empty", checkpoint.ArrayCodec{})
	cases := []struct {
		assertion string
		tt        *checkpoint.TraceType
		opts      []index.Option
		expected  any
	}{
		{"no directory", long, nil, &index.MemoryIndex{}},
		{"persistable with directory", long, []index.Option{index.WithDirectory(t.TempDir())}, &index.BTreeIndex{}},
		{"not persistable", empty, []index.Option{index.WithDirectory(t.TempDir())}, &index.MemoryIndex{}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			idx, err := index.Open(ctx, c.tt, c.opts...)
			require.NoError(t, err)
			defer idx.Dispose(ctx)
			assert.IsType(t, c.expected, idx)
		})
	}
}

func TestReadHeader(t *testing.T) {
	ctx := context.Background()
	tt := checkpoint.MustTraceType("long", checkpoint.LongCodec{})
	dir := t.TempDir()
	idx, err := index.NewBTreeIndex(ctx, dir, tt)
	require.NoError(t, err)
	insertCheckpoints(t, idx, checkpoint.LongSequence(10, 1))
	require.NoError(t, idx.Dispose(ctx))

	cases := []struct {
		name       string
		subVersion int32
		extra      int
	}{
		{index.BTreeFileName, 4, 12},
		{index.FlatArrayFileName, 3, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h, err := index.ReadHeader(filepath.Join(dir, c.name))
			require.NoError(t, err)
			assert.True(t, h.Valid())
			assert.Equal(t, c.subVersion, h.SubVersion)
			assert.Len(t, h.Extra, c.extra)
			assert.Equal(t, int32(10), h.Size)
		})
	}
	t.Run("missing file", func(t *testing.T) {
		_, err := index.ReadHeader(filepath.Join(dir, "nope"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func insertCheckpoints(t *testing.T, c index.Collection, cps []*checkpoint.Checkpoint) {
	t.Helper()
	ctx := context.Background()
	for _, cp := range cps {
		require.NoError(t, c.Insert(ctx, cp))
	}
}
