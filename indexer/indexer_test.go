package indexer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/indexer"
	"github.com/wkalt/ckpt/seek"
)

func TestBuilder(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		assertion   string
		events      int64
		interval    int64
		checkpoints int64
	}{
		{"empty", 0, 10, 0},
		{"single event", 1, 10, 1},
		{"exact multiple", 100, 10, 10},
		{"partial last interval", 101, 10, 11},
		{"interval of one", 7, 1, 7},
		{"zero interval is one", 7, 0, 7},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			idx := index.NewMemoryIndex()
			b := indexer.NewBuilder(idx, c.interval)
			require.NoError(t, indexer.Synthetic(ctx, b, c.events, 5))
			b.Finish(ctx)
			assert.Equal(t, c.checkpoints, idx.Size())
			assert.Equal(t, c.events, idx.NbEvents())
			for i := int64(0); i < idx.Size(); i++ {
				cp, err := idx.Get(ctx, i)
				require.NoError(t, err)
				assert.Equal(t, i, cp.Rank)
				assert.Equal(t, checkpoint.LongLocation(i*b.Interval()), cp.Location)
				assert.Equal(t, i*b.Interval()*5, cp.Timestamp.Value)
			}
			if c.events > 0 {
				assert.Equal(t, (c.events-1)*5, idx.TimeRange().End.Value)
			}
		})
	}
}

func TestBuilderRejectsOutOfOrderEvents(t *testing.T) {
	ctx := context.Background()
	b := indexer.NewBuilder(index.NewMemoryIndex(), 2)
	require.NoError(t, b.Add(ctx, checkpoint.Timestamp{Value: 10}, checkpoint.LongLocation(0)))
	require.NoError(t, b.Add(ctx, checkpoint.Timestamp{Value: 10}, checkpoint.LongLocation(1)))
	err := b.Add(ctx, checkpoint.Timestamp{Value: 9}, checkpoint.LongLocation(2))
	require.ErrorIs(t, err, indexer.OutOfOrderError{})
	assert.Equal(t, int64(2), b.NbEvents())
}

func TestBuiltIndexSeeks(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewBTreeIndex(ctx, t.TempDir(), checkpoint.MustTraceType("long", checkpoint.LongCodec{}),
		index.WithDegree(3))
	require.NoError(t, err)
	defer idx.Dispose(ctx)
	b := indexer.NewBuilder(idx, 100)
	require.NoError(t, indexer.Synthetic(ctx, b, 10000, 1))
	b.Finish(ctx)

	s := seek.NewSeeker(idx, b.Interval())
	pos := s.SeekTime(ctx, checkpoint.Timestamp{Value: 1234})
	assert.Equal(t, checkpoint.LongLocation(1200), pos.Location)
	assert.Equal(t, int64(1200), pos.Rank)

	pos = s.SeekRatio(ctx, 0.5)
	assert.Equal(t, checkpoint.LongLocation(5000), pos.Location)
}

func TestSyntheticCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := indexer.Synthetic(ctx, indexer.NewBuilder(index.NewMemoryIndex(), 1), 10, 1)
	require.ErrorIs(t, err, context.Canceled)
}
