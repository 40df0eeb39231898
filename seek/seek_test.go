package seek_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/seek"
)

func TestParse(t *testing.T) {
	ptr := func(x int64) *int64 { return &x }
	cases := []struct {
		assertion string
		input     string
		expected  checkpoint.Timestamp
		rank      *int64
		ratio     float64
	}{
		{"bare time", "time 505", checkpoint.Timestamp{Value: 505}, nil, -1},
		{"time with unit", "time 1500 ms", checkpoint.Timestamp{Value: 1500, Scale: -3}, nil, -1},
		{"nanoseconds", "time 7 ns;", checkpoint.Nanos(7), nil, -1},
		{"negative time", "time -3", checkpoint.Timestamp{Value: -3}, nil, -1},
		{"datestring", `time "1970-01-01T00:00:01Z"`, checkpoint.Nanos(1e9), nil, -1},
		{"rank", "rank 1000", checkpoint.Timestamp{}, ptr(1000), -1},
		{"ratio", "ratio 0.25", checkpoint.Timestamp{}, nil, 0.25},
		{"integer ratio", "ratio 1", checkpoint.Timestamp{}, nil, 1},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			req, err := seek.Parse(c.input)
			require.NoError(t, err)
			switch {
			case c.rank != nil:
				require.NotNil(t, req.Rank)
				assert.Equal(t, *c.rank, *req.Rank)
			case c.ratio >= 0:
				require.NotNil(t, req.Ratio)
				assert.InDelta(t, c.ratio, *req.Ratio, 1e-9)
			default:
				require.NotNil(t, req.Time)
				ts, err := req.Time.Timestamp()
				require.NoError(t, err)
				assert.Equal(t, c.expected, ts)
			}
			assert.NotEmpty(t, req.String())
		})
	}
	t.Run("invalid requests", func(t *testing.T) {
		for _, input := range []string{"", "time", "rank 1.5", "walk 10", "time 5 hours"} {
			_, err := seek.Parse(input)
			assert.Error(t, err, input)
		}
	})
	t.Run("invalid datestring", func(t *testing.T) {
		req, err := seek.Parse(`time "yesterday"`)
		require.NoError(t, err)
		_, err = req.Time.Timestamp()
		assert.Error(t, err)
	})
}

func newIndex(t *testing.T, n int) index.Index {
	t.Helper()
	ctx := context.Background()
	idx := index.NewMemoryIndex()
	for _, cp := range checkpoint.LongSequence(n, 10) {
		require.NoError(t, idx.Insert(ctx, cp))
	}
	idx.SetNbEvents(ctx, int64(n)*100)
	return idx
}

func TestSeeker(t *testing.T) {
	ctx := context.Background()
	s := seek.NewSeeker(newIndex(t, 1000), 100)

	cases := []struct {
		assertion string
		request   string
		location  checkpoint.Location
		rank      int64
	}{
		{"time between checkpoints", "time 505", checkpoint.LongLocation(50000), 5000},
		{"time on a checkpoint uses the previous one", "time 500", checkpoint.LongLocation(49000), 4900},
		{"time before the first checkpoint", "time -5", checkpoint.LongLocation(0), 0},
		{"time at the first checkpoint", "time 0", checkpoint.LongLocation(0), 0},
		{"time after the last checkpoint", "time 1000000", checkpoint.LongLocation(999000), 99900},
		{"rank", "rank 1234", checkpoint.LongLocation(12000), 1200},
		{"rank past the end", "rank 1000000000", checkpoint.LongLocation(999000), 99900},
		{"ratio", "ratio 0.5", checkpoint.LongLocation(500000), 50000},
		{"ratio past the end", "ratio 3", checkpoint.LongLocation(999000), 99900},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			req, err := seek.Parse(c.request)
			require.NoError(t, err)
			pos, err := s.Seek(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, c.location, pos.Location)
			assert.Equal(t, c.rank, pos.Rank)
		})
	}
}

type failingIndex struct {
	index.Index
}

func (failingIndex) BinarySearch(context.Context, *checkpoint.Checkpoint) (int64, error) {
	return 0, errors.New("disk on fire")
}

func (failingIndex) Get(context.Context, int64) (*checkpoint.Checkpoint, error) {
	return nil, errors.New("disk on fire")
}

func TestSeekerDegrades(t *testing.T) {
	ctx := context.Background()
	t.Run("empty index", func(t *testing.T) {
		s := seek.NewSeeker(index.NewMemoryIndex(), 100)
		assert.Equal(t, seek.Position{}, s.SeekTime(ctx, checkpoint.Nanos(5)))
		assert.Equal(t, seek.Position{}, s.SeekRank(ctx, 500))
	})
	t.Run("failing index", func(t *testing.T) {
		s := seek.NewSeeker(failingIndex{newIndex(t, 10)}, 100)
		assert.Equal(t, seek.Position{}, s.SeekTime(ctx, checkpoint.Timestamp{Value: 55}))
		assert.Equal(t, seek.Position{}, s.SeekRank(ctx, 500))
	})
}
