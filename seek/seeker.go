package seek

import (
	"context"
	"fmt"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/util/log"
)

/*
Package seek turns seek requests into the position a sequential reader should
resume from. Checkpoints are taken every interval events, so checkpoint i was
taken at event rank i*interval; a seek lands on the last checkpoint that is
guaranteed to precede the target and the reader scans forward from there.

A seek never fails because of the index. An empty index, or one that returns
an error, yields the start of the trace.
*/

////////////////////////////////////////////////////////////////////////////////

// Position is where a reader resumes. A nil location means the start of the
// trace.
type Position struct {
	Location checkpoint.Location `json:"location"`
	Rank     int64               `json:"rank"`
}

func (p Position) String() string {
	if p.Location == nil {
		return fmt.Sprintf("start (rank %d)", p.Rank)
	}
	return fmt.Sprintf("%s (rank %d)", p.Location, p.Rank)
}

// Seeker resolves seeks against a checkpoint index.
type Seeker struct {
	index    index.Index
	interval int64
}

// NewSeeker returns a seeker over idx, whose checkpoints were taken every
// interval events.
func NewSeeker(idx index.Index, interval int64) *Seeker {
	return &Seeker{index: idx, interval: max(interval, 1)}
}

// Seek resolves a parsed request. Only malformed requests return an error.
func (s *Seeker) Seek(ctx context.Context, req *Request) (Position, error) {
	switch {
	case req.Time != nil:
		ts, err := req.Time.Timestamp()
		if err != nil {
			return Position{}, err
		}
		return s.SeekTime(ctx, ts), nil
	case req.Rank != nil:
		return s.SeekRank(ctx, *req.Rank), nil
	case req.Ratio != nil:
		return s.SeekRatio(ctx, *req.Ratio), nil
	default:
		return Position{}, fmt.Errorf("empty request")
	}
}

// SeekTime returns the position of the last checkpoint strictly before ts.
// Events sharing ts with a checkpoint may precede it, so a checkpoint at
// exactly ts is never used.
func (s *Seeker) SeekTime(ctx context.Context, ts checkpoint.Timestamp) Position {
	if s.index.Size() == 0 {
		return Position{}
	}
	rank, err := s.index.BinarySearch(ctx, checkpoint.SearchKey(ts))
	if err != nil {
		log.Warnw(ctx, "checkpoint search failed, seeking to start", "timestamp", ts, "error", err)
		return Position{}
	}
	if rank < 0 {
		rank = max(0, -(rank + 2))
	} else {
		rank = max(0, rank-1)
	}
	return s.restore(ctx, rank)
}

// SeekRank returns the position of the checkpoint at or before the event of
// the given rank.
func (s *Seeker) SeekRank(ctx context.Context, rank int64) Position {
	return s.restore(ctx, max(rank, 0)/s.interval)
}

// SeekRatio seeks to the event at ratio of the trace.
func (s *Seeker) SeekRatio(ctx context.Context, ratio float64) Position {
	ratio = min(max(ratio, 0), 1)
	return s.SeekRank(ctx, int64(ratio*float64(s.index.NbEvents())))
}

// restore returns the position of checkpoint i, clamped to the last one.
func (s *Seeker) restore(ctx context.Context, i int64) Position {
	size := s.index.Size()
	if size == 0 {
		return Position{}
	}
	i = min(i, size-1)
	cp, err := s.index.Get(ctx, i)
	if err != nil {
		log.Warnw(ctx, "failed to read checkpoint, seeking to start", "checkpoint", i, "error", err)
		return Position{}
	}
	return Position{Location: cp.Location, Rank: i * s.interval}
}
