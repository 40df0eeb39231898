package indexer

import (
	"context"
	"fmt"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/util/log"
)

/*
Package indexer builds checkpoint indexes from a stream of trace events. A
checkpoint is taken at the first event and then every interval events, so
checkpoint i records the event of rank i*interval. The checkpoint rank stored
in the index is the ordinal i.

Events must arrive in nondecreasing timestamp order. The time range and event
count are written to the index when the build finishes.
*/

////////////////////////////////////////////////////////////////////////////////

// OutOfOrderError is returned when an event is older than its predecessor.
type OutOfOrderError struct {
	Rank     int64
	Previous checkpoint.Timestamp
	Current  checkpoint.Timestamp
}

func (e OutOfOrderError) Error() string {
	return fmt.Sprintf("event %d at %s precedes previous event at %s", e.Rank, e.Current, e.Previous)
}

func (e OutOfOrderError) Is(target error) bool {
	_, ok := target.(OutOfOrderError)
	return ok
}

// Builder feeds events into an index.
type Builder struct {
	index    index.Index
	interval int64

	nbEvents int64
	start    checkpoint.Timestamp
	last     checkpoint.Timestamp
}

// NewBuilder returns a builder that checkpoints idx every interval events.
func NewBuilder(idx index.Index, interval int64) *Builder {
	return &Builder{index: idx, interval: max(interval, 1)}
}

// Add records one event at ts, readable from loc.
func (b *Builder) Add(ctx context.Context, ts checkpoint.Timestamp, loc checkpoint.Location) error {
	if b.nbEvents > 0 && ts.Compare(b.last) < 0 {
		return OutOfOrderError{Rank: b.nbEvents, Previous: b.last, Current: ts}
	}
	if b.nbEvents%b.interval == 0 {
		if err := b.index.Insert(ctx, checkpoint.New(ts, loc, b.nbEvents/b.interval)); err != nil {
			return fmt.Errorf("failed to insert checkpoint: %w", err)
		}
	}
	if b.nbEvents == 0 {
		b.start = ts
	}
	b.last = ts
	b.nbEvents++
	return nil
}

// NbEvents returns the number of events added.
func (b *Builder) NbEvents() int64 {
	return b.nbEvents
}

// Interval returns the number of events between checkpoints.
func (b *Builder) Interval() int64 {
	return b.interval
}

// Finish writes the time range and event count to the index. The index is
// left open.
func (b *Builder) Finish(ctx context.Context) {
	if b.nbEvents > 0 {
		b.index.SetTimeRange(ctx, checkpoint.NewTimeRange(b.start, b.last))
	}
	b.index.SetNbEvents(ctx, b.nbEvents)
	log.Infow(ctx, "indexed trace", "events", b.nbEvents, "checkpoints", b.index.Size(), "interval", b.interval)
}

// Synthetic adds n events at timestamps 0, step, 2*step, ... with
// LongLocations equal to their rank.
func Synthetic(ctx context.Context, b *Builder, n int64, step int64) error {
	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Add(ctx, checkpoint.Timestamp{Value: i * step}, checkpoint.LongLocation(i)); err != nil {
			return err
		}
	}
	return nil
}
