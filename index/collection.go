package index

import (
	"context"

	"github.com/wkalt/ckpt/checkpoint"
)

/*
Package index stores the checkpoints taken while a trace is scanned, so that a
reader can later resume close to any timestamp or rank instead of scanning
from the start.

Checkpoints are inserted in ascending order and their ranks are checkpoint
ordinals (0, 1, 2, ...). Searching for a checkpoint yields its rank if it is
present and -(floorRank+1)-1 otherwise, where the floor is the greatest
checkpoint sorting before the key and floorRank is -1 when no checkpoint
does. All backends return identical results for identical contents.

Indexes on disk are either restored whole or rebuilt: a file whose header
does not carry the current version is discarded.
*/

////////////////////////////////////////////////////////////////////////////////

// Collection is an ordered, append-mostly set of checkpoints.
type Collection interface {
	// Insert adds a checkpoint. Checkpoints arrive in ascending order.
	Insert(ctx context.Context, cp *checkpoint.Checkpoint) error

	// BinarySearch returns the rank of key, or -(floorRank+1)-1 if absent.
	BinarySearch(ctx context.Context, key *checkpoint.Checkpoint) (int64, error)

	// Size returns the number of checkpoints.
	Size() int64

	TimeRange() checkpoint.TimeRange
	SetTimeRange(ctx context.Context, r checkpoint.TimeRange)
	NbEvents() int64
	SetNbEvents(ctx context.Context, n int64)

	// CreatedFromScratch reports whether the collection must be populated,
	// as opposed to having been restored complete.
	CreatedFromScratch() bool

	// Dispose persists the collection, if it persists at all, and releases
	// its resources. It may be called more than once.
	Dispose(ctx context.Context) error

	// Delete releases the collection and removes anything it persisted.
	Delete(ctx context.Context) error
}

// Index is a collection that can also be read by rank.
type Index interface {
	Collection

	// Get returns the checkpoint of the given rank.
	Get(ctx context.Context, rank int64) (*checkpoint.Checkpoint, error)
}

var (
	_ Collection = (*BTree)(nil)
	_ Index      = (*FlatArray)(nil)
	_ Index      = (*BTreeIndex)(nil)
	_ Index      = (*MemoryIndex)(nil)
)
