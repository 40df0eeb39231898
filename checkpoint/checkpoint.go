package checkpoint

import (
	"cmp"
	"fmt"

	"github.com/wkalt/ckpt/util"
)

/*
A checkpoint records where the reader was (location) and when (timestamp) at
the rank'th checkpoint of a scan. Checkpoints are immutable once built and are
owned by the collection they are inserted into.

On disk a checkpoint is the location bytes, the timestamp, then the rank.
*/

////////////////////////////////////////////////////////////////////////////////

// Checkpoint is a (timestamp, location, rank) sample of a trace scan.
type Checkpoint struct {
	Timestamp Timestamp
	Location  Location
	Rank      int64
}

// New returns a checkpoint.
func New(ts Timestamp, loc Location, rank int64) *Checkpoint {
	return &Checkpoint{Timestamp: ts, Location: loc, Rank: rank}
}

// SearchKey returns a checkpoint usable as a search key for the first
// checkpoint at ts. Its nil location sorts before every real location.
func SearchKey(ts Timestamp) *Checkpoint {
	return &Checkpoint{Timestamp: ts}
}

// Compare orders checkpoints by timestamp, then by location. Rank does not
// participate.
func (c *Checkpoint) Compare(other *Checkpoint) int {
	if v := c.Timestamp.Compare(other.Timestamp); v != 0 {
		return v
	}
	switch {
	case c.Location == nil && other.Location == nil:
		return 0
	case c.Location == nil:
		return -1
	case other.Location == nil:
		return 1
	}
	return c.Location.Compare(other.Location)
}

// Equal reports whether two checkpoints have the same key and rank.
func (c *Checkpoint) Equal(other *Checkpoint) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Compare(other) == 0 && cmp.Compare(c.Rank, other.Rank) == 0
}

// Serialize writes c to dst and returns the written length. Checkpoints with
// no location cannot be serialized.
func (c *Checkpoint) Serialize(dst []byte) int {
	if c.Location == nil {
		panic("checkpoint: serializing a checkpoint without a location")
	}
	offset := c.Location.Serialize(dst)
	offset += c.Timestamp.Serialize(dst[offset:])
	offset += util.I64(dst[offset:], c.Rank)
	return offset
}

// Deserialize reads a checkpoint of trace type tt from src, returning the
// read length.
func Deserialize(tt *TraceType, src []byte) (*Checkpoint, int, error) {
	if len(src) < tt.CheckpointSize() {
		return nil, 0, ShortBufferError{Need: tt.CheckpointSize(), Have: len(src)}
	}
	loc, offset, err := tt.Codec().RestoreLocation(src)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to restore location: %w", err)
	}
	c := &Checkpoint{Location: loc}
	offset += ReadTimestamp(src[offset:], &c.Timestamp)
	offset += util.ReadI64(src[offset:], &c.Rank)
	return c, offset, nil
}

func (c *Checkpoint) String() string {
	return fmt.Sprintf("checkpoint(%s, %v, %d)", c.Timestamp, c.Location, c.Rank)
}
