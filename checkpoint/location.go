package checkpoint

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/wkalt/ckpt/util"
)

/*
A location is an opaque reader position owned by a trace format. The index
never looks inside one; it only orders them (to break timestamp ties) and
stores their bytes. All locations of one trace type must serialize to the same
number of bytes, since index files store checkpoints in fixed-size slots.

A Codec restores locations from bytes. Its ZeroLocation is the sample used to
measure the checkpoint size; a codec that returns nil there cannot be
persisted and gets an in-memory index.
*/

////////////////////////////////////////////////////////////////////////////////

// Location is an opaque position in a trace.
type Location interface {
	// Compare orders locations of the same trace type.
	Compare(other Location) int

	// Serialize writes the location to dst and returns the written length.
	Serialize(dst []byte) int

	String() string
}

// Codec restores the locations of one trace type.
type Codec interface {
	// RestoreLocation reads a location from src, returning the read length.
	RestoreLocation(src []byte) (Location, int, error)

	// ZeroLocation returns a sample location, or nil if locations of this
	// type cannot be serialized.
	ZeroLocation() Location
}

func mismatch(a, b Location) string {
	return fmt.Sprintf("checkpoint: cannot compare %T with %T", a, b)
}

// LongLocation is a single integer position, such as a byte offset.
type LongLocation int64

const longLocationSize = 8

func (l LongLocation) Compare(other Location) int {
	o, ok := other.(LongLocation)
	if !ok {
		panic(mismatch(l, other))
	}
	return cmp.Compare(l, o)
}

func (l LongLocation) Serialize(dst []byte) int {
	return util.I64(dst, int64(l))
}

func (l LongLocation) String() string {
	return fmt.Sprintf("%d", int64(l))
}

// LongCodec restores LongLocations.
type LongCodec struct{}

func (LongCodec) RestoreLocation(src []byte) (Location, int, error) {
	if len(src) < longLocationSize {
		return nil, 0, ShortBufferError{Need: longLocationSize, Have: len(src)}
	}
	var v int64
	n := util.ReadI64(src, &v)
	return LongLocation(v), n, nil
}

func (LongCodec) ZeroLocation() Location {
	return LongLocation(0)
}

// PairLocation is a timestamp plus the index of the event among those
// sharing that timestamp.
type PairLocation struct {
	Timestamp int64
	Index     int64
}

const pairLocationSize = 16

func (l PairLocation) Compare(other Location) int {
	o, ok := other.(PairLocation)
	if !ok {
		panic(mismatch(l, other))
	}
	if c := cmp.Compare(l.Timestamp, o.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(l.Index, o.Index)
}

func (l PairLocation) Serialize(dst []byte) int {
	offset := util.I64(dst, l.Timestamp)
	offset += util.I64(dst[offset:], l.Index)
	return offset
}

func (l PairLocation) String() string {
	return fmt.Sprintf("%d/%d", l.Timestamp, l.Index)
}

// PairCodec restores PairLocations.
type PairCodec struct{}

func (PairCodec) RestoreLocation(src []byte) (Location, int, error) {
	if len(src) < pairLocationSize {
		return nil, 0, ShortBufferError{Need: pairLocationSize, Have: len(src)}
	}
	var l PairLocation
	offset := util.ReadI64(src, &l.Timestamp)
	offset += util.ReadI64(src[offset:], &l.Index)
	return l, offset, nil
}

func (PairCodec) ZeroLocation() Location {
	return PairLocation{}
}

// ArrayLocation is the position of a multi-trace experiment: one location
// and one event rank per child trace.
type ArrayLocation struct {
	Locations []Location
	Ranks     []int64
}

func (l ArrayLocation) Compare(other Location) int {
	o, ok := other.(ArrayLocation)
	if !ok {
		panic(mismatch(l, other))
	}
	for i := 0; i < len(l.Locations) && i < len(o.Locations); i++ {
		if c := l.Locations[i].Compare(o.Locations[i]); c != 0 {
			return c
		}
		if c := cmp.Compare(l.Ranks[i], o.Ranks[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(l.Locations), len(o.Locations))
}

func (l ArrayLocation) Serialize(dst []byte) int {
	offset := 0
	for i, loc := range l.Locations {
		offset += loc.Serialize(dst[offset:])
		offset += util.I64(dst[offset:], l.Ranks[i])
	}
	return offset
}

func (l ArrayLocation) String() string {
	parts := make([]string, len(l.Locations))
	for i, loc := range l.Locations {
		parts[i] = fmt.Sprintf("%s@%d", loc, l.Ranks[i])
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// ArrayCodec restores ArrayLocations from the codecs of the child traces.
type ArrayCodec struct {
	Children []Codec
}

func (c ArrayCodec) RestoreLocation(src []byte) (Location, int, error) {
	l := ArrayLocation{
		Locations: make([]Location, len(c.Children)),
		Ranks:     make([]int64, len(c.Children)),
	}
	offset := 0
	for i, child := range c.Children {
		loc, n, err := child.RestoreLocation(src[offset:])
		if err != nil {
			return nil, 0, fmt.Errorf("failed to restore location of child %d: %w", i, err)
		}
		offset += n
		if len(src[offset:]) < 8 {
			return nil, 0, ShortBufferError{Need: offset + 8, Have: len(src)}
		}
		l.Locations[i] = loc
		offset += util.ReadI64(src[offset:], &l.Ranks[i])
	}
	return l, offset, nil
}

func (c ArrayCodec) ZeroLocation() Location {
	if len(c.Children) == 0 {
		return nil
	}
	l := ArrayLocation{
		Locations: make([]Location, len(c.Children)),
		Ranks:     make([]int64, len(c.Children)),
	}
	for i, child := range c.Children {
		zero := child.ZeroLocation()
		if zero == nil {
			return nil
		}
		l.Locations[i] = zero
	}
	return l
}
