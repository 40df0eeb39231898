package checkpoint

import (
	"cmp"
	"fmt"
	"math"

	"github.com/wkalt/ckpt/util"
)

/*
Timestamps are a value and a decimal scale (exponent), so 1500 at scale -3 is
one and a half seconds. Comparison normalizes to the finer of the two scales.
Values that would overflow when normalizing saturate at the int64 bounds.

On disk a timestamp is value (int64) followed by scale (int32).
*/

////////////////////////////////////////////////////////////////////////////////

const (
	// NanosecondScale is the scale of nanosecond timestamps.
	NanosecondScale = int32(-9)

	// TimestampSize is the serialized size of a timestamp.
	TimestampSize = 8 + 4

	// TimeRangeSize is the serialized size of a time range.
	TimeRangeSize = 2 * TimestampSize
)

// Timestamp is a scaled point in time.
type Timestamp struct {
	Value int64 `json:"value"`
	Scale int32 `json:"scale"`
}

// Nanos returns a nanosecond timestamp.
func Nanos(v int64) Timestamp {
	return Timestamp{Value: v, Scale: NanosecondScale}
}

// Normalize expresses t at the requested scale.
func (t Timestamp) Normalize(scale int32) Timestamp {
	if t.Scale == scale {
		return t
	}
	v := t.Value
	if diff := t.Scale - scale; diff > 0 {
		for i := int32(0); i < diff && v != 0; i++ {
			if v > math.MaxInt64/10 {
				v = math.MaxInt64
				break
			}
			if v < math.MinInt64/10 {
				v = math.MinInt64
				break
			}
			v *= 10
		}
	} else {
		for i := diff; i < 0 && v != 0; i++ {
			v /= 10
		}
	}
	return Timestamp{Value: v, Scale: scale}
}

// Compare returns -1, 0 or 1 as t is before, equal to or after other.
func (t Timestamp) Compare(other Timestamp) int {
	if t.Scale == other.Scale {
		return cmp.Compare(t.Value, other.Value)
	}
	scale := min(t.Scale, other.Scale)
	return cmp.Compare(t.Normalize(scale).Value, other.Normalize(scale).Value)
}

// Serialize writes t to dst and returns the written length.
func (t Timestamp) Serialize(dst []byte) int {
	offset := util.I64(dst, t.Value)
	offset += util.I32(dst[offset:], t.Scale)
	return offset
}

// ReadTimestamp reads a timestamp from src, returning the read length.
func ReadTimestamp(src []byte, t *Timestamp) int {
	offset := util.ReadI64(src, &t.Value)
	offset += util.ReadI32(src[offset:], &t.Scale)
	return offset
}

func (t Timestamp) String() string {
	if t.Scale == 0 {
		return fmt.Sprintf("%d", t.Value)
	}
	return fmt.Sprintf("%de%d", t.Value, t.Scale)
}

// TimeRange is a closed interval of timestamps.
type TimeRange struct {
	Start Timestamp `json:"start"`
	End   Timestamp `json:"end"`
}

// NewTimeRange returns a time range.
func NewTimeRange(start, end Timestamp) TimeRange {
	return TimeRange{Start: start, End: end}
}

// Equal reports whether both bounds compare equal.
func (r TimeRange) Equal(other TimeRange) bool {
	return r.Start.Compare(other.Start) == 0 && r.End.Compare(other.End) == 0
}

// Serialize writes r to dst and returns the written length.
func (r TimeRange) Serialize(dst []byte) int {
	offset := r.Start.Serialize(dst)
	offset += r.End.Serialize(dst[offset:])
	return offset
}

// ReadTimeRange reads a time range from src, returning the read length.
func ReadTimeRange(src []byte, r *TimeRange) int {
	offset := ReadTimestamp(src, &r.Start)
	offset += ReadTimestamp(src[offset:], &r.End)
	return offset
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start, r.End)
}
