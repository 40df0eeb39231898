package checkpoint

/*
Helpers for building synthetic checkpoint sequences in tests and tools.
*/

////////////////////////////////////////////////////////////////////////////////

// MustTraceType is NewTraceType for codecs known to be valid.
func MustTraceType(name string, codec Codec) *TraceType {
	tt, err := NewTraceType(name, codec)
	if err != nil {
		panic(err)
	}
	return tt
}

// LongSequence returns n checkpoints with ranks 0..n-1, timestamps
// 0, step, 2*step, ... and LongLocations at rank*1000.
func LongSequence(n int, step int64) []*Checkpoint {
	result := make([]*Checkpoint, n)
	for i := range result {
		result[i] = New(Timestamp{Value: int64(i) * step}, LongLocation(int64(i)*1000), int64(i))
	}
	return result
}
