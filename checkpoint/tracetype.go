package checkpoint

import (
	"fmt"
)

// MaxSerializeSize bounds the serialized size of one checkpoint.
const MaxSerializeSize = 1024

// TraceType describes how checkpoints of one kind of trace are stored. The
// checkpoint size is measured once, when the trace type is built, and every
// collection over that trace type reads it from here.
type TraceType struct {
	name           string
	codec          Codec
	checkpointSize int
}

// NewTraceType measures the checkpoint size of codec by serializing a
// checkpoint at its zero location. Codecs without a zero location produce a
// non-persistable trace type.
func NewTraceType(name string, codec Codec) (tt *TraceType, err error) {
	tt = &TraceType{name: name, codec: codec}
	zero := codec.ZeroLocation()
	if zero == nil {
		return tt, nil
	}
	buf := make([]byte, MaxSerializeSize)
	defer func() {
		// locations larger than the scratch buffer panic on write.
		if r := recover(); r != nil {
			tt, err = nil, CheckpointSizeError{Name: name, Max: MaxSerializeSize}
		}
	}()
	tt.checkpointSize = New(Timestamp{}, zero, 0).Serialize(buf)
	return tt, nil
}

// Name returns the trace type name.
func (tt *TraceType) Name() string {
	return tt.name
}

// Codec returns the location codec.
func (tt *TraceType) Codec() Codec {
	return tt.codec
}

// CheckpointSize returns the serialized size of one checkpoint, or zero if
// the trace type is not persistable.
func (tt *TraceType) CheckpointSize() int {
	return tt.checkpointSize
}

// Persistable reports whether checkpoints of this type can be written to
// disk.
func (tt *TraceType) Persistable() bool {
	return tt.checkpointSize > 0
}

func (tt *TraceType) String() string {
	return fmt.Sprintf("%s(%d)", tt.name, tt.checkpointSize)
}

// builtinCodecs are the location codecs trace types can be looked up by.
var builtinCodecs = map[string]Codec{ // nolint:gochecknoglobals
	"long": LongCodec{},
	"pair": PairCodec{},
}

// LookupTraceType returns the trace type of a builtin location codec.
func LookupTraceType(name string) (*TraceType, error) {
	codec, ok := builtinCodecs[name]
	if !ok {
		return nil, UnknownTraceTypeError{Name: name}
	}
	return NewTraceType(name, codec)
}
