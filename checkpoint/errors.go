package checkpoint

import "fmt"

// ShortBufferError is returned when a buffer is too small to hold a
// serialized value.
type ShortBufferError struct {
	Need int
	Have int
}

func (e ShortBufferError) Error() string {
	return fmt.Sprintf("short buffer: need %d bytes, have %d", e.Need, e.Have)
}

func (e ShortBufferError) Is(target error) bool {
	_, ok := target.(ShortBufferError)
	return ok
}

// CheckpointSizeError is returned when a trace type's checkpoints do not fit
// in MaxSerializeSize bytes.
type CheckpointSizeError struct {
	Name string
	Max  int
}

func (e CheckpointSizeError) Error() string {
	return fmt.Sprintf("checkpoints of trace type %s exceed %d bytes", e.Name, e.Max)
}

func (e CheckpointSizeError) Is(target error) bool {
	_, ok := target.(CheckpointSizeError)
	return ok
}

// UnknownTraceTypeError is returned when looking up a trace type that has no
// builtin location codec.
type UnknownTraceTypeError struct {
	Name string
}

func (e UnknownTraceTypeError) Error() string {
	return fmt.Sprintf("unknown trace type %s", e.Name)
}

func (e UnknownTraceTypeError) Is(target error) bool {
	_, ok := target.(UnknownTraceTypeError)
	return ok
}
