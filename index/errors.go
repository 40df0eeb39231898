package index

import (
	"errors"
	"fmt"
)

/*
Errors that can be returned by the index package.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrDisposed is returned by operations on a collection after Dispose or
// Delete.
var ErrDisposed = errors.New("collection is disposed")

// ErrNotPersistable is returned when a file-backed collection is requested
// for a trace type without a fixed checkpoint size.
var ErrNotPersistable = errors.New("trace type is not persistable")

// ErrMissingLocation is returned when inserting a checkpoint without a
// location.
var ErrMissingLocation = errors.New("checkpoint has no location")

// ErrCollectionFull is returned when inserting into a file-backed collection
// whose header count cannot grow further.
var ErrCollectionFull = errors.New("collection is full")

// RankOutOfRangeError is returned by Get for ranks outside the collection.
type RankOutOfRangeError struct {
	Rank int64
	Size int64
}

func (e RankOutOfRangeError) Error() string {
	return fmt.Sprintf("rank %d out of range [0, %d)", e.Rank, e.Size)
}

func (e RankOutOfRangeError) Is(target error) bool {
	_, ok := target.(RankOutOfRangeError)
	return ok
}

// VersionMismatchError is returned when a file header carries a version or
// sub-version other than the one the running code writes.
type VersionMismatchError struct {
	Field    string
	Found    int32
	Expected int32
}

func (e VersionMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: found %d, expected %d", e.Field, e.Found, e.Expected)
}

func (e VersionMismatchError) Is(target error) bool {
	_, ok := target.(VersionMismatchError)
	return ok
}

// CorruptFileError is returned when a committed file header is inconsistent
// with the file contents.
type CorruptFileError struct {
	Reason string
}

func (e CorruptFileError) Error() string {
	return "corrupt checkpoint file: " + e.Reason
}

func (e CorruptFileError) Is(target error) bool {
	_, ok := target.(CorruptFileError)
	return ok
}

// CorruptNodeError is returned when a B-tree node read from disk is
// malformed.
type CorruptNodeError struct {
	Offset int64
	Reason string
}

func (e CorruptNodeError) Error() string {
	return fmt.Sprintf("corrupt node at offset %d: %s", e.Offset, e.Reason)
}

func (e CorruptNodeError) Is(target error) bool {
	_, ok := target.(CorruptNodeError)
	return ok
}
