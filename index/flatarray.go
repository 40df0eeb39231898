package index

import (
	"context"
	"fmt"
	"io"

	"github.com/wkalt/ckpt/checkpoint"
)

/*
FlatArray stores checkpoints back to back after the header, in insertion
order, so the checkpoint of rank i is in the slot at header + i*size. It
answers Get in one read; searches are a binary search over the slots.
*/

////////////////////////////////////////////////////////////////////////////////

const flatArraySubVersion = int32(3)

// FlatArray is a file-backed array of checkpoints.
type FlatArray struct {
	*fileCollection
}

// NewFlatArray opens the flat array at path, restoring it if the file holds
// a committed array and creating an empty one otherwise.
func NewFlatArray(ctx context.Context, path string, tt *checkpoint.TraceType) (*FlatArray, error) {
	cpSize := int64(tt.CheckpointSize())
	validate := func(_ io.ReaderAt, h *FileHeader, fileSize int64) error {
		if h.Size < 0 {
			return CorruptFileError{Reason: fmt.Sprintf("negative size %d", h.Size)}
		}
		if need := int64(baseHeaderSize) + int64(h.Size)*cpSize; fileSize < need {
			return CorruptFileError{Reason: fmt.Sprintf("file holds %d bytes, header claims %d", fileSize, need)}
		}
		return nil
	}
	fc, err := openFileCollection(ctx, path, tt, flatArraySubVersion, 0, validate)
	if err != nil {
		return nil, err
	}
	return &FlatArray{fileCollection: fc}, nil
}

func (a *FlatArray) slot(rank int64) int64 {
	return a.headerLen() + rank*int64(a.tt.CheckpointSize())
}

// Insert appends cp.
func (a *FlatArray) Insert(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if cp.Location == nil {
		return ErrMissingLocation
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.file == nil {
		return ErrDisposed
	}
	if err := a.checkCapacity(); err != nil {
		return err
	}
	a.markDirty(ctx)
	buf := make([]byte, a.tt.CheckpointSize())
	cp.Serialize(buf)
	if _, err := a.file.WriteAt(buf, a.slot(int64(a.header.Size))); err != nil {
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}
	a.header.Size++
	return nil
}

// Get returns the checkpoint of the given rank.
func (a *FlatArray) Get(_ context.Context, rank int64) (*checkpoint.Checkpoint, error) {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	if a.file == nil {
		return nil, ErrDisposed
	}
	return a.get(rank)
}

func (a *FlatArray) get(rank int64) (*checkpoint.Checkpoint, error) {
	if rank < 0 || rank >= int64(a.header.Size) {
		return nil, RankOutOfRangeError{Rank: rank, Size: int64(a.header.Size)}
	}
	buf := make([]byte, a.tt.CheckpointSize())
	if _, err := a.file.ReadAt(buf, a.slot(rank)); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %d: %w", rank, err)
	}
	cp, _, err := checkpoint.Deserialize(a.tt, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %d: %w", rank, err)
	}
	return cp, nil
}

// BinarySearch returns the rank of key, or -(insertionPoint)-1 if it is not
// in the array.
func (a *FlatArray) BinarySearch(_ context.Context, key *checkpoint.Checkpoint) (int64, error) {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	if a.file == nil {
		return 0, ErrDisposed
	}
	lo, hi := int64(0), int64(a.header.Size)-1
	for lo <= hi {
		mid := int64(uint64(lo+hi) >> 1)
		cp, err := a.get(mid)
		if err != nil {
			return 0, err
		}
		switch c := cp.Compare(key); {
		case c == 0:
			return mid, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -lo - 1, nil
}

// Dispose commits the header and releases the file. Calling it again does
// nothing.
func (a *FlatArray) Dispose(ctx context.Context) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.dispose(ctx, false, nil)
}

// Delete releases the file without committing it and removes it.
func (a *FlatArray) Delete(ctx context.Context) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.remove(ctx)
}
