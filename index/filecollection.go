package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/util"
	"github.com/wkalt/ckpt/util/log"
)

/*
fileCollection is the file and header lifecycle shared by the B-tree and the
flat array. It owns the file handle from construction to Dispose.

Opening a path either restores the file there, if its header is committed and
its versions match, or discards it and initializes a fresh one. There is no
upgrade path: a collection that cannot be restored is rebuilt by its caller.

Writes are lazy except for one. The first modification after opening
overwrites the version word with InvalidVersion (Clean -> Dirty). Dispose
writes the nodes, then the header payload, syncs, and only then restores the
version word (Dirty -> Clean). A crash anywhere in between leaves a file that
reads as invalid and is rebuilt on the next open.
*/

////////////////////////////////////////////////////////////////////////////////

type dirtyState int

const (
	stateClean dirtyState = iota
	stateDirty
)

func (s dirtyState) String() string {
	switch s {
	case stateClean:
		return "clean"
	case stateDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// headerValidator checks collection-specific consistency of a restored
// header against the file contents.
type headerValidator func(r io.ReaderAt, h *FileHeader, fileSize int64) error

type fileCollection struct {
	path       string
	tt         *checkpoint.TraceType
	subVersion int32
	extraLen   int

	file               *os.File
	header             *FileHeader
	state              dirtyState
	createdFromScratch bool
	cacheMisses        atomic.Int64

	mtx *sync.RWMutex
}

func openFileCollection(
	ctx context.Context,
	path string,
	tt *checkpoint.TraceType,
	subVersion int32,
	extraLen int,
	validate headerValidator,
) (*fileCollection, error) {
	if !tt.Persistable() {
		return nil, ErrNotPersistable
	}
	fc := &fileCollection{
		path:       path,
		tt:         tt,
		subVersion: subVersion,
		extraLen:   extraLen,
		mtx:        &sync.RWMutex{},
	}
	ctx = log.AddTags(ctx, "path", path)
	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err := fc.restore(validate); err != nil {
			log.Infow(ctx, "rebuilding checkpoint file", "reason", err)
			fc.closeFile(ctx)
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to remove stale checkpoint file: %w", err)
			}
		} else {
			return fc, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		log.Warnw(ctx, "failed to stat checkpoint file", "error", err)
	}
	if err := fc.initialize(); err != nil {
		return nil, err
	}
	return fc, nil
}

// initialize creates the file and writes an initial header. The header goes
// out with InvalidVersion: nothing has been committed yet.
func (fc *fileCollection) initialize() error {
	f, err := os.OpenFile(fc.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %w", err)
	}
	header := &FileHeader{
		Version:    InvalidVersion,
		SubVersion: fc.subVersion,
		Extra:      make([]byte, fc.extraLen),
	}
	if _, err := f.WriteAt(header.ToBytes(), 0); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write checkpoint file header: %w", err)
	}
	fc.file = f
	fc.header = header
	fc.state = stateDirty
	fc.createdFromScratch = true
	return nil
}

func (fc *fileCollection) restore(validate headerValidator) error {
	f, err := os.OpenFile(fc.path, os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	fc.file = f
	header, err := readHeader(f, fc.extraLen)
	if err != nil {
		return err
	}
	if err := header.check(fc.subVersion); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat checkpoint file: %w", err)
	}
	if validate != nil {
		if err := validate(f, header, info.Size()); err != nil {
			return err
		}
	}
	fc.header = header
	fc.state = stateClean
	fc.createdFromScratch = false
	return nil
}

// markDirty invalidates the on-disk version word on the first modification.
// A failed write is logged; the collection carries on and Dispose retries
// the full header.
func (fc *fileCollection) markDirty(ctx context.Context) {
	if fc.state == stateDirty || fc.file == nil {
		return
	}
	buf := make([]byte, 4)
	util.I32(buf, InvalidVersion)
	if _, err := fc.file.WriteAt(buf, 0); err != nil {
		log.Errorw(ctx, "failed to invalidate checkpoint file version", "path", fc.path, "error", err)
	}
	fc.state = stateDirty
}

// commit writes the header payload and then, last, the version word.
func (fc *fileCollection) commit() error {
	buf := fc.header.ToBytes()
	util.I32(buf, InvalidVersion)
	if _, err := fc.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := fc.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	util.I32(buf, Version)
	if _, err := fc.file.WriteAt(buf[:4], 0); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	if err := fc.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	fc.header.Version = Version
	fc.state = stateClean
	return nil
}

// dispose releases the file. Unless deleting, a dirty collection runs flush
// (which writes collection data) and then commits the header. The version is
// not restamped if flush fails. Calling dispose on a released collection does
// nothing.
func (fc *fileCollection) dispose(ctx context.Context, deleting bool, flush func() error) error {
	if fc.file == nil {
		return nil
	}
	var err error
	if !deleting && fc.state == stateDirty {
		if flush != nil {
			err = flush()
		}
		if err == nil {
			err = fc.commit()
		}
		if err != nil {
			log.Errorw(ctx, "failed to persist checkpoint file", "path", fc.path, "error", err)
		}
	}
	fc.closeFile(ctx)
	return err
}

// remove disposes without committing and deletes the file.
func (fc *fileCollection) remove(ctx context.Context) error {
	_ = fc.dispose(ctx, true, nil)
	if err := os.Remove(fc.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

func (fc *fileCollection) closeFile(ctx context.Context) {
	if fc.file == nil {
		return
	}
	if err := fc.file.Close(); err != nil {
		log.Warnw(ctx, "failed to close checkpoint file", "path", fc.path, "error", err)
	}
	fc.file = nil
}

// checkCapacity fails once the int32 checkpoint count in the header is
// exhausted.
func (fc *fileCollection) checkCapacity() error {
	if fc.header.Size >= math.MaxInt32 {
		return ErrCollectionFull
	}
	return nil
}

func (fc *fileCollection) headerLen() int64 {
	return int64(baseHeaderSize + fc.extraLen)
}

// Path returns the file path.
func (fc *fileCollection) Path() string {
	return fc.path
}

// Size returns the number of checkpoints.
func (fc *fileCollection) Size() int64 {
	fc.mtx.RLock()
	defer fc.mtx.RUnlock()
	return int64(fc.header.Size)
}

// TimeRange returns the time range of the indexed trace.
func (fc *fileCollection) TimeRange() checkpoint.TimeRange {
	fc.mtx.RLock()
	defer fc.mtx.RUnlock()
	return fc.header.TimeRange
}

// SetTimeRange records the time range of the indexed trace.
func (fc *fileCollection) SetTimeRange(ctx context.Context, r checkpoint.TimeRange) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	if fc.header.TimeRange != r {
		fc.markDirty(ctx)
		fc.header.TimeRange = r
	}
}

// NbEvents returns the number of events in the indexed trace.
func (fc *fileCollection) NbEvents() int64 {
	fc.mtx.RLock()
	defer fc.mtx.RUnlock()
	return fc.header.NbEvents
}

// SetNbEvents records the number of events in the indexed trace.
func (fc *fileCollection) SetNbEvents(ctx context.Context, n int64) {
	fc.mtx.Lock()
	defer fc.mtx.Unlock()
	if fc.header.NbEvents != n {
		fc.markDirty(ctx)
		fc.header.NbEvents = n
	}
}

// CreatedFromScratch reports whether the collection was initialized rather
// than restored.
func (fc *fileCollection) CreatedFromScratch() bool {
	fc.mtx.RLock()
	defer fc.mtx.RUnlock()
	return fc.createdFromScratch
}

// CacheMisses returns the number of misses recorded with IncCacheMisses.
func (fc *fileCollection) CacheMisses() int64 {
	return fc.cacheMisses.Load()
}

// IncCacheMisses records a lookup the caller had to answer by scanning.
func (fc *fileCollection) IncCacheMisses() {
	fc.cacheMisses.Add(1)
}
