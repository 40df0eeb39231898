package index

import (
	"context"
	"slices"
	"sync"

	"github.com/wkalt/ckpt/checkpoint"
)

// MemoryIndex is an index held entirely in memory. It is never restored, so
// it is always created from scratch.
type MemoryIndex struct {
	checkpoints []*checkpoint.Checkpoint
	timeRange   checkpoint.TimeRange
	nbEvents    int64
	mtx         *sync.RWMutex
}

// NewMemoryIndex returns an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{mtx: &sync.RWMutex{}}
}

// Insert adds cp in order. Checkpoints arrive in ascending order, so this is
// an append; a checkpoint equal to one already present is ignored, as in the
// B-tree.
func (m *MemoryIndex) Insert(_ context.Context, cp *checkpoint.Checkpoint) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	i, found := slices.BinarySearchFunc(m.checkpoints, cp, (*checkpoint.Checkpoint).Compare)
	if found {
		return nil
	}
	m.checkpoints = slices.Insert(m.checkpoints, i, cp)
	return nil
}

// BinarySearch returns the rank of key, or -(insertionPoint)-1 if absent.
func (m *MemoryIndex) BinarySearch(_ context.Context, key *checkpoint.Checkpoint) (int64, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	i, found := slices.BinarySearchFunc(m.checkpoints, key, (*checkpoint.Checkpoint).Compare)
	if !found {
		return -int64(i) - 1, nil
	}
	return int64(i), nil
}

// Get returns the checkpoint of the given rank.
func (m *MemoryIndex) Get(_ context.Context, rank int64) (*checkpoint.Checkpoint, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	if rank < 0 || rank >= int64(len(m.checkpoints)) {
		return nil, RankOutOfRangeError{Rank: rank, Size: int64(len(m.checkpoints))}
	}
	return m.checkpoints[rank], nil
}

func (m *MemoryIndex) Size() int64 {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return int64(len(m.checkpoints))
}

func (m *MemoryIndex) TimeRange() checkpoint.TimeRange {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.timeRange
}

func (m *MemoryIndex) SetTimeRange(_ context.Context, r checkpoint.TimeRange) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.timeRange = r
}

func (m *MemoryIndex) NbEvents() int64 {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.nbEvents
}

func (m *MemoryIndex) SetNbEvents(_ context.Context, n int64) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.nbEvents = n
}

func (m *MemoryIndex) CreatedFromScratch() bool {
	return true
}

// Dispose drops the checkpoints.
func (m *MemoryIndex) Dispose(context.Context) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.checkpoints = nil
	return nil
}

// Delete does nothing; nothing was persisted.
func (m *MemoryIndex) Delete(context.Context) error {
	return nil
}
