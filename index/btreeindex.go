package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/util/log"
)

/*
BTreeIndex keeps two files in one directory: a B-tree for searching by key and
a flat array for reading by rank. The two are restored or rebuilt together;
if only one of them restores, or they disagree on their size, both are
discarded.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	// BTreeFileName is the name of the B-tree file in an index directory.
	BTreeFileName = "checkpoint_btree.idx"

	// FlatArrayFileName is the name of the flat array file in an index
	// directory.
	FlatArrayFileName = "checkpoint_flatarray.idx"
)

// BTreeIndex is a persistent index backed by a B-tree and a flat array.
type BTreeIndex struct {
	dir   string
	tree  *BTree
	array *FlatArray
}

// NewBTreeIndex opens the index in dir, creating dir if needed.
func NewBTreeIndex(ctx context.Context, dir string, tt *checkpoint.TraceType, opts ...Option) (*BTreeIndex, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	idx, err := openBTreeIndex(ctx, dir, tt, opts)
	if err != nil {
		return nil, err
	}
	if idx.tree.CreatedFromScratch() == idx.array.CreatedFromScratch() && idx.tree.Size() == idx.array.Size() {
		return idx, nil
	}
	log.Infow(ctx, "checkpoint files out of sync, rebuilding", "dir", dir,
		"btree_size", idx.tree.Size(), "flatarray_size", idx.array.Size())
	if err := idx.Delete(ctx); err != nil {
		return nil, err
	}
	return openBTreeIndex(ctx, dir, tt, opts)
}

func openBTreeIndex(ctx context.Context, dir string, tt *checkpoint.TraceType, opts []Option) (*BTreeIndex, error) {
	tree, err := NewBTree(ctx, filepath.Join(dir, BTreeFileName), tt, opts...)
	if err != nil {
		return nil, err
	}
	array, err := NewFlatArray(ctx, filepath.Join(dir, FlatArrayFileName), tt)
	if err != nil {
		_ = tree.Dispose(ctx)
		return nil, err
	}
	return &BTreeIndex{dir: dir, tree: tree, array: array}, nil
}

// Dir returns the index directory.
func (idx *BTreeIndex) Dir() string {
	return idx.dir
}

// Tree returns the B-tree half of the index.
func (idx *BTreeIndex) Tree() *BTree {
	return idx.tree
}

// Insert adds cp to both files. Checkpoints the tree already holds are
// ignored.
func (idx *BTreeIndex) Insert(ctx context.Context, cp *checkpoint.Checkpoint) error {
	inserted, err := idx.tree.insert(ctx, cp)
	if err != nil || !inserted {
		return err
	}
	return idx.array.Insert(ctx, cp)
}

func (idx *BTreeIndex) BinarySearch(ctx context.Context, key *checkpoint.Checkpoint) (int64, error) {
	return idx.tree.BinarySearch(ctx, key)
}

func (idx *BTreeIndex) Get(ctx context.Context, rank int64) (*checkpoint.Checkpoint, error) {
	return idx.array.Get(ctx, rank)
}

func (idx *BTreeIndex) Size() int64 {
	return idx.tree.Size()
}

func (idx *BTreeIndex) TimeRange() checkpoint.TimeRange {
	return idx.tree.TimeRange()
}

func (idx *BTreeIndex) SetTimeRange(ctx context.Context, r checkpoint.TimeRange) {
	idx.tree.SetTimeRange(ctx, r)
	idx.array.SetTimeRange(ctx, r)
}

func (idx *BTreeIndex) NbEvents() int64 {
	return idx.tree.NbEvents()
}

func (idx *BTreeIndex) SetNbEvents(ctx context.Context, n int64) {
	idx.tree.SetNbEvents(ctx, n)
	idx.array.SetNbEvents(ctx, n)
}

func (idx *BTreeIndex) CreatedFromScratch() bool {
	return idx.tree.CreatedFromScratch()
}

// CacheMisses returns the number of misses callers recorded on the index.
func (idx *BTreeIndex) CacheMisses() int64 {
	return idx.tree.CacheMisses()
}

// IncCacheMisses records a lookup the caller had to answer by scanning.
func (idx *BTreeIndex) IncCacheMisses() {
	idx.tree.IncCacheMisses()
}

func (idx *BTreeIndex) Dispose(ctx context.Context) error {
	return errors.Join(idx.tree.Dispose(ctx), idx.array.Dispose(ctx))
}

func (idx *BTreeIndex) Delete(ctx context.Context) error {
	return errors.Join(idx.tree.Delete(ctx), idx.array.Delete(ctx))
}
