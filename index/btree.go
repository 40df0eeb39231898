package index

import (
	"context"
	"fmt"
	"io"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/util"
	"github.com/wkalt/ckpt/util/log"
)

/*
BTree is a file-backed B-tree of checkpoints with degree t: every node holds at
most 2t-1 checkpoints and 2t children, and every node but the root holds at
least t-1.

Inserts descend from the root, splitting every full node on the way down
before entering it, so the leaf that receives the checkpoint always has room
and a split never has to propagate back up. A split moves the upper t-1
entries of a node to a new sibling and promotes the median into the parent.
When the root is full a new root is allocated above it; that is the only way
the tree grows in height. A checkpoint equal to one already in the tree is
ignored.

Nodes are appended to the file as they are allocated. The header extension
records the root offset and the degree; a file written with another degree is
rebuilt rather than read.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	btreeSubVersion   = int32(4)
	btreeExtensionLen = 8 + 4
)

// BTree is a file-backed checkpoint B-tree.
type BTree struct {
	*fileCollection

	degree     int
	nodeSize   int64
	nextOffset int64
	cache      *nodeCache
}

// NewBTree opens the B-tree at path, restoring it if the file holds a
// committed tree of the same sub-version and degree, and creating an empty
// one otherwise.
func NewBTree(ctx context.Context, path string, tt *checkpoint.TraceType, opts ...Option) (*BTree, error) {
	cfg := newConfig(opts)
	degree := cfg.degreeFor(tt.CheckpointSize())
	size := nodeSize(degree, tt.CheckpointSize())
	headerLen := int64(baseHeaderSize + btreeExtensionLen)

	// The root is read while restoring, so an unreadable root rebuilds the
	// file like any other header mismatch.
	var (
		restoredRoot *btreeNode
		restoredSize int64
	)
	validate := func(r io.ReaderAt, h *FileHeader, fileSize int64) error {
		root, foundDegree := readBTreeExtension(h.Extra)
		if int(foundDegree) != degree {
			return VersionMismatchError{Field: "degree", Found: foundDegree, Expected: int32(degree)}
		}
		if (fileSize-headerLen)%size != 0 || fileSize < headerLen+size {
			return CorruptFileError{Reason: fmt.Sprintf("file size %d is not a whole number of nodes", fileSize)}
		}
		if root < headerLen || root >= fileSize || (root-headerLen)%size != 0 {
			return CorruptFileError{Reason: fmt.Sprintf("root offset %d out of range", root)}
		}
		n, err := serializeIn(r, tt, root, degree)
		if err != nil {
			return err
		}
		restoredRoot, restoredSize = n, fileSize
		return nil
	}
	fc, err := openFileCollection(ctx, path, tt, btreeSubVersion, btreeExtensionLen, validate)
	if err != nil {
		return nil, err
	}
	t := &BTree{
		fileCollection: fc,
		degree:         degree,
		nodeSize:       size,
		cache:          newNodeCache(fc.file, tt, degree, cfg.nodeCacheSize),
	}
	if fc.createdFromScratch {
		t.nextOffset = headerLen
		root := t.allocateNode()
		t.cache.setRoot(root)
		t.writeExtension()
		return t, nil
	}
	t.nextOffset = restoredSize
	metrics.NodeReads.Inc()
	t.cache.setRoot(restoredRoot)
	return t, nil
}

func readBTreeExtension(extra []byte) (root int64, degree int32) {
	offset := util.ReadI64(extra, &root)
	util.ReadI32(extra[offset:], &degree)
	return root, degree
}

func (t *BTree) writeExtension() {
	offset := util.I64(t.header.Extra, t.cache.getRoot().offset)
	util.I32(t.header.Extra[offset:], int32(t.degree))
}

// Degree returns the degree of the tree.
func (t *BTree) Degree() int {
	return t.degree
}

// allocateNode appends a new empty node to the file. It starts dirty so it
// is written even if nothing is ever stored in it.
func (t *BTree) allocateNode() *btreeNode {
	n := newBTreeNode(t.nextOffset, t.degree)
	n.dirty = true
	t.nextOffset += t.nodeSize
	t.cache.add(n)
	return n
}

// Insert adds cp to the tree. Checkpoints equal to one already present are
// ignored.
func (t *BTree) Insert(ctx context.Context, cp *checkpoint.Checkpoint) error {
	_, err := t.insert(ctx, cp)
	return err
}

func (t *BTree) insert(ctx context.Context, cp *checkpoint.Checkpoint) (bool, error) {
	if cp.Location == nil {
		return false, ErrMissingLocation
	}
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.file == nil {
		return false, ErrDisposed
	}
	if err := t.checkCapacity(); err != nil {
		return false, err
	}
	t.markDirty(ctx)
	root := t.cache.getRoot()
	if root.full() {
		s := t.allocateNode()
		s.setChild(0, root.offset)
		t.cache.setRoot(s)
		t.split(s, 0, root)
		t.writeExtension()
		root = s
	}
	inserted, err := t.insertNonFull(root, cp)
	if err != nil {
		return false, err
	}
	if inserted {
		t.header.Size++
	}
	return inserted, nil
}

// insertNonFull inserts cp below x, which is not full.
func (t *BTree) insertNonFull(x *btreeNode, cp *checkpoint.Checkpoint) (bool, error) {
	for {
		i, found := t.position(x, cp)
		if found {
			return false, nil
		}
		if x.isLeaf() {
			for j := x.numEntries; j > i; j-- {
				x.setEntry(j, x.entry(j-1))
			}
			x.setEntry(i, cp)
			return true, nil
		}
		c, err := t.cache.get(x.child(i))
		if err != nil {
			return false, err
		}
		if c.full() {
			t.split(x, i, c)
			switch cmp := cp.Compare(x.entry(i)); {
			case cmp == 0:
				return false, nil
			case cmp > 0:
				i++
			}
			if c, err = t.cache.get(x.child(i)); err != nil {
				return false, err
			}
		}
		x = c
	}
}

// position returns the index of the first entry of n greater than cp, and
// whether an entry equal to cp precedes it.
func (t *BTree) position(n *btreeNode, cp *checkpoint.Checkpoint) (int, bool) {
	lo, hi := 0, n.numEntries
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c := n.entry(mid).Compare(cp)
		if c == 0 {
			return mid, true
		}
		if c < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, false
}

// split moves the upper half of y, the full i'th child of x, into a new
// sibling and promotes the median of y into x at i.
func (t *BTree) split(x *btreeNode, i int, y *btreeNode) {
	z := t.allocateNode()
	deg := t.degree
	for j := 0; j < deg-1; j++ {
		z.setEntry(j, y.entry(j+deg))
	}
	if !y.isLeaf() {
		for j := 0; j < deg; j++ {
			z.setChild(j, y.child(j+deg))
			y.setChild(j+deg, NullChild)
		}
	}
	median := y.entry(deg - 1)
	for j := deg - 1; j < 2*deg-1; j++ {
		y.setEntry(j, nil)
	}
	for j := x.numEntries; j > i; j-- {
		x.setChild(j+1, x.child(j))
	}
	x.setChild(i+1, z.offset)
	for j := x.numEntries; j > i; j-- {
		x.setEntry(j, x.entry(j-1))
	}
	x.setEntry(i, median)
}

// BinarySearch returns the rank of key, or -(floorRank+1)-1 if it is not in
// the tree.
func (t *BTree) BinarySearch(ctx context.Context, key *checkpoint.Checkpoint) (int64, error) {
	v := NewCheckpointVisitor(key)
	if err := t.Accept(ctx, v); err != nil {
		return 0, err
	}
	return v.Rank(), nil
}

// Accept walks the search path of the visitor from the root, stopping at
// the first entry it reports as a match.
func (t *BTree) Accept(ctx context.Context, v Visitor) error {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	if t.file == nil {
		return ErrDisposed
	}
	n := t.cache.getRoot()
	for {
		lo, hi := 0, n.numEntries-1
		for lo <= hi {
			mid := int(uint(lo+hi) >> 1)
			c := v.Compare(n.entry(mid))
			switch {
			case c == 0:
				return nil
			case c > 0:
				hi = mid - 1
			default:
				lo = mid + 1
			}
		}
		offset := n.child(lo)
		if offset == NullChild {
			return nil
		}
		child, err := t.cache.get(offset)
		if err != nil {
			log.Errorw(ctx, "failed to load node", "path", t.path, "offset", offset, "error", err)
			return err
		}
		n = child
	}
}

// NodeInfo describes one node for diagnostics.
type NodeInfo struct {
	Offset   int64                    `json:"offset"`
	Depth    int                      `json:"depth"`
	Entries  []*checkpoint.Checkpoint `json:"-"`
	Children []int64                  `json:"children"`
}

// Walk calls f on every node in depth-first order.
func (t *BTree) Walk(ctx context.Context, f func(NodeInfo) error) error {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	if t.file == nil {
		return ErrDisposed
	}
	var walk func(n *btreeNode, depth int) error
	walk = func(n *btreeNode, depth int) error {
		info := NodeInfo{
			Offset:  n.offset,
			Depth:   depth,
			Entries: append([]*checkpoint.Checkpoint{}, n.entries[:n.numEntries]...),
		}
		if !n.isLeaf() {
			info.Children = append([]int64{}, n.children[:n.numEntries+1]...)
		}
		if err := f(info); err != nil {
			return err
		}
		for _, offset := range info.Children {
			child, err := t.cache.get(offset)
			if err != nil {
				return err
			}
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.cache.getRoot(), 0)
}

// Dispose writes out dirty nodes and the header, then releases the file.
// Calling it again does nothing.
func (t *BTree) Dispose(ctx context.Context) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.dispose(ctx, false, func() error {
		t.writeExtension()
		return t.cache.flush()
	})
	t.cache.reset()
	return err
}

// Delete releases the file without committing it and removes it.
func (t *BTree) Delete(ctx context.Context) error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.cache.reset()
	return t.remove(ctx)
}
