package index

import (
	"fmt"
	"io"
	"strings"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/util"
)

/*
A B-tree node is a fixed-size block of the index file:

    children:   2t int64 file offsets (NullChild if absent)
    numEntries: int32
    entries:    2t-1 checkpoint slots of the trace type's checkpoint size

Entries are sorted and left-packed; unused slots are zeroed on disk. A node's
offset is assigned when it is allocated and never changes, so child pointers
are plain file offsets.
*/

////////////////////////////////////////////////////////////////////////////////

// NullChild marks an absent child.
const NullChild = int64(-1)

type btreeNode struct {
	offset     int64
	entries    []*checkpoint.Checkpoint
	children   []int64
	numEntries int
	dirty      bool
}

func newBTreeNode(offset int64, degree int) *btreeNode {
	n := &btreeNode{
		offset:   offset,
		entries:  make([]*checkpoint.Checkpoint, 2*degree-1),
		children: make([]int64, 2*degree),
	}
	for i := range n.children {
		n.children[i] = NullChild
	}
	return n
}

// nodeSize returns the on-disk size of a node.
func nodeSize(degree int, checkpointSize int) int64 {
	return int64(8*2*degree + 4 + (2*degree-1)*checkpointSize)
}

func (n *btreeNode) entry(i int) *checkpoint.Checkpoint {
	return n.entries[i]
}

// setEntry stores cp in slot i. Filling an empty slot or emptying a filled
// one adjusts the entry count.
func (n *btreeNode) setEntry(i int, cp *checkpoint.Checkpoint) {
	switch {
	case n.entries[i] == nil && cp != nil:
		n.numEntries++
	case n.entries[i] != nil && cp == nil:
		n.numEntries = max(n.numEntries-1, 0)
	}
	n.entries[i] = cp
	n.dirty = true
}

func (n *btreeNode) child(i int) int64 {
	offset := n.children[i]
	if offset < 0 && offset != NullChild {
		panic(fmt.Sprintf("index: node %d has invalid child offset %d at %d", n.offset, offset, i))
	}
	return offset
}

func (n *btreeNode) setChild(i int, offset int64) {
	if offset < 0 && offset != NullChild {
		panic(fmt.Sprintf("index: setting invalid child offset %d at %d of node %d", offset, i, n.offset))
	}
	n.children[i] = offset
	n.dirty = true
}

func (n *btreeNode) isLeaf() bool {
	return n.children[0] == NullChild
}

func (n *btreeNode) full() bool {
	return n.numEntries == len(n.entries)
}

// serializeOut writes the node at its offset and clears the dirty flag.
func (n *btreeNode) serializeOut(w io.WriterAt, checkpointSize int) error {
	buf := make([]byte, 8*len(n.children)+4+len(n.entries)*checkpointSize)
	offset := 0
	for _, c := range n.children {
		offset += util.I64(buf[offset:], c)
	}
	offset += util.I32(buf[offset:], int32(n.numEntries))
	for i := 0; i < n.numEntries; i++ {
		offset += n.entries[i].Serialize(buf[offset:])
	}
	if _, err := w.WriteAt(buf, n.offset); err != nil {
		return fmt.Errorf("failed to write node %d: %w", n.offset, err)
	}
	n.dirty = false
	return nil
}

// serializeIn reads the node at offset. Offsets and counts that cannot have
// been written by serializeOut are reported as CorruptNodeError.
func serializeIn(r io.ReaderAt, tt *checkpoint.TraceType, offset int64, degree int) (*btreeNode, error) {
	n := newBTreeNode(offset, degree)
	buf := make([]byte, nodeSize(degree, tt.CheckpointSize()))
	if _, err := r.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("failed to read node %d: %w", offset, err)
	}
	pos := 0
	for i := range n.children {
		pos += util.ReadI64(buf[pos:], &n.children[i])
		if n.children[i] < 0 && n.children[i] != NullChild {
			return nil, CorruptNodeError{Offset: offset, Reason: fmt.Sprintf("child %d has offset %d", i, n.children[i])}
		}
	}
	var count int32
	pos += util.ReadI32(buf[pos:], &count)
	if count < 0 || int(count) > len(n.entries) {
		return nil, CorruptNodeError{Offset: offset, Reason: fmt.Sprintf("entry count %d", count)}
	}
	for i := 0; i < int(count); i++ {
		cp, m, err := checkpoint.Deserialize(tt, buf[pos:])
		if err != nil {
			return nil, CorruptNodeError{Offset: offset, Reason: err.Error()}
		}
		n.entries[i] = cp
		pos += m
	}
	n.numEntries = int(count)
	return n, nil
}

func (n *btreeNode) String() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "node@%d [", n.offset)
	for i := 0; i < n.numEntries; i++ {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(n.entries[i].Timestamp.String())
	}
	sb.WriteString("]")
	return sb.String()
}
