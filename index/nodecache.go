package index

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/util"
)

/*
nodeCache holds the B-tree nodes in memory. The root is pinned outside the
LRU; every other node is cached by file offset and written back, if dirty,
when the LRU pushes it out. Write-back errors on eviction cannot be returned
from the lookup that caused them, so the first one is kept and returned by
flush.

A single insert step holds at most the current node, a child and a freshly
split sibling, so the LRU must keep at least that many nodes for a step's
nodes to stay resident while they are modified.
*/

////////////////////////////////////////////////////////////////////////////////

type nodeCache struct {
	file   *os.File
	tt     *checkpoint.TraceType
	degree int

	root     *btreeNode
	lru      *util.LRU[int64, *btreeNode]
	evictErr error

	mtx *sync.Mutex
}

func newNodeCache(file *os.File, tt *checkpoint.TraceType, degree int, size int) *nodeCache {
	c := &nodeCache{
		file:   file,
		tt:     tt,
		degree: degree,
		lru:    util.NewLRU[int64, *btreeNode](int64(size)),
		mtx:    &sync.Mutex{},
	}
	c.lru.OnEvict(c.writeBack)
	return c
}

func (c *nodeCache) writeBack(_ int64, n *btreeNode) {
	if !n.dirty {
		return
	}
	if err := n.serializeOut(c.file, c.tt.CheckpointSize()); err != nil {
		c.evictErr = errors.Join(c.evictErr, err)
		return
	}
	metrics.NodeWrites.Inc()
}

// get returns the node at offset, reading it from disk on a miss.
func (c *nodeCache) get(offset int64) (*btreeNode, error) {
	if offset < 0 {
		return nil, fmt.Errorf("invalid node offset %d", offset)
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.root != nil && c.root.offset == offset {
		metrics.Hits.Inc()
		return c.root, nil
	}
	if n, ok := c.lru.Get(offset); ok {
		metrics.Hits.Inc()
		return n, nil
	}
	metrics.Misses.Inc()
	n, err := serializeIn(c.file, c.tt, offset, c.degree)
	if err != nil {
		return nil, err
	}
	metrics.NodeReads.Inc()
	c.lru.Put(offset, n)
	return n, nil
}

// add caches a newly allocated node.
func (c *nodeCache) add(n *btreeNode) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.lru.Put(n.offset, n)
}

// setRoot pins n as the root. The previous root moves into the LRU.
func (c *nodeCache) setRoot(n *btreeNode) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	old := c.root
	c.lru.Remove(n.offset)
	c.root = n
	if old != nil && old != n {
		c.lru.Put(old.offset, old)
	}
}

func (c *nodeCache) getRoot() *btreeNode {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.root
}

// flush writes every dirty node, then returns any error from earlier
// evictions along with its own.
func (c *nodeCache) flush() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	write := func(_ int64, n *btreeNode) error {
		if !n.dirty {
			return nil
		}
		if err := n.serializeOut(c.file, c.tt.CheckpointSize()); err != nil {
			return err
		}
		metrics.NodeWrites.Inc()
		return nil
	}
	err := c.lru.Each(write)
	if err == nil && c.root != nil {
		err = write(c.root.offset, c.root)
	}
	err = errors.Join(c.evictErr, err)
	c.evictErr = nil
	return err
}

// reset drops all nodes without writing them.
func (c *nodeCache) reset() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.lru.Reset()
	c.root = nil
	c.evictErr = nil
}

func (c *nodeCache) len() int {
	return c.lru.Len()
}
