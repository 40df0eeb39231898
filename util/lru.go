package util

import (
	"fmt"
	"strings"
	"sync"
)

/*
LRU is a capacity-limited cache with an optional eviction hook. The checkpoint
B-tree uses it to hold nodes keyed by file offset; the hook is how dirty nodes
get written back before they leave memory.

The hook is called with the cache mutex held, so it must not call back into
the cache.
*/

////////////////////////////////////////////////////////////////////////////////

// LRU is a simple LRU cache.
type LRU[K comparable, V any] struct {
	cache      map[K]*listNode[K, V]
	head, tail *listNode[K, V]
	count      int64
	cap        int64
	onEvict    func(K, V)
	mtx        *sync.Mutex
}

type listNode[K comparable, V any] struct {
	key        K
	value      V
	prev, next *listNode[K, V]
}

// NewLRU returns a new LRU cache with the given capacity.
func NewLRU[K comparable, V any](capacity int64) *LRU[K, V] {
	head, tail := &listNode[K, V]{}, &listNode[K, V]{}
	head.next = tail
	tail.prev = head
	return &LRU[K, V]{
		cache: make(map[K]*listNode[K, V]),
		head:  head,
		tail:  tail,
		cap:   capacity,
		mtx:   &sync.Mutex{},
	}
}

// OnEvict registers a function called for every entry pushed out by
// capacity. Entries removed with Reset or Remove do not trigger it.
func (lru *LRU[K, V]) OnEvict(f func(K, V)) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.onEvict = f
}

// Reset clears the cache.
func (lru *LRU[K, V]) Reset() {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	lru.cache = make(map[K]*listNode[K, V])
	lru.head.next = lru.tail
	lru.tail.prev = lru.head
	lru.count = 0
}

func (lru *LRU[K, V]) addToFront(node *listNode[K, V]) {
	node.next = lru.head.next
	node.prev = lru.head
	lru.head.next.prev = node
	lru.head.next = node
}

func (lru *LRU[K, V]) removeNode(node *listNode[K, V]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (lru *LRU[K, V]) moveToFront(node *listNode[K, V]) {
	lru.removeNode(node)
	lru.addToFront(node)
}

// Put adds a new key-value pair to the cache. If the key already exists, the value is updated.
func (lru *LRU[K, V]) Put(key K, value V) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		node.value = value
		lru.moveToFront(node)
	} else {
		node := &listNode[K, V]{key: key, value: value}
		lru.cache[key] = node
		lru.addToFront(node)
		lru.count++
	}
	for lru.count > lru.cap {
		lru.evict()
	}
}

// Get returns the value associated with the given key. The second return value is true if the key exists in the cache.
func (lru *LRU[K, V]) Get(key K) (V, bool) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		lru.moveToFront(node)
		return node.value, true
	}
	var v V
	return v, false
}

// Remove drops a key without calling the eviction hook.
func (lru *LRU[K, V]) Remove(key K) {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	if node, exists := lru.cache[key]; exists {
		lru.removeNode(node)
		delete(lru.cache, key)
		lru.count--
	}
}

// Len returns the number of cached entries.
func (lru *LRU[K, V]) Len() int {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	return int(lru.count)
}

// Each calls f on every entry from most to least recently used. It does not
// change recency.
func (lru *LRU[K, V]) Each(f func(K, V) error) error {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	for node := lru.head.next; node != lru.tail; node = node.next {
		if err := f(node.key, node.value); err != nil {
			return err
		}
	}
	return nil
}

func (lru *LRU[K, V]) evict() {
	if lru.tail.prev == lru.head {
		return // Cache is empty
	}
	victim := lru.tail.prev
	lru.count--
	delete(lru.cache, victim.key)
	lru.removeNode(victim)
	if lru.onEvict != nil {
		lru.onEvict(victim.key, victim.value)
	}
}

// String returns a string representation of the cache.
func (lru *LRU[K, V]) String() string {
	lru.mtx.Lock()
	defer lru.mtx.Unlock()
	sb := &strings.Builder{}
	sb.WriteString(fmt.Sprintf("(%d/%d) [", lru.count, lru.cap))
	for node := lru.head.next; node != lru.tail; node = node.next {
		sb.WriteString(fmt.Sprintf("%v:%v", node.key, node.value))
		if node.next != lru.tail {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
