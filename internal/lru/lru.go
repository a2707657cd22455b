// Package lru provides a fixed-capacity, mutex-guarded LRU cache with O(1)
// lookup and insertion.
//
// Storage is a map[K]*node for lookups plus an intrusive doubly linked list
// for recency ordering (head = most recently used, tail = least). A single
// coarse lock covers both structures; the guarded critical sections are
// constant-time pointer and map manipulation, never I/O, so contention stays
// low relative to the file-system probes the cache exists to avoid.
package lru

import (
	"sync"

	"github.com/keithlinneman/modresolve/internal/xerrors"
)

// node is an intrusive doubly linked list element.
type node[K comparable, V any] struct {
	key  K
	val  V
	prev *node[K, V]
	next *node[K, V]
}

// Cache is a thread-safe LRU cache with a fixed entry capacity.
type Cache[K comparable, V any] struct {
	mu   sync.Mutex
	m    map[K]*node[K, V]
	head *node[K, V] // MRU
	tail *node[K, V] // LRU
	cap  int
}

// New constructs a Cache holding at most capacity entries.
// Capacity must be positive.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, xerrors.Newf("lru: capacity must be positive, got %d", capacity)
	}
	return &Cache[K, V]{
		m:   make(map[K]*node[K, V], capacity),
		cap: capacity,
	}, nil
}

// TryGet returns the value for k and promotes the entry to most recently
// used. A miss has no side effects.
func (c *Cache[K, V]) TryGet(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(n)
	return n.val, true
}

// Put inserts or updates k→v at the most-recently-used position. If the key
// is new and the cache is full, the least-recently-used entry is evicted
// first; Put reports whether that happened. Capacity is never exceeded.
func (c *Cache[K, V]) Put(k K, v V) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.m[k]; ok {
		n.val = v
		c.moveToFront(n)
		return false
	}

	if len(c.m) >= c.cap {
		c.removeNode(c.tail)
		evicted = true
	}

	n := &node[K, V]{key: k, val: v}
	c.m[k] = n
	c.pushFront(n)
	return evicted
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.m = make(map[K]*node[K, V], c.cap)
	c.head, c.tail = nil, nil
}

// RemoveWhere removes every entry whose key satisfies pred and returns the
// number removed. Keys are snapshotted before removal so unlinking cannot
// skip or revisit entries.
func (c *Cache[K, V]) RemoveWhere(pred func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	match := make([]*node[K, V], 0)
	for n := c.head; n != nil; n = n.next {
		if pred(n.key) {
			match = append(match, n)
		}
	}
	for _, n := range match {
		c.removeNode(n)
	}
	return len(match)
}

// Len returns the current number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// -------------------- internals (mu held) --------------------

func (c *Cache[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache[K, V]) moveToFront(n *node[K, V]) {
	if n == c.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if c.tail == n {
		c.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache[K, V]) removeNode(n *node[K, V]) {
	if n == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if c.head == n {
		c.head = n.next
	}
	if c.tail == n {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
	delete(c.m, n.key)
}
