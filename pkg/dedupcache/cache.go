// Package dedupcache implements the 2Q cache policy used to suppress
// duplicate assignment and bandit-action log events: a "recent" FIFO
// queue for first-sight keys, a "frequent" LRU queue for repeat
// hitters, and a "ghost" FIFO of evicted-from-recent keys that lets a
// key skip straight into the frequent queue on its second sighting.
package dedupcache

import (
	"container/list"
	"fmt"
)

type node[K comparable, V any] struct {
	key   K
	value V
}

// Cache is a generic 2Q cache. It is not safe for concurrent use on
// its own; Deduplicator adds the locking this package's callers need.
type Cache[K comparable, V any] struct {
	size       int
	recentSize int
	ghostSize  int

	recent      *list.List
	recentIndex map[K]*list.Element

	frequent      *list.List
	frequentIndex map[K]*list.Element

	ghost      *list.List
	ghostIndex map[K]*list.Element
}

// NewCache creates a 2Q cache sized for `size` total entries: the
// recent queue holds ~25% of capacity (minimum 1), the frequent queue
// the rest, and the ghost queue mirrors the recent queue's size.
func NewCache[K comparable, V any](size int) *Cache[K, V] {
	if size <= 0 {
		panic(fmt.Sprintf("dedupcache: cache size must be positive, got %d", size))
	}
	recentSize := size / 4
	if recentSize < 1 {
		recentSize = 1
	}
	return &Cache[K, V]{
		size:          size,
		recentSize:    recentSize,
		ghostSize:     recentSize,
		recent:        list.New(),
		recentIndex:   make(map[K]*list.Element),
		frequent:      list.New(),
		frequentIndex: make(map[K]*list.Element),
		ghost:         list.New(),
		ghostIndex:    make(map[K]*list.Element),
	}
}

func (c *Cache[K, V]) evictRecent() {
	back := c.recent.Back()
	if back == nil {
		return
	}
	n := back.Value.(*node[K, V])
	delete(c.recentIndex, n.key)
	c.recent.Remove(back)

	elem := c.ghost.PushFront(n.key)
	c.ghostIndex[n.key] = elem
	if c.ghost.Len() > c.ghostSize {
		gback := c.ghost.Back()
		gkey := gback.Value.(K)
		delete(c.ghostIndex, gkey)
		c.ghost.Remove(gback)
	}
}

func (c *Cache[K, V]) evictFrequent() {
	back := c.frequent.Back()
	if back == nil {
		return
	}
	n := back.Value.(*node[K, V])
	delete(c.frequentIndex, n.key)
	c.frequent.Remove(back)
}

// Get looks up key, promoting a recent-queue hit into the frequent
// queue and moving a frequent-queue hit to most-recently-used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	if elem, ok := c.frequentIndex[key]; ok {
		n := elem.Value.(*node[K, V])
		c.frequent.MoveToFront(elem)
		return n.value, true
	}

	if elem, ok := c.recentIndex[key]; ok {
		n := elem.Value.(*node[K, V])
		delete(c.recentIndex, key)
		c.recent.Remove(elem)

		if c.frequent.Len() >= c.size-c.recentSize {
			c.evictFrequent()
		}
		newElem := c.frequent.PushFront(n)
		c.frequentIndex[key] = newElem
		return n.value, true
	}

	var zero V
	return zero, false
}

// Add inserts or updates key's value. A hit in frequent or recent
// updates the value in place (frequent also moves to MRU); a hit in
// ghost promotes straight into frequent; a miss enters via recent,
// evicting recent's FIFO tail into ghost as needed.
func (c *Cache[K, V]) Add(key K, value V) {
	if elem, ok := c.frequentIndex[key]; ok {
		n := elem.Value.(*node[K, V])
		n.value = value
		c.frequent.MoveToFront(elem)
		return
	}

	if elem, ok := c.recentIndex[key]; ok {
		n := elem.Value.(*node[K, V])
		n.value = value
		return
	}

	if elem, ok := c.ghostIndex[key]; ok {
		delete(c.ghostIndex, key)
		c.ghost.Remove(elem)

		if c.frequent.Len() >= c.size-c.recentSize {
			c.evictFrequent()
		}
		newElem := c.frequent.PushFront(&node[K, V]{key: key, value: value})
		c.frequentIndex[key] = newElem
		return
	}

	if c.recent.Len() >= c.recentSize {
		c.evictRecent()
	}
	newElem := c.recent.PushFront(&node[K, V]{key: key, value: value})
	c.recentIndex[key] = newElem
}

// Len returns the total number of entries across the recent and
// frequent queues (the ghost queue holds keys only, not live values).
func (c *Cache[K, V]) Len() int {
	return c.recent.Len() + c.frequent.Len()
}

// Clear empties every queue.
func (c *Cache[K, V]) Clear() {
	c.recent.Init()
	c.recentIndex = make(map[K]*list.Element)
	c.frequent.Init()
	c.frequentIndex = make(map[K]*list.Element)
	c.ghost.Init()
	c.ghostIndex = make(map[K]*list.Element)
}
