package dedupcache

import "sync"

// Stats reports basic usage counters for a Deduplicator, following the
// style of the platform's other cache-stats structs.
type Stats struct {
	Size       int
	Emitted    int64
	Suppressed int64
}

// Deduplicator wraps a Cache with the locking that makes the
// check-sink-record sequence atomic per cache: two racing goroutines
// with the same key must never both pass the check and both invoke
// the sink. Assignment and bandit events use distinct Deduplicator
// instances.
type Deduplicator[K comparable, V comparable] struct {
	mu    sync.Mutex
	cache *Cache[K, V]

	emitted    int64
	suppressed int64
}

// NewDeduplicator creates a Deduplicator backed by a 2Q cache of the
// given capacity.
func NewDeduplicator[K comparable, V comparable](capacity int) *Deduplicator[K, V] {
	return &Deduplicator[K, V]{cache: NewCache[K, V](capacity)}
}

// LogIfChanged invokes sink and records (key, value) in the cache iff
// the key is absent from the cache or its cached value differs from
// value. sink is called while the per-cache lock is held, before the
// cache is updated, so a failing sink leaves the cache exactly as it
// was: the next call with the same key/value will retry the sink.
func (d *Deduplicator[K, V]) LogIfChanged(key K, value V, sink func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cached, ok := d.cache.Get(key); ok && cached == value {
		d.suppressed++
		return nil
	}

	if err := sink(); err != nil {
		return err
	}

	d.cache.Add(key, value)
	d.emitted++
	return nil
}

// Stats returns a snapshot of the deduplicator's counters.
func (d *Deduplicator[K, V]) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Size:       d.cache.Len(),
		Emitted:    d.emitted,
		Suppressed: d.suppressed,
	}
}

// Clear empties the underlying cache.
func (d *Deduplicator[K, V]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Clear()
}
