package cache

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/IvanBrykalov/shardlru/internal/util"
	"github.com/IvanBrykalov/shardlru/policy"
	"github.com/IvanBrykalov/shardlru/policy/lru"
)

// Bucket is one independently locked LRU partition of a Cache.
// Every method holds the bucket mutex for its whole duration, including
// any eviction it triggers, so operations on one bucket are linearizable.
// Buckets never touch each other's state.
//
// A Bucket is obtained from Cache.Bucket to route by an explicit hint
// instead of the key hash.
type Bucket[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu  sync.Mutex
	lru policy.Engine[K, V]

	idx int
	opt *Options[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_        util.CacheLinePad
	hits     util.PaddedAtomicUint64
	misses   util.PaddedAtomicUint64
	inserts  util.PaddedAtomicUint64
	evicts   util.PaddedAtomicUint64
	removals util.PaddedAtomicUint64
}

func newBucket[K comparable, V any](idx, capacity int, opt *Options[K, V]) (*Bucket[K, V], error) {
	b := &Bucket[K, V]{idx: idx, opt: opt}
	eng, err := lru.New[K, V](capacity, b.onOverflow)
	if err != nil {
		return nil, fmt.Errorf("bucket %d: %w", idx, err)
	}
	b.lru = eng
	return b, nil
}

// Index returns the bucket's position in its cache.
func (b *Bucket[K, V]) Index() int { return b.idx }

// Contains reports whether k is present. Recency is not changed.
func (b *Bucket[K, V]) Contains(k K) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Contains(k)
}

// Insert stores k→v as most recently used, evicting the bucket's least
// recently used entry if it is full. If k is already present nothing
// changes: the old value is kept and k is not promoted.
func (b *Bucket[K, V]) Insert(k K, v V) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insertLocked(k, v)
}

// Get returns k's value with StatusOK and promotes k, or StatusNotFound.
func (b *Bucket[K, V]) Get(k K) Result[V] {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.lru.Get(k)
	if !ok {
		b.misses.Add(1)
		b.opt.Metrics.Miss()
		return notFound[V]()
	}
	b.hits.Add(1)
	b.opt.Metrics.Hit()
	return found(v)
}

// PutIfAbsent inserts k→v and returns StatusInserted if k is absent.
// Otherwise it returns the current value with StatusOK and leaves the
// bucket untouched: no overwrite and no promotion.
// The check and the insert happen under a single lock acquisition.
func (b *Bucket[K, V]) PutIfAbsent(k K, v V) Result[V] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.lru.Peek(k); ok {
		return found(cur)
	}
	b.insertLocked(k, v)
	return inserted[V]()
}

// Evict removes k and reports whether it was present.
func (b *Bucket[K, V]) Evict(k K) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.lru.Evict(k)
	if !ok {
		return false
	}
	b.removed(k, v, EvictExplicit)
	b.opt.Metrics.SizeDelta(-1)
	return true
}

// Clear removes every entry of this bucket.
func (b *Bucket[K, V]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.lru.Len()
	if n == 0 {
		return
	}
	b.lru.Range(func(k K, v V) bool {
		b.removed(k, v, EvictClear)
		return true
	})
	b.lru.Clear()
	b.opt.Metrics.SizeDelta(-n)
}

// Len returns the number of resident entries.
func (b *Bucket[K, V]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Len()
}

// Cap returns the bucket's fixed capacity.
func (b *Bucket[K, V]) Cap() int {
	// capacity is immutable; no lock needed
	return b.lru.Cap()
}

// Keys returns a snapshot of the bucket's keys, most recently used first.
func (b *Bucket[K, V]) Keys() []K {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]K, 0, b.lru.Len())
	b.lru.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// -------------------- internals --------------------

// peek reads k without promotion or hit/miss accounting.
func (b *Bucket[K, V]) peek(k K) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Peek(k)
}

func (b *Bucket[K, V]) validate() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.lru.Validate(); err != nil {
		return fmt.Errorf("bucket %d: %w", b.idx, err)
	}
	return nil
}

func (b *Bucket[K, V]) stats() Stats {
	return Stats{
		Hits:      b.hits.Load(),
		Misses:    b.misses.Load(),
		Inserts:   b.inserts.Load(),
		Evictions: b.evicts.Load(),
		Removals:  b.removals.Load(),
	}
}

// insertLocked inserts an absent key; present keys are ignored.
func (b *Bucket[K, V]) insertLocked(k K, v V) {
	if b.lru.Contains(k) {
		return
	}
	b.lru.Insert(k, v) // may call onOverflow first
	b.inserts.Add(1)
	b.opt.Metrics.Insert()
	b.opt.Metrics.SizeDelta(1)
}

// onOverflow is the engine's eviction callback; mu is held.
func (b *Bucket[K, V]) onOverflow(k K, v V) {
	b.evicts.Add(1)
	b.opt.Metrics.Evict(EvictCapacity)
	b.opt.Metrics.SizeDelta(-1)
	if l := b.opt.Logger; debugEnabled(l) {
		l.Debug("shardlru: evicted least recently used entry",
			slog.Int("bucket", b.idx),
			slog.Any("key", k),
			slog.Int("capacity", b.lru.Cap()))
	}
	if cb := b.opt.OnEvict; cb != nil {
		cb(k, v, EvictCapacity)
	}
}

// removed accounts for an Evict or Clear removal; mu is held.
func (b *Bucket[K, V]) removed(k K, v V, reason EvictReason) {
	b.removals.Add(1)
	b.opt.Metrics.Evict(reason)
	if cb := b.opt.OnEvict; cb != nil {
		cb(k, v, reason)
	}
}
