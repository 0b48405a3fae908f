// Package lru implements the single-threaded LRU policy engine.
//
// Entries live in a slice-backed arena. The recency list links nodes by slot
// id rather than by pointer, and the key index stores slot ids, so promoting
// an entry is an unlink/relink of two int32 fields. Freed slots are chained
// into a free list and reused by later inserts.
package lru

import (
	"errors"
	"fmt"
	"math"

	"github.com/IvanBrykalov/shardlru/policy"
)

// ErrInvalidCapacity is returned by New for a capacity outside [1, MaxCapacity].
var ErrInvalidCapacity = errors.New("lru: capacity must be in [1, MaxCapacity]")

// MaxCapacity is the largest capacity a single engine supports (slot ids are int32).
const MaxCapacity = math.MaxInt32

// nilSlot terminates the recency list and the free list.
const nilSlot int32 = -1

// arenas are grown on demand; never reserve more than this up front.
const preallocLimit = 1024

type node[K comparable, V any] struct {
	key K
	val V

	// Slot ids of the neighbours; head is MRU, tail is LRU.
	// For free slots, next chains the free list.
	prev int32
	next int32
}

// LRU is a fixed-capacity least-recently-used store. Not safe for
// concurrent use; see policy.Engine.
type LRU[K comparable, V any] struct {
	nodes []node[K, V]
	index map[K]int32

	head int32 // MRU
	tail int32 // LRU
	free int32 // first reusable slot

	cap     int
	onEvict policy.EvictFunc[K, V]
}

var _ policy.Engine[string, int] = (*LRU[string, int])(nil)

// New returns an empty engine holding at most capacity entries.
// onEvict may be nil; it fires only for overflow evictions, not for
// Evict or Clear.
func New[K comparable, V any](capacity int, onEvict policy.EvictFunc[K, V]) (*LRU[K, V], error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return &LRU[K, V]{
		nodes:   make([]node[K, V], 0, min(capacity, preallocLimit)),
		index:   make(map[K]int32, min(capacity, preallocLimit)),
		head:    nilSlot,
		tail:    nilSlot,
		free:    nilSlot,
		cap:     capacity,
		onEvict: onEvict,
	}, nil
}

// Len returns the number of resident entries.
func (l *LRU[K, V]) Len() int { return len(l.index) }

// Cap returns the configured capacity.
func (l *LRU[K, V]) Cap() int { return l.cap }

// Empty reports whether the engine holds no entries.
func (l *LRU[K, V]) Empty() bool { return len(l.index) == 0 }

// Contains reports whether k is present without changing recency.
func (l *LRU[K, V]) Contains(k K) bool {
	_, ok := l.index[k]
	return ok
}

// Insert adds k→v as MRU. A present key is left untouched (no overwrite,
// no promotion). When the engine is full the LRU entry is evicted first.
func (l *LRU[K, V]) Insert(k K, v V) {
	if _, ok := l.index[k]; ok {
		return
	}
	if len(l.index) >= l.cap {
		l.evictOldest()
	}
	s := l.alloc()
	n := &l.nodes[s]
	n.key = k
	n.val = v
	l.pushFront(s)
	l.index[k] = s
}

// Get returns the value for k and promotes it to MRU.
func (l *LRU[K, V]) Get(k K) (V, bool) {
	s, ok := l.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	if s != l.head {
		l.unlink(s)
		l.pushFront(s)
	}
	return l.nodes[s].val, true
}

// Peek returns the value for k without promoting it.
func (l *LRU[K, V]) Peek(k K) (V, bool) {
	s, ok := l.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return l.nodes[s].val, true
}

// Evict removes k if present. Absent keys are a no-op.
func (l *LRU[K, V]) Evict(k K) (V, bool) {
	s, ok := l.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	v := l.nodes[s].val
	l.unlink(s)
	delete(l.index, k)
	l.release(s)
	return v, true
}

// Clear drops all entries and the arena contents; capacity is unchanged.
func (l *LRU[K, V]) Clear() {
	clear(l.index)
	clear(l.nodes) // drop key/value references for the GC
	l.nodes = l.nodes[:0]
	l.head, l.tail, l.free = nilSlot, nilSlot, nilSlot
}

// Range walks entries from MRU to LRU until fn returns false.
// fn must not modify the engine.
func (l *LRU[K, V]) Range(fn func(k K, v V) bool) {
	for s := l.head; s != nilSlot; s = l.nodes[s].next {
		if !fn(l.nodes[s].key, l.nodes[s].val) {
			return
		}
	}
}

// Keys returns a snapshot of the keys from MRU to LRU.
func (l *LRU[K, V]) Keys() []K {
	keys := make([]K, 0, len(l.index))
	l.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Validate checks that the index and the recency list describe the same
// key set, that links are symmetric, and that every arena slot is either
// live or on the free list.
func (l *LRU[K, V]) Validate() error {
	if len(l.index) > l.cap {
		return fmt.Errorf("lru: %d entries exceed capacity %d", len(l.index), l.cap)
	}

	live := 0
	prev := nilSlot
	for s := l.head; s != nilSlot; s = l.nodes[s].next {
		if live > len(l.nodes) {
			return errors.New("lru: cycle in recency list")
		}
		n := &l.nodes[s]
		if n.prev != prev {
			return fmt.Errorf("lru: slot %d has prev %d, want %d", s, n.prev, prev)
		}
		if got, ok := l.index[n.key]; !ok || got != s {
			return fmt.Errorf("lru: list slot %d (key %v) not indexed at that slot", s, n.key)
		}
		prev = s
		live++
	}
	if prev != l.tail {
		return fmt.Errorf("lru: tail is %d, list ends at %d", l.tail, prev)
	}
	if live != len(l.index) {
		return fmt.Errorf("lru: list has %d nodes, index has %d keys", live, len(l.index))
	}

	free := 0
	for s := l.free; s != nilSlot; s = l.nodes[s].next {
		if free > len(l.nodes) {
			return errors.New("lru: cycle in free list")
		}
		free++
	}
	if live+free != len(l.nodes) {
		return fmt.Errorf("lru: %d live + %d free slots != arena size %d", live, free, len(l.nodes))
	}
	return nil
}

// ---- arena and list internals ----

// alloc returns a detached slot, reusing the free list first.
func (l *LRU[K, V]) alloc() int32 {
	if s := l.free; s != nilSlot {
		l.free = l.nodes[s].next
		return s
	}
	l.nodes = append(l.nodes, node[K, V]{})
	return int32(len(l.nodes) - 1)
}

// release zeroes a detached slot and pushes it onto the free list.
func (l *LRU[K, V]) release(s int32) {
	l.nodes[s] = node[K, V]{prev: nilSlot, next: l.free}
	l.free = s
}

func (l *LRU[K, V]) pushFront(s int32) {
	n := &l.nodes[s]
	n.prev = nilSlot
	n.next = l.head
	if l.head != nilSlot {
		l.nodes[l.head].prev = s
	}
	l.head = s
	if l.tail == nilSlot {
		l.tail = s
	}
}

func (l *LRU[K, V]) unlink(s int32) {
	n := &l.nodes[s]
	if n.prev != nilSlot {
		l.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nilSlot {
		l.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nilSlot, nilSlot
}

// evictOldest removes the tail entry and reports it to onEvict.
func (l *LRU[K, V]) evictOldest() {
	s := l.tail
	if s == nilSlot {
		return
	}
	k, v := l.nodes[s].key, l.nodes[s].val
	l.unlink(s)
	delete(l.index, k)
	l.release(s)
	if l.onEvict != nil {
		l.onEvict(k, v)
	}
}
