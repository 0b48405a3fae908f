// Package policy defines the contract between a bucket and the
// single-threaded eviction engine it delegates to.
package policy

// EvictFunc is called when an engine drops its oldest entry to make room
// for a new one. It runs inside the caller's critical section.
type EvictFunc[K comparable, V any] func(k K, v V)

// Engine is a capacity-bounded key/value store that keeps its entries in
// recency order and evicts the least recently used one on overflow.
//
// Concurrency: an Engine is NOT safe for concurrent use. Every method,
// including Get (which reorders entries), must be called with exclusive
// access held by the caller.
type Engine[K comparable, V any] interface {
	// Contains reports whether k is present. It never changes recency.
	Contains(k K) bool

	// Insert adds k→v at the most-recently-used position, evicting the
	// least recently used entry first if the engine is full.
	// If k is already present the call is a no-op: neither the stored value
	// nor its position changes.
	Insert(k K, v V)

	// Get returns the value for k and promotes it to most recently used.
	Get(k K) (V, bool)

	// Peek returns the value for k without touching recency.
	Peek(k K) (V, bool)

	// Evict removes k if present and returns the removed value.
	Evict(k K) (V, bool)

	// Clear drops every entry. Capacity is unchanged.
	Clear()

	// Range calls fn for each entry from most to least recently used
	// until fn returns false.
	Range(fn func(k K, v V) bool)

	Len() int
	Cap() int

	// Empty reports whether Len() == 0.
	Empty() bool

	// Validate checks the internal index/list pairing and returns a
	// descriptive error on the first inconsistency found.
	Validate() error
}
