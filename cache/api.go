package cache

import (
	"context"
)

// Cache is a fixed-capacity LRU cache split into 2^E independently locked
// buckets. All methods are safe for concurrent use by multiple goroutines.
//
// Each key-routed method has a hint-routed twin on Bucket: to place or
// find a key in a known bucket without hashing, use c.Bucket(hint).
//
// Typical complexity for operations is amortized O(1):
// a map lookup plus constant-time list adjustments under a bucket lock.
type Cache[K comparable, V any] interface {
	// Contains reports whether k is present. Recency is not changed.
	Contains(k K) bool

	// Insert stores k→v if k is absent, evicting the bucket's least
	// recently used entry when the bucket is full.
	// If k is present the call is a no-op (no overwrite, no promotion).
	Insert(k K, v V)

	// Get returns k's value with StatusOK and promotes k to most recently
	// used, or returns StatusNotFound.
	Get(k K) Result[V]

	// PutIfAbsent inserts k→v and returns StatusInserted when k is absent;
	// otherwise returns the current value with StatusOK and changes nothing.
	PutIfAbsent(k K, v V) Result[V]

	// Evict removes k if present and reports whether it was.
	Evict(k K) bool

	// Clear empties every bucket in turn. It is not a barrier: an insert
	// into a bucket that was already swept survives.
	Clear()

	// Len returns the total number of resident entries across all buckets.
	Len() int

	// Cap returns the configured total capacity.
	Cap() int

	// Buckets returns the bucket count (a power of two).
	Buckets() int

	// BucketIndex returns the bucket that owns k for the given hint:
	// hint & (Buckets()-1) for hint >= 0, the key hash otherwise.
	BucketIndex(k K, hint int) int

	// Bucket returns the bucket selected by hint & (Buckets()-1).
	// It panics if hint is negative.
	Bucket(hint int) *Bucket[K, V]

	// Stats sums the per-bucket counters.
	Stats() Stats

	// GetOrLoad returns k's value, calling load on a miss. Concurrent misses
	// on the same key share a single load. The loaded value is stored with
	// PutIfAbsent, so if another goroutine inserted k meanwhile, that value
	// is returned instead.
	GetOrLoad(ctx context.Context, k K, load func(context.Context, K) (V, error)) (V, error)
}
