// Package cache provides a fixed-capacity, generic LRU cache that is safe
// for concurrent use, built from independently locked LRU buckets.
//
// Design
//
//   - Buckets: the cache owns 2^E buckets (E = DefaultBucketsExp unless set
//     with WithBucketsExp). Each bucket is a policy/lru engine behind its own
//     sync.Mutex. Operations on different buckets never contend; operations
//     on the same bucket are serialized for their full duration.
//
//   - Capacity: the first 2^E-1 buckets get capacity>>E slots each and the
//     last one takes the remainder. New refuses a capacity that is not
//     larger than the bucket count. Eviction is per bucket: a full bucket
//     drops its own least recently used entry even if others have room.
//
//   - Routing: a key goes to hash(key) & (2^E-1). Callers that already know
//     the placement can skip hashing with Cache.Bucket(hint), which selects
//     hint & (2^E-1).
//
//   - Insert never overwrites: inserting a present key leaves both its value
//     and its recency untouched. PutIfAbsent reports which case happened.
//
//   - Results: Get and PutIfAbsent return a Result whose Status is StatusOK,
//     StatusNotFound or StatusInserted. A miss is a value, not an error.
//
//   - Clear sweeps buckets one at a time without a global lock, so it is not
//     an atomic snapshot under concurrent writers.
//
//   - Observability: Options.Metrics receives Hit/Miss/Insert/Evict/SizeDelta
//     signals (metrics/prom exports them); Options.Logger receives debug
//     records; Options.OnEvict sees every removal with its EvictReason.
//
// Basic usage
//
//	c := cache.MustNew[string, []byte](10_000)
//	c.Insert("a", []byte("1"))
//	if v, ok := c.Get("a").Value(); ok {
//	    _ = v
//	}
//	c.Evict("a")
//
// Conditional insert
//
//	switch r := c.PutIfAbsent("k", v); r.Status() {
//	case cache.StatusInserted:
//	    // k was absent and now holds v
//	case cache.StatusOK:
//	    cur, _ := r.Value() // k already held cur; nothing changed
//	    _ = cur
//	}
//
// Hint routing
//
//	i := c.BucketIndex("k", cache.NoHint) // remember where "k" lives
//	c.Bucket(i).Get("k")                  // later: no hashing
//
// Loading on miss
//
//	v, err := c.GetOrLoad(ctx, "key", func(ctx context.Context, k string) ([]byte, error) {
//	    return fetch(ctx, k)
//	})
package cache
