package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IvanBrykalov/shardlru/internal/singleflight"
	"github.com/IvanBrykalov/shardlru/internal/util"
)

var (
	// ErrInvalidCapacity is returned when the capacity cannot give every
	// bucket at least one slot.
	ErrInvalidCapacity = errors.New("cache: capacity must exceed the bucket count")
	// ErrInvalidBuckets is returned for a bucket exponent outside [0, MaxBucketsExp].
	ErrInvalidBuckets = errors.New("cache: invalid bucket exponent")
	// ErrNilLoader is returned by GetOrLoad when load is nil.
	ErrNilLoader = errors.New("cache: nil loader")
)

// cache routes every operation to exactly one bucket.
// The bucket slice is immutable after New.
type cache[K comparable, V any] struct {
	buckets []*Bucket[K, V]
	mask    int
	cap     int
	hash    func(K) uint64

	opt Options[K, V]

	// coalesces concurrent loads in GetOrLoad
	sf singleflight.Group[K, V]
}

// New builds a cache holding at most capacity entries in total.
//
// The bucket count is 2^BucketsExp (DefaultBucketsExp unless overridden).
// The first buckets each get capacity/count slots and the last bucket also
// takes the division remainder, so the bucket capacities sum to capacity.
// New fails, building nothing, unless capacity > count.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) (Cache[K, V], error) {
	opt := Options[K, V]{BucketsExp: DefaultBucketsExp}
	for _, o := range opts {
		o(&opt)
	}
	if opt.Hasher == nil {
		opt.Hasher = util.Hash[K]
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = newNopLogger()
	}

	if opt.BucketsExp < 0 || opt.BucketsExp > MaxBucketsExp {
		return nil, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidBuckets, opt.BucketsExp, MaxBucketsExp)
	}
	n := 1 << opt.BucketsExp
	if capacity <= n {
		return nil, fmt.Errorf("%w: capacity %d, buckets %d", ErrInvalidCapacity, capacity, n)
	}
	per := capacity >> opt.BucketsExp
	last := capacity - per*(n-1)
	if last <= 0 {
		return nil, fmt.Errorf("%w: last bucket would get %d", ErrInvalidCapacity, last)
	}

	c := &cache[K, V]{
		buckets: make([]*Bucket[K, V], n),
		mask:    n - 1,
		cap:     capacity,
		hash:    opt.Hasher,
		opt:     opt,
	}
	for i := range c.buckets {
		bc := per
		if i == n-1 {
			bc = last
		}
		b, err := newBucket(i, bc, &c.opt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
		}
		c.buckets[i] = b
	}

	if debugEnabled(opt.Logger) {
		opt.Logger.Debug("shardlru: cache constructed",
			slog.Int("capacity", capacity),
			slog.Int("buckets", n),
			slog.Int("per_bucket", per),
			slog.Int("last_bucket", last))
	}
	return c, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew[K comparable, V any](capacity int, opts ...Option[K, V]) Cache[K, V] {
	c, err := New[K, V](capacity, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ---- Cache[K,V] implementation ----

func (c *cache[K, V]) Contains(k K) bool { return c.bucketFor(k).Contains(k) }

func (c *cache[K, V]) Insert(k K, v V) { c.bucketFor(k).Insert(k, v) }

func (c *cache[K, V]) Get(k K) Result[V] { return c.bucketFor(k).Get(k) }

func (c *cache[K, V]) PutIfAbsent(k K, v V) Result[V] { return c.bucketFor(k).PutIfAbsent(k, v) }

func (c *cache[K, V]) Evict(k K) bool { return c.bucketFor(k).Evict(k) }

// Clear sweeps the buckets in index order, locking one at a time.
func (c *cache[K, V]) Clear() {
	for _, b := range c.buckets {
		b.Clear()
	}
}

func (c *cache[K, V]) Len() int {
	total := 0
	for _, b := range c.buckets {
		total += b.Len()
	}
	return total
}

func (c *cache[K, V]) Cap() int { return c.cap }

func (c *cache[K, V]) Buckets() int { return len(c.buckets) }

func (c *cache[K, V]) BucketIndex(k K, hint int) int {
	if hint >= 0 {
		return hint & c.mask
	}
	return util.BucketIndex(c.hash(k), len(c.buckets))
}

func (c *cache[K, V]) Bucket(hint int) *Bucket[K, V] {
	if hint < 0 {
		panic(fmt.Sprintf("cache: negative bucket hint %d", hint))
	}
	return c.buckets[hint&c.mask]
}

func (c *cache[K, V]) Stats() Stats {
	var s Stats
	for _, b := range c.buckets {
		s.add(b.stats())
	}
	return s
}

func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K, load func(context.Context, K) (V, error)) (V, error) {
	b := c.bucketFor(k)
	if v, ok := b.Get(k).Value(); ok {
		return v, nil
	}
	if load == nil {
		var zero V
		return zero, ErrNilLoader
	}

	v, err, _ := c.sf.Do(ctx, k, func() (V, error) {
		// Another flight may have stored k between our miss and now.
		if v, ok := b.peek(k); ok {
			return v, nil
		}
		v, err := load(ctx, k)
		if err != nil {
			return v, err
		}
		if cur, ok := b.PutIfAbsent(k, v).Value(); ok {
			return cur, nil
		}
		return v, nil
	})
	return v, err
}

// ---- helpers ----

// bucketFor routes k by hash. len(c.buckets) is a power of two.
func (c *cache[K, V]) bucketFor(k K) *Bucket[K, V] {
	return c.buckets[util.BucketIndex(c.hash(k), len(c.buckets))]
}
