package cache

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"

	hlru "github.com/hashicorp/golang-lru/v2"
)

// benchStore is the slice of behaviour shared by this cache and the
// baseline, so both run the exact same workload.
type benchStore[K comparable, V any] interface {
	get(k K)
	insert(k K, v V)
}

type shardStore[K comparable, V any] struct{ c Cache[K, V] }

func (s shardStore[K, V]) get(k K)         { s.c.Get(k) }
func (s shardStore[K, V]) insert(k K, v V) { s.c.Insert(k, v) }

// baselineStore is hashicorp/golang-lru: one lock around one list.
type baselineStore[K comparable, V any] struct{ c *hlru.Cache[K, V] }

func (s baselineStore[K, V]) get(k K)         { s.c.Get(k) }
func (s baselineStore[K, V]) insert(k K, v V) { s.c.ContainsOrAdd(k, v) }

// benchmarkMix exercises a read/write mix against a warm store.
// It uses parallel workers (RunParallel spawns GOMAXPROCS goroutines).
func benchmarkMix[K comparable](b *testing.B, s benchStore[K, int], key func(int) K, readsPct int) {
	// Preload half the capacity to get a realistic hit-rate.
	for i := 0; i < 50_000; i++ {
		s.insert(key(i), 1)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1 // hot keyspace (power of two for fast &-mask)

	b.RunParallel(func(pb *testing.PB) {
		// Independent RNG stream for each worker.
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := key(i & keyMask)
			if r.Intn(100) < readsPct {
				s.get(k)
			} else {
				s.insert(k, 1)
			}
			i++
		}
	})
}

func strKey(i int) string { return "k:" + strconv.Itoa(i) }
func intKey(i int) int    { return i }

func newShardStore[K comparable]() benchStore[K, int] {
	return shardStore[K, int]{c: MustNew[K, int](100_000)}
}

func newBaselineStore[K comparable](b *testing.B) benchStore[K, int] {
	c, err := hlru.New[K, int](100_000)
	if err != nil {
		b.Fatal(err)
	}
	return baselineStore[K, int]{c: c}
}

func BenchmarkCache_90r10w(b *testing.B) { benchmarkMix(b, newShardStore[string](), strKey, 90) }
func BenchmarkCache_50r50w(b *testing.B) { benchmarkMix(b, newShardStore[string](), strKey, 50) }

// Int keys remove strconv/alloc noise and better expose the lock hot path.
func BenchmarkCache_IntKeys_90r10w(b *testing.B) { benchmarkMix(b, newShardStore[int](), intKey, 90) }
func BenchmarkCache_IntKeys_50r50w(b *testing.B) { benchmarkMix(b, newShardStore[int](), intKey, 50) }

func BenchmarkBaseline_IntKeys_90r10w(b *testing.B) {
	benchmarkMix(b, newBaselineStore[int](b), intKey, 90)
}
func BenchmarkBaseline_IntKeys_50r50w(b *testing.B) {
	benchmarkMix(b, newBaselineStore[int](b), intKey, 50)
}

// PutIfAbsent under contention on a small hot set.
func BenchmarkCache_PutIfAbsent(b *testing.B) {
	c := MustNew[int, int](1 << 12)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.PutIfAbsent(i&1023, i)
			i++
		}
	})
}
