package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	hlru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/shardlru/cache"
	pmet "github.com/IvanBrykalov/shardlru/metrics/prom"
)

const (
	implShard    = "shardlru"
	implBaseline = "baseline"
)

// store is the operation set the workload drives. Key ids are passed along
// with the key so the sharded store can route by precomputed hint.
type store interface {
	get(id uint64, k string) bool
	insert(id uint64, k, v string)
	putIfAbsent(id uint64, k, v string) bool // true when inserted
	evict(id uint64, k string)
	len() int
}

type shardStore struct {
	c     cache.Cache[string, string]
	hints []int // bucket per key id; nil routes by hash
}

func (s *shardStore) bucket(id uint64, k string) *cache.Bucket[string, string] {
	if s.hints != nil {
		return s.c.Bucket(s.hints[id])
	}
	return s.c.Bucket(s.c.BucketIndex(k, cache.NoHint))
}

func (s *shardStore) get(id uint64, k string) bool {
	return s.bucket(id, k).Get(k).OK()
}

func (s *shardStore) insert(id uint64, k, v string) {
	s.bucket(id, k).Insert(k, v)
}

func (s *shardStore) putIfAbsent(id uint64, k, v string) bool {
	return s.bucket(id, k).PutIfAbsent(k, v).Inserted()
}

func (s *shardStore) evict(id uint64, k string) {
	s.bucket(id, k).Evict(k)
}

func (s *shardStore) len() int {
	return s.c.Len()
}

// baselineStore wraps hashicorp/golang-lru: a single lock over one list.
// ContainsOrAdd keeps the insert-if-absent semantics of the sharded store.
type baselineStore struct{ c *hlru.Cache[string, string] }

func (s baselineStore) get(_ uint64, k string) bool {
	_, ok := s.c.Get(k)
	return ok
}

func (s baselineStore) insert(_ uint64, k, v string) {
	s.c.ContainsOrAdd(k, v)
}

func (s baselineStore) putIfAbsent(_ uint64, k, v string) bool {
	found, _ := s.c.ContainsOrAdd(k, v)
	return !found
}

func (s baselineStore) evict(_ uint64, k string) {
	s.c.Remove(k)
}

func (s baselineStore) len() int {
	return s.c.Len()
}

func newStore(cfg *config, reg prometheus.Registerer, logger *slog.Logger) (store, error) {
	if cfg.impl == implBaseline {
		c, err := hlru.New[string, string](cfg.capacity)
		if err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}
		return baselineStore{c: c}, nil
	}

	c, err := cache.New[string, string](cfg.capacity,
		cache.WithBucketsExp[string, string](cfg.bucketsExp),
		cache.WithMetrics[string, string](pmet.New(reg, "shardlru", "bench", nil)),
		cache.WithLogger[string, string](logger),
	)
	if err != nil {
		return nil, err
	}
	s := &shardStore{c: c}
	if cfg.hinted {
		s.hints = make([]int, cfg.keys)
		for i := range s.hints {
			s.hints[i] = c.BucketIndex(keyName(uint64(i)), cache.NoHint)
		}
	}
	return s, nil
}

func keyName(id uint64) string { return "k:" + strconv.FormatUint(id, 10) }

func preload(s store, n int) {
	for i := 0; i < n; i++ {
		id := uint64(i)
		s.insert(id, keyName(id), "v"+strconv.Itoa(i))
	}
}

type report struct {
	ops, reads, hits, misses uint64
	inserts, putIfAbs, fresh uint64
	evicts                   uint64
	elapsed                  time.Duration
	resident                 int
}

// runWorkload drives cfg.workers goroutines until cfg.duration elapses or
// ctx is cancelled.
func runWorkload(ctx context.Context, cfg *config, s store) (*report, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.duration)
	defer cancel()

	var rep report
	keysMax := uint64(cfg.keys - 1)
	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()

	for w := 0; w < cfg.workers; w++ {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewSource(cfg.seed + int64(w)*9973))
			zipf := rand.NewZipf(r, cfg.zipfS, cfg.zipfV, keysMax)
			if zipf == nil {
				return errors.New("invalid zipf parameters")
			}

			var local report
			defer func() {
				atomic.AddUint64(&rep.ops, local.ops)
				atomic.AddUint64(&rep.reads, local.reads)
				atomic.AddUint64(&rep.hits, local.hits)
				atomic.AddUint64(&rep.misses, local.misses)
				atomic.AddUint64(&rep.inserts, local.inserts)
				atomic.AddUint64(&rep.putIfAbs, local.putIfAbs)
				atomic.AddUint64(&rep.fresh, local.fresh)
				atomic.AddUint64(&rep.evicts, local.evicts)
			}()

			for {
				select {
				case <-gctx.Done():
					return nil
				default:
				}

				id := zipf.Uint64()
				k := keyName(id)
				local.ops++
				switch p := r.Intn(100); {
				case p < cfg.readPct:
					local.reads++
					if s.get(id, k) {
						local.hits++
					} else {
						local.misses++
					}
				case p < cfg.readPct+cfg.putIfAbsPct:
					local.putIfAbs++
					if s.putIfAbsent(id, k, "v"+strconv.Itoa(r.Int())) {
						local.fresh++
					}
				case p < cfg.readPct+cfg.putIfAbsPct+cfg.evictPct:
					local.evicts++
					s.evict(id, k)
				default:
					local.inserts++
					s.insert(id, k, "v"+strconv.Itoa(r.Int()))
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	rep.elapsed = time.Since(start)
	rep.resident = s.len()
	return &rep, nil
}

func (r *report) print(w io.Writer, cfg *config) {
	hitRate := 0.0
	if r.reads > 0 {
		hitRate = float64(r.hits) / float64(r.reads) * 100
	}
	fmt.Fprintf(w, "impl=%s cap=%d buckets=%d hinted=%v workers=%d keys=%d dur=%v seed=%d\n",
		cfg.impl, cfg.capacity, 1<<cfg.bucketsExp, cfg.hinted, cfg.workers, cfg.keys, r.elapsed, cfg.seed)
	fmt.Fprintf(w, "ops=%d (%.0f ops/s)  reads=%d  inserts=%d  put-if-absent=%d (fresh=%d)  evicts=%d\n",
		r.ops, float64(r.ops)/r.elapsed.Seconds(), r.reads, r.inserts, r.putIfAbs, r.fresh, r.evicts)
	fmt.Fprintf(w, "hits=%d  misses=%d  hit-rate=%.2f%%\n", r.hits, r.misses, hitRate)
	fmt.Fprintf(w, "Len()=%d\n", r.resident)
}
