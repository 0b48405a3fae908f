package prom

import (
	"testing"

	"github.com/IvanBrykalov/shardlru/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAdapter_ExportsCacheSignals(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg, "shardlru", "test", prometheus.Labels{"app": "unit"})

	c := cache.MustNew[string, int](2,
		cache.WithBucketsExp[string, int](0),
		cache.WithMetrics[string, int](m),
	)
	c.Insert("a", 1)
	c.Insert("b", 2)
	c.Insert("c", 3) // capacity eviction of a
	c.Get("c")       // hit
	c.Get("a")       // miss
	c.Evict("b")     // explicit

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"hits", m.hits, 1},
		{"misses", m.misses, 1},
		{"inserts", m.inserts, 3},
		{"evictions{capacity}", m.evicts.WithLabelValues("capacity"), 1},
		{"evictions{explicit}", m.evicts.WithLabelValues("explicit"), 1},
		{"size", m.size, 1},
	}
	for _, ck := range checks {
		if got := testutil.ToFloat64(ck.c); got != ck.want {
			t.Errorf("%s = %v, want %v", ck.name, got, ck.want)
		}
	}

	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Fatalf("gather: n=%d err=%v", n, err)
	}
}
