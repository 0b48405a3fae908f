package lru

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/IvanBrykalov/shardlru/policy"
)

func mustNew[K comparable, V any](t *testing.T, capacity int, onEvict func(K, V)) *LRU[K, V] {
	t.Helper()
	l, err := New[K, V](capacity, onEvict)
	if err != nil {
		t.Fatalf("New(%d): %v", capacity, err)
	}
	return l
}

func checkValid[K comparable, V any](t *testing.T, l *LRU[K, V]) {
	t.Helper()
	if err := l.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLRU_NewRejectsBadCapacity(t *testing.T) {
	t.Parallel()

	bad := []int{0, -1}
	if limit := int64(MaxCapacity); int64(math.MaxInt) > limit {
		bad = append(bad, int(limit+1))
	}
	for _, c := range bad {
		if _, err := New[string, int](c, nil); !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("New(%d): want ErrInvalidCapacity, got %v", c, err)
		}
	}
}

func TestLRU_EmptyThroughEngine(t *testing.T) {
	t.Parallel()

	var e policy.Engine[string, int] = mustNew[string, int](t, 2, nil)
	if !e.Empty() {
		t.Fatal("new engine must be empty")
	}
	e.Insert("a", 1)
	if e.Empty() {
		t.Fatal("engine with an entry reported empty")
	}
	e.Evict("a")
	if !e.Empty() {
		t.Fatal("engine must be empty after evicting its only entry")
	}
}

// Every key inserted below capacity stays visible until removed.
func TestLRU_InsertContainsBelowCapacity(t *testing.T) {
	t.Parallel()

	l := mustNew[int, int](t, 8, nil)
	for i := 0; i < 8; i++ {
		l.Insert(i, i*10)
	}
	for i := 0; i < 8; i++ {
		if !l.Contains(i) {
			t.Fatalf("key %d must be present", i)
		}
	}
	if l.Len() != 8 || l.Cap() != 8 || l.Empty() {
		t.Fatalf("Len=%d Cap=%d Empty=%v", l.Len(), l.Cap(), l.Empty())
	}
	checkValid(t, l)
}

// N+1 distinct inserts without reads evict the first key only.
func TestLRU_OverflowEvictsOldest(t *testing.T) {
	t.Parallel()

	var evicted []string
	l := mustNew(t, 3, func(k string, _ int) { evicted = append(evicted, k) })

	l.Insert("a", 1)
	l.Insert("b", 2)
	l.Insert("c", 3)
	l.Insert("d", 4)

	if l.Contains("a") {
		t.Fatal("a must be evicted")
	}
	if diff := cmp.Diff([]string{"d", "c", "b"}, l.Keys()); diff != "" {
		t.Fatalf("recency order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, evicted); diff != "" {
		t.Fatalf("evicted (-want +got):\n%s", diff)
	}
	if l.Len() != 3 {
		t.Fatalf("Len want 3, got %d", l.Len())
	}
	checkValid(t, l)
}

// A, B, C; Get(A); insert D -> B is the least recently touched and goes.
func TestLRU_GetPromotes(t *testing.T) {
	t.Parallel()

	l := mustNew[string, int](t, 3, nil)
	l.Insert("A", 1)
	l.Insert("B", 2)
	l.Insert("C", 3)

	if v, ok := l.Get("A"); !ok || v != 1 {
		t.Fatalf("Get A: %v %v", v, ok)
	}
	l.Insert("D", 4)

	if l.Contains("B") {
		t.Fatal("B must be evicted")
	}
	if diff := cmp.Diff([]string{"D", "A", "C"}, l.Keys()); diff != "" {
		t.Fatalf("recency order (-want +got):\n%s", diff)
	}
	checkValid(t, l)
}

// Insert on a present key keeps the old value and the old position.
// This deliberately differs from the usual "set" semantics.
func TestLRU_InsertIgnoresExistingKey(t *testing.T) {
	t.Parallel()

	l := mustNew[string, string](t, 2, nil)
	l.Insert("k", "v1")
	l.Insert("x", "x")
	l.Insert("k", "v2") // must not overwrite nor promote

	if v, _ := l.Peek("k"); v != "v1" {
		t.Fatalf("want v1, got %q", v)
	}
	if diff := cmp.Diff([]string{"x", "k"}, l.Keys()); diff != "" {
		t.Fatalf("duplicate insert changed order (-want +got):\n%s", diff)
	}

	// k is still LRU, so the next new key evicts it.
	l.Insert("y", "y")
	if l.Contains("k") {
		t.Fatal("k must be evicted: duplicate insert must not refresh recency")
	}
}

func TestLRU_PeekAndContainsDoNotPromote(t *testing.T) {
	t.Parallel()

	l := mustNew[string, int](t, 2, nil)
	l.Insert("a", 1)
	l.Insert("b", 2)

	if v, ok := l.Peek("a"); !ok || v != 1 {
		t.Fatalf("Peek a: %v %v", v, ok)
	}
	if !l.Contains("a") {
		t.Fatal("a must be present")
	}
	l.Insert("c", 3)
	if l.Contains("a") {
		t.Fatal("a must be evicted; Peek/Contains must not promote")
	}
	if _, ok := l.Peek("zzz"); ok {
		t.Fatal("Peek of absent key must miss")
	}
}

func TestLRU_Evict(t *testing.T) {
	t.Parallel()

	evictCalls := 0
	l := mustNew(t, 4, func(string, int) { evictCalls++ })

	if _, ok := l.Evict("nope"); ok {
		t.Fatal("Evict of absent key must report false")
	}
	l.Insert("a", 1)
	l.Insert("b", 2)
	l.Insert("c", 3)

	if v, ok := l.Evict("b"); !ok || v != 2 {
		t.Fatalf("Evict b: %v %v", v, ok)
	}
	if _, ok := l.Get("b"); ok {
		t.Fatal("b must be gone after Evict")
	}
	if diff := cmp.Diff([]string{"c", "a"}, l.Keys()); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	// Evicting head and tail keeps the list consistent.
	l.Evict("c")
	l.Evict("a")
	if !l.Empty() {
		t.Fatalf("want empty, got %v", l.Keys())
	}
	if evictCalls != 0 {
		t.Fatalf("explicit Evict must not fire onEvict, got %d calls", evictCalls)
	}
	checkValid(t, l)
}

func TestLRU_ClearKeepsCapacity(t *testing.T) {
	t.Parallel()

	l := mustNew[int, int](t, 4, nil)
	for i := 0; i < 10; i++ {
		l.Insert(i, i)
	}
	l.Clear()

	if l.Len() != 0 || !l.Empty() || l.Cap() != 4 {
		t.Fatalf("after Clear: Len=%d Empty=%v Cap=%d", l.Len(), l.Empty(), l.Cap())
	}
	for i := 0; i < 10; i++ {
		if l.Contains(i) {
			t.Fatalf("key %d survived Clear", i)
		}
	}
	checkValid(t, l)

	for i := 0; i < 4; i++ {
		l.Insert(i, i)
	}
	if l.Len() != 4 {
		t.Fatalf("reuse after Clear: Len=%d", l.Len())
	}
	checkValid(t, l)
}

// The arena never grows past capacity: freed slots are reused.
func TestLRU_SlotsAreReused(t *testing.T) {
	t.Parallel()

	l := mustNew[int, int](t, 4, nil)
	for i := 0; i < 1000; i++ {
		l.Insert(i, i)
		if i%3 == 0 {
			l.Evict(i - 1)
		}
	}
	if len(l.nodes) > l.Cap() {
		t.Fatalf("arena grew to %d slots for capacity %d", len(l.nodes), l.Cap())
	}
	checkValid(t, l)
}

func TestLRU_RangeStopsEarly(t *testing.T) {
	t.Parallel()

	l := mustNew[int, int](t, 5, nil)
	for i := 0; i < 5; i++ {
		l.Insert(i, i)
	}
	var seen []int
	l.Range(func(k, _ int) bool {
		seen = append(seen, k)
		return len(seen) < 2
	})
	if diff := cmp.Diff([]int{4, 3}, seen); diff != "" {
		t.Fatalf("Range (-want +got):\n%s", diff)
	}
}

// Random operations checked against a naive model of the recency order.
func TestLRU_RandomOpsMatchModel(t *testing.T) {
	t.Parallel()

	const capacity = 16
	l := mustNew[int, int](t, capacity, nil)
	var model []int // MRU first
	indexOf := func(k int) int {
		for i, x := range model {
			if x == k {
				return i
			}
		}
		return -1
	}

	r := rand.New(rand.NewSource(42))
	for step := 0; step < 20_000; step++ {
		k := r.Intn(48)
		switch op := r.Intn(10); {
		case op < 4:
			l.Insert(k, k)
			if indexOf(k) < 0 {
				if len(model) >= capacity {
					model = model[:len(model)-1]
				}
				model = append([]int{k}, model...)
			}
		case op < 8:
			_, ok := l.Get(k)
			i := indexOf(k)
			if ok != (i >= 0) {
				t.Fatalf("step %d: Get(%d) ok=%v, model says %v", step, k, ok, i >= 0)
			}
			if i > 0 {
				model = append([]int{k}, append(model[:i:i], model[i+1:]...)...)
			}
		case op < 9:
			l.Evict(k)
			if i := indexOf(k); i >= 0 {
				model = append(model[:i:i], model[i+1:]...)
			}
		default:
			if r.Intn(50) == 0 {
				l.Clear()
				model = nil
			}
		}
	}

	if diff := cmp.Diff(model, l.Keys()); diff != "" {
		t.Fatalf("final order (-model +engine):\n%s", diff)
	}
	checkValid(t, l)
}
