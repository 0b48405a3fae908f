// Package singleflight coalesces concurrent loads of the same key.
package singleflight

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanicked is returned to every waiter when the leader's fn panics.
// The leader itself re-panics after releasing the waiters.
var ErrPanicked = errors.New("singleflight: load panicked")

// Group runs at most one fn per key at a time. Callers arriving while a
// call for the same key is in flight wait for its result instead of
// starting their own.
//
// A follower whose ctx is cancelled stops waiting and returns ctx.Err();
// the leader's fn keeps running. Thread ctx into fn if the work itself
// must be cancellable.
type Group[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed after val/err are set
	val  V
	err  error
	dups int
}

// Do executes fn for key unless a call is already in flight, in which case
// it waits for that call. shared reports whether the result was delivered
// to more than one caller.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[K]*call[V])
	}
	if c, ok := g.calls[key]; ok {
		c.dups++
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err, true
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err(), true
		}
	}
	c := &call[V]{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	g.mu.Lock()
	shared = c.dups > 0
	g.mu.Unlock()
	return c.val, c.err, shared
}

// InFlight reports how many keys currently have a running call.
func (g *Group[K, V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// run executes fn and publishes its result. Waiters are released even if
// fn panics.
func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	normal := false
	defer func() {
		var r any
		if !normal {
			r = recover()
			c.err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		close(c.done)
		if !normal {
			panic(r)
		}
	}()
	c.val, c.err = fn()
	normal = true
}
