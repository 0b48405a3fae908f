package cache

import (
	"log/slog"
)

const (
	// DefaultBucketsExp gives 2^4 = 16 buckets.
	DefaultBucketsExp = 4
	// MaxBucketsExp bounds the bucket count to 2^16.
	MaxBucketsExp = 16
	// NoHint routes by key hash.
	NoHint = -1
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity means the entry was dropped as least recently used to make room for an insert.
	EvictCapacity EvictReason = iota
	// EvictExplicit means the entry was removed by Evict.
	EvictExplicit
	// EvictClear means the entry was removed by Clear.
	EvictClear
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictExplicit:
		return "explicit"
	case EvictClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// Implementations must be safe for concurrent use; hooks are called while
// a bucket lock is held, so keep them cheap.
type Metrics interface {
	Hit()
	Miss()
	Insert()
	Evict(reason EvictReason)
	// SizeDelta reports a change in the number of resident entries.
	SizeDelta(delta int)
}

// Options configures a cache. New starts from DefaultBucketsExp, Hash-based
// routing, NoopMetrics and a discarding logger, then applies each Option.
type Options[K comparable, V any] struct {
	// BucketsExp is log2 of the bucket count.
	BucketsExp int

	// Hasher maps keys to 64-bit hashes for routing. It must be
	// deterministic and a pure function of the key.
	Hasher func(K) uint64

	Metrics Metrics

	// Logger receives debug records for construction and overflow evictions.
	Logger *slog.Logger

	// OnEvict is called for every removed entry under the bucket lock.
	// It must not call back into the cache.
	OnEvict func(k K, v V, reason EvictReason)
}

// Option mutates Options before the cache is built.
type Option[K comparable, V any] func(*Options[K, V])

// WithBucketsExp sets the bucket count to 2^exp.
func WithBucketsExp[K comparable, V any](exp int) Option[K, V] {
	return func(o *Options[K, V]) { o.BucketsExp = exp }
}

// WithHasher replaces the default key hash.
func WithHasher[K comparable, V any](h func(K) uint64) Option[K, V] {
	return func(o *Options[K, V]) { o.Hasher = h }
}

// WithMetrics installs a metrics sink (e.g. metrics/prom.Adapter).
func WithMetrics[K comparable, V any](m Metrics) Option[K, V] {
	return func(o *Options[K, V]) { o.Metrics = m }
}

// WithLogger enables logging; nil keeps logging disabled.
func WithLogger[K comparable, V any](l *slog.Logger) Option[K, V] {
	return func(o *Options[K, V]) { o.Logger = l }
}

// WithOnEvict registers a removal callback.
func WithOnEvict[K comparable, V any](fn func(k K, v V, reason EvictReason)) Option[K, V] {
	return func(o *Options[K, V]) { o.OnEvict = fn }
}
