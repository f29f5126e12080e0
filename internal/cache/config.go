package cache

import (
	"go.uber.org/zap"

	"github.com/dreamware/quartzdb/internal/cache/eviction"
	"github.com/dreamware/quartzdb/internal/coreerr"
)

// MaxSegments is the hard cap on concurrency level (spec §3).
const MaxSegments = 65536

// defaultInitialCapacity, defaultLoadFactor, and defaultConcurrencyLevel
// mirror spec §6's stated defaults.
const (
	defaultInitialCapacity  = 16
	defaultLoadFactor       = 0.75
	defaultConcurrencyLevel = 16
)

// Strategy selects which eviction policy a Cache's segments use. It is
// re-exported from package eviction so callers configuring a Cache never
// need to import the eviction package directly.
type Strategy = eviction.Strategy

// The three eviction strategies a Cache may be configured with.
const (
	EvictNone Strategy = eviction.None
	EvictLRU  Strategy = eviction.LRU
	EvictLIRS Strategy = eviction.LIRS
)

// Listener receives (key, value) pairs for entries an eviction policy chose
// to evict. It is invoked on the caller's goroutine after the segment lock
// that produced the eviction has been released (spec §4.1, §5): a listener
// that panics never leaves the segment itself inconsistent, but it does
// abort the goroutine that triggered the eviction, so listeners that must
// not crash the cache should recover internally.
type Listener[K comparable, V any] func(key K, value V)

// Config configures a Cache at construction.
type Config[K comparable, V any] struct {
	// Listener is invoked for each entry an eviction policy removes. May be
	// nil, in which case evictions are silent.
	Listener Listener[K, V]

	// Hasher overrides the default key-hashing function. Most callers
	// should leave this nil and take the maphash.Comparable-backed default
	// (see entry.go's newDefaultHasher).
	Hasher func(key K) uint64

	// Strategy selects the eviction policy. Zero value is EvictNone.
	Strategy Strategy

	// InitialCapacity is the total capacity across all segments: each
	// segment gets InitialCapacity divided by the segment count (at least 1),
	// which sets its starting bucket-array size (rounded up to a power of
	// two) and, under LRU/LIRS, its eviction capacity. Zero or a negative
	// value takes defaultInitialCapacity.
	InitialCapacity int

	// LoadFactor controls both the per-segment rehash threshold and the
	// LRU/LIRS trim-down target. Must be > 0; zero takes defaultLoadFactor.
	LoadFactor float64

	// ConcurrencyLevel is the requested segment count, rounded up to a
	// power of two and capped at MaxSegments. Must be > 0; zero takes
	// defaultConcurrencyLevel.
	ConcurrencyLevel int

	// ValueEqual is the equality test ReplaceMatch, RemoveMatch, and
	// ContainsValue use to compare values. Nil takes reflect.DeepEqual,
	// which is correct for any V but slower than a type-specific comparison
	// a caller may want to supply (e.g. for a V holding a large struct where
	// only one field matters for equality).
	ValueEqual func(a, b V) bool

	// Logger receives a debug record for each evicted entry handed to
	// Listener; resizes are not logged. Nil takes
	// zap.NewNop(), matching the teacher's convention of never requiring a
	// logger to construct a component.
	Logger *zap.Logger
}

// validate rejects negative LoadFactor/ConcurrencyLevel, which are invalid
// configuration (spec §7's error table) rather than "unset" — that meaning
// is reserved for exactly zero, handled by withDefaults.
func (c Config[K, V]) validate() error {
	if c.LoadFactor < 0 {
		return coreerr.InvalidArgument.New("LoadFactor must be >= 0, got %v", c.LoadFactor)
	}
	if c.ConcurrencyLevel < 0 {
		return coreerr.InvalidArgument.New("ConcurrencyLevel must be >= 0, got %d", c.ConcurrencyLevel)
	}
	return nil
}

// withDefaults returns a copy of c with zero-valued fields replaced by the
// documented defaults, following the teacher's style of a single
// constructor applying defaults rather than a functional-options chain
// (spec.md's configuration surface is small enough that options would be
// ceremony without benefit). Callers must run validate first: withDefaults
// itself no longer distinguishes "unset" zero from invalid negative values.
func (c Config[K, V]) withDefaults() Config[K, V] {
	if c.InitialCapacity <= 0 {
		c.InitialCapacity = defaultInitialCapacity
	}
	if c.LoadFactor == 0 {
		c.LoadFactor = defaultLoadFactor
	}
	if c.ConcurrencyLevel == 0 {
		c.ConcurrencyLevel = defaultConcurrencyLevel
	}
	c.ConcurrencyLevel = clampMax(c.ConcurrencyLevel, MaxSegments)
	return c
}
