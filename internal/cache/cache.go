package cache

import (
	"iter"
	"reflect"

	"go.uber.org/zap"

	"github.com/dreamware/quartzdb/internal/coreerr"
)

// retriesBeforeLock is RETRIES_BEFORE_LOCK from spec §3: the number of
// lock-free attempts a cross-segment aggregate (Size, ContainsValue) makes
// by comparing modification-count snapshots before falling back to locking
// every segment in index order.
const retriesBeforeLock = 2

// Cache is a segmented concurrent map from K to V with optional bounded
// eviction. The zero value is not usable; construct with New.
type Cache[K comparable, V any] struct {
	segments   []*segment[K, V]
	segShift   uint
	hash       hasher[K]
	valueEqual func(a, b V) bool
	logger     *zap.Logger
}

// New constructs a Cache from cfg, applying documented defaults to any
// zero-valued field.
func New[K comparable, V any](cfg Config[K, V]) (*Cache[K, V], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	segCount := clampMax(nextPowerOfTwo(cfg.ConcurrencyLevel), MaxSegments)
	segBits := log2(segCount)

	perSegCap := cfg.InitialCapacity / segCount
	if perSegCap < 1 {
		perSegCap = 1
	}

	hf := newDefaultHasher[K]()
	if cfg.Hasher != nil {
		override := cfg.Hasher
		hf = func(k K) uint64 { return spreadHash(override(k)) }
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	segs := make([]*segment[K, V], segCount)
	for i := range segs {
		segs[i] = newSegment[K, V](perSegCap, cfg.LoadFactor, cfg.Strategy, cfg.Listener, logger)
	}

	eq := cfg.ValueEqual
	if eq == nil {
		eq = func(a, b V) bool { return reflect.DeepEqual(a, b) }
	}

	return &Cache[K, V]{
		segments:   segs,
		segShift:   64 - segBits,
		hash:       hf,
		valueEqual: eq,
		logger:     logger,
	}, nil
}

func (c *Cache[K, V]) segmentFor(hash uint64) *segment[K, V] {
	idx := hash >> c.segShift
	return c.segments[idx]
}

// Get returns the value associated with key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	h := c.hash(key)
	return c.segmentFor(h).get(h, key)
}

// ContainsKey reports whether key is present.
func (c *Cache[K, V]) ContainsKey(key K) bool {
	h := c.hash(key)
	return c.segmentFor(h).containsKey(h, key)
}

// ContainsValue reports whether any entry currently holds value, per the
// cross-segment retry-then-lock protocol of spec §3: up to
// retriesBeforeLock lock-free scans are attempted, each bracketed by a
// modification-count snapshot; if no scan observes a stable snapshot, every
// segment is locked (in a fixed index order, to avoid deadlock) for one
// final, consistent scan.
func (c *Cache[K, V]) ContainsValue(value V) (bool, error) {
	if isNilArg(value) {
		return false, coreerr.InvalidArgument.New("value must not be nil")
	}
	for attempt := 0; attempt < retriesBeforeLock; attempt++ {
		before := c.modSum()
		found := c.scanContainsValue(value)
		if c.modSum() == before {
			return found, nil
		}
	}
	c.lockAll()
	found := c.scanContainsValue(value)
	c.unlockAll()
	return found, nil
}

func (c *Cache[K, V]) scanContainsValue(value V) bool {
	for _, s := range c.segments {
		if s.containsValue(value, c.valueEqual) {
			return true
		}
	}
	return false
}

// Put associates key with value, returning the previous value (if any).
func (c *Cache[K, V]) Put(key K, value V) (V, bool, error) {
	var zero V
	if isNilArg(key) {
		return zero, false, coreerr.InvalidArgument.New("key must not be nil")
	}
	if isNilArg(value) {
		return zero, false, coreerr.InvalidArgument.New("value must not be nil")
	}
	h := c.hash(key)
	s := c.segmentFor(h)
	s.mu.Lock()
	old, existed, evicted := s.putLocked(h, key, value)
	s.mu.Unlock()
	s.notify(evicted)
	return old, existed, nil
}

// PutIfAbsent inserts value for key only if key is not already present,
// returning the value now associated with key (the existing one, if any
// was present, else the one just inserted) and whether an insert happened.
func (c *Cache[K, V]) PutIfAbsent(key K, value V) (V, bool, error) {
	var zero V
	if isNilArg(key) {
		return zero, false, coreerr.InvalidArgument.New("key must not be nil")
	}
	if isNilArg(value) {
		return zero, false, coreerr.InvalidArgument.New("value must not be nil")
	}
	h := c.hash(key)
	s := c.segmentFor(h)
	s.mu.Lock()
	actual, inserted, evicted := s.putIfAbsentLocked(h, key, value)
	s.mu.Unlock()
	s.notify(evicted)
	return actual, inserted, nil
}

// Replace sets key's value to newValue only if key is currently present,
// returning the old value and whether the replace took effect.
func (c *Cache[K, V]) Replace(key K, newValue V) (V, bool, error) {
	var zero V
	if isNilArg(key) {
		return zero, false, coreerr.InvalidArgument.New("key must not be nil")
	}
	if isNilArg(newValue) {
		return zero, false, coreerr.InvalidArgument.New("newValue must not be nil")
	}
	h := c.hash(key)
	s := c.segmentFor(h)
	s.mu.Lock()
	old, ok := s.replaceLocked(h, key, newValue)
	s.mu.Unlock()
	return old, ok, nil
}

// ReplaceMatch sets key's value to newValue only if key is currently
// present and its value equals oldValue (per the Cache's ValueEqual, or
// reflect.DeepEqual by default), returning whether the replace took effect.
func (c *Cache[K, V]) ReplaceMatch(key K, oldValue, newValue V) (bool, error) {
	if isNilArg(key) {
		return false, coreerr.InvalidArgument.New("key must not be nil")
	}
	if isNilArg(oldValue) || isNilArg(newValue) {
		return false, coreerr.InvalidArgument.New("oldValue and newValue must not be nil")
	}
	h := c.hash(key)
	s := c.segmentFor(h)
	s.mu.Lock()
	ok := s.replaceMatchLocked(h, key, oldValue, newValue, c.valueEqual)
	s.mu.Unlock()
	return ok, nil
}

// Remove removes key unconditionally, returning its value (if it was
// present) and whether anything was removed.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	h := c.hash(key)
	s := c.segmentFor(h)
	s.mu.Lock()
	v, ok, evicted := s.removeLocked(h, key, nil)
	s.mu.Unlock()
	s.notify(evicted)
	return v, ok
}

// RemoveMatch removes key only if its current value equals value, returning
// whether the removal took effect.
func (c *Cache[K, V]) RemoveMatch(key K, value V) bool {
	h := c.hash(key)
	s := c.segmentFor(h)
	match := func(v V) bool { return c.valueEqual(v, value) }
	s.mu.Lock()
	_, ok, evicted := s.removeLocked(h, key, match)
	s.mu.Unlock()
	s.notify(evicted)
	return ok
}

// Clear empties every segment independently (each under its own lock, not a
// single global lock), resetting each segment's eviction policy and access
// buffer along with its bucket array.
func (c *Cache[K, V]) Clear() {
	for _, s := range c.segments {
		s.mu.Lock()
		s.clearLocked()
		s.mu.Unlock()
	}
}

// Size returns the total number of entries across every segment, using the
// retry-then-lock protocol described on ContainsValue.
func (c *Cache[K, V]) Size() int {
	for attempt := 0; attempt < retriesBeforeLock; attempt++ {
		before := c.modSum()
		sum := c.sumCounts()
		if c.modSum() == before {
			return sum
		}
	}
	c.lockAll()
	sum := c.sumCounts()
	c.unlockAll()
	return sum
}

// IsEmpty reports whether Size() == 0.
func (c *Cache[K, V]) IsEmpty() bool {
	return c.Size() == 0
}

func (c *Cache[K, V]) sumCounts() int {
	sum := 0
	for _, s := range c.segments {
		sum += int(s.count.Load())
	}
	return sum
}

func (c *Cache[K, V]) modSum() int64 {
	var sum int64
	for _, s := range c.segments {
		sum += s.modCount.Load()
	}
	return sum
}

func (c *Cache[K, V]) lockAll() {
	for _, s := range c.segments {
		s.mu.Lock()
	}
}

func (c *Cache[K, V]) unlockAll() {
	for _, s := range c.segments {
		s.mu.Unlock()
	}
}

// Keys returns a weakly-consistent iterator over every key present at some
// point during the iteration: each segment is snapshotted independently and
// without locking, so the sequence may reflect a mix of states the cache
// was never actually in as a whole, but it never panics and never repeats a
// key from the same snapshot twice.
func (c *Cache[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for _, s := range c.segments {
			for _, e := range s.snapshotEntries() {
				if !yield(e.key) {
					return
				}
			}
		}
	}
}

// Values returns a weakly-consistent iterator over every value, with the
// same consistency caveats as Keys.
func (c *Cache[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, s := range c.segments {
			for _, e := range s.snapshotEntries() {
				if !yield(e.val) {
					return
				}
			}
		}
	}
}

// Entries returns a weakly-consistent iterator over every (key, value)
// pair, with the same consistency caveats as Keys.
func (c *Cache[K, V]) Entries() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, s := range c.segments {
			for _, e := range s.snapshotEntries() {
				if !yield(e.key, e.val) {
					return
				}
			}
		}
	}
}
