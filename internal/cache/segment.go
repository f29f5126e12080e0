package cache

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dreamware/quartzdb/internal/cache/eviction"
)

// kv is a detached (key, value) pair, used both for weakly-consistent
// snapshot iteration and for reporting evicted entries to a Listener once a
// segment lock has been released.
type kv[K comparable, V any] struct {
	key K
	val V
}

// bucketTable is a segment's bucket array plus the mask derived from its
// length, swapped as a single unit on resize so a lock-free reader never
// observes a mask computed against the wrong array (spec §3, §9).
type bucketTable[K comparable, V any] struct {
	buckets []atomic.Pointer[entry[K, V]]
	mask    uint64
}

// segment is one stripe of a Cache's concurrency-level-many independent
// hash tables, each with its own lock, bucket array, eviction policy, and
// access buffer — the segmented design of spec §3. Structural writes
// (insert, remove, resize) hold mu; reads and hit recording are lock-free
// except for the opportunistic/strict drain path and the defensive nil-value
// fallback.
type segment[K comparable, V any] struct {
	table atomic.Pointer[bucketTable[K, V]]

	count    atomic.Int64
	modCount atomic.Int64

	mu sync.Mutex

	buf      *accessBuffer[K]
	policy   eviction.Policy[K]
	listener Listener[K, V]
	logger   *zap.Logger

	threshold      int
	loadFactor     float64
	strategy       Strategy
	policyCapacity int
}

func newSegment[K comparable, V any](capacity int, loadFactor float64, strategy Strategy, listener Listener[K, V], logger *zap.Logger) *segment[K, V] {
	bucketCap := nextPowerOfTwo(capacity)
	s := &segment[K, V]{
		buf:            newAccessBuffer[K](),
		listener:       listener,
		logger:         logger,
		loadFactor:     loadFactor,
		strategy:       strategy,
		policyCapacity: capacity,
		threshold:      int(float64(bucketCap) * loadFactor),
	}
	s.table.Store(&bucketTable[K, V]{
		buckets: make([]atomic.Pointer[entry[K, V]], bucketCap),
		mask:    uint64(bucketCap - 1),
	})
	s.policy = newPolicy[K](strategy, capacity, loadFactor)
	return s
}

func newPolicy[K comparable](strategy Strategy, capacity int, loadFactor float64) eviction.Policy[K] {
	switch strategy {
	case eviction.LRU:
		return eviction.NewLRU[K](capacity, loadFactor)
	case eviction.LIRS:
		return eviction.NewLIRS[K](capacity)
	default:
		return eviction.NewNone[K]()
	}
}

// get is the lock-free read path. It returns (zero, false) on a miss without
// ever acquiring mu.
func (s *segment[K, V]) get(hash uint64, key K) (V, bool) {
	var zero V
	if s.count.Load() == 0 {
		return zero, false
	}
	table := s.table.Load()
	idx := hash & table.mask
	for e := table.buckets[idx].Load(); e != nil; e = e.next {
		if e.hash != hash || e.key != key {
			continue
		}
		vp := e.value.Load()
		if vp == nil {
			// Defensive fallback for the unlikely reordering window spec §9
			// calls out: construction always publishes a non-nil value
			// pointer, so this path should be unreachable in practice, but
			// a reader that somehow observes it re-reads under the lock
			// rather than returning a zero value.
			return s.getUnderLock(hash, key)
		}
		evicted := s.recordHit(hash, key)
		s.notify(evicted)
		return *vp, true
	}
	return zero, false
}

func (s *segment[K, V]) getUnderLock(hash uint64, key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.table.Load()
	idx := hash & table.mask
	for e := table.buckets[idx].Load(); e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			return e.loadValue(), true
		}
	}
	var zero V
	return zero, false
}

func (s *segment[K, V]) containsKey(hash uint64, key K) bool {
	if s.count.Load() == 0 {
		return false
	}
	table := s.table.Load()
	idx := hash & table.mask
	for e := table.buckets[idx].Load(); e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			return true
		}
	}
	return false
}

// containsValue performs a full, lock-free scan of this segment. Callers
// aggregating across segments are expected to retry-then-lock per spec §3's
// cross-segment protocol; a single segment's scan has no such retry of its
// own.
func (s *segment[K, V]) containsValue(v V, equal func(a, b V) bool) bool {
	table := s.table.Load()
	for i := range table.buckets {
		for e := table.buckets[i].Load(); e != nil; e = e.next {
			if equal(e.loadValue(), v) {
				return true
			}
		}
	}
	return false
}

func (s *segment[K, V]) snapshotEntries() []kv[K, V] {
	table := s.table.Load()
	var out []kv[K, V]
	for i := range table.buckets {
		for e := table.buckets[i].Load(); e != nil; e = e.next {
			out = append(out, kv[K, V]{key: e.key, val: e.loadValue()})
		}
	}
	return out
}

// recordHit appends a hit signal to the access buffer and, once a batching
// threshold is crossed, opportunistically (TryLock) or strictly (Lock)
// drains it into the eviction policy. Returns any entries the drain evicted,
// for the caller to notify after this call returns (recordHit itself never
// notifies, so it can be called while still lock-free).
func (s *segment[K, V]) recordHit(hash uint64, key K) []kv[K, V] {
	tok := eviction.Token[K]{Hash: hash, Key: key}
	n := s.buf.add(tok)
	if !s.policy.BatchThresholdReached(n) {
		return nil
	}
	if s.policy.BatchThresholdExpired(n) {
		s.mu.Lock()
		evicted := s.drainLocked()
		s.mu.Unlock()
		return evicted
	}
	if s.mu.TryLock() {
		evicted := s.drainLocked()
		s.mu.Unlock()
		return evicted
	}
	return nil
}

func (s *segment[K, V]) drainLocked() []kv[K, V] {
	hits := s.buf.drain()
	if len(hits) == 0 {
		return nil
	}
	var evicted []kv[K, V]
	s.policy.Drain(hits, s.newRemover(&evicted))
	return evicted
}

// putLocked upserts (hash, key) -> value. If the key already exists the
// entry's value is swapped in place (no structural change, no policy call);
// otherwise a new node is inserted and reported to the policy as a miss.
func (s *segment[K, V]) putLocked(hash uint64, key K, value V) (old V, existed bool, evicted []kv[K, V]) {
	table := s.table.Load()
	idx := hash & table.mask
	for e := table.buckets[idx].Load(); e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			old = e.loadValue()
			e.storeValue(value)
			s.modCount.Add(1)
			return old, true, nil
		}
	}
	evicted = s.insertLocked(hash, key, value)
	return old, false, evicted
}

func (s *segment[K, V]) putIfAbsentLocked(hash uint64, key K, value V) (actual V, inserted bool, evicted []kv[K, V]) {
	table := s.table.Load()
	idx := hash & table.mask
	for e := table.buckets[idx].Load(); e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			return e.loadValue(), false, nil
		}
	}
	evicted = s.insertLocked(hash, key, value)
	return value, true, evicted
}

func (s *segment[K, V]) replaceLocked(hash uint64, key K, value V) (old V, ok bool) {
	table := s.table.Load()
	idx := hash & table.mask
	for e := table.buckets[idx].Load(); e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			old = e.loadValue()
			e.storeValue(value)
			s.modCount.Add(1)
			return old, true
		}
	}
	return old, false
}

func (s *segment[K, V]) replaceMatchLocked(hash uint64, key K, want, newVal V, equal func(a, b V) bool) bool {
	table := s.table.Load()
	idx := hash & table.mask
	for e := table.buckets[idx].Load(); e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			if !equal(e.loadValue(), want) {
				return false
			}
			e.storeValue(newVal)
			s.modCount.Add(1)
			return true
		}
	}
	return false
}

// insertLocked performs the structural part of an insert: a None-policy
// resize if the post-insert count would cross threshold, front-insertion of
// the new node, and the policy's OnMiss call (which may itself evict). Under
// LRU/LIRS, once the insert leaves the segment holding more than its policy
// capacity, the access buffer is drained into the policy at once so it can
// trim back to its target without waiting for a reader's batching threshold.
func (s *segment[K, V]) insertLocked(hash uint64, key K, value V) []kv[K, V] {
	if s.strategy == eviction.None && int(s.count.Load())+1 > s.threshold {
		s.resizeLocked()
	}
	table := s.table.Load()
	idx := hash & table.mask
	head := table.buckets[idx].Load()
	node := newEntry(hash, key, value, head)
	table.buckets[idx].Store(node)
	s.count.Add(1)
	s.modCount.Add(1)

	var evicted []kv[K, V]
	remover := s.newRemover(&evicted)
	s.policy.OnMiss(eviction.Token[K]{Hash: hash, Key: key}, remover)
	if s.strategy != eviction.None && int(s.count.Load()) > s.policyCapacity {
		s.policy.Drain(s.buf.drain(), remover)
	}
	return evicted
}

// removeLocked structurally removes (hash, key), if present and (when match
// is non-nil) its current value satisfies match. Per spec §3/§4.1: every
// node preceding the removed node in its bucket chain is cloned (next links
// are immutable, so the chain from the bucket head down to the removed
// node's predecessor must be rebuilt), the removed node itself is reported
// to the policy as a remove, and each cloned predecessor is reported as a
// remove of the original followed by a miss of the clone — re-entering the
// policy's recency tracking at the front, losing whatever position it held.
// This is the literal behavior spec §9 describes, not an approximation.
func (s *segment[K, V]) removeLocked(hash uint64, key K, match func(V) bool) (removedVal V, removed bool, evicted []kv[K, V]) {
	table := s.table.Load()
	idx := hash & table.mask
	head := table.buckets[idx].Load()

	var prefix []*entry[K, V]
	cur := head
	for cur != nil && !(cur.hash == hash && cur.key == key) {
		prefix = append(prefix, cur)
		cur = cur.next
	}
	if cur == nil {
		return removedVal, false, nil
	}
	target := cur
	removedVal = target.loadValue()
	if match != nil && !match(removedVal) {
		var zero V
		return zero, false, nil
	}

	next := target.next
	for i := len(prefix) - 1; i >= 0; i-- {
		orig := prefix[i]
		next = newEntry(orig.hash, orig.key, orig.loadValue(), next)
	}
	table.buckets[idx].Store(next)
	s.count.Add(-1)
	s.modCount.Add(1)

	s.policy.OnRemove(eviction.Token[K]{Hash: hash, Key: key})

	remover := s.newRemover(&evicted)
	for _, orig := range prefix {
		tok := eviction.Token[K]{Hash: orig.hash, Key: orig.key}
		s.policy.OnRemove(tok)
		s.policy.OnMiss(tok, remover)
	}
	return removedVal, true, evicted
}

// newRemover builds the Remover callback a policy uses to evict other
// entries (OnMiss admission pressure, or Drain trim-down). Each eviction it
// performs is itself a structural removeLocked call, so a single removal can
// cascade: evicting entry X may reclone X's own bucket-chain prefix, which
// can in turn re-trigger the policy. Every evicted pair along the way,
// including nested ones, is appended to evicted for the caller to notify
// once the segment lock is released.
func (s *segment[K, V]) newRemover(evicted *[]kv[K, V]) eviction.Remover[K] {
	return func(t eviction.Token[K]) bool {
		v, ok, nested := s.removeLocked(t.Hash, t.Key, nil)
		if ok {
			*evicted = append(*evicted, kv[K, V]{key: t.Key, val: v})
			*evicted = append(*evicted, nested...)
		}
		return ok
	}
}

func (s *segment[K, V]) clearLocked() {
	table := s.table.Load()
	s.table.Store(&bucketTable[K, V]{
		buckets: make([]atomic.Pointer[entry[K, V]], len(table.buckets)),
		mask:    table.mask,
	})
	s.count.Store(0)
	s.modCount.Add(1)
	s.policy = newPolicy[K](s.strategy, s.policyCapacity, s.loadFactor)
	s.buf = newAccessBuffer[K]()
}

// resizeLocked doubles the bucket array. Only ever called for the None
// policy (spec §4.1): LRU/LIRS cap residency themselves, so they never need
// a rehash to stay bounded. Per bucket, the trailing run of nodes that all
// hash into the same new slot as the chain's tail is reused as-is — next
// links never change after publication, so that suffix remains valid
// unmodified — while every node before that run is recreated into its new
// slot, since its original next pointer may lead to a node now routed
// elsewhere.
func (s *segment[K, V]) resizeLocked() {
	old := s.table.Load()
	oldCap := uint64(len(old.buckets))
	newCap := oldCap * 2
	newMask := newCap - 1
	newBuckets := make([]atomic.Pointer[entry[K, V]], newCap)

	for i := uint64(0); i < oldCap; i++ {
		head := old.buckets[i].Load()
		if head == nil {
			continue
		}

		runHead, runSlot := head, head.hash&newMask
		for e := head.next; e != nil; e = e.next {
			slot := e.hash & newMask
			if slot != runSlot {
				runHead, runSlot = e, slot
			}
		}
		newBuckets[runSlot].Store(runHead)

		for e := head; e != runHead; e = e.next {
			slot := e.hash & newMask
			clone := newEntry(e.hash, e.key, e.loadValue(), newBuckets[slot].Load())
			newBuckets[slot].Store(clone)
		}
	}

	s.table.Store(&bucketTable[K, V]{buckets: newBuckets, mask: newMask})
	s.threshold = int(float64(newCap) * s.loadFactor)
}

func (s *segment[K, V]) notify(evicted []kv[K, V]) {
	if s.listener == nil || len(evicted) == 0 {
		return
	}
	for _, e := range evicted {
		if s.logger != nil {
			s.logger.Debug("cache entry evicted", zap.Any("key", e.key))
		}
		s.listener(e.key, e.val)
	}
}
