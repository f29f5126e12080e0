package cache

import (
	"hash/maphash"
	"reflect"
	"sync/atomic"
)

// entry is a node in a segment's bucket chain. Its key, hash, and next link
// are immutable after publication, which is what lets readers walk a chain
// without holding the segment lock: next never changes underneath a reader,
// so a chain a reader is mid-walk on always terminates safely even if a
// writer is concurrently building a replacement chain (per spec §3, removal
// clones the prefix preceding the removed node rather than mutating it).
//
// value is the one mutable field a lock-free reader observes; it is stored
// and loaded through atomic.Pointer so a reader never sees a torn write,
// only the old or the new value.
type entry[K comparable, V any] struct {
	next  *entry[K, V]
	value atomic.Pointer[V]
	key   K
	hash  uint64
}

func newEntry[K comparable, V any](hash uint64, key K, value V, next *entry[K, V]) *entry[K, V] {
	e := &entry[K, V]{hash: hash, key: key, next: next}
	e.value.Store(&value)
	return e
}

// loadValue returns the entry's current value. It never returns a torn
// value: the pointer swap in storeValue is atomic, so a concurrent reader
// either observes the value that was current before a put or the one after.
func (e *entry[K, V]) loadValue() V {
	return *e.value.Load()
}

func (e *entry[K, V]) storeValue(v V) {
	e.value.Store(&v)
}

// hasher computes the pre-mixed hash used for both segment and bucket
// selection. Keys need only be comparable; the default hasher uses
// hash/maphash's generic Comparable hash (Go 1.24+) seeded once per cache,
// then re-mixes the result through a 64-bit finalizer (the "Wang/Jenkins
// style bit-spreader" of spec §3) so that a weak distribution in a caller's
// own Hasher override can't concentrate keys into a handful of segments.
type hasher[K comparable] func(key K) uint64

func newDefaultHasher[K comparable]() hasher[K] {
	seed := maphash.MakeSeed()
	return func(k K) uint64 {
		return spreadHash(maphash.Comparable(seed, k))
	}
}

// spreadHash is the finalizer from the 64-bit splitmix/MurmurHash3 family:
// it mixes high and low bits together so that hash values differing only in
// their low bits (as sequential integer keys often do) still spread evenly
// across the segment and bucket index space.
func spreadHash(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// isNilArg reports whether v, boxed as an interface, is a nil pointer, map,
// slice, chan, func, or the nil interface itself. The cache's API accepts
// generic K/V, mirroring a Java associative cache's rejection of null keys
// and values (spec §3): a caller that instantiates K or V as an interface,
// pointer, or other nilable kind and passes a nil one gets InvalidArgument
// instead of silently corrupting the table.
func isNilArg(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
