// Package eviction implements the pluggable eviction strategies used by the
// segmented cache in package cache: None, LRU, and LIRS.
//
// # Design
//
// Rather than a class hierarchy, each strategy is a concrete type
// implementing the common [Policy] operation set (OnMiss, OnRemove, Drain,
// the two batching-threshold predicates, and Strategy). The cache's segment
// dispatches to a Policy through this interface — a tagged variant in
// everything but name, per spec §9 — so a segment can hold any of the three
// without knowing which one it has.
//
// A Policy never locks anything itself and never touches a cache entry's
// value. It tracks entries by [Token], the (hash, key) pair that identifies
// an entry, and asks its host segment to structurally evict an entry through
// the [Remover] callback passed into OnMiss and Drain. All Policy methods
// are called by the owning segment while its lock is held; Policy
// implementations are not safe for concurrent use on their own.
package eviction
