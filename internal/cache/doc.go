// Package cache implements a segmented, generic, concurrency-safe
// associative cache with pluggable eviction (none, LRU, LIRS).
//
// A Cache splits its key space across a power-of-two number of independent
// segments, each with its own lock, bucket array, eviction policy, and hit
// batching buffer. Reads are lock-free; structural writes (insert, remove,
// resize) lock only the segment they touch, so unrelated keys never
// contend with each other. Concrete eviction behavior lives in the
// eviction subpackage, which a segment drives through the Policy
// interface without knowing anything about the cache's value type.
package cache
