// Package rto implements a join-order exploration engine: given a join
// graph of vertices (join predicates) and filter constraints, it samples
// candidate join paths via a pluggable executor and returns the
// cheapest complete path spanning every vertex.
//
// The engine itself holds no shared mutable state across goroutines during
// a round; a Path is immutable once constructed, built only by extending an
// existing Path with one more vertex. Concurrency, where it exists, is
// confined to exploring independent one-vertex extensions of the current
// round's surviving paths in parallel.
package rto
