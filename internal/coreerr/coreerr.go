// Package coreerr defines the shared error vocabulary raised by the cache
// and RTO engine cores. Both cores raise from these four classes so callers
// can branch on kind with errors.Is instead of matching strings.
package coreerr

import "github.com/zeebo/errs"

// InvalidArgument is raised for nil keys or values, empty or nil-containing
// paths, nil or duplicate vertices, nil filters, an empty join graph, or
// out-of-range configuration (a negative load factor, concurrency level, or
// sampling limit; zero values take defaults instead).
var InvalidArgument = errs.Class("invalid argument")

// InvariantViolation is raised when an eviction policy observes a state
// transition from a source state the LIRS/LRU state machine does not allow.
var InvariantViolation = errs.Class("invariant violation")

// NoSolutions is raised by the RTO engine when every complete path's edge
// sample underflows to zero cardinality.
var NoSolutions = errs.Class("no solutions")

// SamplerError wraps a failure surfaced by the caller-supplied sampling
// executor during a cutoff join.
var SamplerError = errs.Class("sampler error")
