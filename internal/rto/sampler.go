package rto

import "context"

// SamplingExecutor performs the actual cutoff join: given a source sample,
// the extended predicate list (every predicate in the path plus the
// candidate's), the filters eligible to attach at this step, and a limit,
// it returns a capped EdgeSample.
//
// The core treats CutoffJoin as a pure function of its inputs (spec §4.2,
// §9): internal parallelism inside an implementation is opaque to the
// engine, and cancellation via ctx is honored on a best-effort basis
// between rounds rather than guaranteed mid-call — the contract does not
// require an executor to support it.
type SamplingExecutor interface {
	CutoffJoin(ctx context.Context, source EdgeSample, predicates []Predicate, constraints []FilterConstraint, pathIsComplete bool, limit int64) (EdgeSample, error)
}
