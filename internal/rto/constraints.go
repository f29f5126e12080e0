package rto

import "github.com/dreamware/quartzdb/internal/coreerr"

// CanJoin reports whether a and b can join directly: their predicates
// share at least one variable position. Symmetric by construction.
func CanJoin(a, b *Vertex) bool {
	return sharesAny(a.Predicate.Variables(), b.Predicate.Variables())
}

// CanJoinUsingConstraints reports whether candidate can extend path, either
// because some vertex already in path shares a variable with it directly,
// or because some filter in filters becomes fully bound once path's
// variables and candidate's own variables are all considered bound
// (spec §4.2's static analysis rule).
func CanJoinUsingConstraints(path []*Vertex, candidate *Vertex, filters []FilterConstraint) (bool, error) {
	if err := validateConstraintArgs(path, candidate, filters); err != nil {
		return false, err
	}

	for _, v := range path {
		if CanJoin(v, candidate) {
			return true, nil
		}
	}

	bound := pathVarSet(path)
	bound.addAll(candidate.Predicate.Variables())
	for _, f := range filters {
		if subsetOf(f.Variables(), bound) {
			return true, nil
		}
	}
	return false, nil
}

// GetJoinGraphConstraints computes, for each position in path, the filters
// from allConstraints that first become fully bound at that position (spec
// §4.2's constraint-attachment algorithm). Each filter attaches at exactly
// one position: the earliest at which every one of its variables is bound
// by knownBoundVars plus the predicates of path[0:i+1].
//
// pathIsComplete is accepted for contract fidelity with spec §4.2's
// signature; this implementation only ever considers variables knownBoundVars
// and the path actually supplied ever bind, so there is no vertex beyond
// the supplied path to look ahead into regardless of the flag's value. A
// caller exploring incomplete paths should simply pass the (shorter)
// prefix it has so far and pathIsComplete=false; the engine only passes
// pathIsComplete=true once a path spans the whole join graph.
func GetJoinGraphConstraints(path []*Vertex, allConstraints []FilterConstraint, knownBoundVars []string, pathIsComplete bool) ([][]FilterConstraint, error) {
	_ = pathIsComplete
	if err := validatePath(path); err != nil {
		return nil, err
	}
	for _, f := range allConstraints {
		if f == nil {
			return nil, coreerr.InvalidArgument.New("constraints must not contain nil elements")
		}
	}

	attached := make([][]FilterConstraint, len(path))
	// FilterConstraint is an unconstrained interface; a concrete filter
	// whose dynamic type is non-comparable (e.g. backed by a slice) would
	// panic as a map key, so "already attached" is tracked by index instead.
	done := make([]bool, len(allConstraints))
	bound := newVarSet(knownBoundVars)

	for i, v := range path {
		bound.addAll(v.Predicate.Variables())
		for j, f := range allConstraints {
			if done[j] || !subsetOf(f.Variables(), bound) {
				continue
			}
			attached[i] = append(attached[i], f)
			done[j] = true
		}
	}
	return attached, nil
}

func pathVarSet(path []*Vertex) varSet {
	bound := varSet{}
	for _, v := range path {
		bound.addAll(v.Predicate.Variables())
	}
	return bound
}

func validatePath(path []*Vertex) error {
	if len(path) == 0 {
		return coreerr.InvalidArgument.New("path must be non-empty")
	}
	for _, v := range path {
		if v == nil {
			return coreerr.InvalidArgument.New("path must not contain nil vertices")
		}
	}
	return nil
}

func validateConstraintArgs(path []*Vertex, candidate *Vertex, filters []FilterConstraint) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if candidate == nil {
		return coreerr.InvalidArgument.New("candidate vertex must not be nil")
	}
	for _, v := range path {
		if v.ID == candidate.ID {
			return coreerr.InvalidArgument.New("path already contains candidate vertex %q", candidate.ID)
		}
	}
	for _, f := range filters {
		if f == nil {
			return coreerr.InvalidArgument.New("filters must not contain nil elements")
		}
	}
	return nil
}
