package rto

import (
	"sort"
	"strings"
)

// sortedJoin returns ids sorted and joined with a delimiter that cannot
// appear in a vertex ID in practice, for use as an equivalence-class key.
func sortedJoin(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}

// varSet is a small unordered-string-set helper used throughout constraint
// and join-graph analysis. A plain map rather than a third-party set type:
// no set library appears anywhere in the retrieval pack, and this package's
// uses are all tiny (a handful of variable names per predicate).
type varSet map[string]struct{}

func newVarSet(vars []string) varSet {
	s := make(varSet, len(vars))
	s.addAll(vars)
	return s
}

func (s varSet) addAll(vars []string) {
	for _, v := range vars {
		s[v] = struct{}{}
	}
}

func (s varSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

// subsetOf reports whether every variable in vars is present in s.
func subsetOf(vars []string, s varSet) bool {
	for _, v := range vars {
		if !s.has(v) {
			return false
		}
	}
	return true
}

// sharesAny reports whether a and b have at least one variable in common.
func sharesAny(a, b []string) bool {
	set := newVarSet(a)
	for _, v := range b {
		if set.has(v) {
			return true
		}
	}
	return false
}
