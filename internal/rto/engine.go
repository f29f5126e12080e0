package rto

import (
	"cmp"
	"context"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/quartzdb/internal/coreerr"
)

// maxResamples bounds how many times a single extension attempt will
// re-sample at a larger limit chasing a non-underflow result before
// accepting whatever the last attempt produced.
const maxResamples = 3

// Engine explores join orders over a fixed JoinGraph, using executor to
// perform cutoff joins, and returns the cheapest complete path.
type Engine struct {
	graph    *JoinGraph
	executor SamplingExecutor
	cfg      Config
}

// NewEngine constructs an Engine for graph, sampled via executor.
func NewEngine(graph *JoinGraph, executor SamplingExecutor, cfg Config) *Engine {
	return &Engine{graph: graph, executor: executor, cfg: cfg.withDefaults()}
}

// Optimize runs exploration rounds until every surviving path spans the
// whole graph, then returns the cheapest one. Per spec §4.2 and §8: a path
// whose final edge sample has zero cardinality is excluded unless its
// sample is exact (a confirmed, not merely truncated, empty result); if
// every complete path is excluded this way, Optimize fails with
// NoSolutions.
func (e *Engine) Optimize(ctx context.Context) (*Path, error) {
	if len(e.graph.Vertices) == 0 {
		return nil, coreerr.InvalidArgument.New("join graph must contain at least one vertex")
	}
	if e.cfg.Limit <= 0 {
		return nil, coreerr.InvalidArgument.New("limit must be > 0, got %d", e.cfg.Limit)
	}

	paths := make([]*Path, len(e.graph.Vertices))
	for i, v := range e.graph.Vertices {
		paths[i] = NewPath(v, e.cfg.CostFn)
	}

	total := len(e.graph.Vertices)
	for len(paths) > 0 && paths[0].Len() < total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := e.exploreRound(ctx, paths)
		if err != nil {
			return nil, err
		}
		paths = next
	}

	var viable []*Path
	for _, p := range paths {
		if p.LastEdge().EstCard > 0 || p.LastEdge().Estimate == Exact {
			viable = append(viable, p)
		}
	}
	if len(viable) == 0 {
		return nil, coreerr.NoSolutions.New("no complete join path has positive cardinality")
	}

	slices.SortFunc(viable, func(a, b *Path) int { return cmp.Compare(a.SumEstCost(), b.SumEstCost()) })
	return viable[0], nil
}

// extensionResult is one candidate one-vertex extension, pending
// equivalence-class reduction.
type extensionResult struct {
	path        *Path
	classKey    string
	constrained bool
}

// exploreRound enumerates every one-vertex extension of every surviving
// path, partitions them into equivalence classes by unordered vertex set,
// and keeps the best candidate per class: a constrained extension always
// beats an unconstrained one regardless of cost, and within the same
// constrainedness the lower-cost extension wins (spec §4.2).
func (e *Engine) exploreRound(ctx context.Context, paths []*Path) ([]*Path, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	pathIsComplete := paths[0].Len()+1 == len(e.graph.Vertices)

	type job struct {
		path      *Path
		candidate *Vertex
	}
	var jobs []job
	for _, p := range paths {
		for _, v := range e.graph.Vertices {
			if !p.Contains(v.ID) {
				jobs = append(jobs, job{path: p, candidate: v})
			}
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	results := make([]*extensionResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			r, err := e.extendOne(gctx, j.path, j.candidate, pathIsComplete)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	classes := make(map[string]*extensionResult, len(results))
	var order []string
	for _, r := range results {
		if r == nil {
			continue
		}
		cur, ok := classes[r.classKey]
		if !ok {
			classes[r.classKey] = r
			order = append(order, r.classKey)
			continue
		}
		if extensionBeats(r, cur) {
			classes[r.classKey] = r
		}
	}

	survivors := make([]*Path, 0, len(order))
	for _, k := range order {
		survivors = append(survivors, classes[k].path)
	}
	return survivors, nil
}

func (e *Engine) extendOne(ctx context.Context, path *Path, candidate *Vertex, pathIsComplete bool) (*extensionResult, error) {
	constrained, err := CanJoinUsingConstraints(path.Vertices(), candidate, e.graph.Constraints)
	if err != nil {
		return nil, err
	}

	var constraints []FilterConstraint
	if constrained {
		extendedPath := append(append([]*Vertex{}, path.Vertices()...), candidate)
		attached, err := GetJoinGraphConstraints(extendedPath, e.graph.Constraints, e.cfg.KnownBoundVars, pathIsComplete)
		if err != nil {
			return nil, err
		}
		constraints = attached[len(attached)-1]
	}

	limit := path.LastEdge().Limit
	if limit <= 0 {
		limit = e.cfg.Limit
	}

	extended, err := e.extendWithResample(ctx, path, candidate, constraints, pathIsComplete, limit)
	if err != nil {
		return nil, err
	}

	return &extensionResult{path: extended, classKey: extended.VertexSet(), constrained: constrained}, nil
}

// extendWithResample applies the resampling policy: as long as the result
// underflows, ask get_new_limit for a larger limit and retry, up to
// maxResamples attempts.
func (e *Engine) extendWithResample(ctx context.Context, path *Path, candidate *Vertex, constraints []FilterConstraint, pathIsComplete bool, limit int64) (*Path, error) {
	next, err := path.AddEdge(ctx, e.executor, candidate, constraints, pathIsComplete, limit)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxResamples && next.LastEdge().Estimate == Underflow; attempt++ {
		newLimit := next.GetNewLimit(e.cfg.ResampleIncrement)
		resampled, err := path.AddEdge(ctx, e.executor, candidate, constraints, pathIsComplete, newLimit)
		if err != nil {
			return nil, err
		}
		next = resampled
	}
	return next, nil
}

// extensionBeats reports whether candidate should replace incumbent as the
// survivor of their shared equivalence class: constrained extensions
// always beat unconstrained ones; otherwise lower cost wins.
func extensionBeats(candidate, incumbent *extensionResult) bool {
	if candidate.constrained != incumbent.constrained {
		return candidate.constrained
	}
	return candidate.path.SumEstCost() < incumbent.path.SumEstCost()
}
