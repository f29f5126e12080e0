package rto

import (
	"context"

	"github.com/dreamware/quartzdb/internal/coreerr"
)

// CostFunc derives a path's scalar sumEstCost from its cumulative
// statistics. Configurable per spec §4.2 and §9's resolved open question:
// the default is CostByCard; CostByCardPlusRead is the documented
// alternative.
type CostFunc func(sumEstCard, sumEstRead int64) float64

// CostByCard is the default cost function: cost is intermediate
// cardinality alone.
func CostByCard(sumEstCard, _ int64) float64 {
	return float64(sumEstCard)
}

// CostByCardPlusRead weighs tuples-read equally with cardinality, for
// callers whose executor's read cost is not negligible relative to the
// rows the plan produces.
func CostByCardPlusRead(sumEstCard, sumEstRead int64) float64 {
	return float64(sumEstCard + sumEstRead)
}

// Path is an immutable, ordered sequence of vertices representing one
// candidate join order, together with the cumulative sample statistics of
// extending through it. A Path is never mutated after construction; AddEdge
// returns a new, longer Path.
type Path struct {
	vertices        []*Vertex
	predicates      []Predicate
	attachedFilters [][]FilterConstraint
	lastEdge        EdgeSample
	sumEstCard      int64
	sumEstRead      int64
	sumEstCost      float64
	costFn          CostFunc
}

// NewPath constructs a single-vertex path. Its sample is the vertex's own
// standalone VertexSample (spec §3: "a single-vertex path's sample is that
// vertex's sample").
func NewPath(v *Vertex, costFn CostFunc) *Path {
	if costFn == nil {
		costFn = CostByCard
	}
	estimate := Normal
	switch {
	case v.Sample.Exact:
		estimate = Exact
	case v.Sample.EstCard >= v.Sample.Limit && v.Sample.Limit > 0:
		estimate = LowerBound
	}
	edge := EdgeSample{
		Limit:    v.Sample.Limit,
		EstCard:  v.Sample.EstCard,
		EstRead:  v.Sample.EstRead,
		Estimate: estimate,
	}
	return &Path{
		vertices:   []*Vertex{v},
		predicates: []Predicate{v.Predicate},
		lastEdge:   edge,
		sumEstCard: edge.EstCard,
		sumEstRead: edge.EstRead,
		sumEstCost: costFn(edge.EstCard, edge.EstRead),
		costFn:     costFn,
	}
}

// Vertices returns the path's vertices in join order. The returned slice
// must not be mutated by the caller.
func (p *Path) Vertices() []*Vertex { return p.vertices }

// Len returns the number of vertices in the path.
func (p *Path) Len() int { return len(p.vertices) }

// LastEdge returns the EdgeSample produced by the path's most recent
// extension (or, for a single-vertex path, its vertex's own sample
// converted to edge-sample form).
func (p *Path) LastEdge() EdgeSample { return p.lastEdge }

// SumEstCard, SumEstRead, and SumEstCost return the path's cumulative
// statistics (spec §3).
func (p *Path) SumEstCard() int64    { return p.sumEstCard }
func (p *Path) SumEstRead() int64    { return p.sumEstRead }
func (p *Path) SumEstCost() float64  { return p.sumEstCost }

// Contains reports whether id already names a vertex in the path.
func (p *Path) Contains(id string) bool {
	for _, v := range p.vertices {
		if v.ID == id {
			return true
		}
	}
	return false
}

// VertexSet returns the unordered set of vertex IDs in the path, used by
// the engine to group extensions into equivalence classes (spec §4.2).
func (p *Path) VertexSet() string {
	// A sorted, delimiter-joined key is sufficient as an equivalence-class
	// key here because the engine only ever compares these keys for
	// equality, never interprets them.
	ids := make([]string, len(p.vertices))
	for i, v := range p.vertices {
		ids[i] = v.ID
	}
	return sortedJoin(ids)
}

// GetNewLimit implements the resampling policy of spec §4.2: if the path's
// last edge underflowed, double the current limit; otherwise add
// defaultIncrement.
func (p *Path) GetNewLimit(defaultIncrement int64) int64 {
	if p.lastEdge.Estimate == Underflow {
		return p.lastEdge.Limit * 2
	}
	return p.lastEdge.Limit + defaultIncrement
}

// AddEdge extends the path by newVertex, using executor to perform the
// cutoff join. constraints is the set of filters attachable at this new
// step (typically computed by the caller via GetJoinGraphConstraints and
// sliced to this position). The engine forbids extending by a vertex
// already present in the path; AddEdge enforces that itself so it is safe
// to call directly outside the engine's own exploration loop.
func (p *Path) AddEdge(ctx context.Context, executor SamplingExecutor, newVertex *Vertex, constraints []FilterConstraint, pathIsComplete bool, limit int64) (*Path, error) {
	if newVertex == nil {
		return nil, coreerr.InvalidArgument.New("new vertex must not be nil")
	}
	if p.Contains(newVertex.ID) {
		return nil, coreerr.InvalidArgument.New("path already contains vertex %q", newVertex.ID)
	}

	extendedPredicates := make([]Predicate, len(p.predicates)+1)
	copy(extendedPredicates, p.predicates)
	extendedPredicates[len(p.predicates)] = newVertex.Predicate

	edge, err := executor.CutoffJoin(ctx, p.lastEdge, extendedPredicates, constraints, pathIsComplete, limit)
	if err != nil {
		return nil, err
	}

	vertices := make([]*Vertex, len(p.vertices)+1)
	copy(vertices, p.vertices)
	vertices[len(p.vertices)] = newVertex

	filters := make([][]FilterConstraint, len(p.attachedFilters)+1)
	copy(filters, p.attachedFilters)
	filters[len(p.attachedFilters)] = constraints

	next := &Path{
		vertices:        vertices,
		predicates:      extendedPredicates,
		attachedFilters: filters,
		lastEdge:        edge,
		sumEstCard:      p.sumEstCard + edge.EstCard,
		sumEstRead:      p.sumEstRead + edge.EstRead,
		costFn:          p.costFn,
	}
	next.sumEstCost = next.costFn(next.sumEstCard, next.sumEstRead)
	return next, nil
}
