// Command rtoplan builds a small synthetic join graph, runs the RTO
// exploration engine against an in-memory sampling executor, and prints the
// chosen join order and its cumulative statistics — a minimal driver
// exercising internal/rto end-to-end without a real query executor behind
// it.
//
// Example usage:
//
//	rtoplan -vertices 5 -limit 1000 -cost card+read
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/dreamware/quartzdb/internal/rto"
)

func main() {
	numVertices := flag.Int("vertices", 5, "number of vertices in the synthetic join graph")
	limit := flag.Int64("limit", 1000, "initial cutoff-join sampling limit")
	costName := flag.String("cost", "card", "cost function: card or card+read")
	seed := flag.Int64("seed", 1, "random seed for the synthetic graph and sampler")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	costFn, err := parseCostFn(*costName)
	if err != nil {
		logger.Fatal("invalid cost function", zap.Error(err))
		return
	}

	rnd := rand.New(rand.NewSource(*seed))
	graph := buildChainGraph(*numVertices, rnd)
	executor := newRandomExecutor(rnd)

	engine := rto.NewEngine(graph, executor, rto.Config{Limit: *limit, CostFn: costFn})
	best, err := engine.Optimize(context.Background())
	if err != nil {
		logger.Error("optimize failed", zap.Error(err))
		os.Exit(1)
	}

	ids := make([]string, len(best.Vertices()))
	for i, v := range best.Vertices() {
		ids[i] = v.ID
	}
	logger.Info("chosen join order",
		zap.String("order", strings.Join(ids, " -> ")),
		zap.Int64("sum_est_card", best.SumEstCard()),
		zap.Int64("sum_est_read", best.SumEstRead()),
		zap.Float64("sum_est_cost", best.SumEstCost()),
	)
}

func parseCostFn(name string) (rto.CostFunc, error) {
	switch name {
	case "card":
		return rto.CostByCard, nil
	case "card+read":
		return rto.CostByCardPlusRead, nil
	default:
		return nil, fmt.Errorf("unknown cost function %q: want card or card+read", name)
	}
}

// variables is a trivial Predicate/FilterConstraint implementation over a
// fixed variable-name list, standing in for the grammar-node predicates a
// real query planner would supply.
type variables []string

func (v variables) Variables() []string { return v }

// buildChainGraph constructs a synthetic graph of n vertices where vertex i
// and vertex i+1 share a variable, so every vertex is joinable to its
// neighbors, with random standalone samples.
func buildChainGraph(n int, rnd *rand.Rand) *rto.JoinGraph {
	if n < 1 {
		n = 1
	}
	vertices := make([]*rto.Vertex, n)
	for i := 0; i < n; i++ {
		vars := []string{fmt.Sprintf("v%d", i)}
		if i+1 < n {
			vars = append(vars, fmt.Sprintf("v%d", i+1))
		}
		vertices[i] = &rto.Vertex{
			ID:        fmt.Sprintf("p%d", i),
			Predicate: variables(vars),
			Sample: rto.VertexSample{
				Limit:   1000,
				EstCard: int64(10 + rnd.Intn(90)),
				EstRead: int64(10 + rnd.Intn(90)),
			},
		}
	}
	return &rto.JoinGraph{Vertices: vertices}
}

// randomExecutor is a stand-in SamplingExecutor that returns a plausible,
// randomized cutoff-join result without touching real data: production
// callers supply their own executor backed by an actual storage engine.
type randomExecutor struct {
	rnd *rand.Rand
}

func newRandomExecutor(rnd *rand.Rand) *randomExecutor {
	return &randomExecutor{rnd: rnd}
}

func (e *randomExecutor) CutoffJoin(_ context.Context, source rto.EdgeSample, _ []rto.Predicate, _ []rto.FilterConstraint, _ bool, limit int64) (rto.EdgeSample, error) {
	card := int64(e.rnd.Intn(int(limit) + 1))
	estimate := rto.Normal
	switch {
	case card == 0 && source.Estimate != rto.Exact:
		estimate = rto.Underflow
	case card >= limit:
		estimate = rto.LowerBound
	}
	return rto.EdgeSample{
		Limit:    limit,
		EstCard:  card,
		EstRead:  card + int64(e.rnd.Intn(10)),
		Estimate: estimate,
	}, nil
}
