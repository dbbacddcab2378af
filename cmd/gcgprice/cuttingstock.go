package main

import (
	"context"
	"math"

	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/pricingtype"
	"github.com/scipopt/gcg-colgen/varident"
)

// orderVar is a block-pricing variable counting how many pieces of one
// order width a pattern cuts from a single roll. Its objective is unused:
// a pattern's own cost (one roll) is fixed and set directly on the
// column by knapsackSolver, not accumulated from per-order objectives.
type orderVar struct {
	id    varident.ID
	block int
}

func (v *orderVar) ID() varident.ID      { return v.id }
func (v *orderVar) Kind() host.VarKind   { return host.VarPricing }
func (v *orderVar) Block() int           { return v.block }
func (v *orderVar) LowerBound() float64  { return 0 }
func (v *orderVar) UpperBound() float64  { return math.Inf(1) }
func (v *orderVar) Objective() float64   { return 0 }
func (v *orderVar) SetObjective(float64) {}

// orderConstraint is the covering row for one order: the total pieces cut
// across every used pattern must meet its demand. Dual starts at 1 so the
// first pricing solve has something to maximize against.
type orderConstraint struct {
	id     varident.ID
	demand float64
	dual   float64
}

func (c *orderConstraint) ID() varident.ID { return c.id }
func (c *orderConstraint) Lhs() float64    { return c.demand }
func (c *orderConstraint) Rhs() float64    { return math.Inf(1) }
func (c *orderConstraint) Dual() float64   { return c.dual }
func (c *orderConstraint) Farkas() float64 { return 0 }

// problem is the single-block host.Problem a cutting-stock instance
// reduces to: one pricing subproblem, no convexity constraint (a pattern
// may be reused without bound), one node.
type problem struct{}

func (problem) NBlocks() int                                 { return 1 }
func (problem) RelevantBlocks() []int                         { return []int{0} }
func (problem) IdenticalCount(int) int                        { return 1 }
func (problem) ConvexityConstraint(int) host.MasterConstraint { return nil }
func (problem) IsRootNode() bool                              { return true }
func (problem) NodeID() int64                                 { return 0 }
func (problem) PricingProblem(int) host.PricingProblem        { return nil }

// masterContext reports a column's per-order covering coefficients: the
// number of pieces of each order width the pattern cuts. vars[i] and
// cons[i] refer to the same order throughout.
type masterContext struct {
	cons []host.MasterConstraint
	vars []*orderVar
}

func (m *masterContext) MasterConstraints() []host.MasterConstraint { return m.cons }
func (m *masterContext) OriginalCuts() []host.Row                   { return nil }
func (m *masterContext) SeparatorCuts() []host.Row                  { return nil }

func (m *masterContext) Coefficients(col *column.Column) (mc, oc, sc []float64) {
	mc = make([]float64, len(m.vars))
	for i, v := range m.vars {
		if val, ok := col.SolutionValue(v.ID()); ok {
			mc[i] = val
		}
	}

	return mc, nil, nil
}

// patternEps is the tolerance a pricing pattern's dual-weighted value
// must clear above a roll's own cost (1) to be worth offering.
const patternEps = 1e-6

// knapsackSolver finds the cutting pattern with the most negative reduced
// cost by unbounded knapsack: maximize the dual-weighted piece count
// subject to the roll width, via a standard pseudopolynomial DP over
// integer capacities (mirrors tsp's dense-array, reconstruction-by-parent-
// pointer style).
type knapsackSolver struct {
	rollWidth int
	widths    []int
	cons      []*orderConstraint
	vars      []*orderVar
}

func (s *knapsackSolver) Solve(_ context.Context, block int, ev pricingtype.RedcostEvaluator) ([]*column.Column, error) {
	n := len(s.widths)
	capacity := s.rollWidth

	best := make([]float64, capacity+1)
	from := make([]int, capacity+1)
	used := make([]int, capacity+1)
	for c := range used {
		used[c] = -1
	}

	for c := 1; c <= capacity; c++ {
		best[c] = best[c-1]
		from[c] = c - 1
		for i := 0; i < n; i++ {
			w := s.widths[i]
			if w > c {
				continue
			}
			if v := best[c-w] + ev.DualOfCons(s.cons[i]); v > best[c]+patternEps {
				best[c] = v
				from[c] = c - w
				used[c] = i
			}
		}
	}

	if best[capacity] <= 1+patternEps {
		return nil, nil
	}

	counts := make([]int, n)
	for c := capacity; c > 0; c = from[c] {
		if used[c] >= 0 {
			counts[used[c]]++
		}
	}

	raw := make([]column.RawEntry, 0, n)
	for i, cnt := range counts {
		if cnt == 0 {
			continue
		}
		raw = append(raw, column.RawEntry{Var: s.vars[i], Val: float64(cnt)})
	}

	col, err := column.NewColumn(block, false, raw)
	if err != nil {
		return nil, err
	}
	col.SetOwnObjective(1)

	return []*column.Column{col}, nil
}
