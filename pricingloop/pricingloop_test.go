package pricingloop_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/emc"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/pricingloop"
	"github.com/scipopt/gcg-colgen/pricingtype"
	"github.com/scipopt/gcg-colgen/stabilization"
	"github.com/scipopt/gcg-colgen/varident"
)

type fakeVar struct {
	id    varident.ID
	kind  host.VarKind
	block int
	obj   float64
}

func (v *fakeVar) ID() varident.ID        { return v.id }
func (v *fakeVar) Kind() host.VarKind     { return v.kind }
func (v *fakeVar) Block() int             { return v.block }
func (v *fakeVar) LowerBound() float64    { return 0 }
func (v *fakeVar) UpperBound() float64    { return 1 }
func (v *fakeVar) Objective() float64     { return v.obj }
func (v *fakeVar) SetObjective(o float64) { v.obj = o }

type fakeCons struct {
	id   varident.ID
	dual float64
}

func (c *fakeCons) ID() varident.ID { return c.id }
func (c *fakeCons) Lhs() float64    { return math.Inf(-1) }
func (c *fakeCons) Rhs() float64    { return math.Inf(1) }
func (c *fakeCons) Dual() float64   { return c.dual }
func (c *fakeCons) Farkas() float64 { return 0 }

type fakeMasterContext struct {
	cons []host.MasterConstraint
}

func (m *fakeMasterContext) MasterConstraints() []host.MasterConstraint { return m.cons }
func (m *fakeMasterContext) OriginalCuts() []host.Row                  { return nil }
func (m *fakeMasterContext) SeparatorCuts() []host.Row                 { return nil }

// Coefficients reports the column's first pricing-variable value as its
// (only) master-constraint coefficient, so test columns carry a simple,
// predictable reduced cost.
func (m *fakeMasterContext) Coefficients(col *column.Column) (mc, oc, sc []float64) {
	entries := col.PricingEntries()
	coef := 0.0
	if len(entries) > 0 {
		coef = entries[0].Val
	}

	return []float64{coef}, nil, nil
}

type fakeProblem struct {
	nodeID int64
	blocks []int
}

func (p *fakeProblem) NBlocks() int                                   { return len(p.blocks) }
func (p *fakeProblem) RelevantBlocks() []int                          { return p.blocks }
func (p *fakeProblem) IdenticalCount(int) int                         { return 1 }
func (p *fakeProblem) ConvexityConstraint(int) host.MasterConstraint  { return nil }
func (p *fakeProblem) IsRootNode() bool                               { return true }
func (p *fakeProblem) NodeID() int64                                  { return p.nodeID }
func (p *fakeProblem) PricingProblem(int) host.PricingProblem         { return nil }

type fakePricingProblem struct{ block int }

func (p *fakePricingProblem) Block() int                             { return p.block }
func (p *fakePricingProblem) AddVariable(host.Variable) error        { return nil }
func (p *fakePricingProblem) RemoveVariable(host.Variable) error     { return nil }
func (p *fakePricingProblem) AddConstraint(host.PricingConstraint) error    { return nil }
func (p *fakePricingProblem) RemoveConstraint(host.PricingConstraint) error { return nil }

type colSpec struct {
	varID  varident.ID
	val    float64
	ownObj float64
}

// scriptedSolver emits rounds[n] on its n-th Solve call (any block), then
// nothing once the script runs out.
type scriptedSolver struct {
	rounds [][]colSpec
	calls  int
}

func (s *scriptedSolver) Solve(_ context.Context, block int, _ pricingtype.RedcostEvaluator) ([]*column.Column, error) {
	var specs []colSpec
	if s.calls < len(s.rounds) {
		specs = s.rounds[s.calls]
	}
	s.calls++

	cols := make([]*column.Column, 0, len(specs))
	for _, sp := range specs {
		v := &fakeVar{id: sp.varID, kind: host.VarPricing, block: block}
		col, err := column.NewColumn(block, false, []column.RawEntry{{Var: v, Val: sp.val}})
		if err != nil {
			return nil, err
		}
		col.SetOwnObjective(sp.ownObj)
		cols = append(cols, col)
	}

	return cols, nil
}

func TestRunRound_CommitsNegativeReducedCostColumn(t *testing.T) {
	cons := &fakeCons{id: 1, dual: 2}
	mc := &fakeMasterContext{cons: []host.MasterConstraint{cons}}
	solver := &scriptedSolver{rounds: [][]colSpec{{{varID: 10, val: 1, ownObj: 1}}}}

	cfg := pricingloop.DefaultConfig()
	d := pricingloop.New(cfg, solver)
	d.EnterNode(1)

	var committed []*column.Column
	problem := &fakeProblem{nodeID: 1, blocks: []int{0}}

	n, err := d.RunRound(context.Background(), problem, mc, nil, d.NewRedcostEvaluator(), func(c *column.Column) error {
		committed = append(committed, c)

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, committed, 1)
	val, ok := committed[0].SolutionValue(10)
	assert.True(t, ok)
	assert.InDelta(t, 1, val, 1e-9)
}

func TestRunRound_PoolReusesUncommittedColumnAcrossRounds(t *testing.T) {
	cons := &fakeCons{id: 1, dual: 1}
	mc := &fakeMasterContext{cons: []host.MasterConstraint{cons}}

	// Round 1 produces two candidates; cap=1 commits only the more
	// negative one (A). Round 2 produces nothing fresh: B must still be
	// found via the pool, without a second pricing-subproblem solve
	// supplying it again.
	solver := &scriptedSolver{rounds: [][]colSpec{
		{{varID: 10, val: 1, ownObj: -5}, {varID: 11, val: 1, ownObj: -1}},
		{},
	}}

	cfg := pricingloop.DefaultConfig()
	cfg.MaxCols = 1
	d := pricingloop.New(cfg, solver)
	d.EnterNode(1)

	problem := &fakeProblem{nodeID: 1, blocks: []int{0}}
	ev := d.NewRedcostEvaluator()

	var round1, round2 []*column.Column
	n1, err := d.RunRound(context.Background(), problem, mc, nil, ev, func(c *column.Column) error {
		round1 = append(round1, c)

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n1)
	require.Len(t, round1, 1)
	_, hasA := round1[0].SolutionValue(10)
	assert.True(t, hasA)
	assert.Equal(t, 1, d.Pool().NCols()) // B survives, uncommitted

	n2, err := d.RunRound(context.Background(), problem, mc, nil, ev, func(c *column.Column) error {
		round2 = append(round2, c)

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n2)
	require.Len(t, round2, 1)
	_, hasB := round2[0].SolutionValue(11)
	assert.True(t, hasB)
	assert.Equal(t, 0, d.Pool().NCols())
}

func TestRunRound_StabilizationSmoothsEMCDual(t *testing.T) {
	masterCons := &fakeCons{id: 1, dual: 4}
	emcCons := &fakeCons{id: 2, dual: 4}
	mc := &fakeMasterContext{cons: []host.MasterConstraint{masterCons}}

	coefVar := &fakeVar{id: 100, kind: host.VarInferredPricing}
	mod := emc.PricingModification{Block: 0, CoefVar: coefVar}
	e, err := emc.NewFromCons(1, emcCons, []emc.PricingModification{mod}, emc.CoefficientBranchBacked, nil, emc.CGCutPayload{})
	require.NoError(t, err)
	require.NoError(t, e.Apply(map[int]host.PricingProblem{0: &fakePricingProblem{block: 0}}))

	solver := &scriptedSolver{rounds: [][]colSpec{{}}}
	cfg := pricingloop.DefaultConfig()
	d := pricingloop.New(cfg, solver)
	d.EnterNode(1)

	d.Stabilization().UpdateCenter(
		1,
		map[stabilization.Group][]float64{
			stabilization.GroupMasterCons: {4},
			stabilization.GroupEMC:        {4},
		},
		nil,
		stabilization.SubgradientInput{},
	)
	require.True(t, d.Stabilization().HasCenter())

	// The LP moved this round: both duals are now 0. With the 0.8 initial
	// smoothing factor and a center of 4, the EMC's blended dual is
	// 0.8*4 = 3.2, which the round writes negated onto coef_var.
	masterCons.dual = 0
	emcCons.dual = 0

	problem := &fakeProblem{nodeID: 1, blocks: []int{0}}
	_, err = d.RunRound(context.Background(), problem, mc, []*emc.EMC{e}, d.NewRedcostEvaluator(), func(*column.Column) error {
		return nil
	})
	require.NoError(t, err)
	assert.InDelta(t, -3.2, coefVar.Objective(), 1e-9)
}

func TestEnterNode_ResetsPoolAndStabilization(t *testing.T) {
	solver := &scriptedSolver{}
	d := pricingloop.New(pricingloop.DefaultConfig(), solver)

	d.EnterNode(1)
	d.Stabilization().UpdateCenter(1, map[stabilization.Group][]float64{stabilization.GroupMasterCons: {1}}, nil, stabilization.SubgradientInput{})
	require.True(t, d.Stabilization().HasCenter())

	v := &fakeVar{id: 1, kind: host.VarPricing, block: 0}
	col, err := column.NewColumn(0, false, []column.RawEntry{{Var: v, Val: 1}})
	require.NoError(t, err)
	require.NoError(t, d.Pool().AddNew(col))
	require.Equal(t, 1, d.Pool().NCols())

	d.EnterNode(2)
	assert.False(t, d.Stabilization().HasCenter())
	assert.Equal(t, 0, d.Pool().NCols())
	assert.Equal(t, int64(2), d.Pool().NodeID())
	assert.Equal(t, 0, d.Round())
}
