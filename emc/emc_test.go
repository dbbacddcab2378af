package emc_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/emc"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/varident"
)

type fakeVar struct {
	id   varident.ID
	kind host.VarKind
	obj  float64
}

func (v *fakeVar) ID() varident.ID      { return v.id }
func (v *fakeVar) Kind() host.VarKind   { return v.kind }
func (v *fakeVar) Block() int           { return 0 }
func (v *fakeVar) LowerBound() float64  { return 0 }
func (v *fakeVar) UpperBound() float64  { return 1 }
func (v *fakeVar) Objective() float64   { return v.obj }
func (v *fakeVar) SetObjective(o float64) { v.obj = o }

type fakeCons struct {
	id    varident.ID
	terms map[varident.ID]float64
}

func (c *fakeCons) ID() varident.ID { return c.id }
func (c *fakeCons) AddTerm(v host.Variable, coef float64) {
	if c.terms == nil {
		c.terms = map[varident.ID]float64{}
	}
	c.terms[v.ID()] = coef
}

type fakeMasterCons struct {
	id          varident.ID
	lhs, rhs    float64
	dual, farkas float64
}

func (c *fakeMasterCons) ID() varident.ID { return c.id }
func (c *fakeMasterCons) Lhs() float64    { return c.lhs }
func (c *fakeMasterCons) Rhs() float64    { return c.rhs }
func (c *fakeMasterCons) Dual() float64   { return c.dual }
func (c *fakeMasterCons) Farkas() float64 { return c.farkas }

type fakePricingProblem struct {
	block int
	vars  []host.Variable
	conss []host.PricingConstraint
}

func (p *fakePricingProblem) Block() int { return p.block }

func (p *fakePricingProblem) AddVariable(v host.Variable) error {
	p.vars = append(p.vars, v)
	return nil
}

func (p *fakePricingProblem) RemoveVariable(v host.Variable) error {
	for i, existing := range p.vars {
		if existing.ID() == v.ID() {
			p.vars = append(p.vars[:i], p.vars[i+1:]...)
			return nil
		}
	}
	return nil
}

func (p *fakePricingProblem) AddConstraint(c host.PricingConstraint) error {
	p.conss = append(p.conss, c)
	return nil
}

func (p *fakePricingProblem) RemoveConstraint(c host.PricingConstraint) error {
	for i, existing := range p.conss {
		if existing.ID() == c.ID() {
			p.conss = append(p.conss[:i], p.conss[i+1:]...)
			return nil
		}
	}
	return nil
}

func snapshot(p *fakePricingProblem) fakePricingProblem {
	return fakePricingProblem{
		block: p.block,
		vars:  append([]host.Variable(nil), p.vars...),
		conss: append([]host.PricingConstraint(nil), p.conss...),
	}
}

func TestNewFromCons_RejectsDuplicateBlock(t *testing.T) {
	g := &fakeVar{id: 1, kind: host.VarInferredPricing}
	mods := []emc.PricingModification{
		{Block: 0, CoefVar: g},
		{Block: 0, CoefVar: g},
	}
	_, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, mods, emc.CoefficientBranchBacked, nil, emc.CGCutPayload{})
	require.Error(t, err)
}

func TestNewFromCons_RejectsNonZeroObjectiveCoefVar(t *testing.T) {
	g := &fakeVar{id: 1, kind: host.VarInferredPricing, obj: 3}
	mods := []emc.PricingModification{{Block: 0, CoefVar: g}}
	_, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, mods, emc.CoefficientBranchBacked, nil, emc.CGCutPayload{})
	require.Error(t, err)
}

func TestNewFromCons_RejectsNonInferredCoefVar(t *testing.T) {
	g := &fakeVar{id: 1, kind: host.VarPricing}
	mods := []emc.PricingModification{{Block: 0, CoefVar: g}}
	_, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, mods, emc.CoefficientBranchBacked, nil, emc.CGCutPayload{})
	require.Error(t, err)
}

// TestApplyUndo_RoundTripRestoresPricingProblem mirrors the apply/undo
// round-trip scenario: build an EMC with one pricing modification on block
// 0 (coef_var g, additional var y, constraint y <= g), snapshot pricing
// problem 0, apply, "solve", undo, and expect the pricing problem's
// variables and constraints to match the snapshot exactly.
func TestApplyUndo_RoundTripRestoresPricingProblem(t *testing.T) {
	pp := &fakePricingProblem{block: 0}
	pp.vars = append(pp.vars, &fakeVar{id: 100, kind: host.VarPricing})
	before := snapshot(pp)

	g := &fakeVar{id: 1, kind: host.VarInferredPricing}
	y := &fakeVar{id: 2, kind: host.VarInferredPricing}
	cons := &fakeCons{id: 1}
	cons.AddTerm(y, 1)
	cons.AddTerm(g, -1)

	mods := []emc.PricingModification{
		{Block: 0, CoefVar: g, AdditionalVars: []host.Variable{y}, AdditionalConss: []host.PricingConstraint{cons}},
	}
	e, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, mods, emc.CoefficientBranchBacked, nil, emc.CGCutPayload{})
	require.NoError(t, err)

	problems := map[int]host.PricingProblem{0: pp}
	require.NoError(t, e.Apply(problems))
	assert.True(t, e.IsActive())
	assert.Len(t, pp.vars, 3)
	assert.Len(t, pp.conss, 1)

	require.NoError(t, e.Undo(problems))
	assert.False(t, e.IsActive())

	after := snapshot(pp)
	assert.True(t, reflect.DeepEqual(before, after), "pricing problem must be restored exactly after undo")
}

func TestUpdateDual_SetsNegatedDualOnCoefVar(t *testing.T) {
	g := &fakeVar{id: 1, kind: host.VarInferredPricing}
	mods := []emc.PricingModification{{Block: 0, CoefVar: g}}
	e, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, mods, emc.CoefficientBranchBacked, nil, emc.CGCutPayload{})
	require.NoError(t, err)

	e.UpdateDual(4.5)
	assert.Equal(t, -4.5, g.Objective())
}

func TestCoefficientOfColumn_ReadsCoefVarSolutionValue(t *testing.T) {
	g := &fakeVar{id: 1, kind: host.VarInferredPricing}
	mods := []emc.PricingModification{{Block: 0, CoefVar: g}}
	e, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, mods, emc.CoefficientBranchBacked, nil, emc.CGCutPayload{})
	require.NoError(t, err)

	c, err := column.NewColumn(0, false, []column.RawEntry{{Var: g, Val: 3}})
	require.NoError(t, err)

	v, ok := e.CoefficientOfColumn(0, c)
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestCoefficientBranch_DelegatesToCallback(t *testing.T) {
	g := &fakeVar{id: 1, kind: host.VarInferredPricing}
	mods := []emc.PricingModification{{Block: 0, CoefVar: g}}
	called := false
	cb := func(vars []host.Variable, vals []float64, probnr int) (float64, error) {
		called = true
		return 7, nil
	}
	e, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, mods, emc.CoefficientBranchBacked, cb, emc.CGCutPayload{})
	require.NoError(t, err)

	v, err := e.CoefficientBranch(nil, nil, 0)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 7.0, v)
}

func TestCoefficientCGExisting_FloorsWeightedSum(t *testing.T) {
	e, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, nil, emc.CoefficientChvatalGomory, nil,
		emc.CGCutPayload{Weights: []float64{0.5, 0.5}, ConstraintIndices: []int{0, 1}})
	require.NoError(t, err)

	v, err := e.CoefficientCGExisting([]float64{3, 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, v) // floor(0.5*3 + 0.5*2) = floor(2.5) = 2
}

func TestCoefficientCGFresh_FloorsWeightedSum(t *testing.T) {
	e, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, nil, emc.CoefficientChvatalGomory, nil, emc.CGCutPayload{})
	require.NoError(t, err)

	v, err := e.CoefficientCGFresh([]float64{1, 1}, []float64{1.7, 0.8})
	require.NoError(t, err)
	assert.Equal(t, 2.0, v) // floor(1.7+0.8) = floor(2.5) = 2
}

func TestCoefficientCGExisting_WrongKindErrors(t *testing.T) {
	g := &fakeVar{id: 1, kind: host.VarInferredPricing}
	mods := []emc.PricingModification{{Block: 0, CoefVar: g}}
	e, err := emc.NewFromCons(1, &fakeMasterCons{id: 1}, mods, emc.CoefficientBranchBacked, nil, emc.CGCutPayload{})
	require.NoError(t, err)

	_, err = e.CoefficientCGExisting([]float64{1})
	require.Error(t, err)
}

func TestIsActive_FollowsApplyUndo(t *testing.T) {
	e, err := emc.NewFromRow(1, &fakeMasterCons{id: 1}, nil, emc.CoefficientBranchBacked, nil, emc.CGCutPayload{})
	require.NoError(t, err)
	assert.False(t, e.IsActive())

	require.NoError(t, e.Apply(map[int]host.PricingProblem{}))
	assert.True(t, e.IsActive())

	require.NoError(t, e.Undo(map[int]host.PricingProblem{}))
	assert.False(t, e.IsActive())
}
