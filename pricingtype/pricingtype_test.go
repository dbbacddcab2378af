package pricingtype_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/pricingtype"
	"github.com/scipopt/gcg-colgen/varident"
)

type fakeVar struct {
	id  varident.ID
	obj float64
}

func (v *fakeVar) ID() varident.ID        { return v.id }
func (v *fakeVar) Kind() host.VarKind     { return host.VarPricing }
func (v *fakeVar) Block() int             { return 0 }
func (v *fakeVar) LowerBound() float64    { return 0 }
func (v *fakeVar) UpperBound() float64    { return 1 }
func (v *fakeVar) Objective() float64     { return v.obj }
func (v *fakeVar) SetObjective(o float64) { v.obj = o }

type fakeCons struct{ dual, farkas float64 }

func (c *fakeCons) ID() varident.ID { return 1 }
func (c *fakeCons) Lhs() float64    { return 0 }
func (c *fakeCons) Rhs() float64    { return 0 }
func (c *fakeCons) Dual() float64   { return c.dual }
func (c *fakeCons) Farkas() float64 { return c.farkas }

func TestRedcost_ReadsOrdinaryDuals(t *testing.T) {
	r := pricingtype.NewRedcost(0, 0, 0, 0)
	c := &fakeCons{dual: 4, farkas: 9}
	assert.Equal(t, 4.0, r.DualOfCons(c))
	assert.False(t, r.IsFarkas())
}

func TestFarkas_ReadsFarkasDuals(t *testing.T) {
	f := pricingtype.NewFarkas()
	c := &fakeCons{dual: 4, farkas: 9}
	assert.Equal(t, 9.0, f.DualOfCons(c))
	assert.True(t, f.IsFarkas())

	v := &fakeVar{obj: 7}
	assert.Equal(t, 0.0, f.ObjOfVar(v), "Farkas pricing ignores the true objective")
}

func TestRedcost_RootOverridesApplyOnlyAtRoot(t *testing.T) {
	r := pricingtype.NewRedcost(10, 100, 3, 30)
	assert.Equal(t, 3, r.RoundLimit(true))
	assert.Equal(t, 10, r.RoundLimit(false))
	assert.Equal(t, 30, r.ProblemLimit(true))
	assert.Equal(t, 100, r.ProblemLimit(false))
}

func TestReducedCost_SubtractsDualWeightedCoefs(t *testing.T) {
	v := &fakeVar{id: 1, obj: 5}
	c, err := column.NewColumn(0, false, []column.RawEntry{{Var: v, Val: 1}})
	require.NoError(t, err)
	c.SetOwnObjective(5)
	c.SetMasterCoefs([]float64{2, 0})

	cons1 := &fakeCons{dual: 3}
	cons2 := &fakeCons{dual: 100} // coefficient is 0, must not contribute

	rc := pricingtype.ReducedCost(c, pricingtype.NewRedcost(0, 0, 0, 0),
		[]host.MasterConstraint{cons1, cons2}, nil, nil)
	assert.InDelta(t, -1.0, rc, 1e-9) // 5 - 3*2 - 100*0
}

func TestObjectiveOf_SumsOverSolution(t *testing.T) {
	v1 := &fakeVar{obj: 2}
	v2 := &fakeVar{obj: 3}
	obj := pricingtype.ObjectiveOf(pricingtype.NewRedcost(0, 0, 0, 0), []host.Variable{v1, v2}, []float64{1, 2})
	assert.Equal(t, 8.0, obj) // 2*1 + 3*2
}

func TestClock_AccumulatesAcrossStartStop(t *testing.T) {
	r := pricingtype.NewRedcost(0, 0, 0, 0)
	r.Start()
	r.Stop()
	r.Start()
	r.Stop()
	assert.True(t, r.Elapsed() >= 0)
}
