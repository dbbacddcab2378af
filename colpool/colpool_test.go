package colpool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scipopt/gcg-colgen/colpool"
	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/gcgerr"
	"github.com/scipopt/gcg-colgen/host"
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

func mkVar(id uint64, block int) *fakeVar {
	return &fakeVar{id: varident.ID(id), kind: host.VarPricing, block: block}
}

func mkCol(t *testing.T, block int, vars ...*fakeVar) *column.Column {
	t.Helper()
	raw := make([]column.RawEntry, len(vars))
	for i, v := range vars {
		raw[i] = column.RawEntry{Var: v, Val: 1}
	}
	c, err := column.NewColumn(block, false, raw)
	require.NoError(t, err)

	return c
}

func TestAddIfNew_Deduplicates(t *testing.T) {
	p := colpool.New(2)
	v1 := mkVar(1, 0)

	c1 := mkCol(t, 0, v1)
	inserted, err := p.AddIfNew(c1)
	require.NoError(t, err)
	assert.True(t, inserted)

	c2 := mkCol(t, 0, v1) // same (block, vars) as c1
	inserted, err = p.AddIfNew(c2)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, 1, p.NCols())
}

func TestPrice_AgesAndEvicts(t *testing.T) {
	p := colpool.New(2) // ageLimit = 2
	v1 := mkVar(1, 0)
	v2 := mkVar(2, 0)

	c1 := mkCol(t, 0, v1)
	c2dup := mkCol(t, 0, v1) // duplicate of c1
	c3 := mkCol(t, 0, v2)

	ins, err := p.AddIfNew(c1)
	require.NoError(t, err)
	require.True(t, ins)
	ins, err = p.AddIfNew(c2dup)
	require.NoError(t, err)
	require.False(t, ins)
	ins, err = p.AddIfNew(c3)
	require.NoError(t, err)
	require.True(t, ins)
	require.Equal(t, 2, p.NCols())

	// Every stored column has non-negative reduced cost, so each Price
	// call ages without ever promoting to the master.
	var found int
	noopFactory := func(*column.Column) error { return nil }

	c1.UpdateRedcost(0, false)
	c3.UpdateRedcost(0, false)

	found, err = p.Price(1e-9, noopFactory)
	require.NoError(t, err)
	assert.Equal(t, 0, found)
	assert.Equal(t, 2, p.NCols())

	found, err = p.Price(1e-9, noopFactory)
	require.NoError(t, err)
	assert.Equal(t, 0, found)
	assert.Equal(t, 2, p.NCols(), "age 2 == ageLimit, not yet evicted")

	found, err = p.Price(1e-9, noopFactory)
	require.NoError(t, err)
	assert.Equal(t, 0, found)
	assert.Equal(t, 0, p.NCols(), "age 3 > ageLimit, both evicted")
}

func TestPrice_PromotesNegativeReducedCost(t *testing.T) {
	p := colpool.New(-1)
	v1 := mkVar(1, 0)
	c1 := mkCol(t, 0, v1)
	c1.UpdateRedcost(-5, false)
	_, err := p.AddIfNew(c1)
	require.NoError(t, err)

	var promoted *column.Column
	found, err := p.Price(1e-9, func(c *column.Column) error {
		promoted = c

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, found)
	assert.Same(t, c1, promoted)
	assert.Equal(t, 0, p.NCols())
	assert.Equal(t, -1, c1.Pos())
}

func TestUpdateNode_ClearsOnChange(t *testing.T) {
	p := colpool.New(-1)
	v1 := mkVar(1, 0)
	c1 := mkCol(t, 0, v1)
	_, err := p.AddIfNew(c1)
	require.NoError(t, err)

	p.UpdateNode(1)
	assert.Equal(t, int64(1), p.NodeID())
	assert.Equal(t, 1, p.NCols())

	p.UpdateNode(2)
	assert.Equal(t, int64(2), p.NodeID())
	assert.Equal(t, 0, p.NCols())
}

func TestDelete_NotPresent(t *testing.T) {
	p := colpool.New(-1)
	v1 := mkVar(1, 0)
	c1 := mkCol(t, 0, v1)

	err := p.Delete(c1)
	require.ErrorIs(t, err, gcgerr.ErrInvalidData)
}

type fakeCons struct {
	id   varident.ID
	dual float64
}

func (c *fakeCons) ID() varident.ID { return c.id }
func (c *fakeCons) Lhs() float64    { return 0 }
func (c *fakeCons) Rhs() float64    { return 0 }
func (c *fakeCons) Dual() float64   { return c.dual }
func (c *fakeCons) Farkas() float64 { return 0 }

type fakeEvaluator struct{}

func (fakeEvaluator) DualOfCons(c host.MasterConstraint) float64       { return c.Dual() }
func (fakeEvaluator) DualOfRow(r host.Row) float64                     { return r.Dual() }
func (fakeEvaluator) DualOfEMC(ref host.ExtendedMasterConsRef) float64 { return ref.Dual() }
func (fakeEvaluator) ObjOfVar(v host.Variable) float64                 { return v.Objective() }
func (fakeEvaluator) IsFarkas() bool                                   { return false }

type oneConsContext struct {
	cons *fakeCons
	coef float64
}

func (m oneConsContext) MasterConstraints() []host.MasterConstraint {
	return []host.MasterConstraint{m.cons}
}
func (oneConsContext) OriginalCuts() []host.Row  { return nil }
func (oneConsContext) SeparatorCuts() []host.Row { return nil }
func (m oneConsContext) Coefficients(*column.Column) (a, b, c []float64) {
	return []float64{m.coef}, nil, nil
}

func TestUpdateRedcost_RecostsAgainstCurrentDuals(t *testing.T) {
	p := colpool.New(-1)
	v1 := mkVar(1, 0)
	v1.obj = 3
	c1 := mkCol(t, 0, v1)
	c1.SetOwnObjective(3)
	_, err := p.AddIfNew(c1)
	require.NoError(t, err)

	mc := oneConsContext{cons: &fakeCons{id: varident.ID(10), dual: 2}, coef: 1}
	p.UpdateRedcost(fakeEvaluator{}, mc)

	assert.InDelta(t, 1.0, c1.Redcost(), 1e-9) // 3 - 2*1
}

func TestPropagateGlobalBounds_RemovesViolating(t *testing.T) {
	p := colpool.New(-1)
	v1 := mkVar(1, 0)
	v2 := mkVar(2, 0)
	c1 := mkCol(t, 0, v1)
	c2 := mkCol(t, 0, v2)
	_, _ = p.AddIfNew(c1)
	_, _ = p.AddIfNew(c2)

	removed := p.PropagateGlobalBounds(func(c *column.Column) bool {
		return c == c2
	})
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, p.NCols())
}
