// Package emc implements extended master constraints: a master-side row
// or constraint that a branching rule wants to enforce, paired with a
// per-block "pricing modification" that keeps every future pricing
// subproblem solve aware of it without having to re-derive the
// constraint's structure from scratch each round.
//
// Mirrors the teacher's small-arena-with-back-reference shape used for
// flow's residual-edge bookkeeping: pricing modifications are owned by
// the EMC, and the inferred-pricing variables they introduce carry only
// an opaque identity, never a pointer back to the EMC, so there is no
// ownership cycle between the two.
package emc

import (
	"math"

	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/gcgerr"
	"github.com/scipopt/gcg-colgen/gcglog"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/varident"
)

// CoefficientKind selects how a candidate column's coefficient in this
// EMC's master row is computed.
type CoefficientKind int

const (
	// CoefficientBranchBacked delegates to a branching rule's
	// GetCoefficient callback, used by generic and component-bound
	// branching's EMCs.
	CoefficientBranchBacked CoefficientKind = iota
	// CoefficientChvatalGomory computes a floor-of-weighted-sum
	// coefficient for a Chvátal-Gomory master cut.
	CoefficientChvatalGomory
)

// CGCutPayload is a Chvátal-Gomory master cut's coefficient data: the
// integer-rounding weights and which master constraints (by index into
// the caller's master-constraint list) they apply to.
type CGCutPayload struct {
	Weights           []float64
	ConstraintIndices []int
}

// BranchCoefficientFunc recomputes a column's coefficient in a
// branch-backed EMC from its raw pricing-subproblem solution, for
// columns built before this EMC existed.
type BranchCoefficientFunc func(vars []host.Variable, vals []float64, probnr int) (float64, error)

// PricingModification is the per-block injection an EMC makes into a
// pricing problem: a coefficient variable whose per-column solution value
// becomes the column's coefficient in this EMC's master row, plus any
// auxiliary variables/constraints needed to pin that value down.
type PricingModification struct {
	Block           int
	CoefVar         host.Variable
	AdditionalVars  []host.Variable
	AdditionalConss []host.PricingConstraint
}

func validateModification(m PricingModification) error {
	if m.CoefVar == nil {
		return gcgerr.Op("emc.validateModification", gcgerr.ErrInvalidData, "block %d: coef_var is nil", m.Block)
	}
	if m.CoefVar.Kind() != host.VarInferredPricing {
		return gcgerr.Op("emc.validateModification", gcgerr.ErrInvalidData, "block %d: coef_var must be inferred-pricing", m.Block)
	}
	if m.CoefVar.Objective() != 0 {
		return gcgerr.Op("emc.validateModification", gcgerr.ErrInvalidData, "block %d: coef_var must start with zero objective", m.Block)
	}
	for _, v := range m.AdditionalVars {
		if v.Kind() != host.VarInferredPricing {
			return gcgerr.Op("emc.validateModification", gcgerr.ErrInvalidData, "block %d: additional var must be inferred-pricing", m.Block)
		}
		if v.Objective() != 0 {
			return gcgerr.Op("emc.validateModification", gcgerr.ErrInvalidData, "block %d: additional var must start with zero objective", m.Block)
		}
	}

	return nil
}

func validateModifications(mods []PricingModification) error {
	seen := make(map[int]bool, len(mods))
	for _, m := range mods {
		if seen[m.Block] {
			return gcgerr.Op("emc.validateModifications", gcgerr.ErrInvalidData, "duplicate pricing modification for block %d", m.Block)
		}
		seen[m.Block] = true
		if err := validateModification(m); err != nil {
			return err
		}
	}

	return nil
}

// EMC is an extended master constraint: a master row or constraint
// coupled to the pricing modifications that keep it tractable to price
// against.
type EMC struct {
	id varident.ID

	masterCons host.MasterConstraint // nil if row-backed
	row        host.Row              // nil if cons-backed

	mods []PricingModification

	coefKind   CoefficientKind
	branchCoef BranchCoefficientFunc
	payload    CGCutPayload

	applied bool
}

// NewFromCons creates an EMC backed by a master constraint.
func NewFromCons(id varident.ID, cons host.MasterConstraint, mods []PricingModification, coefKind CoefficientKind, branchCoef BranchCoefficientFunc, payload CGCutPayload) (*EMC, error) {
	if cons == nil {
		return nil, gcgerr.Op("emc.NewFromCons", gcgerr.ErrInvalidData, "master constraint is nil")
	}
	if err := validateModifications(mods); err != nil {
		return nil, err
	}

	return &EMC{id: id, masterCons: cons, mods: mods, coefKind: coefKind, branchCoef: branchCoef, payload: payload}, nil
}

// NewFromRow creates an EMC backed by a lifted or separator row.
func NewFromRow(id varident.ID, row host.Row, mods []PricingModification, coefKind CoefficientKind, branchCoef BranchCoefficientFunc, payload CGCutPayload) (*EMC, error) {
	if row == nil {
		return nil, gcgerr.Op("emc.NewFromRow", gcgerr.ErrInvalidData, "row is nil")
	}
	if err := validateModifications(mods); err != nil {
		return nil, err
	}

	return &EMC{id: id, row: row, mods: mods, coefKind: coefKind, branchCoef: branchCoef, payload: payload}, nil
}

// ID returns the EMC's stable identity.
func (e *EMC) ID() varident.ID { return e.id }

// Modifications returns the EMC's per-block pricing modifications.
func (e *EMC) Modifications() []PricingModification { return e.mods }

// Dual returns the current dual (or Farkas coefficient) of the backing
// master constraint or row.
func (e *EMC) Dual() float64 {
	if e.masterCons != nil {
		return e.masterCons.Dual()
	}

	return e.row.Dual()
}

// Farkas returns the current Farkas coefficient of the backing master
// constraint or row.
func (e *EMC) Farkas() float64 {
	if e.masterCons != nil {
		return e.masterCons.Farkas()
	}

	return e.row.Farkas()
}

// IsActive reports whether Apply has run more recently than Undo, i.e.
// whether the pricing modifications are currently registered. It does not
// query the master LP for the backing row/constraint.
func (e *EMC) IsActive() bool {
	return e.applied
}

// Apply registers every pricing modification's coef_var, then additional
// vars, then additional constraints, in each referenced pricing problem.
func (e *EMC) Apply(pricingProblems map[int]host.PricingProblem) error {
	for _, m := range e.mods {
		pp, ok := pricingProblems[m.Block]
		if !ok {
			return gcgerr.Op("EMC.Apply", gcgerr.ErrInvalidData, "no pricing problem for block %d", m.Block)
		}
		if err := pp.AddVariable(m.CoefVar); err != nil {
			return err
		}
		for _, v := range m.AdditionalVars {
			if err := pp.AddVariable(v); err != nil {
				return err
			}
		}
		for _, c := range m.AdditionalConss {
			if err := pp.AddConstraint(c); err != nil {
				return err
			}
		}
	}
	e.applied = true

	return nil
}

// Undo reverses Apply: constraints are removed first, then additional
// variables, then coef_var, mirroring apply's registration order in
// reverse.
func (e *EMC) Undo(pricingProblems map[int]host.PricingProblem) error {
	for _, m := range e.mods {
		pp, ok := pricingProblems[m.Block]
		if !ok {
			return gcgerr.Op("EMC.Undo", gcgerr.ErrInvalidData, "no pricing problem for block %d", m.Block)
		}
		for i := len(m.AdditionalConss) - 1; i >= 0; i-- {
			if err := pp.RemoveConstraint(m.AdditionalConss[i]); err != nil {
				return err
			}
		}
		for i := len(m.AdditionalVars) - 1; i >= 0; i-- {
			if err := pp.RemoveVariable(m.AdditionalVars[i]); err != nil {
				return err
			}
		}
		if err := pp.RemoveVariable(m.CoefVar); err != nil {
			return err
		}
	}
	e.applied = false

	return nil
}

// UpdateDual sets every modification's coef_var objective to -dual, ready
// for the next round's pricing subproblem solves. A Chvátal-Gomory master
// cut's dual should always be non-positive; a positive value is logged
// rather than silently zeroed, since the question of whether to correct
// it is unresolved.
func (e *EMC) UpdateDual(dual float64) {
	if e.coefKind == CoefficientChvatalGomory && dual > 0 {
		gcglog.Logger().WithField("dual", dual).Warn("emc: Chvátal-Gomory master cut dual is positive")
	}
	for _, m := range e.mods {
		m.CoefVar.SetObjective(-dual)
	}
}

// CoefficientOfColumn returns a committed column's coefficient in this
// EMC's master row. For most columns this is simply the column's
// solution value for this EMC's block's coef_var, since that value is
// the coefficient by construction.
func (e *EMC) CoefficientOfColumn(block int, c *column.Column) (float64, bool) {
	for _, m := range e.mods {
		if m.Block != block {
			continue
		}

		return c.SolutionValue(m.CoefVar.ID())
	}

	return 0, false
}

// CoefficientBranch recomputes a column's coefficient from its raw
// pricing-subproblem solution via the branch rule's GetCoefficient
// callback. Used when a column predates this EMC and so never carried
// its coef_var.
func (e *EMC) CoefficientBranch(vars []host.Variable, vals []float64, probnr int) (float64, error) {
	if e.coefKind != CoefficientBranchBacked {
		return 0, gcgerr.Op("EMC.CoefficientBranch", gcgerr.ErrInvalidData, "not a branch-backed EMC")
	}
	if e.branchCoef == nil {
		return 0, gcgerr.Op("EMC.CoefficientBranch", gcgerr.ErrNotImplemented, "no branch coefficient callback registered")
	}

	return e.branchCoef(vars, vals, probnr)
}

// CoefficientCGExisting computes a Chvátal-Gomory master cut's
// coefficient for a column that already carries cached master
// coefficients: floor(Σ weights[i] * masterCoefs[constraintIndices[i]]).
func (e *EMC) CoefficientCGExisting(masterCoefs []float64) (float64, error) {
	if e.coefKind != CoefficientChvatalGomory {
		return 0, gcgerr.Op("EMC.CoefficientCGExisting", gcgerr.ErrInvalidData, "not a Chvátal-Gomory EMC")
	}
	sum := 0.0
	for i, w := range e.payload.Weights {
		if i >= len(e.payload.ConstraintIndices) {
			break
		}
		idx := e.payload.ConstraintIndices[i]
		if idx < 0 || idx >= len(masterCoefs) {
			return 0, gcgerr.Op("EMC.CoefficientCGExisting", gcgerr.ErrInvalidData, "constraint index %d out of range", idx)
		}
		sum += w * masterCoefs[idx]
	}

	return math.Floor(sum), nil
}

// CoefficientCGFresh computes a Chvátal-Gomory master cut's coefficient
// for a column with no cached master coefficients yet, directly from the
// pricing-constraint coefficients and the pricing solution's values:
// floor(Σ pricingConsCoefs[j] * pricingVals[j]).
func (e *EMC) CoefficientCGFresh(pricingConsCoefs, pricingVals []float64) (float64, error) {
	if e.coefKind != CoefficientChvatalGomory {
		return 0, gcgerr.Op("EMC.CoefficientCGFresh", gcgerr.ErrInvalidData, "not a Chvátal-Gomory EMC")
	}
	n := len(pricingConsCoefs)
	if len(pricingVals) < n {
		n = len(pricingVals)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += pricingConsCoefs[i] * pricingVals[i]
	}

	return math.Floor(sum), nil
}
