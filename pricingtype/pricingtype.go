// Package pricingtype implements the pricing-round policy that turns
// current duals into pricing-variable objectives and turns a priced
// column back into a reduced cost: the standard reduced-cost pricing used
// once the master LP is primal feasible, and the Farkas pricing used to
// restore feasibility first.
//
// Mirrors the teacher's strategy-interface-plus-two-concrete-structs shape
// from flow's algorithm-selector types: a small interface the rest of the
// core programs against, with exactly the two variants a branch-and-price
// run alternates between.
package pricingtype

import (
	"time"

	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/host"
)

// RedcostEvaluator is how the rest of the core asks a pricing type for
// duals and objective coefficients without caring whether the master LP
// is in ordinary or Farkas mode.
type RedcostEvaluator interface {
	// DualOfCons returns the dual (or Farkas) value to use for a master
	// constraint this round.
	DualOfCons(c host.MasterConstraint) float64
	// DualOfRow returns the dual (or Farkas) value to use for a lifted
	// cut or separator cut this round.
	DualOfRow(r host.Row) float64
	// DualOfEMC returns the dual (or Farkas) value to use for an active
	// extended master constraint this round.
	DualOfEMC(ref host.ExtendedMasterConsRef) float64
	// ObjOfVar returns the objective coefficient to price a pricing or
	// inferred-pricing variable with this round.
	ObjOfVar(v host.Variable) float64
	// IsFarkas reports whether this evaluator is restoring primal
	// feasibility rather than minimizing true reduced cost.
	IsFarkas() bool
}

// Redcost is the standard pricing policy: duals and objectives are taken
// at face value from the host.
type Redcost struct {
	clock
	roundLimit, problemLimit       int
	rootRoundLimit, rootProblemLimit int
}

// NewRedcost builds a standard-pricing policy. A limit of 0 means
// unlimited; root* overrides apply only while host.Problem.IsRootNode is
// true.
func NewRedcost(roundLimit, problemLimit, rootRoundLimit, rootProblemLimit int) *Redcost {
	return &Redcost{
		roundLimit:        roundLimit,
		problemLimit:      problemLimit,
		rootRoundLimit:    rootRoundLimit,
		rootProblemLimit:  rootProblemLimit,
	}
}

func (r *Redcost) DualOfCons(c host.MasterConstraint) float64           { return c.Dual() }
func (r *Redcost) DualOfRow(row host.Row) float64                       { return row.Dual() }
func (r *Redcost) DualOfEMC(ref host.ExtendedMasterConsRef) float64     { return ref.Dual() }
func (r *Redcost) ObjOfVar(v host.Variable) float64                     { return v.Objective() }
func (r *Redcost) IsFarkas() bool                                       { return false }

// RoundLimit returns the cap on pricing rounds per node, choosing the
// root override when atRoot is true. 0 means unlimited.
func (r *Redcost) RoundLimit(atRoot bool) int {
	if atRoot && r.rootRoundLimit > 0 {
		return r.rootRoundLimit
	}

	return r.roundLimit
}

// ProblemLimit returns the cap on pricing-problem solves per round,
// choosing the root override when atRoot is true. 0 means unlimited.
func (r *Redcost) ProblemLimit(atRoot bool) int {
	if atRoot && r.rootProblemLimit > 0 {
		return r.rootProblemLimit
	}

	return r.problemLimit
}

// Farkas is the infeasibility-restoring pricing policy: duals and
// objectives come from the host's Farkas certificate instead of the
// ordinary dual solution.
type Farkas struct {
	clock
}

// NewFarkas builds a Farkas-pricing policy.
func NewFarkas() *Farkas { return &Farkas{} }

func (f *Farkas) DualOfCons(c host.MasterConstraint) float64       { return c.Farkas() }
func (f *Farkas) DualOfRow(row host.Row) float64                   { return row.Farkas() }
func (f *Farkas) DualOfEMC(ref host.ExtendedMasterConsRef) float64 { return ref.Farkas() }
func (f *Farkas) ObjOfVar(v host.Variable) float64                 { return 0 }
func (f *Farkas) IsFarkas() bool                                   { return true }

// clock tracks cumulative wall-clock time spent pricing, embedded by both
// policy types.
type clock struct {
	started  time.Time
	running  bool
	elapsed  time.Duration
}

// Start begins timing a pricing call. No-op if already running.
func (c *clock) Start() {
	if c.running {
		return
	}
	c.started = time.Now()
	c.running = true
}

// Stop ends timing and accumulates elapsed time. No-op if not running.
func (c *clock) Stop() {
	if !c.running {
		return
	}
	c.elapsed += time.Since(c.started)
	c.running = false
}

// Elapsed returns cumulative time across all Start/Stop pairs.
func (c *clock) Elapsed() time.Duration { return c.elapsed }

// ReducedCost computes a column's reduced cost under evaluator ev: the
// column's cached own-objective contribution (see column.SetOwnObjective,
// which must already reflect ev's objective policy), minus its
// coefficient-weighted dual contribution from the current master
// constraints, original cuts, and separator cuts.
//
// Extended master constraint duals need no separate term here: an active
// extended master constraint's dual is folded into the objective of the
// inferred-pricing variables it owns once per round (ObjOfVar already
// reflects it), so the cached own-objective contribution captures it
// without double counting.
func ReducedCost(
	c *column.Column,
	ev RedcostEvaluator,
	masterCons []host.MasterConstraint,
	originalCuts []host.Row,
	separatorCuts []host.Row,
) float64 {
	rc := c.OwnObjective()

	masterCoefs := c.MasterCoefs()
	for i, coef := range masterCoefs {
		if i >= len(masterCons) || coef == 0 {
			continue
		}
		rc -= ev.DualOfCons(masterCons[i]) * coef
	}

	ocoefs := c.OriginalCutCoefs()
	for i, coef := range ocoefs {
		if i >= len(originalCuts) || coef == 0 {
			continue
		}
		rc -= ev.DualOfRow(originalCuts[i]) * coef
	}

	scoefs := c.SeparatorCutCoefs()
	for i, coef := range scoefs {
		if i >= len(separatorCuts) || coef == 0 {
			continue
		}
		rc -= ev.DualOfRow(separatorCuts[i]) * coef
	}

	return rc
}

// ObjectiveOf sums a raw pricing-subproblem solution's objective
// contribution under evaluator ev, given the pricing problem's variables
// and their solution values. Used by the pricing loop to price a
// subproblem's own objective function before handing the solution to
// column.NewColumn.
func ObjectiveOf(ev RedcostEvaluator, vars []host.Variable, vals []float64) float64 {
	obj := 0.0
	n := len(vars)
	if len(vals) < n {
		n = len(vals)
	}
	for i := 0; i < n; i++ {
		obj += ev.ObjOfVar(vars[i]) * vals[i]
	}

	return obj
}
