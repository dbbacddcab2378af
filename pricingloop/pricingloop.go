// Package pricingloop sequences a single branch-and-bound node's pricing
// rounds: stabilized dual projection, extended-master-constraint objective
// injection, per-block pricing subproblem solves (optionally concurrent),
// column-pool re-use, and price-store commit, in the order the rest of the
// core's invariants depend on.
//
// Mirrors flow/dinic.go's shape for a top-level orchestration function:
// normalize inputs, build round-local state, iterate with cancellation
// checks, hand results back through a caller-supplied factory rather than
// a return value the orchestrator owns.
package pricingloop

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/scipopt/gcg-colgen/colpool"
	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/emc"
	"github.com/scipopt/gcg-colgen/gcglog"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/pricestore"
	"github.com/scipopt/gcg-colgen/pricingtype"
	"github.com/scipopt/gcg-colgen/stabilization"
	"github.com/scipopt/gcg-colgen/varident"
)

// SubproblemSolver solves block's pricing subproblem under the duals and
// objective policy ev exposes, returning every improving (or otherwise
// worth-offering) column it found. Implementations build each column via
// column.NewColumn and call SetOwnObjective on it before returning;
// pricingtype.ObjectiveOf is the usual way to compute that value.
type SubproblemSolver interface {
	Solve(ctx context.Context, block int, ev pricingtype.RedcostEvaluator) ([]*column.Column, error)
}

// NewMasterVarFunc is colpool.NewMasterVarFunc, re-exported so callers
// need only import this package to wire up a round.
type NewMasterVarFunc = colpool.NewMasterVarFunc

// Driver is a single node's pricing-round orchestrator. Not safe for
// concurrent use: concurrency lives inside a single RunRound call (the
// optional parallel subproblem solves), never across calls.
type Driver struct {
	cfg    Config
	pool   *colpool.ColPool
	store  *pricestore.PriceStore
	stab   *stabilization.Stabilization
	solver SubproblemSolver

	round int
}

// New builds a Driver from cfg, wiring its column pool, price store, and
// stabilization instance to cfg's values.
func New(cfg Config, solver SubproblemSolver) *Driver {
	return &Driver{
		cfg: cfg,
		pool: colpool.New(cfg.AgeLimit),
		store: pricestore.New(
			pricestore.WithWeights(cfg.WeightRedcost, cfg.WeightOrtho, cfg.WeightObj),
			pricestore.WithMinColOrtho(cfg.MinColOrtho),
			pricestore.WithMaxCols(cfg.MaxCols),
			pricestore.WithEps(cfg.Eps),
		),
		stab:   stabilization.New(cfg.HybridAscent),
		solver: solver,
	}
}

// Pool returns the driver's column pool.
func (d *Driver) Pool() *colpool.ColPool { return d.pool }

// Store returns the driver's price store.
func (d *Driver) Store() *pricestore.PriceStore { return d.store }

// Stabilization returns the driver's stabilization instance, so a host can
// drive UpdateCenter/UpdateAlpha/mispricing-mode transitions from its own
// knowledge of the node's LP bound and degeneracy.
func (d *Driver) Stabilization() *stabilization.Stabilization { return d.stab }

// Round returns the number of rounds RunRound has completed so far at the
// current node.
func (d *Driver) Round() int { return d.round }

// NewRedcostEvaluator builds the standard-pricing evaluator configured by
// cfg's round/problem limits.
func (d *Driver) NewRedcostEvaluator() *pricingtype.Redcost {
	return pricingtype.NewRedcost(d.cfg.RoundLimit, d.cfg.ProblemLimit, d.cfg.RootRoundLimit, d.cfg.RootProblemLimit)
}

// NewFarkasEvaluator builds the infeasibility-restoring evaluator.
func (d *Driver) NewFarkasEvaluator() *pricingtype.Farkas {
	return pricingtype.NewFarkas()
}

// EnterNode adopts nodeID: the column pool clears if this is a different
// node than it was last valid for (colpool.UpdateNode's own rule), and the
// stabilization instance resets its in-node counters, α, and stability
// center if nodeID differs from what it last held. Call this once before
// the first RunRound at a node, never mid-node.
func (d *Driver) EnterNode(nodeID int64) {
	d.pool.UpdateNode(nodeID)
	if d.stab.NodeID() != nodeID {
		d.stab.Reset(nodeID)
	}
	d.round = 0
}

// RunRound executes one pricing round at the given node:
//
//  1. gather this round's raw duals and let stabilization project them
//     (update_hybrid, then per-group smoothing) if a stability center
//     exists;
//  2. fold every active extended master constraint's (possibly smoothed)
//     dual into its coef_var objectives;
//  3. re-cost the column pool against the smoothed duals, ageing
//     survivors and offering still-negative ones to the price store;
//  4. solve every relevant block's pricing subproblem under the smoothed
//     duals, sequentially or concurrently per cfg.Parallel;
//  5. re-cost each fresh column, cache it in the pool for future re-use,
//     and offer it to the price store;
//  6. commit the price store's selection, removing any committed column
//     from the pool first so it cannot be re-offered next round.
//
// Returns the number of columns committed to the master this round.
func (d *Driver) RunRound(
	ctx context.Context,
	problem host.Problem,
	mc colpool.MasterContext,
	emcs []*emc.EMC,
	ev pricingtype.RedcostEvaluator,
	newMasterVar NewMasterVarFunc,
) (int, error) {
	d.round++
	log := gcglog.Round(problem.NodeID(), d.round)

	masterCons := mc.MasterConstraints()
	originalCuts := mc.OriginalCuts()
	separatorCuts := mc.SeparatorCuts()

	d.pool.UpdateNode(problem.NodeID())
	d.pool.SetFarkas(ev.IsFarkas())

	d.stab.UpdateHybrid(d.currentDualsByGroup(masterCons, originalCuts, separatorCuts, emcs, ev))

	effectiveEv := ev
	if sev := d.stabilize(ev, masterCons, originalCuts, separatorCuts, emcs); sev != nil {
		effectiveEv = sev
	}

	for _, e := range emcs {
		if e.IsActive() {
			e.UpdateDual(effectiveEv.DualOfEMC(e))
		}
	}

	d.pool.UpdateRedcost(effectiveEv, mc)

	force := effectiveEv.IsFarkas()
	if _, err := d.pool.Price(d.cfg.Eps, func(c *column.Column) error {
		return d.store.AddCol(c, force)
	}); err != nil {
		return 0, err
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	blocks := problem.RelevantBlocks()
	results, err := d.solveBlocks(ctx, blocks, effectiveEv)
	if err != nil {
		return 0, err
	}

	for _, cols := range results {
		for _, col := range cols {
			priceColumn(col, effectiveEv, mc, masterCons, originalCuts, separatorCuts)

			inserted, perr := d.pool.AddIfNew(col)
			if perr != nil {
				return 0, perr
			}
			if !inserted {
				continue
			}
			if aerr := d.store.AddCol(col, force); aerr != nil {
				return 0, aerr
			}
		}
	}

	commit := func(c *column.Column) error {
		if c.Pos() != -1 {
			if derr := d.pool.Delete(c); derr != nil {
				return derr
			}
		}

		return newMasterVar(c)
	}

	applied, err := d.store.ApplyCols(commit)
	if err != nil {
		return applied, err
	}

	log.WithFields(map[string]interface{}{
		"n_blocks": len(blocks),
		"n_pool":   d.pool.NCols(),
		"applied":  applied,
	}).Debug("pricing round complete")

	return applied, nil
}

func (d *Driver) solveBlocks(ctx context.Context, blocks []int, ev pricingtype.RedcostEvaluator) ([][]*column.Column, error) {
	results := make([][]*column.Column, len(blocks))

	if !d.cfg.Parallel {
		for i, b := range blocks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cols, err := d.solver.Solve(ctx, b, ev)
			if err != nil {
				return nil, err
			}
			results[i] = cols
		}

		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range blocks {
		i, b := i, b
		g.Go(func() error {
			cols, err := d.solver.Solve(gctx, b, ev)
			if err != nil {
				return err
			}
			results[i] = cols

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// priceColumn settles a freshly solved column's master/cut coefficient
// caches and reduced cost, ready to be pooled and/or offered to the price
// store.
func priceColumn(
	col *column.Column,
	ev pricingtype.RedcostEvaluator,
	mc colpool.MasterContext,
	masterCons []host.MasterConstraint,
	originalCuts, separatorCuts []host.Row,
) {
	mcoef, ocoef, scoef := mc.Coefficients(col)
	col.SetMasterCoefs(mcoef)
	col.AppendOriginalCutCoefs(ocoef...)
	col.AppendSeparatorCutCoefs(scoef...)
	col.ComputeNorm()

	rc := pricingtype.ReducedCost(col, ev, masterCons, originalCuts, separatorCuts)
	col.UpdateRedcost(rc, false)
}

// currentDualsByGroup gathers this round's raw (unsmoothed) duals into the
// group arrays stabilization.UpdateHybrid/DualForGroup expect. Original
// and separator cuts share stabilization.GroupOriginalCut: the core has no
// stabilization history distinct between the two kinds of lifted row.
func (d *Driver) currentDualsByGroup(
	masterCons []host.MasterConstraint,
	originalCuts, separatorCuts []host.Row,
	emcs []*emc.EMC,
	ev pricingtype.RedcostEvaluator,
) map[stabilization.Group][]float64 {
	mCurrent := make([]float64, len(masterCons))
	for i, c := range masterCons {
		mCurrent[i] = ev.DualOfCons(c)
	}

	rCurrent := make([]float64, 0, len(originalCuts)+len(separatorCuts))
	for _, r := range originalCuts {
		rCurrent = append(rCurrent, ev.DualOfRow(r))
	}
	for _, r := range separatorCuts {
		rCurrent = append(rCurrent, ev.DualOfRow(r))
	}

	eCurrent := make([]float64, len(emcs))
	for i, e := range emcs {
		eCurrent[i] = ev.DualOfEMC(e)
	}

	return map[stabilization.Group][]float64{
		stabilization.GroupMasterCons:  mCurrent,
		stabilization.GroupOriginalCut: rCurrent,
		stabilization.GroupEMC:         eCurrent,
	}
}

// stabilize projects every dual source through stabilization and returns an
// evaluator serving the projected values, or nil if no stability center
// exists yet (in which case the caller should keep using base unsmoothed).
func (d *Driver) stabilize(
	base pricingtype.RedcostEvaluator,
	masterCons []host.MasterConstraint,
	originalCuts, separatorCuts []host.Row,
	emcs []*emc.EMC,
) pricingtype.RedcostEvaluator {
	if !d.stab.HasCenter() {
		return nil
	}

	masterDual := make(map[varident.ID]float64, len(masterCons))
	mCurrent := make([]float64, len(masterCons))
	mRhsInf := make([]bool, len(masterCons))
	mLhsInf := make([]bool, len(masterCons))
	for i, c := range masterCons {
		mCurrent[i] = base.DualOfCons(c)
		mRhsInf[i] = math.IsInf(c.Rhs(), 1)
		mLhsInf[i] = math.IsInf(c.Lhs(), -1)
	}
	mProjected := d.stab.DualForGroup(stabilization.GroupMasterCons, mCurrent, mRhsInf, mLhsInf)
	for i, c := range masterCons {
		masterDual[c.ID()] = mProjected[i]
	}

	allCuts := make([]host.Row, 0, len(originalCuts)+len(separatorCuts))
	allCuts = append(allCuts, originalCuts...)
	allCuts = append(allCuts, separatorCuts...)
	rCurrent := make([]float64, len(allCuts))
	rRhsInf := make([]bool, len(allCuts))
	rLhsInf := make([]bool, len(allCuts))
	for i, r := range allCuts {
		rCurrent[i] = base.DualOfRow(r)
		rRhsInf[i] = math.IsInf(r.Rhs(), 1)
		rLhsInf[i] = math.IsInf(r.Lhs(), -1)
	}
	rProjected := d.stab.DualForGroup(stabilization.GroupOriginalCut, rCurrent, rRhsInf, rLhsInf)
	rowDual := make(map[varident.ID]float64, len(allCuts))
	for i, r := range allCuts {
		rowDual[r.ID()] = rProjected[i]
	}

	eCurrent := make([]float64, len(emcs))
	for i, e := range emcs {
		eCurrent[i] = base.DualOfEMC(e)
	}
	eProjected := d.stab.DualForGroup(stabilization.GroupEMC, eCurrent, make([]bool, len(emcs)), make([]bool, len(emcs)))
	emcDual := make(map[varident.ID]float64, len(emcs))
	for i, e := range emcs {
		emcDual[e.ID()] = eProjected[i]
	}

	return &stabilizedEvaluator{base: base, masterDual: masterDual, rowDual: rowDual, emcDual: emcDual}
}

// stabilizedEvaluator is a pricingtype.RedcostEvaluator backed by
// stabilization-projected dual snapshots instead of the host's raw duals.
// Objective coefficients and Farkas mode are not dual-smoothing concerns,
// so both fall straight through to base.
type stabilizedEvaluator struct {
	base pricingtype.RedcostEvaluator

	masterDual map[varident.ID]float64
	rowDual    map[varident.ID]float64
	emcDual    map[varident.ID]float64
}

func (s *stabilizedEvaluator) DualOfCons(c host.MasterConstraint) float64 {
	if v, ok := s.masterDual[c.ID()]; ok {
		return v
	}

	return s.base.DualOfCons(c)
}

func (s *stabilizedEvaluator) DualOfRow(r host.Row) float64 {
	if v, ok := s.rowDual[r.ID()]; ok {
		return v
	}

	return s.base.DualOfRow(r)
}

func (s *stabilizedEvaluator) DualOfEMC(ref host.ExtendedMasterConsRef) float64 {
	if v, ok := s.emcDual[ref.ID()]; ok {
		return v
	}

	return s.base.DualOfEMC(ref)
}

func (s *stabilizedEvaluator) ObjOfVar(v host.Variable) float64 { return s.base.ObjOfVar(v) }

func (s *stabilizedEvaluator) IsFarkas() bool { return s.base.IsFarkas() }
