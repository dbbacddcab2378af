// Package branchgeneric implements Vanderbeck's generic branching rule: a
// recursive separation over a block's fractional master variables that
// discovers a component-bound sequence violated by the current LP
// solution, then splits the node into one child per prefix of that
// sequence.
//
// Mirrors the teacher's dfs.go: a depth-bounded recursive traversal over
// a discrete structure (here, the index set of candidate branching
// variables) rather than an explicit worklist, since the recursion depth
// is bounded by the block's variable count.
package branchgeneric

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/scipopt/gcg-colgen/compbound"
	"github.com/scipopt/gcg-colgen/emc"
	"github.com/scipopt/gcg-colgen/gcgerr"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/varident"
)

// FracMaster is one fractional master variable (a column, or a static
// master variable) as seen by separation: its current LP value, the
// block its underlying column prices from (-1 for a static master
// variable), and a lookup from original-variable identity to the value
// that variable's column assigns it.
type FracMaster struct {
	Var   host.Variable
	Value float64
	Block int
	Get   func(varident.ID) (float64, bool)
}

func componentValue(f FracMaster, id varident.ID) float64 {
	v, ok := f.Get(id)
	if !ok {
		return 0
	}

	return v
}

const fracEps = 1e-6

func isFractional(v float64) bool {
	d := v - roundNearest(v)
	if d < 0 {
		d = -d
	}

	return d > fracEps
}

func roundNearest(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}

	return float64(int64(v - 0.5))
}

// BuildIndexSet returns the sorted union, over every fractional master
// variable in F, of original integral variables with a nonzero
// coefficient, restricted to candidateVars (the block's known integral
// variable set).
func BuildIndexSet(f []FracMaster, candidateVars []varident.ID) []varident.ID {
	seen := make(map[varident.ID]bool, len(candidateVars))
	for _, id := range candidateVars {
		for _, fm := range f {
			if v, ok := fm.Get(id); ok && v != 0 {
				seen[id] = true

				break
			}
		}
	}
	out := make([]varident.ID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Separate implements the root-level separation recursion: for each
// candidate column k in J (in order), compute its median component value
// (falling back to ceil(mean) when the minimum equals the median) and
// the LP mass α_k of master variables at or above that median. The first
// fractional α_k found yields a violated bound, recorded onto R and the
// recursion for this call stops. If every α_k is integral, the
// discriminating column with the widest value range is chosen to split
// F, and the recursion continues on both non-empty halves (smaller
// first).
func Separate(f []FracMaster, j []varident.ID, s compbound.Sequence, r *[]compbound.Sequence) {
	if len(f) == 0 || len(j) == 0 {
		return
	}

	type candStat struct {
		k      varident.ID
		median float64
		rangeW float64
	}
	var candidates []candStat

	for _, k := range j {
		vals := make([]float64, len(f))
		for i, fm := range f {
			vals[i] = componentValue(fm, k)
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		if sorted[0] == median {
			median = ceil(stat.Mean(sorted, nil))
		}

		alpha := 0.0
		for i, fm := range f {
			if vals[i] >= median {
				alpha += fm.Value
			}
		}

		if isFractional(alpha) {
			*r = append(*r, s.Append(compbound.Bound{Var: k, Sense: compbound.GE, Value: median}))

			return
		}

		lo, hi := sorted[0], sorted[len(sorted)-1]
		candidates = append(candidates, candStat{k: k, median: median, rangeW: hi - lo})
	}

	if len(candidates) == 0 {
		return
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.rangeW > best.rangeW {
			best = c
		}
	}

	var ge, lt []FracMaster
	for _, fm := range f {
		if componentValue(fm, best.k) >= best.median {
			ge = append(ge, fm)
		} else {
			lt = append(lt, fm)
		}
	}

	remJ := removeID(j, best.k)
	geBound := compbound.Bound{Var: best.k, Sense: compbound.GE, Value: best.median}
	ltBound := geBound.Flip()

	first, firstBound, second, secondBound := ge, geBound, lt, ltBound
	if len(lt) < len(ge) {
		first, firstBound, second, secondBound = lt, ltBound, ge, geBound
	}

	if len(first) > 0 {
		Separate(first, remJ, s.Append(firstBound), r)
	}
	if len(second) > 0 {
		Separate(second, remJ, s.Append(secondBound), r)
	}
}

// Explore implements the non-root separation recursion: walks ancestor
// sequences C depth-first, reusing an ancestor's bound at depth p as
// long as every sequence in C that reaches that depth agrees on it,
// falling back to Separate once C is exhausted or disagrees.
func Explore(c []compbound.Sequence, p int, f []FracMaster, j []varident.ID, s compbound.Sequence, r *[]compbound.Sequence) {
	if len(c) == 0 || len(f) == 0 || len(j) == 0 {
		Separate(f, j, s, r)

		return
	}

	var reference *compbound.Bound
	for _, seq := range c {
		if len(seq) <= p {
			continue
		}
		b := seq[p]
		if reference == nil {
			reference = &b

			continue
		}
		if b.Var != reference.Var || b.Sense != reference.Sense || b.Value != reference.Value {
			Separate(f, j, s, r)

			return
		}
	}
	if reference == nil {
		Separate(f, j, s, r)

		return
	}

	alpha := 0.0
	for _, fm := range f {
		if reference.Satisfies(componentValue(fm, reference.Var)) {
			alpha += fm.Value
		}
	}
	if isFractional(alpha) {
		*r = append(*r, s.Append(*reference))

		return
	}

	var inSide, outSide []FracMaster
	for _, fm := range f {
		if reference.Satisfies(componentValue(fm, reference.Var)) {
			inSide = append(inSide, fm)
		} else {
			outSide = append(outSide, fm)
		}
	}
	var cIn, cOut []compbound.Sequence
	for _, seq := range c {
		if len(seq) > p && *reference == seq[p] {
			cIn = append(cIn, seq)
		} else {
			cOut = append(cOut, seq)
		}
	}

	if len(inSide) > 0 {
		Explore(cIn, p+1, inSide, j, s.Append(*reference), r)
	}
	if len(outSide) > 0 {
		Explore(cOut, p+1, outSide, j, s.Append(reference.Flip()), r)
	}
}

func removeID(ids []varident.ID, target varident.ID) []varident.ID {
	out := make([]varident.ID, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}

	return out
}

func ceil(v float64) float64 {
	r := float64(int64(v))
	if r < v {
		r++
	}

	return r
}

// ChooseSequence picks S* from the recorded candidates R: smallest
// length, ties broken by first occurrence.
func ChooseSequence(r []compbound.Sequence) (compbound.Sequence, bool) {
	if len(r) == 0 {
		return nil, false
	}
	best := r[0]
	for _, s := range r[1:] {
		if len(s) < len(best) {
			best = s
		}
	}

	return best, true
}

// Child is one node of the Vanderbeck split: a component-bound sequence
// plus the integral master-row lhs the corresponding EMC enforces.
type Child struct {
	Sequence compbound.Sequence
	Lhs      float64
}

// BuildChildren implements the Vanderbeck split of step 7: from a chosen
// sequence S* of length m, produces m+1 children over K identical block
// copies, via a running budget pL initialized to K. Child p < m carries
// [B1, ..., B(p-1), flip(Bp)]; µ_p is the LP mass of F satisfying the
// unflipped prefix [B1, ..., Bp] (every level but the last must land on
// an integral µ_p; only the final level p=m-1 is rounded up with ceil).
// Child p's lhs is pL - ceil(µ_p) + 1, after which pL is carried forward
// as ceil(µ_p) for the next level. The last child carries S* itself with
// lhs equal to whatever pL was left after all m levels: this running
// handoff is what makes Σ lhs telescope to K + m, rather than a per-level
// (K-p) that only coincides with the budget when every µ_p happens to be
// exactly 1 short of it.
func BuildChildren(sStar compbound.Sequence, f []FracMaster, identicalCount int) []Child {
	m := len(sStar)
	children := make([]Child, 0, m+1)

	pL := float64(identicalCount)
	for p := 0; p < m; p++ {
		mu := sumSatisfying(f, sStar[:p+1])

		var l float64
		if p == m-1 {
			l = ceil(mu)
		} else {
			l = mu
		}

		lhs := pL - l + 1
		prefix := sStar[:p].Clone().Append(sStar[p].Flip())
		children = append(children, Child{Sequence: prefix, Lhs: lhs})

		pL = l
	}

	children = append(children, Child{Sequence: sStar.Clone(), Lhs: pL})

	return children
}

func sumSatisfying(f []FracMaster, seq compbound.Sequence) float64 {
	sum := 0.0
	for _, fm := range f {
		if seq.SatisfiesAll(fm.Get) {
			sum += fm.Value
		}
	}

	return sum
}

// VarFactory mints the inferred-pricing variables a pricing modification
// needs.
type VarFactory interface {
	NewInferredVar(block int) host.Variable
}

// ConsSense is a pricing constraint's relational sense, supplied to
// ConsFactory since host.PricingConstraint itself only exposes AddTerm.
type ConsSense int

const (
	// ConsLE is "<= rhs".
	ConsLE ConsSense = iota
	// ConsGE is ">= rhs".
	ConsGE
)

// ConsFactory mints the pricing constraints a pricing modification needs,
// with the sense and right-hand side fixed at construction.
type ConsFactory interface {
	NewPricingConstraint(block int, sense ConsSense, rhs float64) host.PricingConstraint
}

// BuildPricingModification constructs the per-block pricing modification
// that forces coef_var to 1 exactly when a pricing assignment lies in
// seq's polytope: one indicator variable y_j per bound (1 iff that
// bound is satisfied, via the same variable-bound-style linearization
// component-bound branching's "up" child uses), ANDed together via
// g <= y_j (all j) and g >= 1 + Σy_j - |seq|.
func BuildPricingModification(block int, seq compbound.Sequence, lookupOriginal func(varident.ID) host.Variable, vf VarFactory, cf ConsFactory) (emc.PricingModification, error) {
	g := vf.NewInferredVar(block)
	ys := make([]host.Variable, len(seq))
	conss := make([]host.PricingConstraint, 0, 2*len(seq)+1)

	for i, b := range seq {
		xv := lookupOriginal(b.Var)
		if xv == nil {
			return emc.PricingModification{}, gcgerr.Op("branchgeneric.BuildPricingModification", gcgerr.ErrInvalidData, "unknown original variable in bound %d", i)
		}
		y := vf.NewInferredVar(block)
		ys[i] = y

		l, u := xv.LowerBound(), xv.UpperBound()
		switch b.Sense {
		case compbound.LE, compbound.LT:
			// x_j + (u_j - b_j) * y_j <= u_j: forces y_j = 1 iff x_j <= b_j.
			cons := cf.NewPricingConstraint(block, ConsLE, u)
			cons.AddTerm(xv, 1)
			cons.AddTerm(y, u-b.Value)
			conss = append(conss, cons)
		case compbound.GE:
			// x_j + (l_j - b_j) * y_j >= l_j: forces y_j = 1 iff x_j >= b_j.
			cons := cf.NewPricingConstraint(block, ConsGE, l)
			cons.AddTerm(xv, 1)
			cons.AddTerm(y, l-b.Value)
			conss = append(conss, cons)
		}

		// g <= y_j, individually, for every bound.
		andUpper := cf.NewPricingConstraint(block, ConsLE, 0)
		andUpper.AddTerm(g, 1)
		andUpper.AddTerm(y, -1)
		conss = append(conss, andUpper)
	}

	// g >= 1 + Σ y_j - |seq|
	andLower := cf.NewPricingConstraint(block, ConsGE, 1-float64(len(seq)))
	andLower.AddTerm(g, 1)
	for _, y := range ys {
		andLower.AddTerm(y, -1)
	}
	conss = append(conss, andLower)

	return emc.PricingModification{Block: block, CoefVar: g, AdditionalVars: ys, AdditionalConss: conss}, nil
}

// IsTwin reports whether two EMC pricing modifications describe the same
// (block, bound-count, bound pattern) restriction, used to prune
// redundant child branches against ancestor EMCs before committing.
func IsTwin(block int, seq compbound.Sequence, ancestorBlock int, ancestorSeq compbound.Sequence, lhs, ancestorLhs float64) bool {
	if block != ancestorBlock || len(seq) != len(ancestorSeq) || lhs != ancestorLhs {
		return false
	}
	for i := range seq {
		if seq[i] != ancestorSeq[i] {
			return false
		}
	}

	return true
}
