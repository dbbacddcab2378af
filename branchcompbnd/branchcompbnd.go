// Package branchcompbnd implements component-bound branching: the
// simpler, two-children sibling of generic (Vanderbeck) branching. It
// selects one component-bound sequence per node via one or two cheap
// heuristics rather than branchgeneric's recursive separation, and
// splits on it directly.
//
// Mirrors the teacher's tsp/bound_onetree.go: an optional heuristic (or
// two) feeding a shared selection loop, rather than a single fixed rule.
package branchcompbnd

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/scipopt/gcg-colgen/compbound"
	"github.com/scipopt/gcg-colgen/emc"
	"github.com/scipopt/gcg-colgen/gcgerr"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/varident"
)

// FracMaster is one fractional master variable in the block under
// consideration, along with the value its underlying column assigns
// each original integral variable.
type FracMaster struct {
	Var   host.Variable
	Value float64
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
	d := v - math.Round(v)
	if d < 0 {
		d = -d
	}

	return d > fracEps
}

// Heuristic selects which rule(s) propose candidate branching variables.
type Heuristic int

const (
	// MaxRangeMidRange picks the original integral variable maximizing
	// max-min over positive-fractional F; branch value is the midpoint.
	MaxRangeMidRange Heuristic = 1 << iota
	// MostDistinctMedian picks the variable with the most distinct
	// component values over positive-fractional F; branch value is the
	// median of those values.
	MostDistinctMedian
)

// SelectCandidates runs the enabled heuristics over F (one block's
// fractional master variables) against candidateVars (the block's known
// integral variables), returning one (variable, branch value) pair per
// heuristic that fired.
func SelectCandidates(f []FracMaster, candidateVars []varident.ID, heuristics Heuristic) []struct {
	Var   varident.ID
	Value float64
} {
	var out []struct {
		Var   varident.ID
		Value float64
	}

	positive := make([]FracMaster, 0, len(f))
	for _, fm := range f {
		if fm.Value > 0 {
			positive = append(positive, fm)
		}
	}
	if len(positive) == 0 {
		return nil
	}

	if heuristics&MaxRangeMidRange != 0 {
		if v, ok := maxRangeMidRange(positive, candidateVars); ok {
			out = append(out, v)
		}
	}
	if heuristics&MostDistinctMedian != 0 {
		if v, ok := mostDistinctMedian(positive, candidateVars); ok {
			out = append(out, v)
		}
	}

	return out
}

func maxRangeMidRange(f []FracMaster, candidateVars []varident.ID) (struct {
	Var   varident.ID
	Value float64
}, bool) {
	type result = struct {
		Var   varident.ID
		Value float64
	}
	best := result{}
	bestRange := -1.0
	found := false

	for _, id := range candidateVars {
		lo, hi := math.Inf(1), math.Inf(-1)
		any := false
		for _, fm := range f {
			v := componentValue(fm, id)
			if v == 0 {
				continue
			}
			any = true
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if !any {
			continue
		}
		rangeW := hi - lo
		if rangeW > bestRange {
			bestRange = rangeW
			best = result{Var: id, Value: (lo + hi) / 2}
			found = true
		}
	}

	return best, found
}

func mostDistinctMedian(f []FracMaster, candidateVars []varident.ID) (struct {
	Var   varident.ID
	Value float64
}, bool) {
	type result = struct {
		Var   varident.ID
		Value float64
	}
	best := result{}
	bestDistinct := -1
	found := false

	for _, id := range candidateVars {
		var vals []float64
		seen := map[float64]bool{}
		for _, fm := range f {
			v := componentValue(fm, id)
			if v == 0 {
				continue
			}
			vals = append(vals, v)
			seen[v] = true
		}
		if len(vals) == 0 {
			continue
		}
		if len(seen) > bestDistinct {
			sort.Float64s(vals)
			bestDistinct = len(seen)
			best = result{Var: id, Value: stat.Quantile(0.5, stat.Empirical, vals, nil)}
			found = true
		}
	}

	return best, found
}

// ExtendCandidate extends sequence s with both (var, <=, floor(value))
// and (var, >=, floor(value)+1), producing the two branches step 3 walks
// recursively. Returns the extended sequences and the partitions of f
// each induces.
func ExtendCandidate(f []FracMaster, s compbound.Sequence, varID varident.ID, value float64) (leSeq, geSeq compbound.Sequence, leF, geF []FracMaster) {
	floorV := math.Floor(value)
	leBound := compbound.Bound{Var: varID, Sense: compbound.LE, Value: floorV}
	geBound := compbound.Bound{Var: varID, Sense: compbound.GE, Value: floorV + 1}

	leSeq = s.Append(leBound)
	geSeq = s.Append(geBound)

	for _, fm := range f {
		v := componentValue(fm, varID)
		if v <= floorV {
			leF = append(leF, fm)
		} else {
			geF = append(geF, fm)
		}
	}

	return leSeq, geSeq, leF, geF
}

// FractionalSum returns Σ_{v∈f satisfying seq} value(v).
func FractionalSum(f []FracMaster, seq compbound.Sequence) float64 {
	sum := 0.0
	for _, fm := range f {
		if seq.SatisfiesAll(fm.Get) {
			sum += fm.Value
		}
	}

	return sum
}

// Candidate is one emitted sequence from step 3's recursive extension,
// with the fractional sum that made it a candidate.
type Candidate struct {
	Sequence compbound.Sequence
	Sum      float64
}

// halfIntegerDistance measures how close v is to the nearest half-integer
// (0.5, 1.5, ...); smaller is "more fractional" in the tie-break sense
// step 4 uses.
func halfIntegerDistance(v float64) float64 {
	frac := v - math.Floor(v)

	return math.Abs(frac - 0.5)
}

// ChooseCandidate implements step 4: the candidate list's smallest
// length wins, ties broken by the sum closest to a half-integer.
func ChooseCandidate(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c.Sequence) < len(best.Sequence) {
			best = c

			continue
		}
		if len(c.Sequence) == len(best.Sequence) && halfIntegerDistance(c.Sum) < halfIntegerDistance(best.Sum) {
			best = c
		}
	}

	return best, true
}

// Simplify folds the chosen sequence's duplicate (variable, sense) pairs
// into their tightest bound (see compbound.Simplify).
func Simplify(s compbound.Sequence) compbound.Sequence { return compbound.Simplify(s) }

// Children is the down/up pair of child nodes step 5 produces from a
// simplified sequence and the fractional constant C = Σ x* over F
// satisfying it.
type Children struct {
	DownRhs float64 // down child: master row rhs = floor(C)
	UpLhs   float64 // up child: master row lhs = ceil(C)
}

// BuildChildren computes C over F restricted to the simplified sequence
// and returns the down/up master-row bounds.
func BuildChildren(f []FracMaster, simplified compbound.Sequence) Children {
	c := FractionalSum(f, simplified)

	return Children{DownRhs: math.Floor(c), UpLhs: math.Ceil(c)}
}

// VarFactory mints the inferred-pricing variables a pricing modification
// needs.
type VarFactory interface {
	NewInferredVar(block int) host.Variable
}

// ConsSense is a pricing constraint's relational sense.
type ConsSense int

const (
	// ConsLE is "<= rhs".
	ConsLE ConsSense = iota
	// ConsGE is ">= rhs".
	ConsGE
)

// ConsFactory mints the pricing constraints a pricing modification needs.
type ConsFactory interface {
	NewPricingConstraint(block int, sense ConsSense, rhs float64) host.PricingConstraint
}

// BuildDownModification builds the down child's pricing modification:
// g >= 1 + Σy_j - |S|, and for each bound j a linking constraint x_j +
// ((b_j+1) - l_j)*y_j >= b_j+1 for sense<=, or x_j + ((b_j-1) -
// u_j)*y_j <= b_j-1 for sense>=.
//
// Open question (preserved, not resolved): the sense>= case divides
// conceptually by (u_j - b_j) in the source's own derivation of this
// constraint family; when bound == u_j that quantity is zero, and the
// source's own assertion (upperbound - bound > 0) does not cover the
// general case. This function returns ErrInvalidData in that case
// rather than silently dividing.
func BuildDownModification(block int, seq compbound.Sequence, lookupOriginal func(varident.ID) host.Variable, vf VarFactory, cf ConsFactory) (emc.PricingModification, error) {
	g := vf.NewInferredVar(block)
	ys := make([]host.Variable, len(seq))
	conss := make([]host.PricingConstraint, 0, len(seq)+1)

	for i, b := range seq {
		xv := lookupOriginal(b.Var)
		if xv == nil {
			return emc.PricingModification{}, gcgerr.Op("branchcompbnd.BuildDownModification", gcgerr.ErrInvalidData, "unknown original variable in bound %d", i)
		}
		y := vf.NewInferredVar(block)
		ys[i] = y
		l, u := xv.LowerBound(), xv.UpperBound()

		switch b.Sense {
		case compbound.LE:
			rhs := b.Value + 1
			cons := cf.NewPricingConstraint(block, ConsGE, rhs)
			cons.AddTerm(xv, 1)
			cons.AddTerm(y, rhs-l)
			conss = append(conss, cons)
		case compbound.GE:
			if u-b.Value <= 0 {
				return emc.PricingModification{}, gcgerr.Op("branchcompbnd.BuildDownModification", gcgerr.ErrInvalidData, "down child: bound %d has u_j - b_j <= 0 (u_j=%v, b_j=%v)", i, u, b.Value)
			}
			rhs := b.Value - 1
			cons := cf.NewPricingConstraint(block, ConsLE, rhs)
			cons.AddTerm(xv, 1)
			cons.AddTerm(y, rhs-u)
			conss = append(conss, cons)
		}
	}

	andLower := cf.NewPricingConstraint(block, ConsGE, 1-float64(len(seq)))
	andLower.AddTerm(g, 1)
	for _, y := range ys {
		andLower.AddTerm(y, -1)
	}
	conss = append(conss, andLower)

	return emc.PricingModification{Block: block, CoefVar: g, AdditionalVars: ys, AdditionalConss: conss}, nil
}

// BuildUpModification builds the up child's pricing modification: g <=
// y_j for every j, and for each bound j a constraint forcing y_j = 1 iff
// the assignment is strictly inside the bound half-space: x_j + (u_j -
// b_j)*y_j <= u_j for sense<=, symmetrically x_j + (l_j - b_j)*y_j >=
// l_j for sense>=.
func BuildUpModification(block int, seq compbound.Sequence, lookupOriginal func(varident.ID) host.Variable, vf VarFactory, cf ConsFactory) (emc.PricingModification, error) {
	g := vf.NewInferredVar(block)
	ys := make([]host.Variable, len(seq))
	conss := make([]host.PricingConstraint, 0, 2*len(seq))

	for i, b := range seq {
		xv := lookupOriginal(b.Var)
		if xv == nil {
			return emc.PricingModification{}, gcgerr.Op("branchcompbnd.BuildUpModification", gcgerr.ErrInvalidData, "unknown original variable in bound %d", i)
		}
		y := vf.NewInferredVar(block)
		ys[i] = y
		l, u := xv.LowerBound(), xv.UpperBound()

		switch b.Sense {
		case compbound.LE:
			cons := cf.NewPricingConstraint(block, ConsLE, u)
			cons.AddTerm(xv, 1)
			cons.AddTerm(y, u-b.Value)
			conss = append(conss, cons)
		case compbound.GE:
			cons := cf.NewPricingConstraint(block, ConsGE, l)
			cons.AddTerm(xv, 1)
			cons.AddTerm(y, l-b.Value)
			conss = append(conss, cons)
		}

		gUp := cf.NewPricingConstraint(block, ConsLE, 0)
		gUp.AddTerm(g, 1)
		gUp.AddTerm(y, -1)
		conss = append(conss, gUp)
	}

	return emc.PricingModification{Block: block, CoefVar: g, AdditionalVars: ys, AdditionalConss: conss}, nil
}
