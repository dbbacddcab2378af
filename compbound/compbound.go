// Package compbound implements the component-bound sequence: the shared
// data structure both generic (Vanderbeck) and component-bound branching
// build and manipulate. A sequence is a record of restrictions on
// original integral variables that together carve out a sub-polytope of
// a block's pricing problem.
package compbound

import "github.com/scipopt/gcg-colgen/varident"

// Sense is a component bound's direction.
type Sense int

const (
	// GE is "greater than or equal to".
	GE Sense = iota
	// LT is "strictly less than".
	LT
	// LE is "less than or equal to", used by component-bound branching's
	// down/up split (distinct from generic branching's GE/LT pair).
	LE
)

// Bound is a single restriction (original_variable, sense, bound) on an
// original integral variable.
type Bound struct {
	Var   varident.ID
	Sense Sense
	Value float64
}

// Flip returns the complementary bound on the same variable: GE becomes
// LT and vice versa, at the same threshold. Used by the Vanderbeck child
// split, which pairs a bound with its flip on sibling children.
func (b Bound) Flip() Bound {
	switch b.Sense {
	case GE:
		return Bound{Var: b.Var, Sense: LT, Value: b.Value}
	case LT:
		return Bound{Var: b.Var, Sense: GE, Value: b.Value}
	default:
		return b
	}
}

// Satisfies reports whether value v satisfies this bound.
func (b Bound) Satisfies(v float64) bool {
	switch b.Sense {
	case GE:
		return v >= b.Value
	case LT:
		return v < b.Value
	case LE:
		return v <= b.Value
	default:
		return false
	}
}

// Sequence is an ordered list of component bounds, S = [B1, ..., Bm].
type Sequence []Bound

// SatisfiesAll reports whether get(v) satisfies every bound in the
// sequence for variable v.
func (s Sequence) SatisfiesAll(get func(varident.ID) (float64, bool)) bool {
	for _, b := range s {
		v, ok := get(b.Var)
		if !ok {
			v = 0
		}
		if !b.Satisfies(v) {
			return false
		}
	}

	return true
}

// Clone returns an independent copy of the sequence.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)

	return out
}

// Append returns a new sequence with b appended, leaving s untouched.
func (s Sequence) Append(b Bound) Sequence {
	out := make(Sequence, len(s), len(s)+1)
	copy(out, s)

	return append(out, b)
}

// Simplify folds multiple bounds on the same (variable, sense) pair into
// one, keeping the tightest: the maximum bound for GE/greater-equal
// senses, the minimum for LT/LE senses. Order of first occurrence is
// preserved for the surviving entries.
func Simplify(s Sequence) Sequence {
	type key struct {
		v varident.ID
		k Sense
	}
	best := make(map[key]float64, len(s))
	order := make([]key, 0, len(s))
	for _, b := range s {
		kk := key{v: b.Var, k: b.Sense}
		cur, seen := best[kk]
		if !seen {
			order = append(order, kk)
			best[kk] = b.Value

			continue
		}
		switch b.Sense {
		case GE:
			if b.Value > cur {
				best[kk] = b.Value
			}
		case LT, LE:
			if b.Value < cur {
				best[kk] = b.Value
			}
		}
	}

	out := make(Sequence, 0, len(order))
	for _, kk := range order {
		out = append(out, Bound{Var: kk.v, Sense: kk.k, Value: best[kk]})
	}

	return out
}
