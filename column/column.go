// Package column implements Column: an immutable-after-construction
// master-variable candidate produced by a pricing subproblem solution.
//
// A Column owns two parallel, strictly-increasing-by-identity arrays
// (pricing variables and inferred-pricing variables), plus lazily
// initialized coefficient caches against the current master constraints
// and cuts, which are extended by the Append* methods or replaced wholesale
// by the Set* methods. Construction from a raw pricing solution is the
// only place zero/near-integral cleanup happens; afterwards nothing in a
// Column is mutated in place except the age/redcost/coefficient fields
// called out below.
//
// Complexity: construction is O(n log n) (sort); SolutionValue is
// O(log n) (binary search); Equals/Hash are O(n).
package column

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/varident"
)

// Numeric policy (mirrors matrix/options.go's single-source-of-truth
// defaults block).
const (
	// DefaultEps is the tolerance used by Equals/Hash bucketing and by
	// reduced-cost sign tests throughout the core.
	DefaultEps = 1e-9

	// SnapTolerance is how close a value must be to the nearest integer
	// to be snapped to it during construction.
	SnapTolerance = 1e-6
)

// ErrBlockMismatch indicates a raw entry's pricing variable does not
// belong to the column's declared block.
var ErrBlockMismatch = errors.New("column: pricing variable does not belong to declared block")

// RawEntry is one (variable, value) pair from a pricing-subproblem
// solution, as handed to NewColumn before zero/near-integral cleanup and
// partitioning into pricing vs. inferred-pricing arrays.
type RawEntry struct {
	Var host.Variable
	Val float64
}

// entry is the internal, sorted (identity, value) representation shared by
// the pricing and inferred-pricing arrays.
type entry struct {
	id  varident.ID
	val float64
}

// Column is an immutable-after-construction candidate master variable.
//
// Two columns are equal iff they have the same block, the same ray flag,
// and the same (sorted) pricing and inferred-pricing (identity, value)
// arrays under DefaultEps equality.
type Column struct {
	block int
	isRay bool

	pricing  []entry
	inferred []entry

	masterCoefs       []float64
	originalCutCoefs  []float64
	separatorCutCoefs []float64
	linkingCoefs      []float64
	initializedCoefs  bool

	redcost float64
	ownObj  float64
	norm    float64
	age     int
	pos     int // index in owning pool; -1 if not pooled
}

// NewColumn builds a Column from a raw pricing-subproblem solution.
//
// Each entry is rescaled by nothing beyond snapping: values within
// SnapTolerance of an integer are snapped to that integer, then zero
// entries are dropped. Surviving entries are partitioned by
// host.Variable.Kind(): VarPricing goes to the pricing array (and must
// belong to the declared block), VarInferredPricing goes to the inferred
// array. Both arrays end strictly increasing by identity,
// deduplicated by summing values for repeated identities.
//
// block must be >= 0; isRay distinguishes an extreme ray from an extreme
// point of the pricing polytope.
func NewColumn(block int, isRay bool, raw []RawEntry) (*Column, error) {
	c := &Column{block: block, isRay: isRay, pos: -1}

	pricingAcc := make(map[varident.ID]float64, len(raw))
	inferredAcc := make(map[varident.ID]float64, len(raw))

	for _, r := range raw {
		v := snap(r.Val)
		if v == 0 {
			continue
		}
		switch r.Var.Kind() {
		case host.VarPricing:
			if r.Var.Block() != block {
				return nil, ErrBlockMismatch
			}
			pricingAcc[r.Var.ID()] += v
		case host.VarInferredPricing:
			inferredAcc[r.Var.ID()] += v
		default:
			// Other variable kinds (original, master, linking) do not
			// participate in a column's pricing/inferred arrays.
		}
	}

	c.pricing = sortedNonZero(pricingAcc)
	c.inferred = sortedNonZero(inferredAcc)

	return c, nil
}

func snap(v float64) float64 {
	r := math.Round(v)
	if math.Abs(v-r) <= SnapTolerance {
		return r
	}

	return v
}

func sortedNonZero(acc map[varident.ID]float64) []entry {
	out := make([]entry, 0, len(acc))
	for id, v := range acc {
		if v == 0 {
			continue
		}
		out = append(out, entry{id: id, val: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })

	return out
}

// Block returns the pricing-problem index this column belongs to.
func (c *Column) Block() int { return c.block }

// IsRay reports whether this column is an extreme ray (vs. an extreme
// point) of the pricing polytope.
func (c *Column) IsRay() bool { return c.isRay }

// Pos returns this column's slot index in its owning pool, or -1 if it is
// not currently pooled.
func (c *Column) Pos() int { return c.pos }

// SetPos is used by colpool to maintain the pool<->position invariant; it
// is not meaningful to call from outside colpool.
func (c *Column) SetPos(pos int) { c.pos = pos }

// Redcost returns the column's most recently computed reduced cost.
func (c *Column) Redcost() float64 { return c.redcost }

// OwnObjective returns the column's cached objective contribution: the
// pricing-subproblem objective value of the solution this column was
// built from, priced under whatever dual/objective policy was active at
// construction time. Set once via SetOwnObjective.
func (c *Column) OwnObjective() float64 { return c.ownObj }

// SetOwnObjective caches the column's own objective contribution. Called
// once, right after NewColumn, by whoever solved the pricing subproblem.
func (c *Column) SetOwnObjective(obj float64) { c.ownObj = obj }

// Age returns the number of consecutive pricing rounds this column has
// survived in a pool without being re-priced negative.
func (c *Column) Age() int { return c.age }

// Norm returns the column's cached Euclidean norm (see ComputeNorm).
func (c *Column) Norm() float64 { return c.norm }

// InitializedCoefs reports whether master/cut coefficient caches have been
// populated at least once.
func (c *Column) InitializedCoefs() bool { return c.initializedCoefs }

// PricingEntries returns the column's sorted (identity, value) pairs over
// block-pricing variables. The returned slice must not be mutated.
func (c *Column) PricingEntries() []struct {
	Var varident.ID
	Val float64
} {
	return toPairs(c.pricing)
}

// InferredEntries returns the column's sorted (identity, value) pairs over
// inferred-pricing variables. The returned slice must not be mutated.
func (c *Column) InferredEntries() []struct {
	Var varident.ID
	Val float64
} {
	return toPairs(c.inferred)
}

func toPairs(es []entry) []struct {
	Var varident.ID
	Val float64
} {
	out := make([]struct {
		Var varident.ID
		Val float64
	}, len(es))
	for i, e := range es {
		out[i].Var = e.id
		out[i].Val = e.val
	}

	return out
}

// SolutionValue returns the column's value for the given variable
// identity, searching both the pricing and inferred arrays. Returns
// (0, false) if the variable does not appear (i.e. its value is zero).
//
// Complexity: O(log n).
func (c *Column) SolutionValue(id varident.ID) (float64, bool) {
	if v, ok := binarySearch(c.pricing, id); ok {
		return v, true
	}

	return binarySearch(c.inferred, id)
}

func binarySearch(es []entry, id varident.ID) (float64, bool) {
	i := sort.Search(len(es), func(i int) bool { return es[i].id >= id })
	if i < len(es) && es[i].id == id {
		return es[i].val, true
	}

	return 0, false
}

// UpdateRedcost sets the column's reduced cost and advances its age.
// When growOld is true and rc >= 0, age increments by exactly one;
// otherwise age resets to zero.
func (c *Column) UpdateRedcost(rc float64, growOld bool) {
	c.redcost = rc
	if growOld && rc >= 0 {
		c.age++
	} else {
		c.age = 0
	}
}

// SetMasterCoefs sets the column's cached coefficients against the current
// master constraints. This is a one-time (or idempotent re-set) write: the
// caller recomputes the whole vector rather than mutating individual
// entries.
func (c *Column) SetMasterCoefs(coefs []float64) {
	c.masterCoefs = append([]float64(nil), coefs...)
	c.initializedCoefs = true
}

// MasterCoefs returns the column's cached master-constraint coefficients.
func (c *Column) MasterCoefs() []float64 { return c.masterCoefs }

// AppendOriginalCutCoefs appends coefficients for newly lifted
// original-space cuts. Append-only: existing entries are never mutated.
func (c *Column) AppendOriginalCutCoefs(coefs ...float64) {
	c.originalCutCoefs = append(c.originalCutCoefs, coefs...)
}

// SetOriginalCutCoefs replaces the column's cached original-space cut
// coefficients wholesale. Unlike AppendOriginalCutCoefs, this is the
// idempotent re-set a full recompute against the current cut set needs:
// calling it repeatedly with the same input leaves the cache unchanged,
// instead of accumulating duplicates.
func (c *Column) SetOriginalCutCoefs(coefs []float64) {
	c.originalCutCoefs = append([]float64(nil), coefs...)
}

// OriginalCutCoefs returns the column's cached original-space cut
// coefficients.
func (c *Column) OriginalCutCoefs() []float64 { return c.originalCutCoefs }

// AppendSeparatorCutCoefs appends coefficients for newly active separator
// cuts. Append-only.
func (c *Column) AppendSeparatorCutCoefs(coefs ...float64) {
	c.separatorCutCoefs = append(c.separatorCutCoefs, coefs...)
}

// SetSeparatorCutCoefs replaces the column's cached separator-cut
// coefficients wholesale; the idempotent counterpart to
// AppendSeparatorCutCoefs for a full recompute against the current
// separator-cut set.
func (c *Column) SetSeparatorCutCoefs(coefs []float64) {
	c.separatorCutCoefs = append([]float64(nil), coefs...)
}

// SeparatorCutCoefs returns the column's cached separator-cut coefficients.
func (c *Column) SeparatorCutCoefs() []float64 { return c.separatorCutCoefs }

// SetLinkingCoefs sets the column's cached positions against linking
// variable constraints (one per linking variable copy relevant to this
// column's block). Used only by ComputeNorm/OrthogonalityAgainst.
func (c *Column) SetLinkingCoefs(coefs []float64) {
	c.linkingCoefs = append([]float64(nil), coefs...)
}

// LinkingCoefs returns the column's cached linking-variable positions.
func (c *Column) LinkingCoefs() []float64 { return c.linkingCoefs }

// ComputeNorm recomputes Norm from the settled coefficient caches: the
// Euclidean norm over {master coefficients, original-cut coefficients,
// separator-cut coefficients, inferred-variable values, linking-variable
// positions, +1 for convexity}. Must be called after coefficients are
// settled for the round.
func (c *Column) ComputeNorm() {
	vec := make([]float64, 0, len(c.masterCoefs)+len(c.originalCutCoefs)+len(c.separatorCutCoefs)+len(c.inferred)+len(c.linkingCoefs)+1)
	vec = append(vec, c.masterCoefs...)
	vec = append(vec, c.originalCutCoefs...)
	vec = append(vec, c.separatorCutCoefs...)
	for _, e := range c.inferred {
		vec = append(vec, e.val)
	}
	vec = append(vec, c.linkingCoefs...)
	if !c.isRay {
		vec = append(vec, 1) // convexity contribution
	}
	c.norm = floats.Norm(vec, 2)
}

// OrthogonalityAgainst computes the orthogonality the price store uses to
// track minimum diversification between two committed columns:
// 1 - dot/(c.Norm()·other.Norm()). dot is the inner product of the two
// columns' (master, original-cut, separator-cut, linking) coefficient
// vectors plus the products of the inferred-variable values the two
// columns share by identity. The norms are the cached ComputeNorm values,
// which also count the convexity entry of a non-ray column, so two
// columns with identical coefficients score above 0 (master coefficients
// [1] each give 1 - 1/2 = 0.5); columns with no shared direction score 1.
// Returns 1 if either norm is 0, since a degenerate column has no
// direction to be parallel to.
func (c *Column) OrthogonalityAgainst(other *Column) float64 {
	if c.norm == 0 || other.norm == 0 {
		return 1
	}

	a := c.orthoVector()
	b := other.orthoVector()
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dot := floats.Dot(a[:n], b[:n])

	for i, j := 0, 0; i < len(c.inferred) && j < len(other.inferred); {
		switch {
		case c.inferred[i].id < other.inferred[j].id:
			i++
		case c.inferred[i].id > other.inferred[j].id:
			j++
		default:
			dot += c.inferred[i].val * other.inferred[j].val
			i++
			j++
		}
	}

	return 1 - dot/(c.norm*other.norm)
}

func (c *Column) orthoVector() []float64 {
	vec := make([]float64, 0, len(c.masterCoefs)+len(c.originalCutCoefs)+len(c.separatorCutCoefs)+len(c.linkingCoefs))
	vec = append(vec, c.masterCoefs...)
	vec = append(vec, c.originalCutCoefs...)
	vec = append(vec, c.separatorCutCoefs...)
	vec = append(vec, c.linkingCoefs...)

	return vec
}

// ObjParallelism computes the parallelism of this column's reduced-cost
// direction to the objective direction obj, clamped to [-1, 1]: the cosine
// of the angle between the master-coefficient vector and obj. Returns 0 if
// either vector has zero norm.
func (c *Column) ObjParallelism(obj []float64) float64 {
	n := len(c.masterCoefs)
	if len(obj) < n {
		n = len(obj)
	}
	a := c.masterCoefs[:n]
	b := obj[:n]
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	p := floats.Dot(a, b) / (na * nb)
	if p > 1 {
		return 1
	}
	if p < -1 {
		return -1
	}

	return p
}

// Equals reports whether a and b represent the same column: same block,
// same ray flag, same sorted pricing and inferred arrays under
// DefaultEps equality.
func Equals(a, b *Column) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.block != b.block || a.isRay != b.isRay {
		return false
	}
	if len(a.pricing) != len(b.pricing) || len(a.inferred) != len(b.inferred) {
		return false
	}
	for i := range a.pricing {
		if a.pricing[i].id != b.pricing[i].id || !almostEqual(a.pricing[i].val, b.pricing[i].val) {
			return false
		}
	}
	for i := range a.inferred {
		if a.inferred[i].id != b.inferred[i].id || !almostEqual(a.inferred[i].val, b.inferred[i].val) {
			return false
		}
	}

	return true
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) <= DefaultEps }

// Hash returns a hash consistent with Equals under DefaultEps: equal
// columns always hash equal. Combines block, total length, ray flag,
// min/max variable identity, and epsilon-bucketed first/last values.
func Hash(c *Column) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	mix := func(x uint64) {
		h ^= x
		h *= 1099511628211 // FNV prime
	}
	mix(uint64(c.block))
	if c.isRay {
		mix(1)
	}
	n := len(c.pricing) + len(c.inferred)
	mix(uint64(n))

	allIDs := make([]varident.ID, 0, n)
	for _, e := range c.pricing {
		allIDs = append(allIDs, e.id)
	}
	for _, e := range c.inferred {
		allIDs = append(allIDs, e.id)
	}
	if len(allIDs) > 0 {
		minID, maxID := allIDs[0], allIDs[0]
		for _, id := range allIDs {
			if id < minID {
				minID = id
			}
			if id > maxID {
				maxID = id
			}
		}
		mix(uint64(minID))
		mix(uint64(maxID))
	}

	bucket := func(v float64) uint64 { return uint64(math.Round(v / DefaultEps)) }
	if len(c.pricing) > 0 {
		mix(bucket(c.pricing[0].val))
		mix(bucket(c.pricing[len(c.pricing)-1].val))
	}
	if len(c.inferred) > 0 {
		mix(bucket(c.inferred[0].val))
		mix(bucket(c.inferred[len(c.inferred)-1].val))
	}

	return h
}
