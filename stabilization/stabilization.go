// Package stabilization implements dual-value smoothing for column
// generation: rather than pricing against the master LP's raw dual
// solution every round (which can oscillate and produce near-duplicate
// columns as it converges), it maintains a stability center and blends it
// with the current dual solution, optionally steering the blend via a
// subgradient-informed hybrid factor.
//
// Mirrors the teacher's small-struct-plus-Option-constructor shape
// (dijkstra/types.go) applied to a stateful strategy instead of a
// stateless one: unlike pricingtype, a Stabilization instance accumulates
// state across rounds within a single branch-and-bound node.
package stabilization

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Group identifies which parallel dual array a projection or update
// applies to.
type Group int

const (
	GroupMasterCons Group = iota
	GroupOriginalCut
	GroupEMC
	GroupLinking
	GroupConvexity
)

// DefaultInitialAlpha is the smoothing factor a fresh Stabilization starts
// from, and the value restored on node change.
const DefaultInitialAlpha = 0.8

const maxAlpha = 0.9

type groupState struct {
	center      []float64
	subgradient []float64
}

// Stabilization is a single branch-and-bound node's dual-smoothing state.
// Not safe for concurrent use: the pricing loop drives it from a single
// goroutine even when subproblem solves themselves run in parallel.
type Stabilization struct {
	mu sync.Mutex

	groups map[Group]*groupState

	initialAlpha float64
	alpha        float64
	alphaBar     float64
	beta         float64
	hybridFactor float64

	k, t         int
	nodeID       int64
	hasCenter    bool
	centerBound  float64
	inMispricing bool
	hybridAscent bool

	dualDiffNorm float64
	subgradNorm  float64
}

// New builds a fresh stabilization instance. hybridAscent enables the
// subgradient-informed hybrid factor; when false, dual projection always
// falls back to plain α-smoothing.
func New(hybridAscent bool) *Stabilization {
	return &Stabilization{
		groups:       make(map[Group]*groupState),
		initialAlpha: DefaultInitialAlpha,
		alpha:        DefaultInitialAlpha,
		centerBound:  math.Inf(-1),
		hybridAscent: hybridAscent,
	}
}

func (s *Stabilization) group(g Group) *groupState {
	gs, ok := s.groups[g]
	if !ok {
		gs = &groupState{}
		s.groups[g] = gs
	}

	return gs
}

// HasCenter reports whether a stability center has been set yet.
func (s *Stabilization) HasCenter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hasCenter
}

// Alpha returns the current smoothing factor.
func (s *Stabilization) Alpha() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.alpha
}

// AlphaBar returns the mispricing-schedule smoothing factor.
func (s *Stabilization) AlphaBar() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.alphaBar
}

// Beta returns the current hybrid blend factor.
func (s *Stabilization) Beta() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.beta
}

// ActivateMispricing switches dual projection to the mispricing schedule
// (α̅, β=0) until DeactivateMispricing is called.
func (s *Stabilization) ActivateMispricing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inMispricing = true
}

// DeactivateMispricing leaves mispricing mode and resets the mispricing
// counter k. t is left untouched.
func (s *Stabilization) DeactivateMispricing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inMispricing = false
	s.k = 0
}

// InMispricing reports whether mispricing mode is currently active.
func (s *Stabilization) InMispricing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inMispricing
}

// DualForGroup projects current duals for group g through the active
// smoothing policy. rhsInf[i]/lhsInf[i] mark rows with an infinite rhs/lhs,
// whose projected duals are clamped to stay sign-feasible (>= 0 / <= 0
// respectively) after both plain α-smoothing and hybrid blending.
func (s *Stabilization) DualForGroup(g Group, current []float64, rhsInf, lhsInf []bool) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dualForGroupLocked(g, current, rhsInf, lhsInf)
}

// dualForGroupLocked is DualForGroup's body; caller must hold s.mu.
func (s *Stabilization) dualForGroupLocked(g Group, current []float64, rhsInf, lhsInf []bool) []float64 {
	if !s.hasCenter {
		return append([]float64(nil), current...)
	}

	alpha := s.alpha
	beta := s.beta
	if s.inMispricing {
		alpha = s.alphaBar
		beta = 0
	}

	gs := s.group(g)
	out := make([]float64, len(current))

	if beta <= 0 || alpha <= 0 {
		for i := range current {
			center := elemOr(gs.center, i, current[i])
			out[i] = alpha*center + (1-alpha)*current[i]
		}

		return clampSignFeasible(out, rhsInf, lhsInf)
	}

	ratio := 0.0
	if s.subgradNorm != 0 {
		ratio = s.dualDiffNorm / s.subgradNorm
	}
	for i := range current {
		center := elemOr(gs.center, i, current[i])
		subgrad := elemOr(gs.subgradient, i, 0)
		blend := beta*(center+subgrad*ratio) + (1-beta)*current[i]
		out[i] = center + s.hybridFactor*(blend-center)
	}

	return clampSignFeasible(out, rhsInf, lhsInf)
}

func elemOr(arr []float64, i int, fallback float64) float64 {
	if i < len(arr) {
		return arr[i]
	}

	return fallback
}

func clampSignFeasible(vals []float64, rhsInf, lhsInf []bool) []float64 {
	for i := range vals {
		if i < len(rhsInf) && rhsInf[i] && vals[i] < 0 {
			vals[i] = 0
		}
		if i < len(lhsInf) && lhsInf[i] && vals[i] > 0 {
			vals[i] = 0
		}
	}

	return vals
}

// UpdateCenter recomputes the stability center from the current duals,
// but only if lowerBound improves on the bound the existing center was
// taken at (or no center exists yet). convexityDuals are copied directly
// rather than projected, since the convexity constraints have no
// stabilization history of their own. When hybrid ascent is enabled, also
// refreshes the subgradient from subgradientInput.
func (s *Stabilization) UpdateCenter(
	lowerBound float64,
	currentByGroup map[Group][]float64,
	convexityDuals []float64,
	subgradientInput SubgradientInput,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasCenter && lowerBound <= s.centerBound {
		return
	}

	for g, current := range currentByGroup {
		rhsInf := make([]bool, len(current))
		lhsInf := make([]bool, len(current))
		s.group(g).center = s.dualForGroupLocked(g, current, rhsInf, lhsInf)
	}
	s.group(GroupConvexity).center = append([]float64(nil), convexityDuals...)

	if s.hybridAscent {
		s.computeSubgradientLocked(subgradientInput)
	}

	s.hasCenter = true
	s.centerBound = lowerBound
}

// SubgradientInput supplies, per group, the constraint bounds and current
// primal activity needed to compute an infeasibility subgradient, plus
// the pricing-column values needed for linking-variable groups.
type SubgradientInput struct {
	// Lhs, Rhs, Activity, CenterDual are parallel arrays over a group's
	// constraints (lhs/rhs bound, current primal activity, and the
	// group's stability-center dual, which decides the sign of the
	// infeasibility term).
	Lhs, Rhs, Activity, CenterDual map[Group][]float64
	// LinkingMasterVal and LinkingPricingVal are parallel arrays over
	// linking-variable copies: master-side value and the corresponding
	// pricing-column value from pricingCols[block].
	LinkingMasterVal, LinkingPricingVal []float64
}

// computeSubgradientLocked fills every group's subgradient array and
// caches its Euclidean norm. Caller must hold s.mu.
func (s *Stabilization) computeSubgradientLocked(in SubgradientInput) {
	var flat []float64

	for _, g := range []Group{GroupMasterCons, GroupOriginalCut, GroupEMC} {
		lhs := in.Lhs[g]
		rhs := in.Rhs[g]
		activity := in.Activity[g]
		centerDual := in.CenterDual[g]
		gs := s.group(g)
		gs.subgradient = make([]float64, len(activity))
		for i := range activity {
			var infeas float64
			switch {
			case i < len(centerDual) && centerDual[i] > 0:
				infeas = elemOr(lhs, i, 0) - activity[i]
			case i < len(centerDual) && centerDual[i] < 0:
				infeas = elemOr(rhs, i, 0) - activity[i]
			default:
				infeas = 0
			}
			gs.subgradient[i] = infeas
		}
		flat = append(flat, gs.subgradient...)
	}

	link := s.group(GroupLinking)
	n := len(in.LinkingMasterVal)
	if len(in.LinkingPricingVal) < n {
		n = len(in.LinkingPricingVal)
	}
	link.subgradient = make([]float64, n)
	for i := 0; i < n; i++ {
		link.subgradient[i] = in.LinkingMasterVal[i] - in.LinkingPricingVal[i]
	}
	flat = append(flat, link.subgradient...)

	s.subgradNorm = floats.Norm(flat, 2)
}

// UpdateHybrid recomputes β and the hybrid factor from the current dual
// solution, ahead of the next DualForGroup projection. No-op unless a
// center exists and α > 0.
func (s *Stabilization) UpdateHybrid(currentByGroup map[Group][]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCenter || s.alpha <= 0 {
		return
	}

	var centerFlat, currentFlat, subgradFlat []float64
	for g, current := range currentByGroup {
		gs := s.group(g)
		centerFlat = append(centerFlat, gs.center...)
		currentFlat = append(currentFlat, current...)
		subgradFlat = append(subgradFlat, padTo(gs.subgradient, len(current))...)
	}

	diff := make([]float64, len(centerFlat))
	for i := range diff {
		diff[i] = centerFlat[i] - elemOr(currentFlat, i, 0)
	}
	s.dualDiffNorm = floats.Norm(diff, 2)

	if s.subgradNorm == 0 {
		s.beta = 0
	} else {
		absDiff := make([]float64, len(diff))
		absSubgrad := make([]float64, len(subgradFlat))
		for i, v := range diff {
			absDiff[i] = math.Abs(v)
		}
		for i, v := range subgradFlat {
			absSubgrad[i] = math.Abs(v)
		}
		n := len(absDiff)
		if len(absSubgrad) < n {
			n = len(absSubgrad)
		}
		num := floats.Dot(absDiff[:n], absSubgrad[:n])
		s.beta = num / (s.subgradNorm * s.dualDiffNorm)
		s.beta = math.Max(0, math.Min(1, s.beta))
	}

	ratio := 0.0
	if s.subgradNorm != 0 {
		ratio = s.dualDiffNorm / s.subgradNorm
	}
	blendVec := make([]float64, len(centerFlat))
	for i := range blendVec {
		center := centerFlat[i]
		subgrad := elemOr(subgradFlat, i, 0)
		current := elemOr(currentFlat, i, 0)
		blendVec[i] = (s.beta-1)*center + s.beta*subgrad*ratio + (1-s.beta)*current
	}
	denom := floats.Norm(blendVec, 2)
	if denom == 0 {
		s.hybridFactor = 0

		return
	}
	s.hybridFactor = ((1 - s.alpha) * s.dualDiffNorm) / denom
}

func padTo(v []float64, n int) []float64 {
	if len(v) >= n {
		return v
	}
	out := make([]float64, n)
	copy(out, v)

	return out
}

// UpdateAlphaMisprice advances the mispricing counter and recomputes α̅.
func (s *Stabilization) UpdateAlphaMisprice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.k++
	s.alphaBar = math.Max(0, 1-float64(s.k)*(1-s.alpha))
}

// UpdateAlpha advances the in-node round counter t and moves α toward 0.9
// if subgradientProduct is negative, or toward 0 otherwise.
func (s *Stabilization) UpdateAlpha(subgradientProduct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t++
	if subgradientProduct < 0 {
		s.alpha = math.Min(maxAlpha, s.alpha+(1-s.alpha)*0.1)
	} else {
		s.alpha = math.Max(0, s.alpha-0.1)
	}
}

// Reset restores node-scoped state: called when the pricing loop moves to
// a new branch-and-bound node. The stability center itself is cleared
// along with it, since a center computed at one node's LP relaxation has
// no claim on another node's feasible region.
func (s *Stabilization) Reset(nodeID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups = make(map[Group]*groupState)
	s.alpha = s.initialAlpha
	s.alphaBar = 0
	s.beta = 0
	s.hybridFactor = 0
	s.k = 0
	s.t = 0
	s.hasCenter = false
	s.centerBound = math.Inf(-1)
	s.inMispricing = false
	s.dualDiffNorm = 0
	s.subgradNorm = 0
	s.nodeID = nodeID
}

// NodeID returns the node this instance's state currently belongs to.
func (s *Stabilization) NodeID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nodeID
}
