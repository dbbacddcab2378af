// Package host declares the external interfaces the column-generation core
// consumes from the surrounding MIP/LP engine. The core never implements
// these: they are the seam between this module and the host's LP solving,
// node selection, and decomposition machinery.
//
// Mirrors the teacher's posture in flow/types.go and core/types.go: accept
// small, explicit collaborator types/interfaces rather than reaching for a
// global graph/solver singleton.
package host

import "github.com/scipopt/gcg-colgen/varident"

// VarKind classifies a Variable for the purposes of pricing and
// coefficient bookkeeping.
type VarKind int

const (
	// VarOriginal is an original-space decision variable.
	VarOriginal VarKind = iota
	// VarPricing is a block-pricing-problem variable.
	VarPricing
	// VarInferredPricing is a pricing variable introduced by an active
	// extended master constraint.
	VarInferredPricing
	// VarMaster is a master-problem variable (a column, or a static
	// master variable not tied to any block).
	VarMaster
	// VarLinking is a linking variable copy shared across identical blocks.
	VarLinking
)

// Variable is a single decision variable as seen by the core: it carries a
// stable identity, a kind, the block it belongs to (-1 if none), its
// current bounds, and its objective coefficient. Inferred pricing
// variables' Objective is mutated once per pricing round by the owning
// extended master constraint.
type Variable interface {
	ID() varident.ID
	Kind() VarKind
	// Block returns the pricing-problem index this variable belongs to,
	// or -1 for master/original variables not tied to a single block.
	Block() int
	LowerBound() float64
	UpperBound() float64
	Objective() float64
	SetObjective(obj float64)
}

// MasterConstraint is a row of the reformulated master LP: a linear
// constraint lhs <= ... <= rhs with the host's current dual value (or, in
// a Farkas-infeasible LP, its Farkas coefficient).
type MasterConstraint interface {
	ID() varident.ID
	Lhs() float64
	Rhs() float64
	Dual() float64
	Farkas() float64
}

// Row is an original-space lifted cut or separator cut: same shape as a
// MasterConstraint but kept as a distinct type since the core tracks
// original-cut and separator-cut coefficient caches separately.
type Row interface {
	ID() varident.ID
	Lhs() float64
	Rhs() float64
	Dual() float64
	Farkas() float64
}

// ExtendedMasterConsRef is the dual-bearing handle an EMC exposes to the
// rest of the core once it is active in the master LP.
type ExtendedMasterConsRef interface {
	ID() varident.ID
	Dual() float64
	Farkas() float64
	IsActive() bool
}

// PricingConstraint is a plain linear constraint added to a pricing
// problem by an extended master constraint's additional pricing
// modifications.
type PricingConstraint interface {
	ID() varident.ID
	AddTerm(v Variable, coef float64)
}

// PricingProblem is the per-block pricing problem a branching rule or EMC
// injects variables and constraints into.
type PricingProblem interface {
	Block() int
	AddVariable(v Variable) error
	RemoveVariable(v Variable) error
	AddConstraint(c PricingConstraint) error
	RemoveConstraint(c PricingConstraint) error
}

// Problem exposes the decomposition-level primitives the core needs:
// block count, which blocks are "relevant" (one representative per
// identical group), the multiplicity of each representative, and the
// convexity constraint of a block.
type Problem interface {
	NBlocks() int
	RelevantBlocks() []int
	IdenticalCount(block int) int
	ConvexityConstraint(block int) MasterConstraint
	IsRootNode() bool
	NodeID() int64
	PricingProblem(block int) PricingProblem
}

// EventHooks lets the core subscribe to host lifecycle events.
// Implementations fire OnNewMasterVar once per new master variable
// (including new columns) so that active extended master constraints can
// add the variable to their master row with the right coefficient.
type EventHooks interface {
	OnNewMasterVar(v Variable)
}

// Subscriber is implemented by anything that wants to receive
// OnNewMasterVar notifications while active (an EMC, typically).
// Registration happens via a host-provided EventHooks implementation;
// this interface is the shape a subscriber list entry must satisfy.
type Subscriber interface {
	OnNewMasterVar(v Variable)
}
