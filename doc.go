// Package colgen is the column-generation core of a Dantzig–Wolfe
// branch-and-price solver built on top of a generic mixed-integer
// programming engine.
//
// What is gcg-colgen?
//
//	A column pool, a price store, and two stabilized/branching-aware
//	pricing strategies, wired together into a round/node orchestration
//	loop that a host MIP engine drives:
//
//	  • column/colpool   — deduplicating, aging cache of priced columns
//	  • pricestore       — per-round staging buffer with score-based selection
//	  • pricingtype      — reduced-cost vs. Farkas dual/objective strategy
//	  • stabilization    — α-smoothed dual stabilization with hybrid ascent
//	  • emc              — extended master constraints + pricing modifications
//	  • branchgeneric    — Vanderbeck generic branching
//	  • branchcompbnd    — component-bound branching
//	  • pricingloop      — per-round/per-node orchestration
//
// This core does not solve LPs, select nodes, or separate cuts outside the
// two branching rules above — those are host services the core consumes
// through the host package's interfaces.
//
// Package layout:
//
//	host/           external interfaces consumed from the MIP/LP engine
//	column/         the Column data model (C1)
//	colpool/        the column pool (C2)
//	pricestore/     the price store (C3)
//	pricingtype/    reduced-cost / Farkas policy (C4)
//	stabilization/  dual stabilization (C5)
//	emc/            extended master constraints (C6)
//	branchgeneric/  Vanderbeck generic branching (C7)
//	branchcompbnd/  component-bound branching (C8)
//	pricingloop/    round/node orchestration and configuration
//	cmd/gcgprice/   demo CLI driving a toy cutting-stock instance
//
// See SPEC_FULL.md and DESIGN.md at the module root for the full design
// and the grounding ledger.
package colgen
