// Package pricestore decides, once per pricing round, which of the
// columns just priced out actually become master variables. It exists
// because adding every negative-reduced-cost column straight to the
// master tends to add near-duplicate columns that barely improve the LP;
// scoring by orthogonality alongside reduced cost spreads new columns
// across more of the polytope per round.
package pricestore
