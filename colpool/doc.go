// Package colpool stores columns that have been priced out at some point
// during the current node's solve but are not (yet) attractive enough to
// enter the master problem. It exists to avoid resolving a pricing
// subproblem for a column the core has already seen: every round, stored
// columns are re-costed against the current duals before any subproblem
// is solved, and any column whose reduced cost has since turned negative
// is handed straight to the master without a subproblem solve.
package colpool
