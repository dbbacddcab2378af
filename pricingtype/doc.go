// Package pricingtype is small on purpose: it owns exactly the two
// things that differ between a feasibility-restoring pricing round and an
// ordinary one (which dual/objective values to read) so that colpool,
// pricestore, and the pricing loop never branch on mode themselves.
package pricingtype
