// Package emc (extended master constraints) lets a branching rule or
// separator add a row to the master LP whose pricing impact is expressed
// declaratively: a per-block pricing modification rather than a
// hand-written change to every pricing subproblem.
package emc
