// Package gcgerr defines the error kinds shared across the column-generation
// core.
//
// Every component wraps one of these sentinels with operation context via
// Op, rather than returning ad hoc fmt.Errorf values. Callers branch with
// errors.Is, never string comparison.
package gcgerr

import (
	"errors"
	"fmt"
)

// Shared error kinds.
var (
	// ErrInvalidData indicates malformed or inconsistent caller-supplied
	// data: a column-pool delete of a non-member, a duplicate pricing
	// modification for the same block, a malformed extended master
	// constraint, or (in release builds) a violated internal invariant.
	ErrInvalidData = errors.New("gcg: invalid data")

	// ErrNotImplemented indicates an operation reached a code path the
	// core does not (yet) implement, e.g. a row-backed EMC coefficient
	// variant not covered by this build.
	ErrNotImplemented = errors.New("gcg: not implemented")

	// ErrCapacityReached indicates a growth policy asked for an array
	// larger than the host's configured memory limit.
	ErrCapacityReached = errors.New("gcg: capacity reached")
)

// Branch-rule outcome sentinels.
var (
	// ErrDidNotRun indicates a branching rule declined to run in the
	// current mode (e.g. continuous variables present, or the active
	// decomposition is not a discretization approach).
	ErrDidNotRun = errors.New("gcg: branching rule did not run")

	// ErrCutoff indicates every candidate child was pruned by the
	// dominance check before any child node was created.
	ErrCutoff = errors.New("gcg: all children pruned (cutoff)")
)

// Op wraps a sentinel with operation context, producing an error of the
// form "<op>: <message>: <sentinel>". The sentinel remains reachable via
// errors.Is because %w preserves the wrapped chain.
//
// Mirrors the teacher's builderErrorf, generalized to always carry the
// originating sentinel so callers can still distinguish error kinds.
func Op(op string, sentinel error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	return fmt.Errorf("%s: %s: %w", op, msg, sentinel)
}
