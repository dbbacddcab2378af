// Package varident implements a stable, monotonic variable identity,
// letting the core sort "by variable identity" without relying on pointer
// or map-iteration order.
//
// Complexity: O(1) per identity issued.
package varident

import "sync/atomic"

// ID is an opaque, monotonically increasing variable identity. Two
// variables with the same ID are the same variable; ID ordering is a
// stable total order usable as a sort key across snapshots.
type ID uint64

// Counter issues strictly increasing IDs. The zero value is ready to use.
// Safe for concurrent use by multiple goroutines (mirrors core.Graph's
// atomic nextEdgeID counter).
type Counter struct {
	next uint64
}

// Next returns a fresh ID, strictly greater than every ID previously
// returned by this Counter.
func (c *Counter) Next() ID {
	return ID(atomic.AddUint64(&c.next, 1))
}

// Less reports whether a sorts strictly before b.
func Less(a, b ID) bool { return a < b }
