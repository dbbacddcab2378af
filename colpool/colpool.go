// Package colpool implements a deduplicating, age-evicting cache of
// priced columns valid at a single branch-and-bound node.
//
// Mirrors the teacher's dense-slice-plus-hash-index bookkeeping
// (prim_kruskal's union-find slot discipline; core's swap-remove-to-stay-dense
// adjacency maps) rather than a map-only set, so that Pos()/SetPos() stay
// O(1) after a delete.
//
// Complexity: AddIfNew/AddNew/Delete are O(1) amortized (hash lookup plus
// swap-remove); Clear/UpdateRedcost/Price/PropagateGlobalBounds are O(n).
package colpool

import (
	"sync"
	"time"

	"github.com/scipopt/gcg-colgen/column"
	"github.com/scipopt/gcg-colgen/gcgerr"
	"github.com/scipopt/gcg-colgen/gcglog"
	"github.com/scipopt/gcg-colgen/host"
	"github.com/scipopt/gcg-colgen/pricingtype"
)

// MasterContext supplies the current master-side rows/cuts a column must
// be re-costed against, and the host's rule for computing a column's
// coefficients against them. Kept separate from pricingtype.RedcostEvaluator
// because coefficient computation is a host/constraint-activation concern,
// while dual/objective lookup is a pricing-strategy concern.
type MasterContext interface {
	MasterConstraints() []host.MasterConstraint
	OriginalCuts() []host.Row
	SeparatorCuts() []host.Row
	// Coefficients returns col's coefficient vectors against the current
	// master constraints, original cuts, and separator cuts, in the same
	// order as MasterConstraints/OriginalCuts/SeparatorCuts.
	Coefficients(col *column.Column) (masterCoefs, originalCutCoefs, separatorCutCoefs []float64)
}

// BoundViolationFunc reports whether a column's pricing-variable values
// violate the current global bounds of the original variables they map
// to. Supplied by the host since bound lookup requires the
// original-to-pricing variable mapping.
type BoundViolationFunc func(c *column.Column) bool

// ColPool is a deduplicating set of columns for the current node.
//
// Invariants: at most one column per Column-equivalence class;
// cols[c.Pos()] == c for every stored c; nodeID is -1 until first use,
// then only changes via UpdateNode (which clears the pool); after Price,
// every surviving column with rc >= 0 has had its age incremented by
// exactly one.
type ColPool struct {
	mu sync.Mutex

	cols      []*column.Column
	hashIndex map[uint64][]*column.Column

	nodeID   int64
	ageLimit int
	inFarkas bool

	nCalls     int64
	nColsFound int64
	maxNCols   int
	timeSpent  time.Duration
}

// New creates an empty column pool. ageLimit < 0 disables aging (a column
// never evicts purely on age); ageLimit == 0 evicts on the very first
// non-improving price.
func New(ageLimit int) *ColPool {
	return &ColPool{
		hashIndex: make(map[uint64][]*column.Column),
		nodeID:    -1,
		ageLimit:  ageLimit,
	}
}

// NCols returns the number of columns currently stored.
func (p *ColPool) NCols() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.cols)
}

// MaxNCols returns the high-water mark of stored columns.
func (p *ColPool) MaxNCols() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.maxNCols
}

// NCalls returns the number of times Price has been called.
func (p *ColPool) NCalls() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.nCalls
}

// NColsFound returns the cumulative number of columns handed from the pool
// to the master across all Price calls.
func (p *ColPool) NColsFound() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.nColsFound
}

// TimeSpent returns cumulative time spent inside Price/UpdateRedcost.
func (p *ColPool) TimeSpent() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.timeSpent
}

// SetFarkas toggles Farkas mode, which affects how UpdateRedcost
// interprets reduced cost (see pricingtype).
func (p *ColPool) SetFarkas(farkas bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFarkas = farkas
}

// InFarkas reports whether the pool is currently in Farkas mode.
func (p *ColPool) InFarkas() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.inFarkas
}

// Clear frees every column and resets indices. O(n).
func (p *ColPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
}

func (p *ColPool) clearLocked() {
	for _, c := range p.cols {
		c.SetPos(-1)
	}
	p.cols = nil
	p.hashIndex = make(map[uint64][]*column.Column)
}

// AddIfNew inserts col unless an equal column already exists. Returns
// true iff col was inserted.
func (p *ColPool) AddIfNew(col *column.Column) (inserted bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := column.Hash(col)
	for _, existing := range p.hashIndex[h] {
		if column.Equals(existing, col) {
			return false, nil
		}
	}
	p.insertLocked(h, col)

	return true, nil
}

// AddNew inserts col unconditionally; the caller guarantees uniqueness.
// Requires col.Pos() == -1.
func (p *ColPool) AddNew(col *column.Column) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if col.Pos() != -1 {
		return gcgerr.Op("ColPool.AddNew", gcgerr.ErrInvalidData, "column already pooled at pos %d", col.Pos())
	}
	p.insertLocked(column.Hash(col), col)

	return nil
}

func (p *ColPool) insertLocked(h uint64, col *column.Column) {
	col.SetPos(len(p.cols))
	p.cols = append(p.cols, col)
	p.hashIndex[h] = append(p.hashIndex[h], col)
	if len(p.cols) > p.maxNCols {
		p.maxNCols = len(p.cols)
	}
}

// Delete removes col via hash lookup, swap-removing with the last slot to
// keep the array dense and repairing the displaced element's Pos. Returns
// gcgerr.ErrInvalidData if col is not a member.
func (p *ColPool) Delete(col *column.Column) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.deleteLocked(col)
}

func (p *ColPool) deleteLocked(col *column.Column) error {
	h := column.Hash(col)
	bucket := p.hashIndex[h]
	idx := -1
	for i, c := range bucket {
		if c == col {
			idx = i

			break
		}
	}
	if idx < 0 {
		return gcgerr.Op("ColPool.Delete", gcgerr.ErrInvalidData, "column not present in pool")
	}
	bucket[idx] = bucket[len(bucket)-1]
	p.hashIndex[h] = bucket[:len(bucket)-1]
	if len(p.hashIndex[h]) == 0 {
		delete(p.hashIndex, h)
	}

	pos := col.Pos()
	last := len(p.cols) - 1
	p.cols[pos] = p.cols[last]
	p.cols[pos].SetPos(pos)
	p.cols = p.cols[:last]
	col.SetPos(-1)

	return nil
}

// UpdateNode adopts currentNodeID on first use; if the node has since
// changed, clears the pool before adopting, since columns priced at one
// node are not generally valid at another.
func (p *ColPool) UpdateNode(currentNodeID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nodeID == -1 {
		p.nodeID = currentNodeID

		return
	}
	if p.nodeID != currentNodeID {
		p.clearLocked()
		p.nodeID = currentNodeID
	}
}

// NodeID returns the node this pool is currently valid for, or -1 if
// unset.
func (p *ColPool) NodeID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.nodeID
}

// UpdateRedcost recomputes every stored column's master/cut coefficient
// caches and reduced cost against the current duals, without aging any
// column.
func (p *ColPool) UpdateRedcost(ev pricingtype.RedcostEvaluator, mc MasterContext) {
	start := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() { p.timeSpent += time.Since(start) }()

	masterCons := mc.MasterConstraints()
	originalCuts := mc.OriginalCuts()
	separatorCuts := mc.SeparatorCuts()

	for _, c := range p.cols {
		mcoef, ocoef, scoef := mc.Coefficients(c)
		c.SetMasterCoefs(mcoef)
		c.SetOriginalCutCoefs(ocoef)
		c.SetSeparatorCutCoefs(scoef)
		c.ComputeNorm()

		rc := pricingtype.ReducedCost(c, ev, masterCons, originalCuts, separatorCuts)
		c.UpdateRedcost(rc, false)
	}
}

// NewMasterVarFunc hands a column that priced out negative to the master
// variable factory. Implementations typically register a new master
// column variable and fire host.EventHooks.OnNewMasterVar.
type NewMasterVarFunc func(c *column.Column) error

// Price scans every stored column: if its reduced cost is strictly
// dual-feasibly negative, it is removed from the pool and handed to
// newMasterVar; otherwise it ages, and columns exceeding ageLimit are
// dropped.
func (p *ColPool) Price(eps float64, newMasterVar NewMasterVarFunc) (nFound int, err error) {
	start := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() { p.timeSpent += time.Since(start) }()

	p.nCalls++

	i := 0
	for i < len(p.cols) {
		c := p.cols[i]
		if c.Redcost() < -eps {
			rc := c.Redcost()
			if derr := p.deleteLocked(c); derr != nil {
				return nFound, derr
			}
			c.UpdateRedcost(rc, false) // reset age on the way out
			if merr := newMasterVar(c); merr != nil {
				return nFound, merr
			}
			nFound++
			p.nColsFound++

			continue // deleteLocked moved a different column into slot i
		}
		c.UpdateRedcost(c.Redcost(), true)
		if p.ageLimit >= 0 && c.Age() > p.ageLimit {
			if derr := p.deleteLocked(c); derr != nil {
				return nFound, derr
			}

			continue
		}
		i++
	}

	return nFound, nil
}

// PropagateGlobalBounds drops every column whose pricing-variable values
// violate the current global bounds, as reported by violates.
func (p *ColPool) PropagateGlobalBounds(violates BoundViolationFunc) (removed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := 0
	for i < len(p.cols) {
		c := p.cols[i]
		if violates(c) {
			_ = p.deleteLocked(c)
			removed++

			continue
		}
		i++
	}

	return removed
}

// Cols returns a snapshot slice of the pool's current columns. The
// returned slice is owned by the caller (a fresh copy); the *Column
// pointers are shared.
func (p *ColPool) Cols() []*column.Column {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*column.Column, len(p.cols))
	copy(out, p.cols)

	return out
}

// Log emits a debug-level record of the pool's current size.
func (p *ColPool) Log() {
	gcglog.Logger().WithFields(map[string]interface{}{
		"node_id": p.NodeID(),
		"n_cols":  p.NCols(),
	}).Debug("colpool state")
}
