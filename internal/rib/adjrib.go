package rib

import (
	"fmt"
	"sync"

	"github.com/dc-labs/bgpd/internal/wire"
)

// entry is one stored route plus the order it was last touched in, so
// Pending() can emit in a stable, FIFO-ish order rather than Go's
// randomized map iteration order.
type entry struct {
	change Change
	seq    uint64
}

// AdjRIBOut is one peer's outgoing Adj-RIB and pending-change queue. It
// is safe for concurrent use: Announce/Withdraw are called from
// whatever goroutine computes routes, Pending from the peer's emit
// loop.
type AdjRIBOut struct {
	mu      sync.Mutex
	routes  map[string]entry
	pending map[string]bool
	seq     uint64

	// identity preserves (index-without-path-id) -> assigned path id
	// across configuration reloads of the same logical neighbor (spec
	// §4.6 "ADD-PATH identity preservation").
	identity map[string]uint32
	nextID   uint32
}

func NewAdjRIBOut() *AdjRIBOut {
	return &AdjRIBOut{
		routes:   map[string]entry{},
		pending:  map[string]bool{},
		identity: map[string]uint32{},
		nextID:   1,
	}
}

// AssignPathID returns the path id to use for index (an NLRI.Index()
// value) when ADD-PATH is active: the one previously assigned to this
// index if still on file, otherwise a freshly allocated one.
func (r *AdjRIBOut) AssignPathID(index string) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.identity[index]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.identity[index] = id
	return id
}

// Announce records c, dropping it as a no-op if an identical Change is
// already stored (spec §4.6). It reports whether the store actually
// changed.
func (r *AdjRIBOut) Announce(c Change) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := c.Key()
	if existing, ok := r.routes[key]; ok && !existing.change.Withdraw && equalAttrs(existing.change.Attributes, c.Attributes) {
		return false
	}
	r.seq++
	r.routes[key] = entry{change: c, seq: r.seq}
	r.pending[key] = true
	return true
}

// Withdraw replaces the stored route (if any) with a withdraw Change.
// Withdrawing an NLRI that was never announced is a no-op.
func (r *AdjRIBOut) Withdraw(family wire.Family, index string, pathID uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%d|%s", pathID, index)
	existing, ok := r.routes[key]
	if !ok || existing.change.Withdraw {
		return false
	}
	w := existing.change
	w.Withdraw = true
	w.Attributes = nil
	r.seq++
	r.routes[key] = entry{change: w, seq: r.seq}
	r.pending[key] = true
	return true
}

// Pending drains and returns every Change touched since the last call,
// in the order it was touched (stable for a given peer's emit loop) and
// clears withdrawn entries out of routes so the RIB does not grow
// without bound.
func (r *AdjRIBOut) Pending() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil
	}
	entries := make([]entry, 0, len(r.pending))
	for key := range r.pending {
		e, ok := r.routes[key]
		if !ok {
			continue
		}
		entries = append(entries, e)
		if e.change.Withdraw {
			delete(r.routes, key)
		}
	}
	r.pending = map[string]bool{}
	sortBySeq(entries)
	out := make([]Change, len(entries))
	for i, e := range entries {
		out[i] = e.change
	}
	return out
}

func sortBySeq(e []entry) {
	for i := 1; i < len(e); i++ {
		for j := i; j > 0 && e[j].seq < e[j-1].seq; j-- {
			e[j], e[j-1] = e[j-1], e[j]
		}
	}
}

// All returns every currently stored (non-withdrawn) route, used to
// rebuild Adj-RIB-Out from scratch on initial convergence.
func (r *AdjRIBOut) All() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Change, 0, len(r.routes))
	for _, e := range r.routes {
		if !e.change.Withdraw {
			out = append(out, e.change)
		}
	}
	return out
}
