// Package reactor owns cross-peer state: the set of peer tasks, the
// outgoing Adj-RIB per peer, and the atomic configuration-reload swap
// (spec §4.7). Go's scheduler already gives fairness and suspension
// points for free, so the "single-threaded cooperative loop" the spec
// describes is realized here as one goroutine per peer task plus one
// coordinating goroutine that owns the neighbor set — never a literal
// select-loop — matching how the teacher's Pool type supervises many
// Session goroutines rather than multiplexing them by hand.
package reactor

import (
	"maps"

	"github.com/dc-labs/bgpd/internal/fsm"
)

// NeighborSet is a reload-comparable snapshot of configured neighbors,
// keyed by peer address (spec's "logical neighbor").
type NeighborSet map[string]fsm.Config

// Diff compares a candidate neighbor set against the currently running
// one, producing added/removed/modified sets per spec §4.7. A neighbor
// is "modified in place" only when nothing load-bearing to the session
// identity changed; anything touching ASN, router-id, families, or
// address forces a teardown/recreate, surfaced here as both a Removed
// and an Added entry so the caller always recreates the peer task.
func Diff(current, candidate NeighborSet) (added, removed, modified []string) {
	for addr, cfg := range candidate {
		old, existed := current[addr]
		if !existed {
			added = append(added, addr)
			continue
		}
		if sessionIdentityChanged(old, cfg) {
			removed = append(removed, addr)
			added = append(added, addr)
		} else if !sessionEqual(old, cfg) {
			modified = append(modified, addr)
		}
	}
	for addr := range current {
		if _, still := candidate[addr]; !still {
			removed = append(removed, addr)
		}
	}
	return
}

func sessionIdentityChanged(a, b fsm.Config) bool {
	if a.LocalASN != b.LocalASN || a.PeerASN != b.PeerASN || a.RouterID != b.RouterID {
		return true
	}
	if a.PeerAddress != b.PeerAddress {
		return true
	}
	if len(a.Families) != len(b.Families) {
		return true
	}
	seen := map[string]bool{}
	for _, f := range a.Families {
		seen[f.String()] = true
	}
	for _, f := range b.Families {
		if !seen[f.String()] {
			return true
		}
	}
	return false
}

// sessionEqual compares the session-level fields that can change without
// forcing a teardown (spec §4.7 "modified neighbors with only
// session-level changes ... apply in place"). Families is already
// compared by sessionIdentityChanged and is not compared again here;
// the per-family ADD-PATH maps are, so changing ADD-PATH direction
// without changing the family set itself is treated as a session-level,
// in-place change.
func sessionEqual(a, b fsm.Config) bool {
	return a.HoldTime == b.HoldTime &&
		a.Passive == b.Passive &&
		a.GracefulRestart == b.GracefulRestart &&
		a.GRStaleTime == b.GRStaleTime &&
		a.Description == b.Description &&
		maps.Equal(a.AddPathRecv, b.AddPathRecv) &&
		maps.Equal(a.AddPathSend, b.AddPathSend)
}
