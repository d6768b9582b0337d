// Package rib implements the outgoing Adj-RIB-Out and its change
// pipeline (spec §4.6): per-peer deduplicated route storage, ADD-PATH
// identity preservation across reloads, and the UPDATE batching rules
// that turn a burst of Changes into a minimal set of wire messages.
package rib

import (
	"fmt"
	"net/netip"

	"github.com/dc-labs/bgpd/internal/attr"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/wire"
)

// Change is one announce-or-withdraw event for a single route. A
// withdraw Change carries Attributes == nil; equalAttrs compares only the
// attribute set, since two announcements of the same NLRI/path-id with
// identical attributes are a no-op by spec §4.6. NextHop carries the
// announced next hop for any family other than plain IPv4 unicast (which
// folds it into the ordinary NEXT_HOP path attribute instead): the
// outgoing pipeline's MP_REACH builder reads it rather than an attribute
// in Attributes, since its wire width is family-dependent (spec §4.2).
type Change struct {
	Family     wire.Family
	NLRI       nlri.NLRI
	PathID     uint32
	Attributes []attr.Attribute
	NextHop    netip.Addr
	Withdraw   bool
}

// Key is the (NLRI.Index(), path_id) identity the RIB dedups on.
func (c Change) Key() string {
	return fmt.Sprintf("%d|%s", c.PathID, c.NLRI.Index())
}

func (c Change) withPathID() nlri.WithPathID {
	return nlri.WithPathID{NLRI: c.NLRI, PathID: c.PathID}
}

// attrKey is a string identity for a Change's attribute set, used to
// group same-attribute Changes into one UPDATE (spec §4.6 "same
// path-attribute set may share one UPDATE").
func attrKey(attrs []attr.Attribute) string {
	out := make([]byte, 0, 64)
	for _, a := range attrs {
		out = append(out, attr.Pack(nil, a)...)
	}
	return string(out)
}

func equalAttrs(a, b []attr.Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	return attrKey(a) == attrKey(b)
}
