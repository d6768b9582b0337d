// Package nlri implements the per-(AFI,SAFI) NLRI codecs: one variant per
// address family, ADD-PATH aware, each exposing an Index() used as the
// RIB key (spec §3, §4.3).
package nlri

import (
	"fmt"

	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// NLRI is the sum type described in spec §3. Every variant packs itself
// and exposes an identity used as the RIB key; PathID is carried
// alongside rather than folded into Index(), so the outgoing RIB can key
// on (Index(), PathID) per spec's Change definition.
type NLRI interface {
	// Pack renders the NLRI payload (not including any ADD-PATH path-id
	// prefix, which the message layer adds uniformly).
	Pack(n *negotiated.Negotiated) []byte
	// Index returns the bytes whose equality defines "same route" for
	// RIB purposes, excluding any path identifier.
	Index() string
	Family() wire.Family
	String() string
}

// WithPathID pairs an NLRI with its ADD-PATH identifier (0 when ADD-PATH
// is not in use for this family/direction).
type WithPathID struct {
	NLRI   NLRI
	PathID uint32
}

func (w WithPathID) Key() string {
	return fmt.Sprintf("%d|%s", w.PathID, w.NLRI.Index())
}

func badFormat(offset int, format string, args ...any) error {
	return fmt.Errorf("bad format at offset %d: "+format, append([]any{offset}, args...)...)
}
