// Package negotiated holds the value frozen at OPEN exchange and consulted
// by every codec thereafter: ASN width, per-family ADD-PATH direction,
// the negotiated families and the other session-wide facts that make pack/
// unpack polymorphic without making the wire primitives themselves stateful.
package negotiated

import "github.com/dc-labs/bgpd/internal/wire"

// AddPathDirection records which direction(s) ADD-PATH is active for a
// given family, the conjunction of local and peer-advertised directions.
type AddPathDirection uint8

const (
	AddPathNone AddPathDirection = iota
	AddPathSend
	AddPathReceive
	AddPathBoth
)

func (d AddPathDirection) Send() bool    { return d == AddPathSend || d == AddPathBoth }
func (d AddPathDirection) Receive() bool { return d == AddPathReceive || d == AddPathBoth }

// Negotiated is the frozen outcome of capability negotiation for one
// session. Every WireCodec implementation receives a *Negotiated and may
// ignore fields it does not need — the signature stays uniform across
// variants (Design Notes: polymorphism via pack(negotiated)/unpack(data,
// negotiated)).
type Negotiated struct {
	LocalASN wire.ASN
	PeerASN  wire.ASN

	HoldTime     uint16
	LocalRouterID uint32
	PeerRouterID  uint32

	Families []wire.Family

	AddPath map[wire.Family]AddPathDirection

	ASN4             bool
	ExtendedMessage  bool
	EnhancedRefresh  bool
	MultipleLabels   map[wire.Family]int
	GracefulRestart  bool
	GRStaleTime      uint16
	GRForwardingBit  map[wire.Family]bool
	Restarting       bool
}

// HasFamily reports whether f was negotiated (present in both OPENs'
// Multiprotocol capability sets).
func (n *Negotiated) HasFamily(f wire.Family) bool {
	for _, g := range n.Families {
		if g == f {
			return true
		}
	}
	return false
}

func (n *Negotiated) AddPathFor(f wire.Family) AddPathDirection {
	if n.AddPath == nil {
		return AddPathNone
	}
	return n.AddPath[f]
}

// MaxMessageSize is 4096 unless ExtendedMessage was negotiated by both
// sides, in which case it is 65535 (§3 invariant).
func (n *Negotiated) MaxMessageSize() int {
	if n.ExtendedMessage {
		return 65535
	}
	return 4096
}

// ASNWidth returns 4 when both sides advertised ASN4, else 2.
func (n *Negotiated) ASNWidth() int {
	if n.ASN4 {
		return 4
	}
	return 2
}
