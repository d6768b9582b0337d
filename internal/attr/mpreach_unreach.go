package attr

import (
	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/wire"
)

// MPReachNLRI carries one (AFI,SAFI)'s next hop and announced NLRI
// (spec §4.2). NextHop is kept as raw bytes since its length is family
// dependent (4/16 for plain unicast, 12/24 for VPN per nlri.VPNNextHop,
// and a possible link-local second address for IPv6).
type MPReachNLRI struct {
	Family       wire.Family
	NextHop      []byte
	LinkLocal    []byte
	NLRIs        []nlri.WithPathID
}

func (MPReachNLRI) Code() Code   { return CodeMPReachNLRI }
func (MPReachNLRI) Flags() Flags { return FlagOptional }

func (m MPReachNLRI) PackBody(n *negotiated.Negotiated) []byte {
	nh := m.NextHop
	if m.LinkLocal != nil {
		nh = append(append([]byte{}, nh...), m.LinkLocal...)
	}
	out := []byte{byte(m.Family.AFI >> 8), byte(m.Family.AFI), byte(m.Family.SAFI)}
	out = append(out, byte(len(nh)))
	out = append(out, nh...)
	out = append(out, 0) // reserved
	addPath := n != nil && n.AddPathFor(m.Family).Send()
	for _, w := range m.NLRIs {
		out = append(out, nlri.PackOne(n, w, addPath)...)
	}
	return out
}

func unpackMPReach(n *negotiated.Negotiated, _ Flags, body []byte, offset int) (Attribute, error) {
	if len(body) < 5 {
		return nil, badFormat(offset, "truncated mp_reach_nlri header")
	}
	f := wire.Family{AFI: wire.AFI(int(body[0])<<8 | int(body[1])), SAFI: wire.SAFI(body[2])}
	nhLen := int(body[3])
	body = body[4:]
	if len(body) < nhLen+1 {
		return nil, badFormat(offset, "truncated mp_reach_nlri next hop")
	}
	if expect := expectedNextHopLens(f); expect != nil && !containsLen(expect, nhLen) {
		return nil, lengthError(offset, "mp_reach_nlri next hop length %d invalid for %s", nhLen, f)
	}
	nh := body[:nhLen]
	body = body[nhLen:]
	body = body[1:] // reserved byte
	var nextHop, linkLocal []byte
	switch {
	case f.AFI == wire.AFI_IPV6 && nhLen == 32:
		nextHop, linkLocal = nh[:16], nh[16:]
	default:
		nextHop = nh
	}
	addPath := n != nil && n.AddPathFor(f).Receive()
	nlris, err := nlri.UnpackAll(f, addPath, body, offset+4+nhLen+1)
	if err != nil {
		return nil, err
	}
	return MPReachNLRI{Family: f, NextHop: nextHop, LinkLocal: linkLocal, NLRIs: nlris}, nil
}

// expectedNextHopLens returns the valid MP_REACH next-hop widths for f
// per spec §4.2's table (4 for v4 unicast/labelled-unicast, 16 or 32
// with a link-local for v6, 12 for VPNv4, 24 for VPNv6, 4/16 for EVPN and
// BGP-LS by the address actually carried). A nil return means the family
// has no fixed shape known here and the length is accepted as-is.
func expectedNextHopLens(f wire.Family) []int {
	switch {
	case f.SAFI == wire.SAFI_MPLS_VPN && f.AFI == wire.AFI_IPV4:
		return []int{12}
	case f.SAFI == wire.SAFI_MPLS_VPN && f.AFI == wire.AFI_IPV6:
		return []int{24}
	case f.SAFI == wire.SAFI_EVPN, f.AFI == wire.AFI_BGPLS:
		return []int{4, 16}
	case f.AFI == wire.AFI_IPV4:
		return []int{4}
	case f.AFI == wire.AFI_IPV6:
		return []int{16, 32}
	default:
		return nil
	}
}

func containsLen(lens []int, n int) bool {
	for _, l := range lens {
		if l == n {
			return true
		}
	}
	return false
}

// MPUnreachNLRI withdraws routes in a family other than plain IPv4
// unicast (spec §4.2); an empty NLRI list is the family's EOR marker
// when ADD-PATH/graceful-restart semantics call for it.
type MPUnreachNLRI struct {
	Family wire.Family
	NLRIs  []nlri.WithPathID
}

func (MPUnreachNLRI) Code() Code   { return CodeMPUnreachNLRI }
func (MPUnreachNLRI) Flags() Flags { return FlagOptional }

func (m MPUnreachNLRI) PackBody(n *negotiated.Negotiated) []byte {
	out := []byte{byte(m.Family.AFI >> 8), byte(m.Family.AFI), byte(m.Family.SAFI)}
	addPath := n != nil && n.AddPathFor(m.Family).Send()
	for _, w := range m.NLRIs {
		out = append(out, nlri.PackOne(n, w, addPath)...)
	}
	return out
}

func unpackMPUnreach(n *negotiated.Negotiated, _ Flags, body []byte, offset int) (Attribute, error) {
	if len(body) < 3 {
		return nil, badFormat(offset, "truncated mp_unreach_nlri header")
	}
	f := wire.Family{AFI: wire.AFI(int(body[0])<<8 | int(body[1])), SAFI: wire.SAFI(body[2])}
	body = body[3:]
	addPath := n != nil && n.AddPathFor(f).Receive()
	nlris, err := nlri.UnpackAll(f, addPath, body, offset+3)
	if err != nil {
		return nil, err
	}
	return MPUnreachNLRI{Family: f, NLRIs: nlris}, nil
}
