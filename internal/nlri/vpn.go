package nlri

import (
	"net/netip"

	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// VPN is an MPLS-VPN (VPNv4/VPNv6) NLRI: a label stack, an 8-byte RD, and
// a plain prefix, combined under one length byte per RFC 4364 §4.
type VPN struct {
	Labels wire.Labels
	RD     wire.RD
	CIDR   wire.CIDR
	AFI    wire.AFI
}

func (v VPN) Pack(*negotiated.Negotiated) []byte {
	labelBytes := v.Labels.Pack()
	rdBytes := v.RD.Pack()
	totalBits := v.CIDR.Prefix.Bits() + 8*len(labelBytes) + 8*len(rdBytes)
	out := []byte{byte(totalBits)}
	out = append(out, labelBytes...)
	out = append(out, rdBytes...)
	addr := wire.PackIP(v.CIDR.Prefix.Addr())
	n := (v.CIDR.Prefix.Bits() + 7) / 8
	out = append(out, addr[:n]...)
	return out
}

func (v VPN) Index() string      { return string(v.Pack(nil)) }
func (v VPN) Family() wire.Family {
	return wire.Family{AFI: v.AFI, SAFI: wire.SAFI_MPLS_VPN}
}
func (v VPN) String() string { return v.RD.String() + ":" + v.CIDR.Prefix.String() }

// UnpackVPN reads label stack + RD + prefix under a combined length byte.
func UnpackVPN(afi wire.AFI, b []byte, offset int) (VPN, []byte, error) {
	if len(b) < 1 {
		return VPN{}, nil, badFormat(offset, "truncated vpn nlri")
	}
	totalBits := int(b[0])
	rest := b[1:]
	labels, rest, err := wire.UnpackLabels(rest, 0, offset+1)
	if err != nil {
		return VPN{}, nil, err
	}
	rd, rest, err := wire.UnpackRD(rest, offset+1+len(labels)*3)
	if err != nil {
		return VPN{}, nil, err
	}
	prefixBits := totalBits - 24*len(labels) - 64
	if prefixBits < 0 {
		return VPN{}, nil, badFormat(offset, "vpn prefix length underflow")
	}
	n := (prefixBits + 7) / 8
	if len(rest) < n {
		return VPN{}, nil, badFormat(offset, "truncated vpn prefix address")
	}
	addrLen := afi.AddrLen()
	buf := make([]byte, addrLen)
	copy(buf, rest[:n])
	addr, err := addrFromBuf(afi, buf)
	if err != nil {
		return VPN{}, nil, err
	}
	pfx, err := addr.Prefix(prefixBits)
	if err != nil {
		return VPN{}, nil, badFormat(offset, "invalid vpn prefix length: %v", err)
	}
	return VPN{Labels: labels, RD: rd, CIDR: wire.CIDR{Prefix: pfx}, AFI: afi}, rest[n:], nil
}

// VPNNextHop computes the MP_REACH nexthop for VPNv4 (RD=0 + IPv4, 12
// bytes) and VPNv6 (RD=0 + IPv6, 24 bytes) per spec §4.2. An invalid addr
// (no next hop given) yields the all-zero placeholder of the
// right width for afi rather than guessing a width from addr itself.
func VPNNextHop(afi wire.AFI, addr netip.Addr) []byte {
	out := make([]byte, 8)
	if !addr.IsValid() {
		return append(out, make([]byte, afi.AddrLen())...)
	}
	return append(out, wire.PackIP(addr)...)
}
