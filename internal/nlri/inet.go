package nlri

import (
	"net/netip"

	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

func addrFromBuf(afi wire.AFI, buf []byte) (netip.Addr, error) {
	switch afi {
	case wire.AFI_IPV4:
		var a [4]byte
		copy(a[:], buf)
		return netip.AddrFrom4(a), nil
	case wire.AFI_IPV6:
		var a [16]byte
		copy(a[:], buf)
		return netip.AddrFrom16(a), nil
	default:
		return netip.Addr{}, badFormat(0, "no plain IP shape for afi %s", afi)
	}
}

// InetPrefix is a plain IPv4 or IPv6 unicast/multicast prefix. It is the
// only family that may appear directly in UPDATE's withdrawn/NLRI
// sections instead of inside MP_REACH/MP_UNREACH (spec §4.3).
type InetPrefix struct {
	CIDR wire.CIDR
	AFI  wire.AFI
	SAFI wire.SAFI
}

func (p InetPrefix) Pack(*negotiated.Negotiated) []byte { return p.CIDR.Pack() }
func (p InetPrefix) Index() string                      { return string(p.CIDR.Pack()) }
func (p InetPrefix) Family() wire.Family                { return wire.Family{AFI: p.AFI, SAFI: p.SAFI} }
func (p InetPrefix) String() string                     { return p.CIDR.Prefix.String() }

func UnpackInetPrefix(afi wire.AFI, safi wire.SAFI, b []byte, offset int) (InetPrefix, []byte, error) {
	cidr, rest, err := wire.UnpackCIDR(afi, b, offset)
	if err != nil {
		return InetPrefix{}, nil, err
	}
	return InetPrefix{CIDR: cidr, AFI: afi, SAFI: safi}, rest, nil
}

// LabelledPrefix is RFC 3107 labelled-unicast: a label stack followed by
// a plain prefix, with a single combined length byte counting both the
// label bits and the prefix bits.
type LabelledPrefix struct {
	Labels wire.Labels
	CIDR   wire.CIDR
	AFI    wire.AFI
}

func (p LabelledPrefix) Pack(*negotiated.Negotiated) []byte {
	labelBytes := p.Labels.Pack()
	totalBits := p.CIDR.Prefix.Bits() + 8*len(labelBytes)
	out := []byte{byte(totalBits)}
	out = append(out, labelBytes...)
	addr := wire.PackIP(p.CIDR.Prefix.Addr())
	n := (p.CIDR.Prefix.Bits() + 7) / 8
	out = append(out, addr[:n]...)
	return out
}

func (p LabelledPrefix) Index() string      { return string(p.Pack(nil)) }
func (p LabelledPrefix) Family() wire.Family { return wire.Family{AFI: p.AFI, SAFI: wire.SAFI_LABELLED_UNI} }
func (p LabelledPrefix) String() string     { return p.CIDR.Prefix.String() }

// UnpackLabelledPrefix reads the combined length byte (label bits +
// prefix bits), then the label stack, then the remaining prefix octets.
func UnpackLabelledPrefix(afi wire.AFI, b []byte, offset int) (LabelledPrefix, []byte, error) {
	if len(b) < 1 {
		return LabelledPrefix{}, nil, badFormat(offset, "truncated labelled prefix")
	}
	totalBits := int(b[0])
	rest := b[1:]
	labels, rest, err := wire.UnpackLabels(rest, 0, offset+1)
	if err != nil {
		return LabelledPrefix{}, nil, err
	}
	labelBits := 24 * len(labels)
	prefixBits := totalBits - labelBits
	if prefixBits < 0 {
		return LabelledPrefix{}, nil, badFormat(offset, "label length exceeds total prefix length")
	}
	n := (prefixBits + 7) / 8
	if len(rest) < n {
		return LabelledPrefix{}, nil, badFormat(offset, "truncated labelled prefix address")
	}
	addrLen := afi.AddrLen()
	buf := make([]byte, addrLen)
	copy(buf, rest[:n])
	addr, err := addrFromBuf(afi, buf)
	if err != nil {
		return LabelledPrefix{}, nil, err
	}
	pfx, err := addr.Prefix(prefixBits)
	if err != nil {
		return LabelledPrefix{}, nil, badFormat(offset, "invalid prefix length: %v", err)
	}
	return LabelledPrefix{Labels: labels, CIDR: wire.CIDR{Prefix: pfx}, AFI: afi}, rest[n:], nil
}
