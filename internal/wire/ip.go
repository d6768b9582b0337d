package wire

import "net/netip"

// PackIP renders addr in its natural 4 or 16 byte form.
func PackIP(addr netip.Addr) []byte {
	if addr.Is4() {
		a := addr.As4()
		return a[:]
	}
	a := addr.As16()
	return a[:]
}

// UnpackIP4 reads a 4-byte IPv4 address at the front of b.
func UnpackIP4(b []byte, offset int) (netip.Addr, []byte, error) {
	if err := needBytes(b, 4, offset); err != nil {
		return netip.Addr{}, nil, err
	}
	var a [4]byte
	copy(a[:], b[:4])
	return netip.AddrFrom4(a), b[4:], nil
}

// UnpackIP6 reads a 16-byte IPv6 address at the front of b.
func UnpackIP6(b []byte, offset int) (netip.Addr, []byte, error) {
	if err := needBytes(b, 16, offset); err != nil {
		return netip.Addr{}, nil, err
	}
	var a [16]byte
	copy(a[:], b[:16])
	return netip.AddrFrom16(a), b[16:], nil
}

// UnpackIP reads an AFI-sized IP address at the front of b.
func UnpackIP(afi AFI, b []byte, offset int) (netip.Addr, []byte, error) {
	switch afi {
	case AFI_IPV4:
		return UnpackIP4(b, offset)
	case AFI_IPV6:
		return UnpackIP6(b, offset)
	default:
		return netip.Addr{}, nil, badFormat(offset, "no plain IP shape for afi %s", afi)
	}
}

// CIDR is a prefix held as a netip.Prefix, whose address carries the
// family. It packs to the minimal byte-ceil(length/8) representation used
// by NLRI on the wire.
type CIDR struct {
	Prefix netip.Prefix
}

func NewCIDR(p netip.Prefix) CIDR { return CIDR{Prefix: p.Masked()} }

// Pack renders the prefix length byte followed by the minimal number of
// significant octets.
func (c CIDR) Pack() []byte {
	bits := c.Prefix.Bits()
	addr := PackIP(c.Prefix.Addr())
	n := (bits + 7) / 8
	out := make([]byte, 1+n)
	out[0] = byte(bits)
	copy(out[1:], addr[:n])
	return out
}

// UnpackCIDR reads a prefix-length byte followed by ceil(bits/8) octets
// for the given AFI.
func UnpackCIDR(afi AFI, b []byte, offset int) (CIDR, []byte, error) {
	if err := needBytes(b, 1, offset); err != nil {
		return CIDR{}, nil, err
	}
	bits := int(b[0])
	addrLen := afi.AddrLen()
	maxBits := addrLen * 8
	if addrLen == 0 {
		return CIDR{}, nil, badFormat(offset, "no plain prefix shape for afi %s", afi)
	}
	if bits > maxBits {
		return CIDR{}, nil, badFormat(offset, "prefix length %d exceeds %d for afi %s", bits, maxBits, afi)
	}
	n := (bits + 7) / 8
	rest := b[1:]
	if err := needBytes(rest, n, offset+1); err != nil {
		return CIDR{}, nil, err
	}
	buf := make([]byte, addrLen)
	copy(buf, rest[:n])
	var addr netip.Addr
	if addrLen == 4 {
		var a [4]byte
		copy(a[:], buf)
		addr = netip.AddrFrom4(a)
	} else {
		var a [16]byte
		copy(a[:], buf)
		addr = netip.AddrFrom16(a)
	}
	pfx := netip.PrefixFrom(addr, bits)
	return CIDR{Prefix: pfx}, rest[n:], nil
}
