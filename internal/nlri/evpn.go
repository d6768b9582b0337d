package nlri

import (
	"encoding/binary"
	"net/netip"

	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// EVPNRouteType identifies the five EVPN NLRI shapes (RFC 7432 §7).
type EVPNRouteType uint8

const (
	EVPNEthernetAD          EVPNRouteType = 1
	EVPNMACIP               EVPNRouteType = 2
	EVPNInclusiveMulticast  EVPNRouteType = 3
	EVPNEthernetSegment     EVPNRouteType = 4
	EVPNIPPrefix            EVPNRouteType = 5
)

// EVPN is the tagged sum type over the five EVPN route types. Only the
// fields relevant to RouteType are meaningful; singleton variants (e.g.
// EthernetSegment without labels) must retain identity across deep copy
// so the RIB's identity map stays consistent — satisfied here because
// EVPN is a plain value type compared by Index(), never by pointer.
type EVPN struct {
	RouteType EVPNRouteType

	RD  wire.RD
	ESI wire.ESI
	Tag uint32

	MACAddress [6]byte
	MACLen     uint8
	IPAddress  netip.Addr // zero Addr means "not present"
	IPLen      uint8
	Label      wire.Labels
	Label2     wire.Labels // second label for MAC/IP routes

	GWIPAddress netip.Addr

	OrigRouterIP netip.Addr // InclusiveMulticast originating router

	PrefixLen uint8
	Prefix    netip.Addr
	GWIP      netip.Addr
	MPLSLabel uint32
}

func (e EVPN) Family() wire.Family { return wire.Family{AFI: wire.AFI_L2VPN, SAFI: wire.SAFI_EVPN} }

func (e EVPN) String() string { return e.RD.String() }

func (e EVPN) Pack(*negotiated.Negotiated) []byte {
	body := e.packBody()
	out := []byte{byte(e.RouteType), byte(len(body))}
	return append(out, body...)
}

func (e EVPN) Index() string { return string(e.Pack(nil)) }

func (e EVPN) packBody() []byte {
	var b []byte
	switch e.RouteType {
	case EVPNEthernetAD:
		b = append(b, e.RD.Pack()...)
		b = append(b, e.ESI.Pack()...)
		b = append(b, u32(e.Tag)...)
		b = append(b, e.Label.Pack()...)
	case EVPNMACIP:
		b = append(b, e.RD.Pack()...)
		b = append(b, e.ESI.Pack()...)
		b = append(b, u32(e.Tag)...)
		b = appendMACIP(b, e)
	case EVPNInclusiveMulticast:
		b = append(b, e.RD.Pack()...)
		b = append(b, u32(e.Tag)...)
		if e.OrigRouterIP.Is4() {
			b = append(b, 32)
			a := e.OrigRouterIP.As4()
			b = append(b, a[:]...)
		} else if e.OrigRouterIP.IsValid() {
			b = append(b, 128)
			a := e.OrigRouterIP.As16()
			b = append(b, a[:]...)
		}
	case EVPNEthernetSegment:
		b = append(b, e.RD.Pack()...)
		b = append(b, e.ESI.Pack()...)
		if e.OrigRouterIP.Is4() {
			b = append(b, 32)
			a := e.OrigRouterIP.As4()
			b = append(b, a[:]...)
		} else if e.OrigRouterIP.IsValid() {
			b = append(b, 128)
			a := e.OrigRouterIP.As16()
			b = append(b, a[:]...)
		}
	case EVPNIPPrefix:
		b = append(b, e.RD.Pack()...)
		b = append(b, e.ESI.Pack()...)
		b = append(b, u32(e.Tag)...)
		b = append(b, e.PrefixLen)
		if e.Prefix.Is4() {
			a := e.Prefix.As4()
			b = append(b, a[:]...)
		} else if e.Prefix.IsValid() {
			a := e.Prefix.As16()
			b = append(b, a[:]...)
		}
		if e.GWIP.Is4() {
			a := e.GWIP.As4()
			b = append(b, a[:]...)
		} else if e.GWIP.IsValid() {
			a := e.GWIP.As16()
			b = append(b, a[:]...)
		} else {
			b = append(b, make([]byte, 4)...)
		}
		b = append(b, u24(e.MPLSLabel)...)
	}
	return b
}

func appendMACIP(b []byte, e EVPN) []byte {
	b = append(b, e.MACLen)
	b = append(b, e.MACAddress[:]...)
	b = append(b, e.IPLen)
	if e.IPLen > 0 && e.IPAddress.IsValid() {
		if e.IPAddress.Is4() {
			a := e.IPAddress.As4()
			b = append(b, a[:]...)
		} else {
			a := e.IPAddress.As16()
			b = append(b, a[:]...)
		}
	}
	b = append(b, e.Label.Pack()...)
	if len(e.Label2) > 0 {
		b = append(b, e.Label2.Pack()...)
	}
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func u24(v uint32) []byte {
	return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
}

// UnpackEVPN reads one type-length-tagged EVPN NLRI.
func UnpackEVPN(b []byte, offset int) (EVPN, []byte, error) {
	if len(b) < 2 {
		return EVPN{}, nil, badFormat(offset, "truncated evpn nlri header")
	}
	rt := EVPNRouteType(b[0])
	l := int(b[1])
	if len(b) < 2+l {
		return EVPN{}, nil, badFormat(offset, "truncated evpn nlri body")
	}
	body := b[2 : 2+l]
	e := EVPN{RouteType: rt}
	var err error
	switch rt {
	case EVPNEthernetAD:
		e.RD, body, err = wire.UnpackRD(body, offset+2)
		if err != nil {
			return EVPN{}, nil, err
		}
		e.ESI, body, err = wire.UnpackESI(body, offset+2+8)
		if err != nil {
			return EVPN{}, nil, err
		}
		if len(body) < 4 {
			return EVPN{}, nil, badFormat(offset, "truncated evpn ethernet-ad tag")
		}
		e.Tag = binary.BigEndian.Uint32(body)
		body = body[4:]
		e.Label, _, err = wire.UnpackLabels(body, 1, offset)
		if err != nil {
			return EVPN{}, nil, err
		}
	case EVPNMACIP:
		e.RD, body, err = wire.UnpackRD(body, offset+2)
		if err != nil {
			return EVPN{}, nil, err
		}
		e.ESI, body, err = wire.UnpackESI(body, offset+2+8)
		if err != nil {
			return EVPN{}, nil, err
		}
		if len(body) < 4 {
			return EVPN{}, nil, badFormat(offset, "truncated evpn mac/ip tag")
		}
		e.Tag = binary.BigEndian.Uint32(body)
		body = body[4:]
		if len(body) < 1 {
			return EVPN{}, nil, badFormat(offset, "truncated mac length")
		}
		e.MACLen = body[0]
		body = body[1:]
		if len(body) < 6 {
			return EVPN{}, nil, badFormat(offset, "truncated mac address")
		}
		copy(e.MACAddress[:], body[:6])
		body = body[6:]
		if len(body) < 1 {
			return EVPN{}, nil, badFormat(offset, "truncated ip length")
		}
		e.IPLen = body[0]
		body = body[1:]
		if e.IPLen > 0 {
			n := int(e.IPLen) / 8
			if len(body) < n {
				return EVPN{}, nil, badFormat(offset, "truncated ip address")
			}
			if n == 4 {
				var a [4]byte
				copy(a[:], body[:4])
				e.IPAddress = netip.AddrFrom4(a)
			} else {
				var a [16]byte
				copy(a[:], body[:16])
				e.IPAddress = netip.AddrFrom16(a)
			}
			body = body[n:]
		}
		e.Label, body, err = wire.UnpackLabels(body, 1, offset)
		if err != nil {
			return EVPN{}, nil, err
		}
		if len(body) >= 3 {
			e.Label2, _, _ = wire.UnpackLabels(body, 1, offset)
		}
	case EVPNInclusiveMulticast:
		e.RD, body, err = wire.UnpackRD(body, offset+2)
		if err != nil {
			return EVPN{}, nil, err
		}
		if len(body) < 4 {
			return EVPN{}, nil, badFormat(offset, "truncated multicast tag")
		}
		e.Tag = binary.BigEndian.Uint32(body)
		body = body[4:]
		if len(body) >= 1 {
			n := int(body[0]) / 8
			body = body[1:]
			if len(body) >= n {
				buf := make([]byte, afiLenFromBits(n*8))
				copy(buf, body[:n])
				addr, _ := addrFromBuf(afiFromBytes(n), buf)
				e.OrigRouterIP = addr
			}
		}
	case EVPNEthernetSegment:
		e.RD, body, err = wire.UnpackRD(body, offset+2)
		if err != nil {
			return EVPN{}, nil, err
		}
		e.ESI, body, err = wire.UnpackESI(body, offset+2+8)
		if err != nil {
			return EVPN{}, nil, err
		}
		if len(body) >= 1 {
			n := int(body[0]) / 8
			body = body[1:]
			if len(body) >= n {
				buf := make([]byte, afiLenFromBits(n*8))
				copy(buf, body[:n])
				addr, _ := addrFromBuf(afiFromBytes(n), buf)
				e.OrigRouterIP = addr
			}
		}
	case EVPNIPPrefix:
		e.RD, body, err = wire.UnpackRD(body, offset+2)
		if err != nil {
			return EVPN{}, nil, err
		}
		e.ESI, body, err = wire.UnpackESI(body, offset+2+8)
		if err != nil {
			return EVPN{}, nil, err
		}
		if len(body) < 4 {
			return EVPN{}, nil, badFormat(offset, "truncated ip-prefix tag")
		}
		e.Tag = binary.BigEndian.Uint32(body)
		body = body[4:]
		if len(body) < 1 {
			return EVPN{}, nil, badFormat(offset, "truncated ip-prefix length")
		}
		e.PrefixLen = body[0]
		body = body[1:]
		addrLen := 4
		if len(body) >= 16+16+3 {
			addrLen = 16
		}
		if len(body) < addrLen {
			return EVPN{}, nil, badFormat(offset, "truncated ip-prefix address")
		}
		addr, _ := addrFromBuf(afiFromBytes(addrLen), body[:addrLen])
		e.Prefix = addr
		body = body[addrLen:]
		if len(body) < addrLen {
			return EVPN{}, nil, badFormat(offset, "truncated ip-prefix gateway")
		}
		gw, _ := addrFromBuf(afiFromBytes(addrLen), body[:addrLen])
		e.GWIP = gw
		body = body[addrLen:]
		if len(body) >= 3 {
			e.MPLSLabel = uint32(body[0])<<16 | uint32(body[1])<<8 | uint32(body[2])
		}
	default:
		// Unknown EVPN route type: retained as opaque by callers via the
		// attribute-level Unknown fallback; nlri package has no variant
		// for it.
		return EVPN{}, nil, badFormat(offset, "unknown evpn route type %d", rt)
	}
	return e, b[2+l:], nil
}

func afiLenFromBits(bits int) int {
	if bits > 32 {
		return 16
	}
	return 4
}

func afiFromBytes(n int) wire.AFI {
	if n == 16 {
		return wire.AFI_IPV6
	}
	return wire.AFI_IPV4
}
