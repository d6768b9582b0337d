package nlri

import (
	"encoding/binary"

	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// MVPNRouteType identifies the MVPN NLRI shapes carried under the
// mcast-vpn SAFI (RFC 6514 §4). Only the route types needed to stand up
// an intra-AS multicast VPN tree are modelled in full; the remainder
// round-trip through their opaque Payload (see DESIGN.md).
type MVPNRouteType uint8

const (
	MVPNIntraASADRoute      MVPNRouteType = 1
	MVPNInterASADRoute      MVPNRouteType = 2
	MVPNSourceActiveADRoute MVPNRouteType = 5
	MVPNSharedTreeJoin      MVPNRouteType = 6
	MVPNSourceTreeJoin      MVPNRouteType = 7
)

// MVPN is the sum type over MVPN route types. RD and SourceAS are
// populated for the two well-known AD route types; everything else is
// preserved verbatim in Payload so a speaker that only originates
// Intra-AS AD routes (this one) can still relay routes of shapes it does
// not originate without losing information.
type MVPN struct {
	RouteType MVPNRouteType
	RD        wire.RD
	SourceAS  wire.ASN
	Payload   []byte
}

func (m MVPN) Family() wire.Family { return wire.Family{AFI: wire.AFI_IPV4, SAFI: wire.SAFI_MCAST_VPN} }
func (m MVPN) String() string      { return m.RD.String() }

func (m MVPN) packBody() []byte {
	switch m.RouteType {
	case MVPNIntraASADRoute:
		return m.RD.Pack()
	case MVPNInterASADRoute:
		b := m.RD.Pack()
		return append(b, m.SourceAS.Pack4()...)
	default:
		return m.Payload
	}
}

func (m MVPN) Pack(*negotiated.Negotiated) []byte {
	body := m.packBody()
	return append([]byte{byte(m.RouteType), byte(len(body))}, body...)
}

func (m MVPN) Index() string { return string(m.Pack(nil)) }

func UnpackMVPN(b []byte, offset int) (MVPN, []byte, error) {
	if len(b) < 2 {
		return MVPN{}, nil, badFormat(offset, "truncated mvpn nlri header")
	}
	rt := MVPNRouteType(b[0])
	l := int(b[1])
	if len(b) < 2+l {
		return MVPN{}, nil, badFormat(offset, "truncated mvpn nlri body")
	}
	body := b[2 : 2+l]
	m := MVPN{RouteType: rt}
	switch rt {
	case MVPNIntraASADRoute:
		rd, _, err := wire.UnpackRD(body, offset+2)
		if err != nil {
			return MVPN{}, nil, err
		}
		m.RD = rd
	case MVPNInterASADRoute:
		rd, rest, err := wire.UnpackRD(body, offset+2)
		if err != nil {
			return MVPN{}, nil, err
		}
		m.RD = rd
		if len(rest) >= 4 {
			m.SourceAS = wire.ASN(binary.BigEndian.Uint32(rest))
		}
	default:
		m.Payload = append([]byte(nil), body...)
	}
	return m, b[2+l:], nil
}
