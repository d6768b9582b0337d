package nlri

import (
	"encoding/binary"

	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// RTConstraint is an RT-Constraint NLRI (RFC 4684 §4): an origin ASN and
// an 8-byte extended-community value, under a combined bit-length prefix.
type RTConstraint struct {
	OriginAS wire.ASN
	RT       [8]byte
	Bits     int // 0 means the "default route" wildcard form
}

func (r RTConstraint) Family() wire.Family {
	return wire.Family{AFI: wire.AFI_IPV4, SAFI: wire.SAFI_RT_CONSTRAINT}
}
func (r RTConstraint) String() string { return "rt-constraint" }

func (r RTConstraint) Pack(*negotiated.Negotiated) []byte {
	if r.Bits == 0 {
		return []byte{0}
	}
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, uint32(r.OriginAS))
	body = append(body, r.RT[:]...)
	n := (r.Bits + 7) / 8
	return append([]byte{byte(r.Bits)}, body[:n]...)
}

func (r RTConstraint) Index() string { return string(r.Pack(nil)) }

func UnpackRTConstraint(b []byte, offset int) (RTConstraint, []byte, error) {
	if len(b) < 1 {
		return RTConstraint{}, nil, badFormat(offset, "truncated rt-constraint nlri")
	}
	bits := int(b[0])
	if bits == 0 {
		return RTConstraint{Bits: 0}, b[1:], nil
	}
	n := (bits + 7) / 8
	if len(b) < 1+n {
		return RTConstraint{}, nil, badFormat(offset, "truncated rt-constraint body")
	}
	buf := make([]byte, 12)
	copy(buf, b[1:1+n])
	return RTConstraint{
		OriginAS: wire.ASN(binary.BigEndian.Uint32(buf[0:4])),
		RT:       [8]byte(buf[4:12]),
		Bits:     bits,
	}, b[1+n:], nil
}

// MUPRouteType identifies the four MUP NLRI shapes (draft-mpmz-bess-mup-safi).
type MUPRouteType uint8

const (
	MUPInterworkSegmentDiscovery MUPRouteType = 1 // ISD
	MUPDirect                    MUPRouteType = 2
	MUPType1SessionTransformed   MUPRouteType = 3 // T1ST
	MUPType2SessionTransformed   MUPRouteType = 4 // T2ST
)

// MUP is the sum type over the MUP (Mobile User Plane) NLRI shapes. The
// architecture-specific TEID/QFI payload is kept opaque (Payload) since
// spec.md lists MUP only as a family to plumb through the codec matrix,
// not a feature this speaker originates.
type MUP struct {
	RouteType MUPRouteType
	RD        wire.RD
	AFI       wire.AFI
	Payload   []byte
}

func (m MUP) Family() wire.Family { return wire.Family{AFI: m.AFI, SAFI: wire.SAFI_MUP} }
func (m MUP) String() string      { return "mup" }

func (m MUP) Pack(*negotiated.Negotiated) []byte {
	body := append(append([]byte(nil), m.RD.Pack()...), m.Payload...)
	archType := uint16(1) // 3GPP-5G, the only architecture this speaker plumbs
	out := make([]byte, 4)
	out[0] = byte(archType >> 8)
	out[1] = byte(archType)
	out[2] = byte(m.RouteType)
	out[3] = byte(len(body))
	return append(out, body...)
}

func (m MUP) Index() string { return string(m.Pack(nil)) }

func UnpackMUP(afi wire.AFI, b []byte, offset int) (MUP, []byte, error) {
	if len(b) < 4 {
		return MUP{}, nil, badFormat(offset, "truncated mup nlri header")
	}
	rt := MUPRouteType(b[2])
	l := int(b[3])
	if len(b) < 4+l {
		return MUP{}, nil, badFormat(offset, "truncated mup nlri body")
	}
	body := b[4 : 4+l]
	rest := b[4+l:]
	m := MUP{RouteType: rt, AFI: afi}
	if len(body) >= 8 {
		rd, tail, err := wire.UnpackRD(body, offset+4)
		if err == nil {
			m.RD = rd
			m.Payload = append([]byte(nil), tail...)
		} else {
			m.Payload = append([]byte(nil), body...)
		}
	} else {
		m.Payload = append([]byte(nil), body...)
	}
	return m, rest, nil
}
