package wire

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// RD is a Route Distinguisher (RFC 4364 §4): always 8 bytes, a 2-byte
// type followed by a type-specific admin/assigned-number pair.
type RDType uint16

const (
	RD_AS2_ADMIN RDType = 0 // 2-byte ASN : 4-byte number
	RD_IPV4_ADMIN RDType = 1 // 4-byte IPv4 : 2-byte number
	RD_AS4_ADMIN RDType = 2 // 4-byte ASN : 2-byte number
)

type RD struct {
	Type   RDType
	ASN    ASN        // valid for AS2_ADMIN, AS4_ADMIN
	IP     netip.Addr // valid for IPV4_ADMIN
	Number uint32     // width depends on Type: 4 bytes for AS2, 2 bytes for IPv4/AS4
}

func (r RD) Pack() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint16(b[0:2], uint16(r.Type))
	switch r.Type {
	case RD_AS2_ADMIN:
		binary.BigEndian.PutUint16(b[2:4], uint16(r.ASN))
		binary.BigEndian.PutUint32(b[4:8], r.Number)
	case RD_IPV4_ADMIN:
		a := r.IP.As4()
		copy(b[2:6], a[:])
		binary.BigEndian.PutUint16(b[6:8], uint16(r.Number))
	case RD_AS4_ADMIN:
		binary.BigEndian.PutUint32(b[2:6], uint32(r.ASN))
		binary.BigEndian.PutUint16(b[6:8], uint16(r.Number))
	}
	return b
}

func UnpackRD(b []byte, offset int) (RD, []byte, error) {
	if err := needBytes(b, 8, offset); err != nil {
		return RD{}, nil, err
	}
	t := RDType(binary.BigEndian.Uint16(b[0:2]))
	var rd RD
	rd.Type = t
	switch t {
	case RD_AS2_ADMIN:
		rd.ASN = ASN(binary.BigEndian.Uint16(b[2:4]))
		rd.Number = binary.BigEndian.Uint32(b[4:8])
	case RD_IPV4_ADMIN:
		var a [4]byte
		copy(a[:], b[2:6])
		rd.IP = netip.AddrFrom4(a)
		rd.Number = uint32(binary.BigEndian.Uint16(b[6:8]))
	case RD_AS4_ADMIN:
		rd.ASN = ASN(binary.BigEndian.Uint32(b[2:6]))
		rd.Number = uint32(binary.BigEndian.Uint16(b[6:8]))
	default:
		return RD{}, nil, badFormat(offset, "unknown RD type %d", t)
	}
	return rd, b[8:], nil
}

func (r RD) String() string {
	switch r.Type {
	case RD_AS2_ADMIN, RD_AS4_ADMIN:
		return fmt.Sprintf("%d:%d", r.ASN, r.Number)
	case RD_IPV4_ADMIN:
		return fmt.Sprintf("%s:%d", r.IP, r.Number)
	default:
		return "invalid-rd"
	}
}
