package nlri

import (
	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// BGPLSNLRIType identifies the four BGP-LS NLRI shapes (RFC 7752 §3.2).
type BGPLSNLRIType uint16

const (
	BGPLSNode     BGPLSNLRIType = 1
	BGPLSLink     BGPLSNLRIType = 2
	BGPLSIPv4Prefix BGPLSNLRIType = 3
	BGPLSIPv6Prefix BGPLSNLRIType = 4
	BGPLSSRv6SID    BGPLSNLRIType = 6
)

// TLV is a generic (type, value) pair used to represent BGP-LS
// descriptors and sub-TLVs without enumerating every draft/registry
// entry (Design Notes: tagged enum for known codes, opaque fallback for
// the rest). Descriptors round-trip byte-exact even for types this
// speaker never originates.
type TLV struct {
	Type  uint16
	Value []byte
}

func (t TLV) pack() []byte {
	out := make([]byte, 4)
	out[0] = byte(t.Type >> 8)
	out[1] = byte(t.Type)
	out[2] = byte(len(t.Value) >> 8)
	out[3] = byte(len(t.Value))
	return append(out, t.Value...)
}

func unpackTLV(b []byte, offset int) (TLV, []byte, error) {
	if len(b) < 4 {
		return TLV{}, nil, badFormat(offset, "truncated bgp-ls tlv header")
	}
	typ := uint16(b[0])<<8 | uint16(b[1])
	l := int(b[2])<<8 | int(b[3])
	if len(b) < 4+l {
		return TLV{}, nil, badFormat(offset, "truncated bgp-ls tlv value")
	}
	return TLV{Type: typ, Value: append([]byte(nil), b[4:4+l]...)}, b[4+l:], nil
}

// BGPLS is the sum type over Node/Link/Prefix/SRv6SID NLRI, each a
// protocol-ID + identifier header followed by a descriptor TLV run.
type BGPLS struct {
	NLRIType   BGPLSNLRIType
	ProtocolID uint8
	Identifier uint64
	Descriptors []TLV
}

func (l BGPLS) Family() wire.Family { return wire.Family{AFI: wire.AFI_BGPLS, SAFI: wire.SAFI_BGPLS} }
func (l BGPLS) String() string      { return "bgp-ls" }

func (l BGPLS) Pack(*negotiated.Negotiated) []byte {
	header := make([]byte, 9)
	header[0] = l.ProtocolID
	for i := 0; i < 8; i++ {
		header[1+i] = byte(l.Identifier >> (56 - 8*i))
	}
	body := header
	for _, d := range l.Descriptors {
		body = append(body, d.pack()...)
	}
	out := make([]byte, 4)
	out[0] = byte(l.NLRIType >> 8)
	out[1] = byte(l.NLRIType)
	out[2] = byte(len(body) >> 8)
	out[3] = byte(len(body))
	return append(out, body...)
}

func (l BGPLS) Index() string { return string(l.Pack(nil)) }

func UnpackBGPLS(b []byte, offset int) (BGPLS, []byte, error) {
	if len(b) < 4 {
		return BGPLS{}, nil, badFormat(offset, "truncated bgp-ls nlri header")
	}
	typ := BGPLSNLRIType(uint16(b[0])<<8 | uint16(b[1]))
	l := int(b[2])<<8 | int(b[3])
	if len(b) < 4+l {
		return BGPLS{}, nil, badFormat(offset, "truncated bgp-ls nlri body")
	}
	body := b[4 : 4+l]
	rest := b[4+l:]
	if len(body) < 9 {
		return BGPLS{}, nil, badFormat(offset, "truncated bgp-ls identifier header")
	}
	out := BGPLS{NLRIType: typ, ProtocolID: body[0]}
	var ident uint64
	for i := 0; i < 8; i++ {
		ident = ident<<8 | uint64(body[1+i])
	}
	out.Identifier = ident
	body = body[9:]
	for len(body) > 0 {
		var tlv TLV
		var err error
		tlv, body, err = unpackTLV(body, offset)
		if err != nil {
			return BGPLS{}, nil, err
		}
		out.Descriptors = append(out.Descriptors, tlv)
	}
	return out, rest, nil
}
