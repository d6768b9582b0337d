package attr

import "github.com/dc-labs/bgpd/internal/negotiated"

// PrefixSIDTLVType enumerates the BGP Prefix-SID attribute's TLV types
// (draft-ietf-idr-bgp-prefix-sid). Only Label-Index (type 1), used for
// SR-MPLS unicast, is modeled in full; the rest round-trip opaquely.
type PrefixSIDTLVType uint8

const (
	PrefixSIDLabelIndex   PrefixSIDTLVType = 1
	PrefixSIDOriginatorSRGB PrefixSIDTLVType = 3
	PrefixSIDSRv6L3Service PrefixSIDTLVType = 5
	PrefixSIDSRv6L2Service PrefixSIDTLVType = 6
)

type PrefixSIDTLV struct {
	Type  PrefixSIDTLVType
	Value []byte
}

// PrefixSID is the BGP Prefix-SID attribute: a run of TLVs keyed by
// type. LabelIndex, when present, is decoded into LabelIndexValue for
// convenient access; all TLVs (including it) are also kept verbatim in
// TLVs so re-encoding is lossless.
type PrefixSID struct {
	TLVs           []PrefixSIDTLV
	HasLabelIndex  bool
	LabelIndexValue uint32
}

func (PrefixSID) Code() Code   { return CodePrefixSID }
func (PrefixSID) Flags() Flags { return FlagOptional | FlagTransitive }

func (p PrefixSID) PackBody(*negotiated.Negotiated) []byte {
	var out []byte
	for _, t := range p.TLVs {
		out = append(out, byte(t.Type))
		out = append(out, byte(len(t.Value)>>8), byte(len(t.Value)))
		out = append(out, t.Value...)
	}
	return out
}

func unpackPrefixSID(_ Flags, body []byte, offset int) (Attribute, error) {
	var p PrefixSID
	for len(body) > 0 {
		if len(body) < 3 {
			return nil, badFormat(offset, "truncated prefix-sid tlv header")
		}
		typ := PrefixSIDTLVType(body[0])
		l := int(body[1])<<8 | int(body[2])
		if len(body) < 3+l {
			return nil, badFormat(offset, "truncated prefix-sid tlv body")
		}
		val := append([]byte{}, body[3:3+l]...)
		p.TLVs = append(p.TLVs, PrefixSIDTLV{Type: typ, Value: val})
		if typ == PrefixSIDLabelIndex && len(val) >= 7 {
			p.HasLabelIndex = true
			p.LabelIndexValue = be32(val[3:7])
		}
		body = body[3+l:]
	}
	return p, nil
}
