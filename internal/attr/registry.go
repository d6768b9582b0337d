package attr

import (
	"fmt"

	"github.com/dc-labs/bgpd/internal/negotiated"
)

// Code is the IANA BGP Path Attribute type code.
type Code uint8

const (
	CodeOrigin          Code = 1
	CodeASPath          Code = 2
	CodeNextHop         Code = 3
	CodeMED             Code = 4
	CodeLocalPref       Code = 5
	CodeAtomicAggregate Code = 6
	CodeAggregator      Code = 7
	CodeCommunities     Code = 8
	CodeOriginatorID    Code = 9
	CodeClusterList     Code = 10
	CodeMPReachNLRI     Code = 14
	CodeMPUnreachNLRI   Code = 15
	CodeExtCommunities  Code = 16
	CodeAS4Path         Code = 17
	CodeAS4Aggregator   Code = 18
	CodePMSITunnel      Code = 22
	CodeTunnelEncap     Code = 23
	CodeAIGP            Code = 26
	CodeLargeCommunities Code = 32
	CodeBGPLS           Code = 29
	CodePrefixSID       Code = 40
)

// BadFormat mirrors wire/msg's decoder error shape at this layer.
type BadFormat struct {
	Reason string
	Offset int
}

func (e *BadFormat) Error() string { return fmt.Sprintf("bad format at offset %d: %s", e.Offset, e.Reason) }

func badFormat(offset int, format string, args ...any) error {
	return &BadFormat{Reason: fmt.Sprintf(format, args...), Offset: offset}
}

// LengthError marks a decode failure caused by a field whose length
// disagrees with what Negotiated context says it must be (e.g. an
// MP_REACH next hop of the wrong width for its family), so callers can
// map it to NOTIFICATION (3,5) rather than the generic malformed-
// attribute-list subcode every other BadFormat gets (spec §4.2 "Decoders
// must derive expected length from negotiated context and fail (3,5) on
// mismatch").
type LengthError struct {
	*BadFormat
}

func lengthError(offset int, format string, args ...any) error {
	return &LengthError{BadFormat: &BadFormat{Reason: fmt.Sprintf(format, args...), Offset: offset}}
}

// Attribute is the sum-type interface every variant implements. Pack
// receives Negotiated so ASPath can pick its ASN width and MP_REACH can
// pick its nexthop length — unused fields are simply ignored by variants
// that do not need them (Design Notes: WireCodec<Context=Negotiated>).
type Attribute interface {
	Code() Code
	Flags() Flags
	PackBody(n *negotiated.Negotiated) []byte
}

// Decoded wraps one decoded attribute. It carries no flag byte of its
// own; an Unknown attribute keeps the flags it arrived with in its
// RawFlags field.
type Decoded struct {
	Attribute Attribute
}

func packTLV(code Code, flags Flags, body []byte) []byte {
	if len(body) > 255 {
		flags |= FlagExtendedLength
	}
	out := []byte{byte(flags), byte(code)}
	if flags.ExtendedLength() {
		out = append(out, byte(len(body)>>8), byte(len(body)))
	} else {
		out = append(out, byte(len(body)))
	}
	return append(out, body...)
}

// Pack renders a complete attribute TLV (flags, code, length, body).
func Pack(n *negotiated.Negotiated, a Attribute) []byte {
	return packTLV(a.Code(), a.Flags(), a.PackBody(n))
}

// canonicalOrder is the emission order prescribed by spec §4.2: Origin,
// ASPath, NextHop, MED, LocalPref, AtomicAggregate, Aggregator,
// Communities, OriginatorID, ClusterList, MP_REACH, MP_UNREACH,
// Extended/Large Communities, PMSI, AIGP, BGP-LS, PrefixSID, then
// Unknown attributes in the order they were decoded.
var canonicalOrder = []Code{
	CodeOrigin, CodeASPath, CodeNextHop, CodeMED, CodeLocalPref,
	CodeAtomicAggregate, CodeAggregator, CodeCommunities, CodeOriginatorID,
	CodeClusterList, CodeMPReachNLRI, CodeMPUnreachNLRI, CodeExtCommunities,
	CodeLargeCommunities, CodePMSITunnel, CodeAIGP, CodeBGPLS, CodePrefixSID,
}

// PackSet renders attrs in canonical order, appending any attribute codes
// absent from canonicalOrder (Unknown, AS4Path, AS4Aggregator, TunnelEncap)
// in the order given.
func PackSet(n *negotiated.Negotiated, attrs []Attribute) []byte {
	byCode := map[Code][]Attribute{}
	var extra []Attribute
	known := map[Code]bool{}
	for _, c := range canonicalOrder {
		known[c] = true
	}
	for _, a := range attrs {
		if known[a.Code()] {
			byCode[a.Code()] = append(byCode[a.Code()], a)
		} else {
			extra = append(extra, a)
		}
	}
	var out []byte
	for _, c := range canonicalOrder {
		for _, a := range byCode[c] {
			out = append(out, Pack(n, a)...)
		}
	}
	for _, a := range extra {
		out = append(out, Pack(n, a)...)
	}
	return out
}

// UnpackSet decodes a whole path-attribute section. Duplicate well-known
// attribute codes are a fatal UPDATE Malformed Attribute List error
// (spec §4.2); unknown optional-transitive attributes received without
// Partial set are re-marked Partial for re-advertisement ("treat-as-partial").
func UnpackSet(n *negotiated.Negotiated, b []byte, offset int) ([]Attribute, error) {
	var out []Attribute
	seen := map[Code]bool{}
	off := offset
	for len(b) > 0 {
		if len(b) < 3 {
			return nil, badFormat(off, "truncated attribute header")
		}
		flags := Flags(b[0])
		code := Code(b[1])
		var length int
		var body []byte
		if flags.ExtendedLength() {
			if len(b) < 4 {
				return nil, badFormat(off, "truncated extended-length attribute header")
			}
			length = int(b[2])<<8 | int(b[3])
			body = b[4:]
		} else {
			length = int(b[2])
			body = b[3:]
		}
		if len(body) < length {
			return nil, badFormat(off, "truncated attribute body for code %d", code)
		}
		payload := body[:length]

		if isWellKnown(code) {
			if seen[code] {
				return nil, badFormat(off, "duplicate well-known attribute %d", code)
			}
			seen[code] = true
		}

		a, err := decodeOne(n, code, flags, payload, off)
		if err != nil {
			return nil, err
		}
		out = append(out, a)

		consumed := len(b) - len(body[length:])
		off += consumed
		b = body[length:]
	}
	return out, nil
}

func isWellKnown(c Code) bool {
	switch c {
	case CodeOrigin, CodeASPath, CodeNextHop, CodeLocalPref, CodeAtomicAggregate:
		return true
	default:
		return false
	}
}

func decodeOne(n *negotiated.Negotiated, code Code, flags Flags, body []byte, offset int) (Attribute, error) {
	switch code {
	case CodeOrigin:
		return unpackOrigin(flags, body, offset)
	case CodeASPath:
		return unpackASPath(n, flags, body, offset)
	case CodeAS4Path:
		return unpackAS4Path(flags, body, offset)
	case CodeNextHop:
		return unpackNextHop(flags, body, offset)
	case CodeMED:
		return unpackMED(flags, body, offset)
	case CodeLocalPref:
		return unpackLocalPref(flags, body, offset)
	case CodeAtomicAggregate:
		return unpackAtomicAggregate(flags, body, offset)
	case CodeAggregator:
		return unpackAggregator(n, flags, body, offset)
	case CodeAS4Aggregator:
		return unpackAS4Aggregator(flags, body, offset)
	case CodeCommunities:
		return unpackCommunities(flags, body, offset)
	case CodeExtCommunities:
		return unpackExtCommunities(flags, body, offset)
	case CodeLargeCommunities:
		return unpackLargeCommunities(flags, body, offset)
	case CodeOriginatorID:
		return unpackOriginatorID(flags, body, offset)
	case CodeClusterList:
		return unpackClusterList(flags, body, offset)
	case CodeMPReachNLRI:
		return unpackMPReach(n, flags, body, offset)
	case CodeMPUnreachNLRI:
		return unpackMPUnreach(n, flags, body, offset)
	case CodePMSITunnel:
		return unpackPMSI(flags, body, offset)
	case CodeAIGP:
		return unpackAIGP(flags, body, offset)
	case CodeBGPLS:
		return unpackBGPLSAttr(flags, body, offset)
	case CodePrefixSID:
		return unpackPrefixSID(flags, body, offset)
	default:
		return unpackUnknown(code, flags, body)
	}
}
