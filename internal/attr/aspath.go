package attr

import (
	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// SegmentType distinguishes the four AS_PATH segment shapes (spec §3).
type SegmentType uint8

const (
	SegSet          SegmentType = 1
	SegSequence     SegmentType = 2
	SegConfedSet    SegmentType = 3
	SegConfedSequence SegmentType = 4
)

// Segment is one run of up to 255 ASNs of a single SegmentType — the
// per-segment length cap is a spec §3 invariant, enforced on encode.
type Segment struct {
	Type SegmentType
	ASNs []wire.ASN
}

// ASPath carries the sequence of segments, always logically 4-byte wide;
// the encoder narrows to 2 bytes (with AS_TRANS) only when Negotiated
// says the peer lacks ASN4.
type ASPath struct {
	Segments []Segment
}

func (ASPath) Code() Code   { return CodeASPath }
func (ASPath) Flags() Flags { return FlagTransitive }

func (p ASPath) PackBody(n *negotiated.Negotiated) []byte {
	wide := n == nil || n.ASN4
	var out []byte
	for _, seg := range p.Segments {
		asns := seg.ASNs
		for len(asns) > 0 {
			chunk := asns
			if len(chunk) > 255 {
				chunk = chunk[:255]
			}
			out = append(out, byte(seg.Type), byte(len(chunk)))
			for _, a := range chunk {
				if wide {
					out = append(out, a.Pack4()...)
				} else {
					out = append(out, a.Pack2()...)
				}
			}
			asns = asns[len(chunk):]
		}
	}
	return out
}

func unpackASPath(n *negotiated.Negotiated, _ Flags, body []byte, offset int) (Attribute, error) {
	width := 4
	if n != nil && !n.ASN4 {
		width = 2
	}
	segs, err := unpackSegments(body, width, offset)
	if err != nil {
		return nil, err
	}
	return ASPath{Segments: segs}, nil
}

func unpackSegments(body []byte, width int, offset int) ([]Segment, error) {
	var segs []Segment
	for len(body) > 0 {
		if len(body) < 2 {
			return nil, badFormat(offset, "truncated as-path segment header")
		}
		t := SegmentType(body[0])
		count := int(body[1])
		body = body[2:]
		need := count * width
		if len(body) < need {
			return nil, badFormat(offset, "truncated as-path segment body")
		}
		var asns []wire.ASN
		for i := 0; i < count; i++ {
			var a wire.ASN
			var err error
			if width == 4 {
				a, err = wire.UnpackASN4(body[i*4:], offset)
			} else {
				a, err = wire.UnpackASN2(body[i*2:], offset)
			}
			if err != nil {
				return nil, err
			}
			asns = append(asns, a)
		}
		segs = append(segs, Segment{Type: t, ASNs: asns})
		body = body[need:]
	}
	return segs, nil
}

// AS4Path is RFC 6793's compatibility attribute: the 4-byte AS_PATH a
// non-ASN4 speaker attaches alongside its 2-byte ASPath (with AS_TRANS).
type AS4Path struct {
	Segments []Segment
}

func (AS4Path) Code() Code   { return CodeAS4Path }
func (AS4Path) Flags() Flags { return FlagOptional | FlagTransitive }

func (p AS4Path) PackBody(*negotiated.Negotiated) []byte {
	var out []byte
	for _, seg := range p.Segments {
		asns := seg.ASNs
		for len(asns) > 0 {
			chunk := asns
			if len(chunk) > 255 {
				chunk = chunk[:255]
			}
			out = append(out, byte(seg.Type), byte(len(chunk)))
			for _, a := range chunk {
				out = append(out, a.Pack4()...)
			}
			asns = asns[len(chunk):]
		}
	}
	return out
}

func unpackAS4Path(_ Flags, body []byte, offset int) (Attribute, error) {
	segs, err := unpackSegments(body, 4, offset)
	if err != nil {
		return nil, err
	}
	return AS4Path{Segments: segs}, nil
}

// MergeAS4Path implements RFC 6793 §4.2.3: when a 2-byte ASPath arrives
// from an ASN4-capable peer alongside an AS4_PATH, the 4-byte
// representation overrides the trailing segments of the 2-byte one. An
// AS4_PATH carrying more ASNs than the AS_PATH is ignored.
func MergeAS4Path(asPath ASPath, as4 AS4Path) ASPath {
	if len(as4.Segments) == 0 {
		return asPath
	}
	total2 := countASNs(asPath.Segments)
	total4 := countASNs(as4.Segments)
	if total4 > total2 {
		return asPath
	}
	keep := total2 - total4
	merged := takeASNs(asPath.Segments, keep)
	merged = append(merged, as4.Segments...)
	return ASPath{Segments: merged}
}

func countASNs(segs []Segment) int {
	n := 0
	for _, s := range segs {
		n += len(s.ASNs)
	}
	return n
}

func takeASNs(segs []Segment, n int) []Segment {
	var out []Segment
	for _, s := range segs {
		if n <= 0 {
			break
		}
		if len(s.ASNs) <= n {
			out = append(out, s)
			n -= len(s.ASNs)
			continue
		}
		out = append(out, Segment{Type: s.Type, ASNs: s.ASNs[:n]})
		n = 0
	}
	return out
}

// Aggregator/AS4Aggregator

type Aggregator struct {
	ASN     wire.ASN
	Address [4]byte
}

func (Aggregator) Code() Code   { return CodeAggregator }
func (Aggregator) Flags() Flags { return FlagOptional | FlagTransitive }

func (a Aggregator) PackBody(n *negotiated.Negotiated) []byte {
	var out []byte
	if n == nil || n.ASN4 {
		out = append(out, a.ASN.Pack4()...)
	} else {
		out = append(out, a.ASN.Pack2()...)
	}
	return append(out, a.Address[:]...)
}

func unpackAggregator(n *negotiated.Negotiated, _ Flags, body []byte, offset int) (Attribute, error) {
	width := 4
	if n != nil && !n.ASN4 {
		width = 2
	}
	if len(body) != width+4 {
		return nil, badFormat(offset, "aggregator attribute has unexpected length")
	}
	var asn wire.ASN
	var err error
	if width == 4 {
		asn, err = wire.UnpackASN4(body, offset)
	} else {
		asn, err = wire.UnpackASN2(body, offset)
	}
	if err != nil {
		return nil, err
	}
	var a [4]byte
	copy(a[:], body[width:])
	return Aggregator{ASN: asn, Address: a}, nil
}

type AS4Aggregator struct {
	ASN     wire.ASN
	Address [4]byte
}

func (AS4Aggregator) Code() Code   { return CodeAS4Aggregator }
func (AS4Aggregator) Flags() Flags { return FlagOptional | FlagTransitive }

func (a AS4Aggregator) PackBody(*negotiated.Negotiated) []byte {
	return append(a.ASN.Pack4(), a.Address[:]...)
}

func unpackAS4Aggregator(_ Flags, body []byte, offset int) (Attribute, error) {
	if len(body) != 8 {
		return nil, badFormat(offset, "as4-aggregator attribute must be 8 bytes")
	}
	asn, err := wire.UnpackASN4(body, offset)
	if err != nil {
		return nil, err
	}
	var a [4]byte
	copy(a[:], body[4:])
	return AS4Aggregator{ASN: asn, Address: a}, nil
}
