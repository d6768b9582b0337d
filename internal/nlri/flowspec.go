package nlri

import (
	"sort"

	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// FlowComponentType is the FlowSpec component type code (RFC 5575/8955
// §4, RFC 7674 for the VPN variant's leading RD).
type FlowComponentType uint8

const (
	FlowDestPrefix  FlowComponentType = 1
	FlowSrcPrefix   FlowComponentType = 2
	FlowIPProto     FlowComponentType = 3
	FlowPort        FlowComponentType = 4
	FlowDestPort    FlowComponentType = 5
	FlowSrcPort     FlowComponentType = 6
	FlowICMPType    FlowComponentType = 7
	FlowICMPCode    FlowComponentType = 8
	FlowTCPFlags    FlowComponentType = 9
	FlowPacketLen   FlowComponentType = 10
	FlowDSCP        FlowComponentType = 11
	FlowFragment    FlowComponentType = 12
)

// Numeric operator bits for a FlowComponent's Ops (RFC 8955 §4.2.1):
// the low three bits select the comparison, "and" chains this op with
// the next one instead of "or"-ing it.
const (
	FlowOpEQ  byte = 0x01
	FlowOpGT  byte = 0x02
	FlowOpLT  byte = 0x04
	FlowOpAnd byte = 0x40
)

// FlowComponent is one typed, variable-length operator/value run within a
// FlowSpec NLRI. Prefix-shaped components (dest/src) use CIDR; all other
// components use a numeric-operator encoding (op byte, value bytes)*.
type FlowComponent struct {
	Type   FlowComponentType
	Prefix wire.CIDR // for FlowDestPrefix / FlowSrcPrefix
	Ops    []NumericOp
}

// NumericOp is one (operator, value) pair of a numeric/bitmask FlowSpec
// component run (RFC 8955 §4.2/§4.3).
type NumericOp struct {
	Op    byte
	Value uint64
	Len   int // value length in bytes: 1, 2, 4 or 8
}

func (o NumericOp) pack(last bool) []byte {
	lenBits := map[int]byte{1: 0, 2: 1, 4: 2, 8: 3}[o.Len]
	op := o.Op | (lenBits << 4)
	if last {
		op |= 0x80
	}
	out := []byte{op}
	switch o.Len {
	case 1:
		out = append(out, byte(o.Value))
	case 2:
		out = append(out, byte(o.Value>>8), byte(o.Value))
	case 4:
		out = append(out, byte(o.Value>>24), byte(o.Value>>16), byte(o.Value>>8), byte(o.Value))
	case 8:
		out = append(out, u64(o.Value)...)
	}
	return out
}

func u64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func packOps(ops []NumericOp) []byte {
	var out []byte
	for i, op := range ops {
		out = append(out, op.pack(i == len(ops)-1)...)
	}
	return out
}

func (c FlowComponent) pack() []byte {
	switch c.Type {
	case FlowDestPrefix, FlowSrcPrefix:
		return append([]byte{byte(c.Type)}, c.Prefix.Pack()...)
	default:
		return append([]byte{byte(c.Type)}, packOps(c.Ops)...)
	}
}

// FlowSpec is a FlowSpec NLRI: a canonically (type-code ascending)
// ordered sequence of components, optionally preceded by an RD for the
// VPN SAFI.
type FlowSpec struct {
	RD         wire.RD
	HasRD      bool
	Components []FlowComponent
	AFI        wire.AFI
}

func (f FlowSpec) canonical() []FlowComponent {
	out := append([]FlowComponent(nil), f.Components...)
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

func (f FlowSpec) Pack(*negotiated.Negotiated) []byte {
	var body []byte
	if f.HasRD {
		body = append(body, f.RD.Pack()...)
	}
	for _, c := range f.canonical() {
		body = append(body, c.pack()...)
	}
	out := flowSpecLengthPrefix(len(body))
	return append(out, body...)
}

// flowSpecLengthPrefix implements RFC 8955 §4's length encoding: one
// byte if <240, else a 2-byte form with the top nibble set to 0xF.
func flowSpecLengthPrefix(n int) []byte {
	if n < 240 {
		return []byte{byte(n)}
	}
	return []byte{0xF0 | byte(n>>8), byte(n)}
}

func (f FlowSpec) Index() string { return string(f.Pack(nil)) }
func (f FlowSpec) Family() wire.Family {
	safi := wire.SAFI_FLOWSPEC
	if f.HasRD {
		safi = wire.SAFI_FLOWSPEC_VPN
	}
	return wire.Family{AFI: f.AFI, SAFI: safi}
}
func (f FlowSpec) String() string { return "flow" }

// UnpackFlowSpec reads the length-prefixed component run; vpn indicates
// the FlowSpec-VPN SAFI, whose NLRI begins with an RD.
func UnpackFlowSpec(afi wire.AFI, vpn bool, b []byte, offset int) (FlowSpec, []byte, error) {
	if len(b) < 1 {
		return FlowSpec{}, nil, badFormat(offset, "truncated flowspec length")
	}
	var length int
	var body []byte
	if b[0]&0xF0 == 0xF0 {
		if len(b) < 2 {
			return FlowSpec{}, nil, badFormat(offset, "truncated extended flowspec length")
		}
		length = int(b[0]&0x0F)<<8 | int(b[1])
		body = b[2:]
	} else {
		length = int(b[0])
		body = b[1:]
	}
	if len(body) < length {
		return FlowSpec{}, nil, badFormat(offset, "truncated flowspec body")
	}
	rest := body[length:]
	body = body[:length]

	f := FlowSpec{AFI: afi, HasRD: vpn}
	var err error
	if vpn {
		f.RD, body, err = wire.UnpackRD(body, offset)
		if err != nil {
			return FlowSpec{}, nil, err
		}
	}
	for len(body) > 0 {
		t := FlowComponentType(body[0])
		body = body[1:]
		switch t {
		case FlowDestPrefix, FlowSrcPrefix:
			var cidr wire.CIDR
			cidr, body, err = wire.UnpackCIDR(afi, body, offset)
			if err != nil {
				return FlowSpec{}, nil, err
			}
			f.Components = append(f.Components, FlowComponent{Type: t, Prefix: cidr})
		default:
			var ops []NumericOp
			ops, body, err = unpackOps(body, offset)
			if err != nil {
				return FlowSpec{}, nil, err
			}
			f.Components = append(f.Components, FlowComponent{Type: t, Ops: ops})
		}
	}
	return f, rest, nil
}

func unpackOps(b []byte, offset int) ([]NumericOp, []byte, error) {
	var out []NumericOp
	for {
		if len(b) < 1 {
			return nil, nil, badFormat(offset, "truncated flowspec operator")
		}
		op := b[0]
		n := 1 << ((op >> 4) & 0x3)
		b = b[1:]
		if len(b) < n {
			return nil, nil, badFormat(offset, "truncated flowspec operand")
		}
		var v uint64
		for i := 0; i < n; i++ {
			v = v<<8 | uint64(b[i])
		}
		b = b[n:]
		out = append(out, NumericOp{Op: op & 0x8F, Value: v, Len: n})
		if op&0x80 != 0 {
			break
		}
	}
	return out, b, nil
}
