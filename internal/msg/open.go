package msg

import "github.com/dc-labs/bgpd/internal/wire"

const (
	optParamCapability = 2
	extendedMarker     = 0xff
)

// Open is the OPEN message (spec §4.1): version is always 4, ASN is the
// 2-byte field (AS_TRANS when the real ASN needs 4 bytes and the
// capability carries the true value), and Capabilities is the full list
// this speaker advertises or received.
type Open struct {
	Version      uint8
	ASN          wire.ASN
	HoldTime     uint16
	RouterID     uint32
	Capabilities []Capability
}

// Pack renders the OPEN message, choosing RFC 9072 extended parameters
// when the packed capability list would otherwise exceed 255 bytes.
func (o Open) Pack() []byte {
	var caps []byte
	for _, c := range o.Capabilities {
		caps = append(caps, c.Pack()...)
	}
	// Every capability is wrapped individually in an optional-parameter
	// TLV of type 2, matching how reference implementations emit one
	// parameter per capability rather than batching them.
	var params []byte
	for _, c := range o.Capabilities {
		cb := c.Pack()
		params = append(params, optParamCapability, byte(len(cb)))
		params = append(params, cb...)
	}

	body := make([]byte, 0, 10+len(params)+4)
	body = append(body, o.Version)
	body = append(body, o.ASN.Pack2()...)
	body = append(body, byte(o.HoldTime>>8), byte(o.HoldTime))
	body = append(body, byte(o.RouterID>>24), byte(o.RouterID>>16), byte(o.RouterID>>8), byte(o.RouterID))

	if len(params) > 255 {
		// The extended form gives every parameter a 2-byte length.
		var ext []byte
		for _, c := range o.Capabilities {
			cb := c.Pack()
			ext = append(ext, optParamCapability, byte(len(cb)>>8), byte(len(cb)))
			ext = append(ext, cb...)
		}
		body = append(body, extendedMarker, extendedMarker)
		body = append(body, byte(len(ext)>>8), byte(len(ext)))
		body = append(body, ext...)
	} else {
		body = append(body, byte(len(params)))
		body = append(body, params...)
	}
	return append(PackHeader(TypeOpen, len(body)), body...)
}

func UnpackOpen(body []byte, offset int) (Open, error) {
	if len(body) < 10 {
		return Open{}, badFormat(offset, "truncated open message")
	}
	var o Open
	o.Version = body[0]
	asn, err := wire.UnpackASN2(body[1:], offset+1)
	if err != nil {
		return Open{}, err
	}
	o.ASN = asn
	o.HoldTime = uint16(body[3])<<8 | uint16(body[4])
	o.RouterID = uint32(body[5])<<24 | uint32(body[6])<<16 | uint32(body[7])<<8 | uint32(body[8])

	paramLen := int(body[9])
	rest := body[10:]
	off := offset + 10

	if paramLen == extendedMarker && len(rest) >= 1 && rest[0] == extendedMarker {
		// RFC 9072: option_len==0xFF and the first parameter's type byte
		// is also 0xFF signals the extended form: a 2-byte total length
		// follows, then parameters, each with a 1-byte type and a 2-byte
		// length, fill it.
		if len(rest) < 3 {
			return Open{}, badFormat(off, "truncated extended-parameters header")
		}
		extLen := int(rest[1])<<8 | int(rest[2])
		rest = rest[3:]
		off += 3
		if len(rest) < extLen {
			return Open{}, badFormat(off, "truncated extended parameters")
		}
		caps, err := unpackParams(rest[:extLen], off, true)
		if err != nil {
			return Open{}, err
		}
		o.Capabilities = caps
		return o, nil
	}

	if len(rest) < paramLen {
		return Open{}, badFormat(off, "truncated optional parameters")
	}
	caps, err := unpackParams(rest[:paramLen], off, false)
	if err != nil {
		return Open{}, err
	}
	o.Capabilities = caps
	return o, nil
}

func unpackParams(b []byte, offset int, extended bool) ([]Capability, error) {
	var caps []Capability
	off := offset
	for len(b) > 0 {
		var typ byte
		var l int
		var body []byte
		if extended {
			if len(b) < 3 {
				return nil, badFormat(off, "truncated extended optional parameter header")
			}
			typ = b[0]
			l = int(b[1])<<8 | int(b[2])
			body = b[3:]
			off += 3
		} else {
			if len(b) < 2 {
				return nil, badFormat(off, "truncated optional parameter header")
			}
			typ = b[0]
			l = int(b[1])
			body = b[2:]
			off += 2
		}
		if len(body) < l {
			return nil, badFormat(off, "truncated optional parameter body")
		}
		if typ == optParamCapability {
			cs, err := UnpackCapabilities(body[:l], off)
			if err != nil {
				return nil, err
			}
			caps = append(caps, cs...)
		}
		off += l
		b = body[l:]
	}
	return caps, nil
}
