package msg

import (
	"encoding/binary"

	"github.com/dc-labs/bgpd/internal/wire"
)

// CapabilityCode is the IANA BGP Capability Code (RFC 5492).
type CapabilityCode uint8

const (
	CapMultiprotocol     CapabilityCode = 1
	CapRouteRefresh      CapabilityCode = 2
	CapExtendedMessage   CapabilityCode = 6
	CapGracefulRestart    CapabilityCode = 64
	CapASN4              CapabilityCode = 65
	CapAddPath            CapabilityCode = 69
	CapEnhancedRefresh    CapabilityCode = 70
	CapLLGR               CapabilityCode = 71
	CapFQDN                CapabilityCode = 73
	CapMultipleLabels      CapabilityCode = 74
	CapHostName            CapabilityCode = 75
	CapRouteRefreshCisco  CapabilityCode = 128
)

// GRFamily is one (AFI,SAFI,flags) entry inside a Graceful Restart
// capability.
type GRFamily struct {
	Family   wire.Family
	Forwarding bool
}

// AddPathFamily is one (AFI,SAFI,direction) entry inside an ADD-PATH
// capability.
type AddPathFamily struct {
	Family    wire.Family
	Send      bool
	Receive   bool
}

// Capability is the sum type described in spec §3. Unknown codes
// round-trip their raw bytes rather than being dropped.
type Capability struct {
	Code CapabilityCode

	// Multiprotocol
	MPFamily wire.Family

	// GracefulRestart
	GRRestartFlag bool
	GRStaleTime   uint16
	GRFamilies    []GRFamily

	// ASN4
	ASN4 wire.ASN

	// AddPath
	AddPathFamilies []AddPathFamily

	// FQDN
	HostName   string
	DomainName string

	// Unknown
	UnknownCode  uint8
	UnknownBytes []byte
}

func (c Capability) key() uint32 {
	// Multiprotocol capabilities may legally repeat once per family;
	// a repeat of any other code (AddPath included) is fatal, so the
	// dedup key folds the full AFI and SAFI in for Multiprotocol only.
	switch c.Code {
	case CapMultiprotocol:
		return uint32(c.Code)<<24 | uint32(c.MPFamily.AFI)<<8 | uint32(c.MPFamily.SAFI)
	default:
		return uint32(c.Code) << 24
	}
}

func (c Capability) Pack() []byte {
	var body []byte
	switch c.Code {
	case CapMultiprotocol:
		body = make([]byte, 4)
		binary.BigEndian.PutUint16(body[0:2], uint16(c.MPFamily.AFI))
		body[2] = 0
		body[3] = byte(c.MPFamily.SAFI)
	case CapRouteRefresh, CapEnhancedRefresh, CapExtendedMessage, CapLLGR:
		body = nil
	case CapGracefulRestart:
		body = make([]byte, 2)
		flags := uint16(0)
		if c.GRRestartFlag {
			flags |= 0x8000
		}
		binary.BigEndian.PutUint16(body, flags|(c.GRStaleTime&0x0FFF))
		for _, f := range c.GRFamilies {
			entry := make([]byte, 4)
			binary.BigEndian.PutUint16(entry[0:2], uint16(f.Family.AFI))
			entry[2] = byte(f.Family.SAFI)
			if f.Forwarding {
				entry[3] = 0x80
			}
			body = append(body, entry...)
		}
	case CapASN4:
		body = c.ASN4.Pack4()
	case CapAddPath:
		for _, f := range c.AddPathFamilies {
			entry := make([]byte, 4)
			binary.BigEndian.PutUint16(entry[0:2], uint16(f.Family.AFI))
			entry[2] = byte(f.Family.SAFI)
			var dir byte
			if f.Send {
				dir |= 1
			}
			if f.Receive {
				dir |= 2
			}
			entry[3] = dir
			body = append(body, entry...)
		}
	case CapFQDN:
		body = append(body, byte(len(c.HostName)))
		body = append(body, []byte(c.HostName)...)
		body = append(body, byte(len(c.DomainName)))
		body = append(body, []byte(c.DomainName)...)
	case CapMultipleLabels, CapHostName:
		body = c.UnknownBytes
	default:
		body = c.UnknownBytes
	}

	out := []byte{byte(c.Code), byte(len(body))}
	return append(out, body...)
}

// UnpackCapabilities reads a sequence of TLV capabilities until b is
// exhausted.
func UnpackCapabilities(b []byte, offset int) ([]Capability, error) {
	var out []Capability
	off := offset
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, badFormat(off, "truncated capability header")
		}
		code := CapabilityCode(b[0])
		l := int(b[1])
		if len(b) < 2+l {
			return nil, badFormat(off, "truncated capability body")
		}
		body := b[2 : 2+l]
		c, err := unpackCapability(code, body, off+2)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		b = b[2+l:]
		off += 2 + l
	}
	return out, nil
}

func unpackCapability(code CapabilityCode, body []byte, offset int) (Capability, error) {
	c := Capability{Code: code}
	switch code {
	case CapMultiprotocol:
		if len(body) != 4 {
			return c, badFormat(offset, "multiprotocol capability must be 4 bytes")
		}
		c.MPFamily = wire.Family{AFI: wire.AFI(binary.BigEndian.Uint16(body[0:2])), SAFI: wire.SAFI(body[3])}
	case CapRouteRefresh, CapEnhancedRefresh, CapExtendedMessage, CapLLGR:
		// no body
	case CapGracefulRestart:
		if len(body) < 2 {
			return c, badFormat(offset, "graceful restart capability too short")
		}
		flags := binary.BigEndian.Uint16(body[0:2])
		c.GRRestartFlag = flags&0x8000 != 0
		c.GRStaleTime = flags & 0x0FFF
		rest := body[2:]
		for len(rest) >= 4 {
			f := GRFamily{
				Family:     wire.Family{AFI: wire.AFI(binary.BigEndian.Uint16(rest[0:2])), SAFI: wire.SAFI(rest[2])},
				Forwarding: rest[3]&0x80 != 0,
			}
			c.GRFamilies = append(c.GRFamilies, f)
			rest = rest[4:]
		}
	case CapASN4:
		if len(body) != 4 {
			return c, badFormat(offset, "asn4 capability must be 4 bytes")
		}
		c.ASN4 = wire.ASN(binary.BigEndian.Uint32(body))
	case CapAddPath:
		if len(body)%4 != 0 {
			return c, badFormat(offset, "add-path capability length not a multiple of 4")
		}
		for len(body) >= 4 {
			f := AddPathFamily{
				Family:  wire.Family{AFI: wire.AFI(binary.BigEndian.Uint16(body[0:2])), SAFI: wire.SAFI(body[2])},
				Send:    body[3]&1 != 0,
				Receive: body[3]&2 != 0,
			}
			c.AddPathFamilies = append(c.AddPathFamilies, f)
			body = body[4:]
		}
	case CapFQDN:
		if len(body) < 1 {
			return c, badFormat(offset, "fqdn capability truncated")
		}
		hl := int(body[0])
		if len(body) < 1+hl+1 {
			return c, badFormat(offset, "fqdn capability truncated host")
		}
		c.HostName = string(body[1 : 1+hl])
		rest := body[1+hl:]
		dl := int(rest[0])
		if len(rest) < 1+dl {
			return c, badFormat(offset, "fqdn capability truncated domain")
		}
		c.DomainName = string(rest[1 : 1+dl])
	default:
		c.UnknownCode = uint8(code)
		c.UnknownBytes = append([]byte(nil), body...)
	}
	return c, nil
}

// DuplicateCapabilityCodes reports whether caps contains two entries with
// the same identity key, a fatal condition per spec §3/§4.4. Multiprotocol
// entries are keyed per-family so advertising two distinct families is
// legal; advertising the same family twice is not.
func DuplicateCapabilityCodes(caps []Capability) bool {
	seen := map[uint32]bool{}
	for _, c := range caps {
		k := c.key()
		if seen[k] {
			return true
		}
		seen[k] = true
	}
	return false
}
