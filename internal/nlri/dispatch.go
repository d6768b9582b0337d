package nlri

import (
	"encoding/binary"

	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// UnpackOne decodes a single NLRI (with an optional leading 4-byte
// ADD-PATH path identifier) for the given family, returning the decoded
// value, its path id (0 if ADD-PATH is not active for this direction),
// and the unconsumed remainder of b.
func UnpackOne(f wire.Family, addPath bool, b []byte, offset int) (NLRI, uint32, []byte, error) {
	var pathID uint32
	if addPath {
		if len(b) < 4 {
			return nil, 0, nil, badFormat(offset, "truncated add-path identifier")
		}
		pathID = binary.BigEndian.Uint32(b)
		b = b[4:]
		offset += 4
	}

	switch f.SAFI {
	case wire.SAFI_UNICAST, wire.SAFI_MULTICAST:
		v, rest, err := UnpackInetPrefix(f.AFI, f.SAFI, b, offset)
		return v, pathID, rest, err
	case wire.SAFI_LABELLED_UNI:
		v, rest, err := UnpackLabelledPrefix(f.AFI, b, offset)
		return v, pathID, rest, err
	case wire.SAFI_MPLS_VPN:
		v, rest, err := UnpackVPN(f.AFI, b, offset)
		return v, pathID, rest, err
	case wire.SAFI_MCAST_VPN:
		v, rest, err := UnpackMVPN(b, offset)
		return v, pathID, rest, err
	case wire.SAFI_RT_CONSTRAINT:
		v, rest, err := UnpackRTConstraint(b, offset)
		return v, pathID, rest, err
	case wire.SAFI_FLOWSPEC:
		v, rest, err := UnpackFlowSpec(f.AFI, false, b, offset)
		return v, pathID, rest, err
	case wire.SAFI_FLOWSPEC_VPN:
		v, rest, err := UnpackFlowSpec(f.AFI, true, b, offset)
		return v, pathID, rest, err
	case wire.SAFI_EVPN:
		v, rest, err := UnpackEVPN(b, offset)
		return v, pathID, rest, err
	case wire.SAFI_BGPLS, wire.SAFI_BGPLS_VPN:
		v, rest, err := UnpackBGPLS(b, offset)
		return v, pathID, rest, err
	case wire.SAFI_MUP:
		v, rest, err := UnpackMUP(f.AFI, b, offset)
		return v, pathID, rest, err
	default:
		return nil, 0, nil, badFormat(offset, "unsupported family %s", f)
	}
}

// UnpackAll decodes a whole NLRI run (e.g. one MP_REACH/MP_UNREACH
// payload, or the withdrawn/announce section of a plain IPv4 UPDATE)
// until b is exhausted.
func UnpackAll(f wire.Family, addPath bool, b []byte, offset int) ([]WithPathID, error) {
	var out []WithPathID
	for len(b) > 0 {
		v, pid, rest, err := UnpackOne(f, addPath, b, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, WithPathID{NLRI: v, PathID: pid})
		offset += len(b) - len(rest)
		b = rest
	}
	return out, nil
}

// PackOne renders one NLRI, prefixed with its path id when addPath is
// active for the direction being encoded.
func PackOne(n *negotiated.Negotiated, w WithPathID, addPath bool) []byte {
	var out []byte
	if addPath {
		pid := make([]byte, 4)
		binary.BigEndian.PutUint32(pid, w.PathID)
		out = append(out, pid...)
	}
	return append(out, w.NLRI.Pack(n)...)
}
