package wire

import "fmt"

// AFI is an Address Family Identifier (IANA registry).
type AFI uint16

const (
	AFI_IPV4   AFI = 1
	AFI_IPV6   AFI = 2
	AFI_L2VPN  AFI = 25
	AFI_BGPLS  AFI = 16388
)

// SAFI is a Subsequent Address Family Identifier (IANA registry).
type SAFI uint8

const (
	SAFI_UNICAST       SAFI = 1
	SAFI_MULTICAST     SAFI = 2
	SAFI_LABELLED_UNI  SAFI = 4
	SAFI_MPLS_VPN      SAFI = 128
	SAFI_MCAST_VPN     SAFI = 5
	SAFI_RT_CONSTRAINT SAFI = 132
	SAFI_FLOWSPEC      SAFI = 133
	SAFI_FLOWSPEC_VPN  SAFI = 134
	SAFI_EVPN          SAFI = 70
	SAFI_BGPLS         SAFI = 71
	SAFI_BGPLS_VPN     SAFI = 72
	SAFI_MUP           SAFI = 85
)

// Family is an (AFI, SAFI) pair. It is the key used throughout the codec
// and the RIB to identify an address family; mcast-vpn and mpls-vpn are
// distinct SAFI values and must never be conflated.
type Family struct {
	AFI  AFI
	SAFI SAFI
}

func (f Family) String() string {
	return fmt.Sprintf("%s/%s", f.AFI, f.SAFI)
}

func (a AFI) String() string {
	switch a {
	case AFI_IPV4:
		return "ipv4"
	case AFI_IPV6:
		return "ipv6"
	case AFI_L2VPN:
		return "l2vpn"
	case AFI_BGPLS:
		return "bgp-ls"
	default:
		return fmt.Sprintf("afi(%d)", uint16(a))
	}
}

func (s SAFI) String() string {
	switch s {
	case SAFI_UNICAST:
		return "unicast"
	case SAFI_MULTICAST:
		return "multicast"
	case SAFI_LABELLED_UNI:
		return "labelled-unicast"
	case SAFI_MPLS_VPN:
		return "mpls-vpn"
	case SAFI_MCAST_VPN:
		return "mcast-vpn"
	case SAFI_RT_CONSTRAINT:
		return "rt-constraint"
	case SAFI_FLOWSPEC:
		return "flow-spec"
	case SAFI_FLOWSPEC_VPN:
		return "flow-spec-vpn"
	case SAFI_EVPN:
		return "evpn"
	case SAFI_BGPLS:
		return "bgp-ls"
	case SAFI_BGPLS_VPN:
		return "bgp-ls-vpn"
	case SAFI_MUP:
		return "mup"
	default:
		return fmt.Sprintf("safi(%d)", uint8(s))
	}
}

// AddrLen returns the byte length of an IP address for this AFI: 4 for
// IPv4, 16 for IPv6. Families without a plain IP shape (e.g. L2VPN) have
// no meaningful answer and return 0.
func (a AFI) AddrLen() int {
	switch a {
	case AFI_IPV4:
		return 4
	case AFI_IPV6:
		return 16
	default:
		return 0
	}
}

var IPv4Unicast = Family{AFI_IPV4, SAFI_UNICAST}
var IPv6Unicast = Family{AFI_IPV6, SAFI_UNICAST}
