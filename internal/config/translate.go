package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/dc-labs/bgpd/internal/fsm"
	"github.com/dc-labs/bgpd/internal/wire"
)

// familyNames maps the config file's family tokens onto wire.Family
// values; this is the one place the textual config vocabulary meets the
// wire-level (AFI,SAFI) model.
var familyNames = map[string]wire.Family{
	"ipv4-unicast":       {AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST},
	"ipv4-multicast":     {AFI: wire.AFI_IPV4, SAFI: wire.SAFI_MULTICAST},
	"ipv6-unicast":       {AFI: wire.AFI_IPV6, SAFI: wire.SAFI_UNICAST},
	"ipv6-multicast":     {AFI: wire.AFI_IPV6, SAFI: wire.SAFI_MULTICAST},
	"ipv4-labelled-unicast": {AFI: wire.AFI_IPV4, SAFI: wire.SAFI_LABELLED_UNI},
	"ipv6-labelled-unicast": {AFI: wire.AFI_IPV6, SAFI: wire.SAFI_LABELLED_UNI},
	"ipv4-mpls-vpn":      {AFI: wire.AFI_IPV4, SAFI: wire.SAFI_MPLS_VPN},
	"ipv6-mpls-vpn":      {AFI: wire.AFI_IPV6, SAFI: wire.SAFI_MPLS_VPN},
	"ipv4-mcast-vpn":     {AFI: wire.AFI_IPV4, SAFI: wire.SAFI_MCAST_VPN},
	"ipv4-rt-constraint": {AFI: wire.AFI_IPV4, SAFI: wire.SAFI_RT_CONSTRAINT},
	"ipv4-flow":          {AFI: wire.AFI_IPV4, SAFI: wire.SAFI_FLOWSPEC},
	"ipv6-flow":          {AFI: wire.AFI_IPV6, SAFI: wire.SAFI_FLOWSPEC},
	"ipv4-flow-vpn":      {AFI: wire.AFI_IPV4, SAFI: wire.SAFI_FLOWSPEC_VPN},
	"ipv6-flow-vpn":      {AFI: wire.AFI_IPV6, SAFI: wire.SAFI_FLOWSPEC_VPN},
	"l2vpn-evpn":         {AFI: wire.AFI_L2VPN, SAFI: wire.SAFI_EVPN},
	"bgp-ls":             {AFI: wire.AFI_BGPLS, SAFI: wire.SAFI_BGPLS},
	"bgp-ls-vpn":         {AFI: wire.AFI_BGPLS, SAFI: wire.SAFI_BGPLS_VPN},
	"ipv4-mup":           {AFI: wire.AFI_IPV4, SAFI: wire.SAFI_MUP},
}

func parseFamily(s string) (wire.Family, error) {
	f, ok := familyNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return wire.Family{}, fmt.Errorf("unknown family %q", s)
	}
	return f, nil
}

// ToFSMConfig translates one NeighborConfig into the fsm.Config the peer
// task runs from.
func (n NeighborConfig) ToFSMConfig() (fsm.Config, error) {
	var local netip.Addr
	if n.LocalAddress != "" {
		var err error
		local, err = netip.ParseAddr(n.LocalAddress)
		if err != nil {
			return fsm.Config{}, fmt.Errorf("local-address: %w", err)
		}
	}

	routerID, err := netip.ParseAddr(n.RouterID)
	if err != nil || !routerID.Is4() {
		return fsm.Config{}, fmt.Errorf("router-id must be an IPv4 address: %q", n.RouterID)
	}
	rid4 := routerID.As4()
	routerIDInt := uint32(rid4[0])<<24 | uint32(rid4[1])<<16 | uint32(rid4[2])<<8 | uint32(rid4[3])

	var families []wire.Family
	for _, s := range n.Families {
		f, err := parseFamily(s)
		if err != nil {
			return fsm.Config{}, err
		}
		families = append(families, f)
	}

	sendSet, err := parseFamilySet(n.AddPathSend)
	if err != nil {
		return fsm.Config{}, err
	}
	recvSet, err := parseFamilySet(n.AddPathReceive)
	if err != nil {
		return fsm.Config{}, err
	}

	return fsm.Config{
		LocalAddress:    local,
		PeerAddress:     n.PeerAddress,
		LocalASN:        wire.ASN(n.LocalASN),
		PeerASN:         wire.ASN(n.PeerASN),
		RouterID:        routerIDInt,
		HoldTime:        n.HoldTime,
		Passive:         n.Passive,
		Families:        families,
		AddPathSend:     sendSet,
		AddPathRecv:     recvSet,
		GracefulRestart: n.GracefulRestart,
		GRStaleTime:     n.GRStaleTime,
		Description:     n.Description,
	}, nil
}

func parseFamilySet(names []string) (map[wire.Family]bool, error) {
	out := map[wire.Family]bool{}
	for _, s := range names {
		f, err := parseFamily(s)
		if err != nil {
			return nil, err
		}
		out[f] = true
	}
	return out, nil
}
