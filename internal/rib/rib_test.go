package rib

import (
	"net/netip"
	"strconv"
	"testing"

	"github.com/dc-labs/bgpd/internal/attr"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prefix(s string) nlri.InetPrefix {
	p := netip.MustParsePrefix(s)
	return nlri.InetPrefix{CIDR: wire.NewCIDR(p), AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST}
}

func TestAdjRIBOutAnnounceIsIdempotent(t *testing.T) {
	r := NewAdjRIBOut()
	c := Change{Family: wire.IPv4Unicast, NLRI: prefix("10.0.0.0/24"), Attributes: []attr.Attribute{attr.Origin{Value: attr.OriginIGP}}}

	assert.True(t, r.Announce(c))
	assert.False(t, r.Announce(c), "re-announcing identical attributes is a no-op")

	changed := c
	changed.Attributes = []attr.Attribute{attr.Origin{Value: attr.OriginEGP}}
	assert.True(t, r.Announce(changed), "a changed attribute set must re-announce")
}

func TestAdjRIBOutWithdrawRequiresPriorAnnounce(t *testing.T) {
	r := NewAdjRIBOut()
	p := prefix("10.0.0.0/24")
	assert.False(t, r.Withdraw(wire.IPv4Unicast, p.Index(), 0), "withdrawing an unknown route is a no-op")

	r.Announce(Change{Family: wire.IPv4Unicast, NLRI: p, Attributes: []attr.Attribute{attr.Origin{Value: attr.OriginIGP}}})
	assert.True(t, r.Withdraw(wire.IPv4Unicast, p.Index(), 0))
	assert.False(t, r.Withdraw(wire.IPv4Unicast, p.Index(), 0), "withdrawing twice is a no-op")
}

func TestAdjRIBOutPendingDrainsAndClears(t *testing.T) {
	r := NewAdjRIBOut()
	p1, p2 := prefix("10.0.0.0/24"), prefix("10.0.1.0/24")
	r.Announce(Change{Family: wire.IPv4Unicast, NLRI: p1, Attributes: []attr.Attribute{attr.Origin{Value: attr.OriginIGP}}})
	r.Announce(Change{Family: wire.IPv4Unicast, NLRI: p2, Attributes: []attr.Attribute{attr.Origin{Value: attr.OriginIGP}}})

	pending := r.Pending()
	require.Len(t, pending, 2)
	assert.Nil(t, r.Pending(), "a second call with nothing new touched returns nothing")
}

func TestAdjRIBOutAllExcludesWithdrawn(t *testing.T) {
	r := NewAdjRIBOut()
	p1, p2 := prefix("10.0.0.0/24"), prefix("10.0.1.0/24")
	r.Announce(Change{Family: wire.IPv4Unicast, NLRI: p1, Attributes: []attr.Attribute{attr.Origin{Value: attr.OriginIGP}}})
	r.Announce(Change{Family: wire.IPv4Unicast, NLRI: p2, Attributes: []attr.Attribute{attr.Origin{Value: attr.OriginIGP}}})
	r.Pending()
	r.Withdraw(wire.IPv4Unicast, p1.Index(), 0)

	all := r.All()
	require.Len(t, all, 1)
	assert.Equal(t, p2.Index(), all[0].NLRI.Index())
}

func TestAdjRIBOutAssignPathIDIsStable(t *testing.T) {
	r := NewAdjRIBOut()
	p := prefix("10.0.0.0/24")
	id1 := r.AssignPathID(p.Index())
	id2 := r.AssignPathID(p.Index())
	assert.Equal(t, id1, id2)

	other := r.AssignPathID(prefix("10.0.1.0/24").Index())
	assert.NotEqual(t, id1, other)
}

func TestBuildUpdatesGroupsSameAttributesTogether(t *testing.T) {
	attrs := []attr.Attribute{attr.Origin{Value: attr.OriginIGP}, attr.NextHop{Address: [4]byte{192, 0, 2, 1}}}
	changes := []Change{
		{Family: wire.IPv4Unicast, NLRI: prefix("10.0.0.0/24"), Attributes: attrs},
		{Family: wire.IPv4Unicast, NLRI: prefix("10.0.1.0/24"), Attributes: attrs},
	}
	updates := BuildUpdates(nil, changes)
	require.Len(t, updates, 1)
	assert.Len(t, updates[0].NLRIs, 2)
}

func TestBuildUpdatesSeparatesDifferentAttributeSets(t *testing.T) {
	a1 := []attr.Attribute{attr.Origin{Value: attr.OriginIGP}}
	a2 := []attr.Attribute{attr.Origin{Value: attr.OriginEGP}}
	changes := []Change{
		{Family: wire.IPv4Unicast, NLRI: prefix("10.0.0.0/24"), Attributes: a1},
		{Family: wire.IPv4Unicast, NLRI: prefix("10.0.1.0/24"), Attributes: a2},
	}
	updates := BuildUpdates(nil, changes)
	assert.Len(t, updates, 2)
}

func TestBuildUpdatesWithdrawIPv4(t *testing.T) {
	changes := []Change{
		{Family: wire.IPv4Unicast, NLRI: prefix("10.0.0.0/24"), Withdraw: true},
	}
	updates := BuildUpdates(nil, changes)
	require.Len(t, updates, 1)
	assert.Len(t, updates[0].WithdrawnRoutes, 1)
	assert.Empty(t, updates[0].PathAttributes)
}

func TestBuildUpdatesMPFamilyUsesMPUnreachForWithdraw(t *testing.T) {
	p := netip.MustParsePrefix("2001:db8::/32")
	n := nlri.InetPrefix{CIDR: wire.NewCIDR(p), AFI: wire.AFI_IPV6, SAFI: wire.SAFI_UNICAST}
	changes := []Change{
		{Family: wire.IPv6Unicast, NLRI: n, Withdraw: true},
	}
	updates := BuildUpdates(nil, changes)
	require.Len(t, updates, 1)
	require.Len(t, updates[0].PathAttributes, 1)
	mp, ok := updates[0].PathAttributes[0].(attr.MPUnreachNLRI)
	require.True(t, ok)
	assert.Equal(t, wire.IPv6Unicast, mp.Family)
}

func TestBuildUpdatesMPFamilyUsesMPReachForAnnounce(t *testing.T) {
	p := netip.MustParsePrefix("2001:db8::/32")
	n := nlri.InetPrefix{CIDR: wire.NewCIDR(p), AFI: wire.AFI_IPV6, SAFI: wire.SAFI_UNICAST}
	changes := []Change{
		{Family: wire.IPv6Unicast, NLRI: n, Attributes: []attr.Attribute{attr.Origin{Value: attr.OriginIGP}}},
	}
	updates := BuildUpdates(nil, changes)
	require.Len(t, updates, 1)
	require.Len(t, updates[0].PathAttributes, 2)
	_, ok := updates[0].PathAttributes[1].(attr.MPReachNLRI)
	require.True(t, ok)
}

func TestBuildUpdatesRespectsMaxMessageSize(t *testing.T) {
	var changes []Change
	attrs := []attr.Attribute{attr.Origin{Value: attr.OriginIGP}, attr.NextHop{Address: [4]byte{192, 0, 2, 1}}}
	for i := 0; i < 1200; i++ {
		changes = append(changes, Change{
			Family:     wire.IPv4Unicast,
			NLRI:       prefix("10." + strconv.Itoa(i/256) + "." + strconv.Itoa(i%256) + ".0/24"),
			Attributes: attrs,
		})
	}
	updates := BuildUpdates(nil, changes)
	require.Greater(t, len(updates), 1, "1200 routes must not fit a single 4096-byte UPDATE")
	for _, u := range updates {
		assert.LessOrEqual(t, len(u.Pack(nil)), 4096)
	}
}

func TestBuildUpdatesVPNv4NextHopIsRDZeroPlusIPv4(t *testing.T) {
	p := netip.MustParsePrefix("10.1.0.0/24")
	v := nlri.VPN{
		Labels: wire.Labels{wire.NewLabel(100, true)},
		RD:     wire.RD{Type: wire.RD_AS2_ADMIN, ASN: 65000, Number: 1},
		CIDR:   wire.NewCIDR(p),
		AFI:    wire.AFI_IPV4,
	}
	nh := netip.MustParseAddr("1.1.1.1")
	changes := []Change{
		{Family: v.Family(), NLRI: v, NextHop: nh, Attributes: []attr.Attribute{attr.Origin{Value: attr.OriginIGP}}},
	}
	updates := BuildUpdates(nil, changes)
	require.Len(t, updates, 1)
	require.Len(t, updates[0].PathAttributes, 2)
	mp, ok := updates[0].PathAttributes[1].(attr.MPReachNLRI)
	require.True(t, ok)
	require.Len(t, mp.NextHop, 12, "VPNv4 nexthop must be RD=0 (8 bytes) + IPv4 (4 bytes)")
	assert.Equal(t, make([]byte, 8), mp.NextHop[:8], "RD half of the VPNv4 nexthop must be zero")
	assert.Equal(t, []byte{1, 1, 1, 1}, mp.NextHop[8:])
}

func TestEndOfRIBIPv4IsEmptyUpdate(t *testing.T) {
	u := EndOfRIB(wire.IPv4Unicast)
	assert.Empty(t, u.WithdrawnRoutes)
	assert.Empty(t, u.PathAttributes)
	assert.Empty(t, u.NLRIs)
}

func TestEndOfRIBMPFamilyIsEmptyMPUnreach(t *testing.T) {
	u := EndOfRIB(wire.IPv6Unicast)
	require.Len(t, u.PathAttributes, 1)
	mp, ok := u.PathAttributes[0].(attr.MPUnreachNLRI)
	require.True(t, ok)
	assert.Empty(t, mp.NLRIs)
}
