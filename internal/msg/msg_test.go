package msg

import (
	"net/netip"
	"testing"

	"github.com/dc-labs/bgpd/internal/attr"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	raw := PackHeader(TypeKeepalive, 0)
	typ, total, err := UnpackHeader(raw, 4096)
	require.NoError(t, err)
	assert.Equal(t, TypeKeepalive, typ)
	assert.Equal(t, HeaderLen, total)
}

func TestHeaderRejectsBadMarker(t *testing.T) {
	raw := PackHeader(TypeKeepalive, 0)
	raw[0] = 0
	_, _, err := UnpackHeader(raw, 4096)
	assert.Error(t, err)
}

func TestHeaderRejectsBadLength(t *testing.T) {
	raw := PackHeader(TypeKeepalive, 0)
	raw[16], raw[17] = 0, 5 // shorter than HeaderLen
	_, _, err := UnpackHeader(raw, 4096)
	assert.Error(t, err)
}

func TestKeepaliveRoundTrip(t *testing.T) {
	k := Keepalive{}
	_, err := UnpackKeepalive(k.Pack()[HeaderLen:], 0)
	assert.NoError(t, err)
}

func TestNotificationRoundTrip(t *testing.T) {
	n := Notification{Code: NotifyCease, Subcode: CeaseAdministrativeShutdown, Data: []byte("bye")}
	got, err := UnpackNotification(n.Pack()[HeaderLen:], 0)
	require.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestRouteRefreshRoundTrip(t *testing.T) {
	rr := RouteRefresh{Family: wire.IPv6Unicast, Subtype: RouteRefreshBegin}
	got, err := UnpackRouteRefresh(rr.Pack()[HeaderLen:], 0)
	require.NoError(t, err)
	assert.Equal(t, rr, got)
}

func TestOpenRoundTripStandardForm(t *testing.T) {
	o := Open{
		Version:  4,
		ASN:      65001,
		HoldTime: 180,
		RouterID: 0x0A000001,
		Capabilities: []Capability{
			{Code: CapMultiprotocol, MPFamily: wire.IPv4Unicast},
			{Code: CapASN4, ASN4: 65001},
			{Code: CapRouteRefresh},
		},
	}
	got, err := UnpackOpen(o.Pack()[HeaderLen:], 0)
	require.NoError(t, err)
	assert.Equal(t, o.Version, got.Version)
	assert.Equal(t, o.ASN, got.ASN)
	assert.Equal(t, o.HoldTime, got.HoldTime)
	assert.Equal(t, o.RouterID, got.RouterID)
	require.Len(t, got.Capabilities, 3)
}

func TestOpenRoundTripExtendedForm(t *testing.T) {
	var caps []Capability
	for i := 0; i < 40; i++ {
		caps = append(caps, Capability{Code: CapMultiprotocol, MPFamily: wire.Family{AFI: wire.AFI_IPV4, SAFI: wire.SAFI(i % 128)}})
	}
	o := Open{Version: 4, ASN: 65001, HoldTime: 90, RouterID: 1, Capabilities: caps}
	raw := o.Pack()
	got, err := UnpackOpen(raw[HeaderLen:], 0)
	require.NoError(t, err)
	assert.Len(t, got.Capabilities, len(caps))
}

func TestValidateOpenRejectsBadVersion(t *testing.T) {
	err := ValidateOpen(Open{Version: 3})
	assert.Error(t, err)
}

func TestValidateOpenRejectsShortHoldTime(t *testing.T) {
	err := ValidateOpen(Open{Version: 4, HoldTime: 1})
	assert.Error(t, err)
}

func TestValidateOpenAllowsZeroHoldTime(t *testing.T) {
	err := ValidateOpen(Open{Version: 4, HoldTime: 0})
	assert.NoError(t, err)
}

func TestNegotiateHoldTimeMinimum(t *testing.T) {
	local := Open{Version: 4, ASN: 65001, HoldTime: 180, RouterID: 1}
	peer := Open{Version: 4, ASN: 65002, HoldTime: 60, RouterID: 2}
	n := Negotiate(65001, local, peer)
	assert.Equal(t, uint16(60), n.HoldTime)
}

func TestNegotiateFamilyIntersection(t *testing.T) {
	local := Open{Capabilities: []Capability{
		{Code: CapMultiprotocol, MPFamily: wire.IPv4Unicast},
		{Code: CapMultiprotocol, MPFamily: wire.IPv6Unicast},
	}}
	peer := Open{Capabilities: []Capability{
		{Code: CapMultiprotocol, MPFamily: wire.IPv4Unicast},
	}}
	n := Negotiate(65001, local, peer)
	assert.Equal(t, []wire.Family{wire.IPv4Unicast}, n.Families)
}

func TestNegotiateDefaultsToIPv4WhenNoMultiprotocol(t *testing.T) {
	n := Negotiate(65001, Open{}, Open{})
	assert.Equal(t, []wire.Family{wire.IPv4Unicast}, n.Families)
}

func TestNegotiateASN4RequiresBothSides(t *testing.T) {
	local := Open{Capabilities: []Capability{{Code: CapASN4, ASN4: 65001}}}
	peer := Open{}
	n := Negotiate(65001, local, peer)
	assert.False(t, n.ASN4)
}

func TestNegotiateAddPathConjunction(t *testing.T) {
	local := Open{Capabilities: []Capability{
		{Code: CapMultiprotocol, MPFamily: wire.IPv4Unicast},
		{Code: CapAddPath, AddPathFamilies: []AddPathFamily{{Family: wire.IPv4Unicast, Send: true, Receive: true}}},
	}}
	peer := Open{Capabilities: []Capability{
		{Code: CapMultiprotocol, MPFamily: wire.IPv4Unicast},
		{Code: CapAddPath, AddPathFamilies: []AddPathFamily{{Family: wire.IPv4Unicast, Send: true, Receive: true}}},
	}}
	n := Negotiate(65001, local, peer)
	dir := n.AddPathFor(wire.IPv4Unicast)
	assert.True(t, dir.Send())
	assert.True(t, dir.Receive())
}

func TestUpdateRoundTripIPv4(t *testing.T) {
	cidr := wire.NewCIDR(netip.MustParsePrefix("10.0.0.0/24"))
	u := Update{
		NLRIs: []nlri.WithPathID{
			{NLRI: nlri.InetPrefix{CIDR: cidr, AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST}},
		},
		PathAttributes: []attr.Attribute{
			attr.Origin{Value: attr.OriginIGP},
			attr.NextHop{Address: [4]byte{192, 0, 2, 1}},
		},
	}
	raw := u.Pack(nil)
	got, err := UnpackUpdate(nil, raw[HeaderLen:], 0)
	require.NoError(t, err)
	require.Len(t, got.NLRIs, 1)
	assert.Equal(t, "10.0.0.0/24", got.NLRIs[0].NLRI.String())
}

func TestUpdateIsEndOfRIBIPv4(t *testing.T) {
	u := Update{}
	assert.True(t, u.IsEndOfRIB(wire.IPv4Unicast))
}

func TestUpdateIsEndOfRIBMP(t *testing.T) {
	u := Update{PathAttributes: []attr.Attribute{attr.MPUnreachNLRI{Family: wire.IPv6Unicast}}}
	assert.True(t, u.IsEndOfRIB(wire.IPv6Unicast))
	assert.False(t, u.IsEndOfRIB(wire.IPv4Unicast))
}

func TestUpdateRejectsMPReachNextHopWrongWidthForVPNv4(t *testing.T) {
	fam := wire.Family{AFI: wire.AFI_IPV4, SAFI: wire.SAFI_MPLS_VPN}
	mp := attr.MPReachNLRI{Family: fam, NextHop: make([]byte, 4)}
	body := attr.PackSet(nil, []attr.Attribute{mp})

	raw := make([]byte, 0, 4+len(body))
	raw = append(raw, 0, 0)
	raw = append(raw, byte(len(body)>>8), byte(len(body)))
	raw = append(raw, body...)

	_, err := UnpackUpdate(nil, raw, 0)
	require.Error(t, err)
	notif, ok := err.(*NotificationError)
	require.True(t, ok, "expected a NotificationError, got %T", err)
	assert.Equal(t, NotifyUpdateError, notif.Code)
	assert.Equal(t, UpdateAttrLengthError, notif.Subcode)
}
