package api

import (
	"testing"

	"github.com/dc-labs/bgpd/internal/attr"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommentAndBlank(t *testing.T) {
	cmd, err := Parse("# a comment")
	require.NoError(t, err)
	assert.Equal(t, VerbComment, cmd.Verb)

	cmd, err = Parse("   ")
	require.NoError(t, err)
	assert.Equal(t, VerbComment, cmd.Verb)
}

func TestParseWildcardNeighborFilter(t *testing.T) {
	cmd, err := Parse("announce route 10.0.0.0/24 next-hop 192.0.2.1")
	require.NoError(t, err)
	assert.True(t, cmd.Filter.Wildcard)
	assert.Equal(t, VerbAnnounce, cmd.Verb)
}

func TestParseNeighborFilterWithQualifiers(t *testing.T) {
	cmd, err := Parse("neighbor 192.0.2.1 peer-as 65002 router-id 10.0.0.1 ping")
	require.NoError(t, err)
	assert.False(t, cmd.Filter.Wildcard)
	assert.Equal(t, "192.0.2.1", cmd.Filter.Address)
	assert.Equal(t, wire.ASN(65002), cmd.Filter.PeerAS)
	assert.Equal(t, "10.0.0.1", cmd.Filter.RouterID)
	assert.Equal(t, VerbPing, cmd.Verb)
}

func TestParseAnnounceRouteWithAttributes(t *testing.T) {
	cmd, err := Parse(`announce route 10.0.0.0/24 next-hop 192.0.2.1 med 10 local-preference 200 as-path [ 65001 65002 ] community [ 65000:100 65000:200 ] origin igp`)
	require.NoError(t, err)
	require.Equal(t, VerbAnnounce, cmd.Verb)
	require.Equal(t, wire.IPv4Unicast, cmd.Family)

	var sawNextHop, sawMED, sawLP, sawASPath, sawCommunity, sawOrigin bool
	for _, a := range cmd.Change.Attributes {
		switch v := a.(type) {
		case attr.NextHop:
			sawNextHop = true
			assert.Equal(t, [4]byte{192, 0, 2, 1}, v.Address)
		case attr.MED:
			sawMED = true
			assert.Equal(t, uint32(10), v.Value)
		case attr.LocalPref:
			sawLP = true
			assert.Equal(t, uint32(200), v.Value)
		case attr.ASPath:
			sawASPath = true
			require.Len(t, v.Segments, 1)
			assert.Equal(t, []wire.ASN{65001, 65002}, v.Segments[0].ASNs)
		case attr.Communities:
			sawCommunity = true
			require.Len(t, v.Values, 2)
		case attr.Origin:
			sawOrigin = true
			assert.Equal(t, attr.OriginIGP, v.Value)
		}
	}
	assert.True(t, sawNextHop)
	assert.True(t, sawMED)
	assert.True(t, sawLP)
	assert.True(t, sawASPath)
	assert.True(t, sawCommunity)
	assert.True(t, sawOrigin)
}

func TestParseAnnounceDefaultsOriginIncomplete(t *testing.T) {
	cmd, err := Parse("announce route 10.0.0.0/24 next-hop 192.0.2.1")
	require.NoError(t, err)
	require.Len(t, cmd.Change.Attributes, 2)
	origin, ok := cmd.Change.Attributes[0].(attr.Origin)
	require.True(t, ok)
	assert.Equal(t, attr.OriginIncomplete, origin.Value)
}

func TestParseWithdrawCarriesNoAttributes(t *testing.T) {
	cmd, err := Parse("withdraw route 10.0.0.0/24")
	require.NoError(t, err)
	assert.Equal(t, VerbWithdraw, cmd.Verb)
	assert.True(t, cmd.Change.Withdraw)
	assert.Empty(t, cmd.Change.Attributes)
}

func TestParseIPv6RouteSelectsIPv6Family(t *testing.T) {
	cmd, err := Parse("announce route 2001:db8::/32 next-hop 2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, wire.IPv6Unicast, cmd.Family)
}

func TestParseEORDefaultsToIPv4(t *testing.T) {
	cmd, err := Parse("announce eor")
	require.NoError(t, err)
	assert.True(t, cmd.IsEOR)
	assert.Equal(t, wire.IPv4Unicast, cmd.Family)
}

func TestParseEORExplicitFamily(t *testing.T) {
	cmd, err := Parse("announce eor ipv6")
	require.NoError(t, err)
	assert.True(t, cmd.IsEOR)
	assert.Equal(t, wire.IPv6Unicast, cmd.Family)
}

func TestParseRouteRefresh(t *testing.T) {
	cmd, err := Parse("announce route-refresh ipv4")
	require.NoError(t, err)
	assert.True(t, cmd.IsRR)
	assert.Equal(t, wire.IPv4Unicast, cmd.Family)
}

func TestParseTeardownWithNotifyCode(t *testing.T) {
	cmd, err := Parse("teardown 6")
	require.NoError(t, err)
	assert.Equal(t, VerbTeardown, cmd.Verb)
	assert.Equal(t, uint8(6), cmd.NotifyCode)
}

func TestParseTeardownBadNotifyCodeErrors(t *testing.T) {
	_, err := Parse("teardown not-a-number")
	assert.Error(t, err)
}

func TestParseShowNeighborSummary(t *testing.T) {
	cmd, err := Parse("show neighbor summary")
	require.NoError(t, err)
	assert.Equal(t, VerbShowNeighbor, cmd.Verb)
	assert.Equal(t, "summary", cmd.Mode)
}

func TestParseShowAdjRIB(t *testing.T) {
	cmd, err := Parse("show adj-rib out extensive")
	require.NoError(t, err)
	assert.Equal(t, VerbShowAdjRIB, cmd.Verb)
	assert.Equal(t, "out", cmd.Direction)
	assert.Equal(t, "extensive", cmd.Mode)
}

func TestParseShowAdjRIBMissingDirectionErrors(t *testing.T) {
	_, err := Parse("show adj-rib")
	assert.Error(t, err)
}

func TestParseClearAdjRIB(t *testing.T) {
	cmd, err := Parse("clear adj-rib in")
	require.NoError(t, err)
	assert.Equal(t, VerbClearAdjRIB, cmd.Verb)
	assert.Equal(t, "in", cmd.Direction)
}

func TestParseUnrecognisedVerbErrors(t *testing.T) {
	_, err := Parse("frobnicate")
	assert.Error(t, err)
}

func TestNeighborFilterMatches(t *testing.T) {
	f := NeighborFilter{Address: "10.0.0.1", PeerAS: 65002}
	assert.True(t, f.Matches("10.0.0.1", 65002, "1.1.1.1"))
	assert.False(t, f.Matches("10.0.0.2", 65002, "1.1.1.1"))
	assert.False(t, f.Matches("10.0.0.1", 65003, "1.1.1.1"))
}

func TestNeighborFilterWildcardMatchesAnything(t *testing.T) {
	f := NeighborFilter{Wildcard: true}
	assert.True(t, f.Matches("10.0.0.9", 1, "2.2.2.2"))
}

func TestTokenizeRespectsQuotes(t *testing.T) {
	toks := tokenize(`announce attribute "some value" nlri 10.0.0.0/24`)
	assert.Equal(t, []string{"announce", "attribute", "some value", "nlri", "10.0.0.0/24"}, toks)
}

func TestParseAnnounceMPLSVPNBuildsVPNChange(t *testing.T) {
	cmd, err := Parse("announce ipv4 mpls-vpn 10.1.0.0/24 rd 65000:1 label 100 next-hop 1.1.1.1")
	require.NoError(t, err)
	require.Equal(t, VerbAnnounce, cmd.Verb)
	fam := wire.Family{AFI: wire.AFI_IPV4, SAFI: wire.SAFI_MPLS_VPN}
	assert.Equal(t, fam, cmd.Family)
	assert.Equal(t, fam, cmd.Change.Family)

	v, ok := cmd.Change.NLRI.(nlri.VPN)
	require.True(t, ok)
	assert.Equal(t, wire.RD{Type: wire.RD_AS2_ADMIN, ASN: 65000, Number: 1}, v.RD)
	require.Len(t, v.Labels, 1)
	assert.Equal(t, uint32(100), v.Labels[0].Value())
	assert.Equal(t, "10.1.0.0/24", v.CIDR.Prefix.String())

	assert.True(t, cmd.Change.NextHop.IsValid())
	assert.Equal(t, "1.1.1.1", cmd.Change.NextHop.String())
}

func TestParseWithdrawMPLSVPNDoesNotRequireLabel(t *testing.T) {
	cmd, err := Parse("withdraw ipv6 mpls-vpn 2001:db8::/32 rd 65000:1")
	require.NoError(t, err)
	assert.Equal(t, VerbWithdraw, cmd.Verb)
	assert.True(t, cmd.Change.Withdraw)
	_, ok := cmd.Change.NLRI.(nlri.VPN)
	require.True(t, ok)
}

func TestParseAnnounceMPLSVPNMissingRDErrors(t *testing.T) {
	_, err := Parse("announce ipv4 mpls-vpn 10.1.0.0/24 label 100")
	assert.Error(t, err)
}

func TestParseAnnounceVPLSBuildsEVPNEthernetAD(t *testing.T) {
	cmd, err := Parse("announce vpls rd 65000:1 label 100 endpoint 5")
	require.NoError(t, err)
	fam := wire.Family{AFI: wire.AFI_L2VPN, SAFI: wire.SAFI_EVPN}
	assert.Equal(t, fam, cmd.Family)

	e, ok := cmd.Change.NLRI.(nlri.EVPN)
	require.True(t, ok)
	assert.Equal(t, nlri.EVPNEthernetAD, e.RouteType)
	assert.Equal(t, uint32(5), e.Tag)
}

func TestParseAnnounceFlowBuildsFlowSpec(t *testing.T) {
	cmd, err := Parse("announce flow destination 10.0.0.0/24 protocol 6 destination-port 80")
	require.NoError(t, err)
	fam := wire.Family{AFI: wire.AFI_IPV4, SAFI: wire.SAFI_FLOWSPEC}
	assert.Equal(t, fam, cmd.Family)

	f, ok := cmd.Change.NLRI.(nlri.FlowSpec)
	require.True(t, ok)
	require.Len(t, f.Components, 3)
}

func TestParseAnnounceFlowMissingComponentsErrors(t *testing.T) {
	_, err := Parse("announce flow")
	assert.Error(t, err)
}
