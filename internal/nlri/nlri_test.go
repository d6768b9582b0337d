package nlri

import (
	"net/netip"
	"testing"

	"github.com/dc-labs/bgpd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInetPrefixRoundTrip(t *testing.T) {
	p := InetPrefix{CIDR: wire.NewCIDR(netip.MustParsePrefix("10.0.0.0/24")), AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST}
	got, rest, err := UnpackInetPrefix(wire.AFI_IPV4, wire.SAFI_UNICAST, p.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, p.CIDR.Prefix, got.CIDR.Prefix)
}

func TestLabelledPrefixRoundTrip(t *testing.T) {
	p := LabelledPrefix{
		Labels: wire.Labels{wire.NewLabel(100, true)},
		CIDR:   wire.CIDR{Prefix: netip.MustParsePrefix("10.1.0.0/24")},
		AFI:    wire.AFI_IPV4,
	}
	got, rest, err := UnpackLabelledPrefix(wire.AFI_IPV4, p.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, p.Labels, got.Labels)
	assert.Equal(t, p.CIDR.Prefix, got.CIDR.Prefix)
}

func TestVPNRoundTrip(t *testing.T) {
	v := VPN{
		Labels: wire.Labels{wire.NewLabel(42, true)},
		RD:     wire.RD{Type: wire.RD_AS2_ADMIN, ASN: 65001, Number: 7},
		CIDR:   wire.CIDR{Prefix: netip.MustParsePrefix("192.168.0.0/24")},
		AFI:    wire.AFI_IPV4,
	}
	got, rest, err := UnpackVPN(wire.AFI_IPV4, v.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, v.RD, got.RD)
	assert.Equal(t, v.CIDR.Prefix, got.CIDR.Prefix)
}

func TestMVPNIntraASADRoundTrip(t *testing.T) {
	m := MVPN{RouteType: MVPNIntraASADRoute, RD: wire.RD{Type: wire.RD_AS2_ADMIN, ASN: 65001, Number: 1}}
	got, rest, err := UnpackMVPN(m.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, m.RD, got.RD)
}

func TestMVPNInterASADRoundTrip(t *testing.T) {
	m := MVPN{RouteType: MVPNInterASADRoute, RD: wire.RD{Type: wire.RD_AS2_ADMIN, ASN: 65001, Number: 1}, SourceAS: 65002}
	got, rest, err := UnpackMVPN(m.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, m.SourceAS, got.SourceAS)
}

func TestRTConstraintRoundTrip(t *testing.T) {
	r := RTConstraint{OriginAS: 65001, RT: [8]byte{0, 2, 0xFD, 0xE9, 0, 0, 0, 100}, Bits: 96}
	got, rest, err := UnpackRTConstraint(r.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, r, got)
}

func TestRTConstraintDefaultWildcard(t *testing.T) {
	r := RTConstraint{Bits: 0}
	got, rest, err := UnpackRTConstraint(r.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, 0, got.Bits)
}

func TestMUPRoundTrip(t *testing.T) {
	m := MUP{RouteType: MUPType1SessionTransformed, RD: wire.RD{Type: wire.RD_AS2_ADMIN, ASN: 65001, Number: 5}, AFI: wire.AFI_IPV4, Payload: []byte{1, 2, 3}}
	got, rest, err := UnpackMUP(wire.AFI_IPV4, m.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, m.RD, got.RD)
	assert.Equal(t, m.Payload, got.Payload)
}

func TestBGPLSRoundTrip(t *testing.T) {
	l := BGPLS{
		NLRIType:   BGPLSNode,
		ProtocolID: 7,
		Identifier: 0x1122334455667788,
		Descriptors: []TLV{
			{Type: 512, Value: []byte{1, 2, 3, 4}},
		},
	}
	got, rest, err := UnpackBGPLS(l.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, l.ProtocolID, got.ProtocolID)
	assert.Equal(t, l.Identifier, got.Identifier)
	assert.Equal(t, l.Descriptors, got.Descriptors)
}

func TestEVPNEthernetADRoundTrip(t *testing.T) {
	e := EVPN{
		RouteType: EVPNEthernetAD,
		RD:        wire.RD{Type: wire.RD_AS2_ADMIN, ASN: 65001, Number: 1},
		ESI:       wire.ESI{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		Tag:       100,
		Label:     wire.Labels{wire.NewLabel(42, true)},
	}
	got, rest, err := UnpackEVPN(e.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, e.RD, got.RD)
	assert.Equal(t, e.ESI, got.ESI)
	assert.Equal(t, e.Tag, got.Tag)
}

func TestFlowSpecRoundTrip(t *testing.T) {
	f := FlowSpec{
		AFI: wire.AFI_IPV4,
		Components: []FlowComponent{
			{Type: FlowDestPrefix, Prefix: wire.NewCIDR(netip.MustParsePrefix("203.0.113.0/24"))},
			{Type: FlowIPProto, Ops: []NumericOp{{Op: 0x1, Value: 6, Len: 1}}},
		},
	}
	got, rest, err := UnpackFlowSpec(wire.AFI_IPV4, false, f.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	require.Len(t, got.Components, 2)
	assert.Equal(t, FlowDestPrefix, got.Components[0].Type)
	assert.Equal(t, f.Components[0].Prefix.Prefix, got.Components[0].Prefix.Prefix)
}

func TestFlowSpecVPNRoundTrip(t *testing.T) {
	f := FlowSpec{
		AFI:   wire.AFI_IPV4,
		HasRD: true,
		RD:    wire.RD{Type: wire.RD_AS2_ADMIN, ASN: 65001, Number: 9},
		Components: []FlowComponent{
			{Type: FlowDestPrefix, Prefix: wire.NewCIDR(netip.MustParsePrefix("198.51.100.0/24"))},
		},
	}
	got, rest, err := UnpackFlowSpec(wire.AFI_IPV4, true, f.Pack(nil), 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, f.RD, got.RD)
}

func TestUnpackOneWithAddPath(t *testing.T) {
	p := InetPrefix{CIDR: wire.NewCIDR(netip.MustParsePrefix("10.0.0.0/24")), AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST}
	raw := PackOne(nil, WithPathID{NLRI: p, PathID: 7}, true)
	got, pid, rest, err := UnpackOne(wire.IPv4Unicast, true, raw, 0)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, uint32(7), pid)
	assert.Equal(t, p.Index(), got.Index())
}

func TestUnpackAllDecodesMultipleEntries(t *testing.T) {
	p1 := InetPrefix{CIDR: wire.NewCIDR(netip.MustParsePrefix("10.0.0.0/24")), AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST}
	p2 := InetPrefix{CIDR: wire.NewCIDR(netip.MustParsePrefix("10.0.1.0/24")), AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST}
	raw := append(p1.Pack(nil), p2.Pack(nil)...)
	got, err := UnpackAll(wire.IPv4Unicast, false, raw, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "10.0.0.0/24", got[0].NLRI.String())
	assert.Equal(t, "10.0.1.0/24", got[1].NLRI.String())
}
