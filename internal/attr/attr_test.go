package attr

import (
	"testing"

	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packAndDecode(t *testing.T, n *negotiated.Negotiated, a Attribute) Attribute {
	t.Helper()
	raw := Pack(n, a)
	flags := Flags(raw[0])
	code := Code(raw[1])
	var body []byte
	if flags.ExtendedLength() {
		length := int(raw[2])<<8 | int(raw[3])
		body = raw[4 : 4+length]
	} else {
		length := int(raw[2])
		body = raw[3 : 3+length]
	}
	got, err := decodeOne(n, code, flags, body, 0)
	require.NoError(t, err)
	return got
}

func TestOriginRoundTrip(t *testing.T) {
	got := packAndDecode(t, nil, Origin{Value: OriginIGP})
	assert.Equal(t, Origin{Value: OriginIGP}, got)
}

func TestNextHopRoundTrip(t *testing.T) {
	got := packAndDecode(t, nil, NextHop{Address: [4]byte{10, 0, 0, 1}})
	assert.Equal(t, NextHop{Address: [4]byte{10, 0, 0, 1}}, got)
}

func TestASPathRoundTripWide(t *testing.T) {
	p := ASPath{Segments: []Segment{{Type: SegSequence, ASNs: []wire.ASN{65001, 4200000000}}}}
	n := &negotiated.Negotiated{ASN4: true}
	got := packAndDecode(t, n, p)
	assert.Equal(t, p, got)
}

func TestASPathRoundTripNarrow(t *testing.T) {
	p := ASPath{Segments: []Segment{{Type: SegSequence, ASNs: []wire.ASN{65001, 65002}}}}
	n := &negotiated.Negotiated{ASN4: false}
	got := packAndDecode(t, n, p)
	assert.Equal(t, p, got)
}

func TestASPathNarrowSubstitutesASTrans(t *testing.T) {
	p := ASPath{Segments: []Segment{{Type: SegSequence, ASNs: []wire.ASN{4200000000}}}}
	n := &negotiated.Negotiated{ASN4: false}
	got := packAndDecode(t, n, p).(ASPath)
	require.Len(t, got.Segments, 1)
	assert.Equal(t, wire.ASN(wire.ASTrans), got.Segments[0].ASNs[0])
}

func TestCommunitiesRoundTrip(t *testing.T) {
	c := Communities{Values: []Community{100<<16 | 200, 1<<16 | 1}}
	got := packAndDecode(t, nil, c)
	assert.Equal(t, c, got)
}

func TestLargeCommunitiesRoundTrip(t *testing.T) {
	c := LargeCommunities{Values: []LargeCommunity{{GlobalAdmin: 65001, LocalData1: 1, LocalData2: 2}}}
	got := packAndDecode(t, nil, c)
	assert.Equal(t, c, got)
}

func TestMPReachNLRIIPv6RoundTrip(t *testing.T) {
	m := MPReachNLRI{
		Family:  wire.IPv6Unicast,
		NextHop: make([]byte, 16),
	}
	wireBytes := Pack(nil, m)
	flags := Flags(wireBytes[0])
	length := int(wireBytes[2])
	body := wireBytes[3 : 3+length]
	got, err := unpackMPReach(nil, flags, body, 0)
	require.NoError(t, err)
	gotM := got.(MPReachNLRI)
	assert.Equal(t, wire.IPv6Unicast, gotM.Family)
}

func TestUnknownAttributeRemarkedPartial(t *testing.T) {
	u := Unknown{UnknownCode: 200, RawFlags: FlagOptional | FlagTransitive, Body: []byte{1, 2, 3}}
	assert.True(t, u.Flags().Partial())
}

func TestUnpackSetRejectsDuplicateWellKnown(t *testing.T) {
	set := append(Pack(nil, Origin{Value: OriginIGP}), Pack(nil, Origin{Value: OriginEGP})...)
	_, err := UnpackSet(nil, set, 0)
	assert.Error(t, err)
}

func TestPackSetCanonicalOrder(t *testing.T) {
	attrs := []Attribute{
		NextHop{Address: [4]byte{1, 2, 3, 4}},
		Origin{Value: OriginIGP},
	}
	out := PackSet(nil, attrs)
	decoded, err := UnpackSet(nil, out, 0)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, CodeOrigin, decoded[0].Code())
	assert.Equal(t, CodeNextHop, decoded[1].Code())
}
