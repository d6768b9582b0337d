package api

import (
	"encoding/json"
	"net/netip"
	"testing"

	"github.com/dc-labs/bgpd/internal/fsm"
	"github.com/dc-labs/bgpd/internal/msg"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEventTextState(t *testing.T) {
	ev := fsm.Event{Peer: "192.0.2.1", State: fsm.Established}
	out := RenderEvent(EncoderText, ev)
	assert.Equal(t, "neighbor 192.0.2.1 state established", out)
}

func TestRenderEventJSONState(t *testing.T) {
	ev := fsm.Event{Peer: "192.0.2.1", State: fsm.Established}
	out := RenderEvent(EncoderJSON, ev)
	var je map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &je))
	assert.Equal(t, "state", je["type"])
	assert.Equal(t, "established", je["state"])
}

func TestRenderEventTextUpdateAnnounce(t *testing.T) {
	p := nlri.InetPrefix{CIDR: wire.NewCIDR(netip.MustParsePrefix("10.0.0.0/24")), AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST}
	ev := fsm.Event{
		Peer: "192.0.2.1",
		Msg: msg.Update{
			NLRIs: []nlri.WithPathID{{NLRI: p}},
		},
	}
	out := RenderEvent(EncoderText, ev)
	assert.Equal(t, "neighbor 192.0.2.1 announced route 10.0.0.0/24", out)
}

func TestRenderEventJSONUpdateWithdraw(t *testing.T) {
	p := nlri.InetPrefix{CIDR: wire.NewCIDR(netip.MustParsePrefix("10.0.0.0/24")), AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST}
	ev := fsm.Event{
		Peer: "192.0.2.1",
		Msg: msg.Update{
			WithdrawnRoutes: []nlri.WithPathID{{NLRI: p}},
		},
	}
	out := RenderEvent(EncoderJSON, ev)
	var je map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &je))
	assert.Equal(t, "update", je["type"])
	message := je["message"].(map[string]any)
	update := message["update"].(map[string]any)
	withdraw := update["withdraw"].([]any)
	require.Len(t, withdraw, 1)
	assert.Equal(t, "10.0.0.0/24", withdraw[0])
}

func TestRenderEventTextEmptyUpdateIsEOR(t *testing.T) {
	ev := fsm.Event{Peer: "192.0.2.1", Msg: msg.Update{}}
	out := RenderEvent(EncoderText, ev)
	assert.Equal(t, "neighbor 192.0.2.1 eor", out)
}

func TestRenderEventTextNotification(t *testing.T) {
	ev := fsm.Event{Peer: "192.0.2.1", Msg: msg.Notification{Code: msg.NotifyHoldTimerExpired, Subcode: 0}}
	out := RenderEvent(EncoderText, ev)
	assert.Equal(t, "neighbor 192.0.2.1 notification 4/0", out)
}

func TestRenderEventJSONNotification(t *testing.T) {
	ev := fsm.Event{Peer: "192.0.2.1", Msg: msg.Notification{Code: msg.NotifyHoldTimerExpired, Subcode: 2}}
	out := RenderEvent(EncoderJSON, ev)
	var je map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &je))
	message := je["message"].(map[string]any)
	notif := message["notification"].(map[string]any)
	assert.Equal(t, float64(4), notif["code"])
	assert.Equal(t, float64(2), notif["subcode"])
}

func TestRenderEventKeepalive(t *testing.T) {
	ev := fsm.Event{Peer: "192.0.2.1", Msg: msg.Keepalive{}}
	assert.Equal(t, "neighbor 192.0.2.1 keepalive", RenderEvent(EncoderText, ev))
}
