package reactor

import (
	"net/netip"
	"testing"

	"github.com/dc-labs/bgpd/internal/attr"
	"github.com/dc-labs/bgpd/internal/fsm"
	"github.com/dc-labs/bgpd/internal/msg"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/rib"
	"github.com/dc-labs/bgpd/internal/wire"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffAddedRemovedModified(t *testing.T) {
	current := NeighborSet{
		"10.0.0.1": fsm.Config{PeerAddress: "10.0.0.1", LocalASN: 65001, PeerASN: 65002, RouterID: 1, HoldTime: 180},
	}
	candidate := NeighborSet{
		"10.0.0.1": fsm.Config{PeerAddress: "10.0.0.1", LocalASN: 65001, PeerASN: 65002, RouterID: 1, HoldTime: 90},
		"10.0.0.2": fsm.Config{PeerAddress: "10.0.0.2", LocalASN: 65001, PeerASN: 65003, RouterID: 2},
	}
	added, removed, modified := Diff(current, candidate)
	assert.Equal(t, []string{"10.0.0.2"}, added)
	assert.Empty(t, removed)
	assert.Equal(t, []string{"10.0.0.1"}, modified)
}

func TestDiffIdentityChangeForcesRecreate(t *testing.T) {
	current := NeighborSet{
		"10.0.0.1": fsm.Config{PeerAddress: "10.0.0.1", LocalASN: 65001, PeerASN: 65002, RouterID: 1},
	}
	candidate := NeighborSet{
		"10.0.0.1": fsm.Config{PeerAddress: "10.0.0.1", LocalASN: 65001, PeerASN: 65099, RouterID: 1},
	}
	added, removed, modified := Diff(current, candidate)
	assert.Equal(t, []string{"10.0.0.1"}, added)
	assert.Equal(t, []string{"10.0.0.1"}, removed)
	assert.Empty(t, modified)
}

func TestDiffRemovesAbsentNeighbor(t *testing.T) {
	current := NeighborSet{
		"10.0.0.1": fsm.Config{PeerAddress: "10.0.0.1"},
	}
	added, removed, modified := Diff(current, NeighborSet{})
	assert.Empty(t, added)
	assert.Equal(t, []string{"10.0.0.1"}, removed)
	assert.Empty(t, modified)
}

func newTestReactor() *Reactor {
	return New(zerolog.Nop())
}

func insertTask(r *Reactor, addr string) *peerTask {
	t := &peerTask{
		cfg:    fsm.Config{PeerAddress: addr},
		stop:   make(chan struct{}),
		out:    make(chan msg.Update, 16),
		events: make(chan fsm.Event, 16),
		rib:    rib.NewAdjRIBOut(),
	}
	r.mu.Lock()
	r.peers[addr] = t
	r.mu.Unlock()
	return r.peers[addr]
}

func TestAnnounceUnknownPeerErrors(t *testing.T) {
	r := newTestReactor()
	err := r.Announce("10.0.0.1", rib.Change{})
	assert.Error(t, err)
}

func TestAnnounceEnqueuesUpdate(t *testing.T) {
	r := newTestReactor()
	insertTask(r, "10.0.0.1")

	p := netip.MustParsePrefix("10.1.0.0/24")
	c := rib.Change{
		Family:     wire.IPv4Unicast,
		NLRI:       nlri.InetPrefix{CIDR: wire.NewCIDR(p), AFI: wire.AFI_IPV4, SAFI: wire.SAFI_UNICAST},
		Attributes: []attr.Attribute{attr.Origin{Value: attr.OriginIGP}},
	}
	require.NoError(t, r.Announce("10.0.0.1", c))

	out := r.peers["10.0.0.1"].out
	select {
	case u := <-out:
		require.Len(t, u.NLRIs, 1)
	default:
		t.Fatal("expected an UPDATE to be enqueued")
	}
}

func TestEmitEndOfRIBEnqueuesMarker(t *testing.T) {
	r := newTestReactor()
	insertTask(r, "10.0.0.1")
	require.NoError(t, r.EmitEndOfRIB("10.0.0.1", wire.IPv4Unicast))

	out := r.peers["10.0.0.1"].out
	select {
	case u := <-out:
		assert.True(t, u.IsEndOfRIB(wire.IPv4Unicast))
	default:
		t.Fatal("expected an End-of-RIB marker")
	}
}

func TestSendReportsQueueFull(t *testing.T) {
	r := newTestReactor()
	task := insertTask(r, "10.0.0.1")
	task.out = make(chan msg.Update) // unbuffered, no reader

	err := r.send(task, msg.Update{})
	assert.Error(t, err)
}

func TestConfigForAndPeers(t *testing.T) {
	r := newTestReactor()
	insertTask(r, "10.0.0.1")

	cfg, ok := r.ConfigFor("10.0.0.1")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", cfg.PeerAddress)

	_, ok = r.ConfigFor("10.0.0.9")
	assert.False(t, ok)

	assert.Equal(t, []string{"10.0.0.1"}, r.Peers())
}
