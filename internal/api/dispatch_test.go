package api

import (
	"testing"

	"github.com/dc-labs/bgpd/internal/fsm"
	"github.com/dc-labs/bgpd/internal/reactor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *reactor.Reactor) {
	t.Helper()
	r := reactor.New(zerolog.Nop())
	r.Reload(reactor.NeighborSet{
		"192.0.2.1": fsm.Config{PeerAddress: "192.0.2.1", LocalASN: 65001, PeerASN: 65002, RouterID: 0x0A000001},
	})
	t.Cleanup(r.Shutdown)
	return NewDispatcher(r), r
}

func TestDispatchPingReturnsPong(t *testing.T) {
	d, _ := newTestDispatcher(t)
	out, err := d.Dispatch(Command{Verb: VerbPing})
	require.NoError(t, err)
	assert.Equal(t, []string{"pong"}, out)
}

func TestDispatchStatusReportsPeerCount(t *testing.T) {
	d, _ := newTestDispatcher(t)
	out, err := d.Dispatch(Command{Verb: VerbStatus})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "peers 1", out[0])
}

func TestDispatchCommentIsNoOp(t *testing.T) {
	d, _ := newTestDispatcher(t)
	out, err := d.Dispatch(Command{Verb: VerbComment})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDispatchShowNeighborMatchesFilter(t *testing.T) {
	d, _ := newTestDispatcher(t)
	cmd := Command{Verb: VerbShowNeighbor, Filter: NeighborFilter{Address: "192.0.2.1"}}
	out, err := d.Dispatch(cmd)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "192.0.2.1")
	assert.Contains(t, out[0], "peer-as 65002")
}

func TestDispatchShowNeighborFilterExcludesNonMatching(t *testing.T) {
	d, _ := newTestDispatcher(t)
	cmd := Command{Verb: VerbShowNeighbor, Filter: NeighborFilter{Address: "198.51.100.1"}}
	out, err := d.Dispatch(cmd)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDispatchUnhandledVerbErrors(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.Dispatch(Command{Verb: Verb("bogus")})
	assert.Error(t, err)
}

func TestDispatchAnnounceUnknownPeerIsNoOp(t *testing.T) {
	d, _ := newTestDispatcher(t)
	cmd := Command{
		Verb:   VerbAnnounce,
		Filter: NeighborFilter{Address: "203.0.113.1"},
	}
	_, err := d.Dispatch(cmd)
	assert.NoError(t, err, "no matching peer means nothing to announce to, not an error")
}
