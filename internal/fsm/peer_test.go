package fsm

import (
	"net"
	"testing"
	"time"

	"github.com/dc-labs/bgpd/internal/msg"
	"github.com/dc-labs/bgpd/internal/wire"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		PeerAddress: "192.0.2.1",
		LocalASN:    65001,
		PeerASN:     65002,
		RouterID:    0x0A000001,
		HoldTime:    9,
		Families:    []wire.Family{wire.IPv4Unicast},
	}
}

// readMessage decodes one framed BGP message from conn, the same way
// connection.reader does, so the test side can act as a bare peer.
func readMessage(t *testing.T, conn net.Conn) msg.Message {
	t.Helper()
	var header [msg.HeaderLen]byte
	_, err := readFull(conn, header[:])
	require.NoError(t, err)
	_, total, err := msg.UnpackHeader(header[:], 65535)
	require.NoError(t, err)
	body := make([]byte, total-msg.HeaderLen)
	_, err = readFull(conn, body)
	require.NoError(t, err)
	full := append(append([]byte{}, header[:]...), body...)
	m, _, err := msg.Decode(nil, full, 65535)
	require.NoError(t, err)
	return m
}

func readFull(conn net.Conn, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := conn.Read(b[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestPeerEstablishesOverAcceptedConnection(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	cfg := testConfig()
	events := make(chan Event, 32)
	outUpdates := make(chan msg.Update)
	p := NewPeer(cfg, outUpdates, events, "")

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- p.RunOnce(serverSide, stop) }()

	// The peer sends its OPEN as soon as the connection is accepted.
	openMsg := readMessage(t, clientSide)
	_, ok := openMsg.(msg.Open)
	require.True(t, ok)

	peerOpen := msg.Open{
		Version:  4,
		ASN:      cfg.PeerASN,
		HoldTime: 9,
		RouterID: 0x0A000002,
		Capabilities: []msg.Capability{
			{Code: msg.CapMultiprotocol, MPFamily: wire.IPv4Unicast},
		},
	}
	_, err := clientSide.Write(peerOpen.Pack())
	require.NoError(t, err)

	// The peer replies with a KEEPALIVE once OPEN is accepted.
	ka := readMessage(t, clientSide)
	_, ok = ka.(msg.Keepalive)
	require.True(t, ok)

	_, err = clientSide.Write(msg.Keepalive{}.Pack())
	require.NoError(t, err)

	var sawOpenConfirm, sawEstablished bool
	deadline := time.After(2 * time.Second)
	for !sawEstablished {
		select {
		case ev := <-events:
			if ev.State == OpenConfirm {
				sawOpenConfirm = true
			}
			if ev.State == Established {
				sawEstablished = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for Established")
		}
	}
	require.True(t, sawOpenConfirm)
	require.True(t, sawEstablished)

	close(stop)
	clientSide.Close()
	<-done
}

func TestPeerRejectsMatchingRouterID(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	cfg := testConfig()
	events := make(chan Event, 32)
	outUpdates := make(chan msg.Update)
	p := NewPeer(cfg, outUpdates, events, "")

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- p.RunOnce(serverSide, stop) }()

	readMessage(t, clientSide) // local OPEN

	peerOpen := msg.Open{Version: 4, ASN: cfg.PeerASN, HoldTime: 9, RouterID: cfg.RouterID}
	_, err := clientSide.Write(peerOpen.Pack())
	require.NoError(t, err)

	notif := readMessage(t, clientSide)
	n, ok := notif.(msg.Notification)
	require.True(t, ok)
	require.Equal(t, msg.NotifyOpenError, n.Code)

	close(stop)
	clientSide.Close()
	<-done
}

func TestPeerRejectsBadVersionOpen(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	cfg := testConfig()
	events := make(chan Event, 32)
	outUpdates := make(chan msg.Update)
	p := NewPeer(cfg, outUpdates, events, "")

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- p.RunOnce(serverSide, stop) }()

	readMessage(t, clientSide)

	badOpen := msg.Open{Version: 3, ASN: cfg.PeerASN, HoldTime: 9, RouterID: 0x0A000002}
	_, err := clientSide.Write(badOpen.Pack())
	require.NoError(t, err)

	notif := readMessage(t, clientSide)
	n, ok := notif.(msg.Notification)
	require.True(t, ok)
	require.Equal(t, msg.NotifyOpenError, n.Code)

	close(stop)
	clientSide.Close()
	<-done
}

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "established", Established.String())
	require.Equal(t, "unknown", State(99).String())
}
