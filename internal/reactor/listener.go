package reactor

import (
	"net"

	"github.com/dc-labs/bgpd/internal/fsm"
)

// Listen opens one listening socket on addr (empty string for the
// wildcard) and accepts inbound BGP connections, matching each one to a
// configured peer by remote address and handing it to that peer's task
// as its passive-side connection attempt (spec §4.7 "listening sockets
// ... one per configured local address, or the wildcard"). A connection
// from an address with no matching peer config is closed immediately.
func (r *Reactor) Listen(addr string) error {
	l, err := net.Listen("tcp", net.JoinHostPort(addr, "179"))
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()

	go r.accept(l)
	return nil
}

func (r *Reactor) accept(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		go r.handleInbound(conn)
	}
}

func (r *Reactor) handleInbound(conn net.Conn) {
	remote, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		conn.Close()
		return
	}

	r.mu.Lock()
	t, ok := r.peers[remote]
	r.mu.Unlock()
	if !ok {
		conn.Close()
		return
	}

	peer := fsm.NewPeer(t.cfg, t.out, t.events, "bgpd")
	if err := peer.RunOnce(conn, t.stop); err != nil {
		r.log.Debug().Str("peer", remote).Err(err).Msg("inbound session ended")
	}
}
