package fsm

import (
	"net"
	"net/netip"
	"time"

	"github.com/dc-labs/bgpd/internal/msg"
	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// Config is everything one peer task needs: the config-file model lives
// in internal/config and is translated into this shape once per reload
// (spec's "Configuration model" section).
type Config struct {
	LocalAddress netip.Addr
	PeerAddress  string
	LocalASN     wire.ASN
	PeerASN      wire.ASN
	RouterID     uint32
	HoldTime     uint16
	Passive      bool
	Families     []wire.Family
	AddPathRecv  map[wire.Family]bool
	AddPathSend  map[wire.Family]bool
	GracefulRestart bool
	GRStaleTime     uint16
	Description     string
}

// Event is pushed to the outer reactor so it can update RIBs, metrics
// and the API event stream without the FSM importing any of those
// packages (Design Notes: the reactor owns cross-peer state, the FSM
// owns one session).
type Event struct {
	Peer  string
	State State
	Msg   msg.Message
	Err   error
	Neg   *negotiated.Negotiated
}

// Peer runs one BGP session's RFC 4271 state machine as a single
// goroutine, suspending only in the documented suspension points
// (connect, read header, read body, write, timer waits) — the teacher's
// Session.try loop generalized from a fixed no-op UPDATE handler to the
// full codec and RIB-driven outbound stream.
type Peer struct {
	cfg    Config
	state  State
	events chan<- Event
	outUpdates <-chan msg.Update
	hostname string
}

// NewPeer constructs a peer task. outUpdates is the channel the RIB
// layer uses to push freshly computed UPDATE messages to send once
// Established; events is where state transitions and received messages
// are reported.
func NewPeer(cfg Config, outUpdates <-chan msg.Update, events chan<- Event, hostname string) *Peer {
	return &Peer{cfg: cfg, state: Idle, events: events, outUpdates: outUpdates, hostname: hostname}
}

func (p *Peer) setState(s State) {
	p.state = s
	p.events <- Event{Peer: p.cfg.PeerAddress, State: s}
}

// Run drives the connect-retry loop: Idle -> Connect/Active -> OpenSent
// -> OpenConfirm -> Established, reverting to Idle (after a connect-retry
// delay) on any error or NOTIFICATION in either direction. It returns
// only when stop is closed.
func (p *Peer) Run(stop <-chan struct{}) {
	retryDelay := 30 * time.Second

	for {
		select {
		case <-stop:
			return
		default:
		}

		p.setState(Connect)
		err := p.session(stop)
		p.setState(Idle)
		if err != nil {
			p.events <- Event{Peer: p.cfg.PeerAddress, Err: err}
		}

		select {
		case <-stop:
			return
		case <-time.After(retryDelay):
		}
	}
}

func (p *Peer) session(stop <-chan struct{}) error {
	raw, err := dial(p.cfg.LocalAddress, p.cfg.PeerAddress, 10*time.Second)
	if err != nil {
		return err
	}
	return p.runConn(raw, stop)
}

// RunOnce drives a single session over an already-accepted inbound
// connection (the passive side, matched by the reactor's listener to
// this peer's configured address) and returns when it ends, without the
// Run loop's connect-retry wrapper — the reactor decides whether and
// when to accept another inbound connection for this peer.
func (p *Peer) RunOnce(raw net.Conn, stop <-chan struct{}) error {
	p.setState(Connect)
	err := p.runConn(raw, stop)
	p.setState(Idle)
	return err
}

func (p *Peer) runConn(raw net.Conn, stop <-chan struct{}) error {
	conn := newConnection(raw)
	defer conn.close()

	localOpen := p.buildOpen()
	conn.queue(localOpen.Pack())
	p.setState(OpenSent)

	holdDur := time.Duration(p.cfg.HoldTime) * time.Second
	if holdDur == 0 {
		holdDur = 90 * time.Second // default offered before negotiation completes
	}
	holdTimer := time.NewTimer(holdDur)
	defer holdTimer.Stop()

	var keepaliveTicker *time.Ticker
	var keepaliveC <-chan time.Time

	var neg *negotiated.Negotiated

	for {
		select {
		case <-stop:
			conn.queue(msg.Notification{Code: msg.NotifyCease, Subcode: msg.CeaseAdministrativeShutdown}.Pack())
			return nil

		case m, ok := <-conn.C:
			if !ok {
				return errConn(conn)
			}
			holdTimer.Reset(holdDur)

			switch v := m.(type) {
			case msg.Notification:
				return v.AsError()

			case msg.Keepalive:
				if p.state == OpenConfirm {
					p.setState(Established)
				} else if p.state != Established {
					e := msg.Notify(msg.NotifyFSMError, 0)
					conn.queue(asNotification(e).Pack())
					return e
				}

			case msg.Open:
				if p.state != OpenSent {
					return msg.Notify(msg.NotifyFSMError, 0)
				}
				if err := msg.ValidateOpen(v); err != nil {
					conn.queue(asNotification(err).Pack())
					return err
				}
				if v.RouterID == p.cfg.RouterID {
					e := msg.Notify(msg.NotifyOpenError, msg.OpenBadBGPIdentifier)
					conn.queue(asNotification(e).Pack())
					return e
				}
				neg = msg.Negotiate(p.cfg.LocalASN, localOpen, v)
				conn.setNegotiated(neg)

				holdDur = time.Duration(neg.HoldTime) * time.Second
				if holdDur > 0 {
					holdTimer.Reset(holdDur)
					keepaliveTicker = time.NewTicker(holdDur / 3)
					keepaliveC = keepaliveTicker.C
				}

				conn.queue(msg.Keepalive{}.Pack())
				p.setState(OpenConfirm)
				p.events <- Event{Peer: p.cfg.PeerAddress, State: OpenConfirm, Neg: neg}

			case msg.Update:
				if p.state != Established {
					e := msg.Notify(msg.NotifyFSMError, 0)
					conn.queue(asNotification(e).Pack())
					return e
				}
				p.events <- Event{Peer: p.cfg.PeerAddress, Msg: v, Neg: neg}

			case msg.RouteRefresh:
				if p.state != Established {
					continue
				}
				p.events <- Event{Peer: p.cfg.PeerAddress, Msg: v, Neg: neg}
			}

		case u, ok := <-p.outUpdates:
			if !ok {
				p.outUpdates = nil
				continue
			}
			if p.state == Established {
				conn.queue(u.Pack(neg))
			}

		case <-keepaliveC:
			if p.state == Established {
				conn.queue(msg.Keepalive{}.Pack())
			}

		case <-holdTimer.C:
			e := msg.Notify(msg.NotifyHoldTimerExpired, 0)
			conn.queue(asNotification(e).Pack())
			return e
		}
	}
}

func (p *Peer) buildOpen() msg.Open {
	caps := []msg.Capability{
		{Code: msg.CapRouteRefresh},
		{Code: msg.CapASN4, ASN4: p.cfg.LocalASN},
	}
	for _, f := range p.cfg.Families {
		caps = append(caps, msg.Capability{Code: msg.CapMultiprotocol, MPFamily: f})
	}
	var apFamilies []msg.AddPathFamily
	for _, f := range p.cfg.Families {
		send := p.cfg.AddPathSend[f]
		recv := p.cfg.AddPathRecv[f]
		if send || recv {
			apFamilies = append(apFamilies, msg.AddPathFamily{Family: f, Send: send, Receive: recv})
		}
	}
	if len(apFamilies) > 0 {
		caps = append(caps, msg.Capability{Code: msg.CapAddPath, AddPathFamilies: apFamilies})
	}
	if p.cfg.GracefulRestart {
		caps = append(caps, msg.Capability{Code: msg.CapGracefulRestart, GRStaleTime: p.cfg.GRStaleTime})
	}

	asn2 := p.cfg.LocalASN
	return msg.Open{
		Version:      4,
		ASN:          asn2,
		HoldTime:     p.cfg.HoldTime,
		RouterID:     p.cfg.RouterID,
		Capabilities: caps,
	}
}

func asNotification(err error) msg.Notification {
	if ne, ok := err.(*msg.NotificationError); ok {
		return msg.Notification{Code: ne.Code, Subcode: ne.Subcode, Data: ne.Data}
	}
	return msg.Notification{Code: msg.NotifyCease, Subcode: msg.CeaseOtherConfigChange}
}

func errConn(c *connection) error {
	if c.Error == "" {
		return net.ErrClosed
	}
	return &connError{c.Error}
}

type connError struct{ s string }

func (e *connError) Error() string { return e.s }
