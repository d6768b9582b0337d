package reactor

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dc-labs/bgpd/internal/fsm"
	"github.com/dc-labs/bgpd/internal/msg"
	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/rib"
	"github.com/dc-labs/bgpd/internal/wire"
	"github.com/rs/zerolog"
)

// peerTask is the reactor's bookkeeping for one running fsm.Peer.
type peerTask struct {
	cfg    fsm.Config
	stop   chan struct{}
	out    chan msg.Update
	events chan fsm.Event
	rib    *rib.AdjRIBOut
	neg    atomic.Pointer[negotiated.Negotiated]
}

// Reactor supervises every peer task and listening socket, applies
// configuration reloads atomically, and forwards peer events to
// whatever owns cross-peer concerns (the API bridge, metrics). It holds
// no BGP wire-format knowledge itself — that lives entirely in msg/attr/
// nlri/fsm — matching the Design Notes' "reactor as pure scheduler".
type Reactor struct {
	log zerolog.Logger

	mu      sync.Mutex
	peers   map[string]*peerTask
	current NeighborSet

	listeners []net.Listener

	// OnEvent is invoked for every peer state change or received
	// message; nil is valid and simply drops events (used by tests).
	OnEvent func(fsm.Event)
}

func New(log zerolog.Logger) *Reactor {
	return &Reactor{
		log:     log,
		peers:   map[string]*peerTask{},
		current: NeighborSet{},
	}
}

// RIBFor returns the Adj-RIB-Out for an already-running peer, or nil if
// no such peer is configured. Callers (the API bridge translating
// announce/withdraw commands) use this to push Changes.
func (r *Reactor) RIBFor(peerAddr string) *rib.AdjRIBOut {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.peers[peerAddr]
	if !ok {
		return nil
	}
	return t.rib
}

// ConfigFor returns the running Config for a peer, for callers (the API
// dispatcher's neighbor-filter matching) that need session identity
// facts without reaching into the reactor's internals.
func (r *Reactor) ConfigFor(peerAddr string) (fsm.Config, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.peers[peerAddr]
	if !ok {
		return fsm.Config{}, false
	}
	return t.cfg, true
}

// Peers lists every currently configured peer address.
func (r *Reactor) Peers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.peers))
	for addr := range r.peers {
		out = append(out, addr)
	}
	return out
}

// Reload applies a candidate neighbor set: peers whose identity changed
// are torn down and recreated (dropping their Adj-RIB-Out, since a
// changed ASN/router-id/family set is a different logical session);
// peers with only session-level changes keep their Adj-RIB-Out and
// ADD-PATH identity map intact and have their stored Config replaced
// (spec §4.7, §4.6 ADD-PATH identity preservation). The stored Config is
// what ConfigFor reports and what inbound connections accepted afterwards
// run with; the peer task's outbound connect loop keeps the Config it
// was started with.
func (r *Reactor) Reload(candidate NeighborSet) {
	r.mu.Lock()
	added, removed, modified := Diff(r.current, candidate)
	r.mu.Unlock()

	for _, addr := range removed {
		r.stopPeer(addr)
	}
	for _, addr := range added {
		r.startPeer(addr, candidate[addr])
	}
	for _, addr := range modified {
		r.mu.Lock()
		if t, ok := r.peers[addr]; ok {
			t.cfg = candidate[addr]
		}
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.current = candidate
	r.mu.Unlock()
}

func (r *Reactor) startPeer(addr string, cfg fsm.Config) {
	events := make(chan fsm.Event, 64)
	out := make(chan msg.Update, 16)
	stop := make(chan struct{})
	t := &peerTask{cfg: cfg, stop: stop, out: out, events: events, rib: rib.NewAdjRIBOut()}

	r.mu.Lock()
	r.peers[addr] = t
	r.mu.Unlock()

	peer := fsm.NewPeer(cfg, out, events, "bgpd")

	go func() {
		for ev := range events {
			if ev.Neg != nil {
				t.neg.Store(ev.Neg)
			}
			if rr, ok := ev.Msg.(msg.RouteRefresh); ok && rr.Subtype == msg.RouteRefreshNormal {
				var again []rib.Change
				for _, c := range t.rib.All() {
					if c.Family == rr.Family {
						again = append(again, c)
					}
				}
				for _, u := range append(rib.BuildUpdates(t.neg.Load(), again), rib.EndOfRIB(rr.Family)) {
					_ = r.send(t, u)
				}
			}
			if r.OnEvent != nil {
				r.OnEvent(ev)
			}
		}
	}()

	go peer.Run(stop)
}

// Announce records a route Change in a peer's Adj-RIB-Out and, if the
// change produces new pending work, immediately builds and enqueues the
// resulting UPDATE messages (spec §5 "a Change enqueued for a peer is
// observed by the outgoing pipeline in submission order").
func (r *Reactor) Announce(peerAddr string, c rib.Change) error {
	t, err := r.taskFor(peerAddr)
	if err != nil {
		return err
	}
	if c.Withdraw {
		t.rib.Withdraw(c.Family, c.NLRI.Index(), c.PathID)
	} else {
		t.rib.Announce(c)
	}
	return r.flush(t)
}

// EmitEndOfRIB enqueues an End-of-RIB marker for family f (spec §4.6,
// §5 "EOR for a family is emitted after all Changes submitted for that
// family before the EOR command").
func (r *Reactor) EmitEndOfRIB(peerAddr string, f wire.Family) error {
	t, err := r.taskFor(peerAddr)
	if err != nil {
		return err
	}
	return r.send(t, rib.EndOfRIB(f))
}

func (r *Reactor) taskFor(peerAddr string) (*peerTask, error) {
	r.mu.Lock()
	t, ok := r.peers[peerAddr]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no such peer %q", peerAddr)
	}
	return t, nil
}

func (r *Reactor) flush(t *peerTask) error {
	pending := t.rib.Pending()
	if len(pending) == 0 {
		return nil
	}
	updates := rib.BuildUpdates(t.neg.Load(), pending)
	for _, u := range updates {
		if err := r.send(t, u); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reactor) send(t *peerTask, u msg.Update) error {
	select {
	case t.out <- u:
		return nil
	default:
		return fmt.Errorf("peer outbound queue full")
	}
}

func (r *Reactor) stopPeer(addr string) {
	r.mu.Lock()
	t, ok := r.peers[addr]
	if ok {
		delete(r.peers, addr)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	close(t.stop)
	close(t.out)
}

// Shutdown tears down every peer task; used on process exit (spec's
// exit-code-0 clean shutdown path).
func (r *Reactor) Shutdown() {
	r.mu.Lock()
	addrs := make([]string, 0, len(r.peers))
	for addr := range r.peers {
		addrs = append(addrs, addr)
	}
	r.mu.Unlock()
	for _, addr := range addrs {
		r.stopPeer(addr)
	}
	for _, l := range r.listeners {
		l.Close()
	}
}
