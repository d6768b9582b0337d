package api

import (
	"fmt"
	"strings"

	"github.com/dc-labs/bgpd/internal/fsm"
	"github.com/dc-labs/bgpd/internal/reactor"
	"github.com/dc-labs/bgpd/internal/rib"
)

// Dispatcher applies parsed Commands against a running Reactor, matching
// neighbor filters against every configured peer (spec §4.8 "dispatch
// only to peers matching every filter").
type Dispatcher struct {
	r *reactor.Reactor
}

func NewDispatcher(r *reactor.Reactor) *Dispatcher {
	return &Dispatcher{r: r}
}

// matchingPeers returns every configured peer address whose session
// identity satisfies the filter.
func (d *Dispatcher) matchingPeers(f NeighborFilter) []string {
	var out []string
	for _, addr := range d.r.Peers() {
		cfg, ok := d.r.ConfigFor(addr)
		if !ok {
			continue
		}
		routerID := fmt.Sprintf("%d.%d.%d.%d",
			byte(cfg.RouterID>>24), byte(cfg.RouterID>>16), byte(cfg.RouterID>>8), byte(cfg.RouterID))
		if f.Matches(addr, cfg.PeerASN, routerID) {
			out = append(out, addr)
		}
	}
	return out
}

// Dispatch applies cmd to every matching peer and returns the lines to
// write back to the issuing client/process (spec §4.9 "streams responses
// back ... terminated by a done sentinel" — the sentinel itself is added
// by the caller, not here).
func (d *Dispatcher) Dispatch(cmd Command) ([]string, error) {
	switch cmd.Verb {
	case VerbComment:
		return nil, nil

	case VerbAnnounce, VerbWithdraw:
		if cmd.IsEOR {
			for _, addr := range d.matchingPeers(cmd.Filter) {
				if err := d.r.EmitEndOfRIB(addr, cmd.Family); err != nil {
					return nil, err
				}
			}
			return nil, nil
		}
		if cmd.IsRR {
			// Route-refresh requests are accepted by the grammar but have
			// no effect: the reactor has no way to send a ROUTE-REFRESH
			// to a peer, and this speaker never originates one.
			return nil, nil
		}
		for _, addr := range d.matchingPeers(cmd.Filter) {
			if err := d.r.Announce(addr, cmd.Change); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case VerbTeardown, VerbRestart, VerbShutdown, VerbReload, VerbReset:
		// Process-lifecycle verbs are accepted by the grammar, but no part
		// of the daemon acts on them: dispatch returns without effect.
		return nil, nil

	case VerbShowNeighbor:
		var lines []string
		for _, addr := range d.matchingPeers(cmd.Filter) {
			cfg, _ := d.r.ConfigFor(addr)
			lines = append(lines, formatNeighborSummary(addr, cfg))
		}
		return lines, nil

	case VerbShowAdjRIB:
		var lines []string
		for _, addr := range d.matchingPeers(cmd.Filter) {
			rb := d.r.RIBFor(addr)
			if rb == nil {
				continue
			}
			for _, c := range rb.All() {
				lines = append(lines, formatChange(addr, c))
			}
		}
		return lines, nil

	case VerbFlushAdjRIB, VerbClearAdjRIB:
		return nil, nil

	case VerbPing:
		return []string{"pong"}, nil

	case VerbStatus:
		return []string{fmt.Sprintf("peers %d", len(d.r.Peers()))}, nil

	case VerbAckControl, VerbSyncControl:
		return nil, nil

	default:
		return nil, fmt.Errorf("unhandled verb %q", cmd.Verb)
	}
}

func formatNeighborSummary(addr string, cfg fsm.Config) string {
	var fams []string
	for _, f := range cfg.Families {
		fams = append(fams, f.String())
	}
	return fmt.Sprintf("neighbor %s local-as %d peer-as %d families %s",
		addr, cfg.LocalASN, cfg.PeerASN, strings.Join(fams, ","))
}

func formatChange(addr string, c rib.Change) string {
	verb := "announced"
	if c.Withdraw {
		verb = "withdrawn"
	}
	return fmt.Sprintf("neighbor %s %s route %s path-id %d", addr, verb, c.NLRI, c.PathID)
}
