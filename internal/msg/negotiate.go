package msg

import (
	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/wire"
)

// Negotiate folds a local OPEN and the peer's OPEN into the frozen
// Negotiated value every later codec consults (spec §4.4):
//   - hold time is the minimum of the two offered, 0 or >=3 (callers must
//     have already rejected an OPEN offering 1 or 2 before reaching here)
//   - families are the intersection of each side's Multiprotocol set
//   - ADD-PATH direction per family is the conjunction of what each side
//     offered (local Send matches peer Receive and vice versa)
//   - ASN4 requires both sides to advertise the capability
//   - Extended Message requires both sides
//   - Graceful Restart is active if the peer advertised it
func Negotiate(localASN wire.ASN, local, peer Open) *negotiated.Negotiated {
	n := &negotiated.Negotiated{
		LocalASN:      localASN,
		PeerASN:       effectiveASN(peer),
		LocalRouterID: local.RouterID,
		PeerRouterID:  peer.RouterID,
		HoldTime:      minHold(local.HoldTime, peer.HoldTime),
	}

	localFamilies := multiprotocolFamilies(local.Capabilities)
	peerFamilies := multiprotocolFamilies(peer.Capabilities)
	for f := range localFamilies {
		if peerFamilies[f] {
			n.Families = append(n.Families, f)
		}
	}

	n.ASN4 = hasCapability(local.Capabilities, CapASN4) && hasCapability(peer.Capabilities, CapASN4)
	n.ExtendedMessage = hasCapability(local.Capabilities, CapExtendedMessage) && hasCapability(peer.Capabilities, CapExtendedMessage)
	n.EnhancedRefresh = hasCapability(local.Capabilities, CapEnhancedRefresh) && hasCapability(peer.Capabilities, CapEnhancedRefresh)

	localAddPath := addPathFamilies(local.Capabilities)
	peerAddPath := addPathFamilies(peer.Capabilities)
	n.AddPath = map[wire.Family]negotiated.AddPathDirection{}
	for f := range localFamilies {
		if !peerFamilies[f] {
			continue
		}
		l := localAddPath[f]
		p := peerAddPath[f]
		var dir negotiated.AddPathDirection
		send := l.Send && p.Receive
		recv := l.Receive && p.Send
		switch {
		case send && recv:
			dir = negotiated.AddPathBoth
		case send:
			dir = negotiated.AddPathSend
		case recv:
			dir = negotiated.AddPathReceive
		default:
			dir = negotiated.AddPathNone
		}
		if dir != negotiated.AddPathNone {
			n.AddPath[f] = dir
		}
	}

	for _, c := range peer.Capabilities {
		if c.Code == CapGracefulRestart {
			n.GracefulRestart = true
			n.GRStaleTime = c.GRStaleTime
			n.Restarting = c.GRRestartFlag
			n.GRForwardingBit = map[wire.Family]bool{}
			for _, gf := range c.GRFamilies {
				n.GRForwardingBit[gf.Family] = gf.Forwarding
			}
		}
		if c.Code == CapMultipleLabels {
			// Multiple Labels (RFC 8277 draft extension) is not
			// originated by this speaker, so nothing is recorded in
			// n.MultipleLabels; the peer's capability is accepted so
			// session setup never fails on it.
		}
	}

	return n
}

// effectiveASN prefers the ASN4 capability's value over the OPEN
// message's 2-byte field, which may only carry AS_TRANS.
func effectiveASN(o Open) wire.ASN {
	for _, c := range o.Capabilities {
		if c.Code == CapASN4 {
			return c.ASN4
		}
	}
	return o.ASN
}

func minHold(a, b uint16) uint16 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func multiprotocolFamilies(caps []Capability) map[wire.Family]bool {
	out := map[wire.Family]bool{}
	hasMP := false
	for _, c := range caps {
		if c.Code == CapMultiprotocol {
			out[c.MPFamily] = true
			hasMP = true
		}
	}
	if !hasMP {
		// RFC 4271 peers that never sent Multiprotocol are assumed to
		// speak plain IPv4 unicast only.
		out[wire.IPv4Unicast] = true
	}
	return out
}

func hasCapability(caps []Capability, code CapabilityCode) bool {
	for _, c := range caps {
		if c.Code == code {
			return true
		}
	}
	return false
}

type addPathDirs struct {
	Send, Receive bool
}

func addPathFamilies(caps []Capability) map[wire.Family]addPathDirs {
	out := map[wire.Family]addPathDirs{}
	for _, c := range caps {
		if c.Code != CapAddPath {
			continue
		}
		for _, f := range c.AddPathFamilies {
			out[f.Family] = addPathDirs{Send: f.Send, Receive: f.Receive}
		}
	}
	return out
}

// ValidateOpen applies the fixed rejection rules spec §4.4 requires
// before negotiation: version must be 4, hold time must be 0 or >=3, and
// capability codes must not repeat in a way DuplicateCapabilityCodes
// flags as fatal.
func ValidateOpen(o Open) error {
	if o.Version != 4 {
		return Notify(NotifyOpenError, OpenUnsupportedVersion)
	}
	if o.HoldTime != 0 && o.HoldTime < 3 {
		return Notify(NotifyOpenError, OpenUnacceptableHoldTime)
	}
	if DuplicateCapabilityCodes(o.Capabilities) {
		return Notify(NotifyOpenError, OpenUnsupportedCapability)
	}
	return nil
}
