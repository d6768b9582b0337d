package rib

import (
	"net/netip"

	"github.com/dc-labs/bgpd/internal/attr"
	"github.com/dc-labs/bgpd/internal/msg"
	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/wire"
)

// BuildUpdates groups changes into the minimum-ish set of UPDATE
// messages honoring spec §4.6's batching rules: Changes sharing an
// attribute set share one UPDATE, withdrawals for non-IPv4-unicast
// families travel inside MP_UNREACH, and no single message exceeds
// Negotiated.MaxMessageSize(). Families absent from the family set
// negotiated for this peer are silently dropped — that should not
// happen if callers only ever announce routes for negotiated families,
// but defending here keeps a misconfigured caller from producing
// wire-invalid UPDATEs.
func BuildUpdates(n *negotiated.Negotiated, changes []Change) []msg.Update {
	var updates []msg.Update

	v4Withdraw, v4Announce, mpGroups := partition(n, changes)

	for len(v4Withdraw) > 0 || len(v4Announce) > 0 {
		u, restW, restA := oneV4Update(n, v4Withdraw, v4Announce)
		updates = append(updates, u)
		v4Withdraw, v4Announce = restW, restA
	}

	for _, g := range mpGroups {
		updates = append(updates, mpUpdatesFor(n, g)...)
	}

	return updates
}

type group struct {
	family   wire.Family
	withdraw []nlri.WithPathID
	byAttrs  map[string]*attrGroup
	order    []string
}

type attrGroup struct {
	attrs   []attr.Attribute
	nextHop netip.Addr
	nlris   []nlri.WithPathID
}

func partition(n *negotiated.Negotiated, changes []Change) ([]nlri.WithPathID, []withAttrs, map[wire.Family]*group) {
	var v4W []nlri.WithPathID
	var v4A []withAttrs
	groups := map[wire.Family]*group{}

	for _, c := range changes {
		if n != nil && !n.HasFamily(c.Family) {
			continue
		}
		if c.Family == wire.IPv4Unicast {
			if c.Withdraw {
				v4W = append(v4W, c.withPathID())
			} else {
				v4A = append(v4A, withAttrs{w: c.withPathID(), attrs: c.Attributes})
			}
			continue
		}
		g, ok := groups[c.Family]
		if !ok {
			g = &group{family: c.Family, byAttrs: map[string]*attrGroup{}}
			groups[c.Family] = g
		}
		if c.Withdraw {
			g.withdraw = append(g.withdraw, c.withPathID())
			continue
		}
		k := attrKey(c.Attributes) + "|" + c.NextHop.String()
		ag, ok := g.byAttrs[k]
		if !ok {
			ag = &attrGroup{attrs: c.Attributes, nextHop: c.NextHop}
			g.byAttrs[k] = ag
			g.order = append(g.order, k)
		}
		ag.nlris = append(ag.nlris, c.withPathID())
	}

	return v4W, v4A, groups
}

type withAttrs struct {
	w     nlri.WithPathID
	attrs []attr.Attribute
}

// oneV4Update takes one batch worth of plain-IPv4-unicast withdrawals
// and announcements (all announcements sharing the first entry's
// attribute set, per the batching rule) bounded by max message size,
// returning the built Update and the unconsumed remainder of each
// slice.
func oneV4Update(n *negotiated.Negotiated, withdraw []nlri.WithPathID, announce []withAttrs) (msg.Update, []nlri.WithPathID, []withAttrs) {
	maxLen := 4096
	if n != nil {
		maxLen = n.MaxMessageSize()
	}

	var u msg.Update
	var usedW, usedA int

	for usedW < len(withdraw) {
		u.WithdrawnRoutes = append(u.WithdrawnRoutes, withdraw[usedW])
		usedW++
		if len(u.Pack(n)) > maxLen && len(u.WithdrawnRoutes) > 1 {
			u.WithdrawnRoutes = u.WithdrawnRoutes[:len(u.WithdrawnRoutes)-1]
			usedW--
			break
		}
	}

	if usedW == len(withdraw) && len(announce) > 0 {
		batchAttrs := announce[0].attrs
		u.PathAttributes = batchAttrs
		for usedA < len(announce) && attrKey(announce[usedA].attrs) == attrKey(batchAttrs) {
			u.NLRIs = append(u.NLRIs, announce[usedA].w)
			usedA++
			if len(u.Pack(n)) > maxLen && len(u.NLRIs) > 1 {
				u.NLRIs = u.NLRIs[:len(u.NLRIs)-1]
				usedA--
				break
			}
		}
	}

	return u, withdraw[usedW:], announce[usedA:]
}

// mpUpdatesFor renders one family's withdrawals (MP_UNREACH) and
// per-attribute-set announcements (MP_REACH) as UPDATE messages, one
// MP_REACH/MP_UNREACH per UPDATE per spec §4.6.
func mpUpdatesFor(n *negotiated.Negotiated, g *group) []msg.Update {
	var out []msg.Update
	maxLen := 4096
	if n != nil {
		maxLen = n.MaxMessageSize()
	}

	for len(g.withdraw) > 0 {
		batch, rest := fitMPUnreach(n, g.family, g.withdraw, maxLen)
		out = append(out, msg.Update{PathAttributes: []attr.Attribute{attr.MPUnreachNLRI{Family: g.family, NLRIs: batch}}})
		g.withdraw = rest
	}

	for _, k := range g.order {
		ag := g.byAttrs[k]
		rest := ag.nlris
		for len(rest) > 0 {
			batch, remainder := fitMPReach(n, g.family, rest, ag.attrs, ag.nextHop, maxLen)
			attrs := append(append([]attr.Attribute{}, ag.attrs...), attr.MPReachNLRI{
				Family:  g.family,
				NextHop: mpNextHop(g.family, ag.nextHop),
				NLRIs:   batch,
			})
			out = append(out, msg.Update{PathAttributes: attrs})
			rest = remainder
		}
	}

	return out
}

// mpNextHop renders the MP_REACH next hop for family f carrying addr,
// per spec §4.2's table: VPNv4/VPNv6 get the RD=0 + IPv4/IPv6 shape
// nlri.VPNNextHop builds (12/24 bytes); every other family is a bare IP,
// 4 bytes wide unless f itself is IPv6 (EVPN and BGP-LS nexthops are
// carried under an L2VPN/BGP-LS AFI but are themselves ordinary IPv4 or
// IPv6 addresses, so an already-valid addr packs to its own natural
// width regardless of f.AFI). An invalid addr (the Change carried no
// next hop) yields the all-zero placeholder of the same width a real
// next hop would have had; nothing replaces the placeholder later.
func mpNextHop(f wire.Family, addr netip.Addr) []byte {
	if f.SAFI == wire.SAFI_MPLS_VPN {
		return nlri.VPNNextHop(f.AFI, addr)
	}
	if addr.IsValid() {
		return wire.PackIP(addr)
	}
	if f.AFI == wire.AFI_IPV6 {
		return make([]byte, 16)
	}
	return make([]byte, 4)
}

func fitMPUnreach(n *negotiated.Negotiated, f wire.Family, all []nlri.WithPathID, maxLen int) ([]nlri.WithPathID, []nlri.WithPathID) {
	var batch []nlri.WithPathID
	for i, w := range all {
		trial := append(append([]nlri.WithPathID{}, batch...), w)
		u := msg.Update{PathAttributes: []attr.Attribute{attr.MPUnreachNLRI{Family: f, NLRIs: trial}}}
		if len(batch) > 0 && len(u.Pack(n)) > maxLen {
			return batch, all[i:]
		}
		batch = trial
	}
	return batch, nil
}

func fitMPReach(n *negotiated.Negotiated, f wire.Family, all []nlri.WithPathID, attrs []attr.Attribute, nextHop netip.Addr, maxLen int) ([]nlri.WithPathID, []nlri.WithPathID) {
	var batch []nlri.WithPathID
	for i, w := range all {
		trial := append(append([]nlri.WithPathID{}, batch...), w)
		full := append(append([]attr.Attribute{}, attrs...), attr.MPReachNLRI{Family: f, NextHop: mpNextHop(f, nextHop), NLRIs: trial})
		u := msg.Update{PathAttributes: full}
		if len(u.Pack(n)) > maxLen && len(batch) > 0 {
			return batch, all[i:]
		}
		batch = trial
	}
	return batch, nil
}

// EndOfRIB builds the End-of-RIB marker UPDATE for f (spec §4.6): an
// empty UPDATE for IPv4 unicast, an empty MP_UNREACH otherwise.
func EndOfRIB(f wire.Family) msg.Update {
	if f == wire.IPv4Unicast {
		return msg.Update{}
	}
	return msg.Update{PathAttributes: []attr.Attribute{attr.MPUnreachNLRI{Family: f}}}
}
