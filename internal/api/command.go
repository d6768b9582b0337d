// Package api implements the subprocess API bridge (spec §4.8): the
// reactor owns each configured process's stdin/stdout/stderr, feeds it
// newline-delimited events, and reads newline-delimited commands back
// from it, with the same command pipeline reused by internal/ctlsock for
// the control socket.
package api

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/dc-labs/bgpd/internal/attr"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/rib"
	"github.com/dc-labs/bgpd/internal/wire"
)

// Verb is the command action, spec §6 grammar.
type Verb string

const (
	VerbAnnounce     Verb = "announce"
	VerbWithdraw     Verb = "withdraw"
	VerbTeardown     Verb = "teardown"
	VerbRestart      Verb = "restart"
	VerbShutdown     Verb = "shutdown"
	VerbReload       Verb = "reload"
	VerbReset        Verb = "reset"
	VerbShowNeighbor Verb = "show-neighbor"
	VerbShowAdjRIB   Verb = "show-adj-rib"
	VerbFlushAdjRIB  Verb = "flush-adj-rib"
	VerbClearAdjRIB  Verb = "clear-adj-rib"
	VerbPing         Verb = "ping"
	VerbStatus       Verb = "status"
	VerbAckControl   Verb = "ack-control"
	VerbSyncControl  Verb = "sync-control"
	VerbComment      Verb = "comment"
)

// NeighborFilter narrows a command to the peers matching every
// non-zero field (spec §4.8 "neighbor <ip> [qualifier ...]").
type NeighborFilter struct {
	Wildcard bool
	Address  string
	PeerAS   wire.ASN
	RouterID string
}

func (f NeighborFilter) Matches(peerAddr string, peerASN wire.ASN, routerID string) bool {
	if f.Wildcard {
		return true
	}
	if f.Address != "" && f.Address != peerAddr {
		return false
	}
	if f.PeerAS != 0 && f.PeerAS != peerASN {
		return false
	}
	if f.RouterID != "" && f.RouterID != routerID {
		return false
	}
	return true
}

// Command is one parsed line (or multi-line construction) from the
// command pipeline.
type Command struct {
	Verb     Verb
	Filter   NeighborFilter
	Raw      string

	// announce/withdraw route payload
	Change rib.Change

	// route-refresh / eor family, when the sub-verb names one
	Family wire.Family
	IsEOR  bool
	IsRR   bool

	// teardown notify code, 0 if omitted
	NotifyCode uint8

	// show sub-mode: "summary"|"extensive"|"configuration"|"json", or
	// "in"|"out" direction for show adj-rib
	Mode      string
	Direction string
}

// tokenize splits a command line respecting double-quoted strings, the
// only quoting form spec §6's grammar needs (attribute string values).
func tokenize(line string) []string {
	var toks []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

// Parse turns one logical command line (already joined from any
// multi-line "announce attribute ... nlri ..." construction by the
// caller's tokeniser) into a Command.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{Verb: VerbComment, Raw: line}, nil
	}
	toks := tokenize(line)
	if len(toks) == 0 {
		return Command{Verb: VerbComment, Raw: line}, nil
	}

	cmd := Command{Raw: line, Mode: "summary", Direction: "out"}

	i := 0
	if toks[i] == "neighbor" {
		f, n, err := parseFilter(toks[i+1:])
		if err != nil {
			return Command{}, err
		}
		cmd.Filter = f
		i += 1 + n
	} else {
		cmd.Filter = NeighborFilter{Wildcard: true}
	}

	if i >= len(toks) {
		return Command{}, fmt.Errorf("empty command after neighbor filter")
	}

	switch toks[i] {
	case "announce", "withdraw":
		return parseRoute(cmd, toks[i:])
	case "teardown":
		cmd.Verb = VerbTeardown
		if i+1 < len(toks) {
			n, err := strconv.Atoi(toks[i+1])
			if err != nil {
				return Command{}, fmt.Errorf("teardown: bad notify code %q", toks[i+1])
			}
			cmd.NotifyCode = uint8(n)
		}
		return cmd, nil
	case "restart":
		cmd.Verb = VerbRestart
		return cmd, nil
	case "shutdown":
		cmd.Verb = VerbShutdown
		return cmd, nil
	case "reload":
		cmd.Verb = VerbReload
		return cmd, nil
	case "reset":
		cmd.Verb = VerbReset
		return cmd, nil
	case "ping":
		cmd.Verb = VerbPing
		return cmd, nil
	case "status":
		cmd.Verb = VerbStatus
		return cmd, nil
	case "enable-ack", "disable-ack", "silence-ack":
		cmd.Verb = VerbAckControl
		cmd.Mode = toks[i]
		return cmd, nil
	case "enable-sync", "disable-sync":
		cmd.Verb = VerbSyncControl
		cmd.Mode = toks[i]
		return cmd, nil
	case "show":
		return parseShow(cmd, toks[i+1:])
	case "flush":
		cmd.Verb = VerbFlushAdjRIB
		return cmd, nil
	case "clear":
		return parseClear(cmd, toks[i+1:])
	default:
		return Command{}, fmt.Errorf("unrecognised command %q", toks[i])
	}
}

func parseFilter(toks []string) (NeighborFilter, int, error) {
	if len(toks) == 0 {
		return NeighborFilter{}, 0, fmt.Errorf("neighbor: missing address")
	}
	f := NeighborFilter{}
	n := 1
	if toks[0] == "*" {
		f.Wildcard = true
	} else {
		f.Address = toks[0]
	}
	for n < len(toks) {
		switch toks[n] {
		case "peer-as":
			if n+1 >= len(toks) {
				return f, n, fmt.Errorf("neighbor: peer-as missing value")
			}
			v, err := strconv.Atoi(toks[n+1])
			if err != nil {
				return f, n, fmt.Errorf("neighbor: bad peer-as %q", toks[n+1])
			}
			f.PeerAS = wire.ASN(v)
			n += 2
		case "router-id":
			if n+1 >= len(toks) {
				return f, n, fmt.Errorf("neighbor: router-id missing value")
			}
			f.RouterID = toks[n+1]
			n += 2
		default:
			return f, n, nil
		}
	}
	return f, n, nil
}

func parseShow(cmd Command, toks []string) (Command, error) {
	if len(toks) == 0 {
		return Command{}, fmt.Errorf("show: missing subject")
	}
	switch toks[0] {
	case "neighbor":
		cmd.Verb = VerbShowNeighbor
		rest := toks[1:]
		if len(rest) > 0 {
			cmd.Mode = rest[len(rest)-1]
		}
		return cmd, nil
	case "adj-rib":
		cmd.Verb = VerbShowAdjRIB
		if len(toks) < 2 {
			return Command{}, fmt.Errorf("show adj-rib: missing direction")
		}
		cmd.Direction = toks[1]
		for _, t := range toks[2:] {
			if t == "extensive" || t == "json" {
				cmd.Mode = t
			}
		}
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("show: unknown subject %q", toks[0])
	}
}

func parseClear(cmd Command, toks []string) (Command, error) {
	if len(toks) < 2 || toks[0] != "adj-rib" {
		return Command{}, fmt.Errorf("clear: expected 'adj-rib (in|out)'")
	}
	cmd.Verb = VerbClearAdjRIB
	cmd.Direction = toks[1]
	return cmd, nil
}

// parseRoute handles the announce/withdraw family: route|ipv4|ipv6|
// vpls|flow|attribute|eor|route-refresh (spec §6 grammar). A bare
// prefix is parsed as IPv4 or IPv6 by its syntax; "ipv4|ipv6 mpls-vpn
// <prefix> rd <RD> label <N>" announces a VPNv4/VPNv6 route; "vpls"
// and "flow" dispatch to their own sub-grammars.
func parseRoute(cmd Command, toks []string) (Command, error) {
	withdraw := toks[0] == "withdraw"
	if withdraw {
		cmd.Verb = VerbWithdraw
	} else {
		cmd.Verb = VerbAnnounce
	}
	rest := toks[1:]
	if len(rest) == 0 {
		return Command{}, fmt.Errorf("%s: missing route spec", toks[0])
	}

	switch rest[0] {
	case "eor":
		cmd.IsEOR = true
		fam := wire.IPv4Unicast
		if len(rest) > 1 {
			var err error
			fam, err = parseFamilyToken(rest[1])
			if err != nil {
				return Command{}, err
			}
		}
		cmd.Family = fam
		return cmd, nil
	case "route-refresh":
		cmd.IsRR = true
		fam := wire.IPv4Unicast
		if len(rest) > 1 {
			var err error
			fam, err = parseFamilyToken(rest[1])
			if err != nil {
				return Command{}, err
			}
		}
		cmd.Family = fam
		return cmd, nil
	case "vpls":
		return parseVPLS(cmd, rest[1:], withdraw)
	case "flow":
		return parseFlow(cmd, rest[1:], withdraw)
	}

	// "route|ipv4|ipv6|attribute" <prefix> [next-hop <ip>] [attrs...], or
	// "ipv4|ipv6 mpls-vpn <prefix> rd <RD> label <N> [attrs...]".
	body := rest
	switch body[0] {
	case "route", "attribute":
		body = body[1:]
	case "ipv4":
		if len(body) > 1 && body[1] == "mpls-vpn" {
			return parseVPN(cmd, body[2:], wire.AFI_IPV4, withdraw)
		}
		body = body[1:]
	case "ipv6":
		if len(body) > 1 && body[1] == "mpls-vpn" {
			return parseVPN(cmd, body[2:], wire.AFI_IPV6, withdraw)
		}
		body = body[1:]
	}
	if len(body) == 0 {
		return Command{}, fmt.Errorf("%s: missing prefix", toks[0])
	}

	prefix, err := netip.ParsePrefix(body[0])
	if err != nil {
		return Command{}, fmt.Errorf("%s: bad prefix %q: %w", toks[0], body[0], err)
	}
	fam := wire.IPv4Unicast
	if prefix.Addr().Is6() {
		fam = wire.IPv6Unicast
	}

	change := rib.Change{
		Family:   fam,
		NLRI:     nlri.InetPrefix{CIDR: wire.CIDR{Prefix: prefix}, AFI: fam.AFI, SAFI: fam.SAFI},
		Withdraw: withdraw,
	}

	if !withdraw {
		attrs, nextHop, err := parseAttributes(body[1:], fam)
		if err != nil {
			return Command{}, err
		}
		change.Attributes = attrs
		change.NextHop = nextHop
	}

	cmd.Change = change
	cmd.Family = fam
	return cmd, nil
}

// parseRD parses the ADMIN:NUMBER route-distinguisher syntax (RFC 4364
// §4): ADMIN is either a dotted IPv4 address (RD_IPV4_ADMIN) or an
// integer, narrow enough for a 2-byte ASN (RD_AS2_ADMIN) or needing the
// 4-byte form (RD_AS4_ADMIN).
func parseRD(tok string) (wire.RD, error) {
	parts := strings.SplitN(tok, ":", 2)
	if len(parts) != 2 {
		return wire.RD{}, fmt.Errorf("rd: expected ADMIN:NUMBER, got %q", tok)
	}
	number, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return wire.RD{}, fmt.Errorf("rd: bad number %q", parts[1])
	}
	if ip, err := netip.ParseAddr(parts[0]); err == nil && ip.Is4() {
		return wire.RD{Type: wire.RD_IPV4_ADMIN, IP: ip, Number: uint32(number)}, nil
	}
	asn, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return wire.RD{}, fmt.Errorf("rd: bad admin %q", parts[0])
	}
	if asn > 0xFFFF {
		return wire.RD{Type: wire.RD_AS4_ADMIN, ASN: wire.ASN(asn), Number: uint32(number)}, nil
	}
	return wire.RD{Type: wire.RD_AS2_ADMIN, ASN: wire.ASN(asn), Number: uint32(number)}, nil
}

// parseVPN handles "ipv4|ipv6 mpls-vpn <prefix> rd <RD> label <N>
// [attrs...]" (spec §6, §8 scenario 4): an MPLS-VPN route for afi, RD
// and label required on announce, label optional on withdraw (it must
// still match the label the route was originally announced with, since
// that's folded into the route's Adj-RIB-Out identity).
func parseVPN(cmd Command, toks []string, afi wire.AFI, withdraw bool) (Command, error) {
	if len(toks) == 0 {
		return Command{}, fmt.Errorf("mpls-vpn: missing prefix")
	}
	prefix, err := netip.ParsePrefix(toks[0])
	if err != nil {
		return Command{}, fmt.Errorf("mpls-vpn: bad prefix %q: %w", toks[0], err)
	}
	toks = toks[1:]

	var rd wire.RD
	var label uint32
	var hasRD, hasLabel bool
	i := 0
loop:
	for i < len(toks) {
		switch toks[i] {
		case "rd":
			if i+1 >= len(toks) {
				return Command{}, fmt.Errorf("mpls-vpn: rd missing value")
			}
			rd, err = parseRD(toks[i+1])
			if err != nil {
				return Command{}, err
			}
			hasRD = true
			i += 2
		case "label":
			v, n, err := parseUintArg(toks, i, "label")
			if err != nil {
				return Command{}, err
			}
			label = v
			hasLabel = true
			i = n
		default:
			break loop
		}
	}
	if !hasRD {
		return Command{}, fmt.Errorf("mpls-vpn: missing rd")
	}
	if !hasLabel && !withdraw {
		return Command{}, fmt.Errorf("mpls-vpn: missing label")
	}

	fam := wire.Family{AFI: afi, SAFI: wire.SAFI_MPLS_VPN}
	change := rib.Change{
		Family: fam,
		NLRI: nlri.VPN{
			Labels: wire.Labels{wire.NewLabel(label, true)},
			RD:     rd,
			CIDR:   wire.NewCIDR(prefix),
			AFI:    afi,
		},
		Withdraw: withdraw,
	}

	if !withdraw {
		attrs, nextHop, err := parseAttributes(toks[i:], fam)
		if err != nil {
			return Command{}, err
		}
		change.Attributes = attrs
		change.NextHop = nextHop
	}

	cmd.Change = change
	cmd.Family = fam
	return cmd, nil
}

// parseVPLS handles "vpls rd <RD> label <N> endpoint <N> [attrs...]".
// This module carries no RFC 4761 VPLS NLRI codec, so a vpls route is
// represented the nearest way its wire layer can express an L2VPN
// auto-discovery route: an EVPN Ethernet-Auto-Discovery NLRI (RFC 7432
// §7.1) with the endpoint id carried in the Ethernet Tag field.
func parseVPLS(cmd Command, toks []string, withdraw bool) (Command, error) {
	var rd wire.RD
	var label, endpoint uint32
	var hasRD, hasLabel bool
	i := 0
loop:
	for i < len(toks) {
		switch toks[i] {
		case "rd":
			if i+1 >= len(toks) {
				return Command{}, fmt.Errorf("vpls: rd missing value")
			}
			var err error
			rd, err = parseRD(toks[i+1])
			if err != nil {
				return Command{}, err
			}
			hasRD = true
			i += 2
		case "label":
			v, n, err := parseUintArg(toks, i, "label")
			if err != nil {
				return Command{}, err
			}
			label = v
			hasLabel = true
			i = n
		case "endpoint":
			v, n, err := parseUintArg(toks, i, "endpoint")
			if err != nil {
				return Command{}, err
			}
			endpoint = v
			i = n
		default:
			break loop
		}
	}
	if !hasRD {
		return Command{}, fmt.Errorf("vpls: missing rd")
	}
	if !hasLabel && !withdraw {
		return Command{}, fmt.Errorf("vpls: missing label")
	}

	fam := wire.Family{AFI: wire.AFI_L2VPN, SAFI: wire.SAFI_EVPN}
	change := rib.Change{
		Family: fam,
		NLRI: nlri.EVPN{
			RouteType: nlri.EVPNEthernetAD,
			RD:        rd,
			Tag:       endpoint,
			Label:     wire.Labels{wire.NewLabel(label, true)},
		},
		Withdraw: withdraw,
	}

	if !withdraw {
		attrs, nextHop, err := parseAttributes(toks[i:], fam)
		if err != nil {
			return Command{}, err
		}
		change.Attributes = attrs
		change.NextHop = nextHop
	}

	cmd.Change = change
	cmd.Family = fam
	return cmd, nil
}

// parseFlow handles "flow [ipv6] destination <prefix> [source <prefix>]
// [protocol N] [port N] [destination-port N] [source-port N]", a subset
// of RFC 8955 §4's component set sufficient for the traffic-filtering
// routes the control socket needs to express.
func parseFlow(cmd Command, toks []string, withdraw bool) (Command, error) {
	afi := wire.AFI_IPV4
	if len(toks) > 0 && toks[0] == "ipv6" {
		afi = wire.AFI_IPV6
		toks = toks[1:]
	}

	var comps []nlri.FlowComponent
	i := 0
	for i < len(toks) {
		switch toks[i] {
		case "destination", "source":
			if i+1 >= len(toks) {
				return Command{}, fmt.Errorf("flow: %s missing prefix", toks[i])
			}
			p, err := netip.ParsePrefix(toks[i+1])
			if err != nil {
				return Command{}, fmt.Errorf("flow: bad prefix %q: %w", toks[i+1], err)
			}
			t := nlri.FlowDestPrefix
			if toks[i] == "source" {
				t = nlri.FlowSrcPrefix
			}
			comps = append(comps, nlri.FlowComponent{Type: t, Prefix: wire.NewCIDR(p)})
			i += 2
		case "protocol", "port", "destination-port", "source-port":
			name := toks[i]
			v, n, err := parseUintArg(toks, i, name)
			if err != nil {
				return Command{}, err
			}
			t := flowComponentTypes[name]
			comps = append(comps, nlri.FlowComponent{
				Type: t,
				Ops:  []nlri.NumericOp{{Op: nlri.FlowOpEQ, Value: uint64(v), Len: flowOpLen(v)}},
			})
			i = n
		default:
			return Command{}, fmt.Errorf("flow: unknown match %q", toks[i])
		}
	}
	if len(comps) == 0 {
		return Command{}, fmt.Errorf("flow: missing match components")
	}

	fam := wire.Family{AFI: afi, SAFI: wire.SAFI_FLOWSPEC}
	change := rib.Change{
		Family:   fam,
		NLRI:     nlri.FlowSpec{Components: comps, AFI: afi},
		Withdraw: withdraw,
	}
	if !withdraw {
		change.Attributes = withOrigin(nil)
	}

	cmd.Change = change
	cmd.Family = fam
	return cmd, nil
}

var flowComponentTypes = map[string]nlri.FlowComponentType{
	"protocol":         nlri.FlowIPProto,
	"port":             nlri.FlowPort,
	"destination-port": nlri.FlowDestPort,
	"source-port":      nlri.FlowSrcPort,
}

// flowOpLen picks the narrowest numeric-operator width (RFC 8955
// §4.2.1: 1, 2, 4 or 8 bytes) that holds v.
func flowOpLen(v uint32) int {
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	default:
		return 4
	}
}

func parseFamilyToken(s string) (wire.Family, error) {
	switch strings.ToLower(s) {
	case "ipv4", "ipv4-unicast", "":
		return wire.IPv4Unicast, nil
	case "ipv6", "ipv6-unicast":
		return wire.IPv6Unicast, nil
	default:
		return wire.Family{}, fmt.Errorf("unknown family %q", s)
	}
}

// parseAttributes reads the "next-hop X med Y local-preference Z
// as-path [A B C] community [A:B ...] origin igp|egp|incomplete" tail
// that follows a prefix in an announce route command. The returned
// netip.Addr is the next hop to carry out-of-band in Change.NextHop:
// for any family other than plain IPv4 unicast, the MP_REACH next-hop
// width is family-dependent (spec §4.2) rather than the fixed 4-byte
// NEXT_HOP attribute, so it can't be built here without knowing what
// else shares the UPDATE.
func parseAttributes(toks []string, fam wire.Family) ([]attr.Attribute, netip.Addr, error) {
	var out []attr.Attribute
	var nextHop netip.Addr
	i := 0
	for i < len(toks) {
		a, nh, n, err := parseOneAttribute(toks, i, fam)
		if err != nil {
			return nil, netip.Addr{}, err
		}
		if a != nil {
			out = append(out, a)
		}
		if nh.IsValid() {
			nextHop = nh
		}
		i = n
	}
	return withOrigin(out), nextHop, nil
}

// parseOneAttribute parses the single attribute token starting at i,
// returning the built attribute (nil for next-hop, which yields an
// address instead when it can't be resolved into a plain NEXT_HOP
// attribute), the next-hop address if this token was one, and the
// index of the following token.
func parseOneAttribute(toks []string, i int, fam wire.Family) (attr.Attribute, netip.Addr, int, error) {
	switch toks[i] {
	case "next-hop":
		if i+1 >= len(toks) {
			return nil, netip.Addr{}, i, fmt.Errorf("next-hop: missing value")
		}
		addr, err := netip.ParseAddr(toks[i+1])
		if err != nil {
			return nil, netip.Addr{}, i, fmt.Errorf("next-hop: %w", err)
		}
		if fam == wire.IPv4Unicast && addr.Is4() {
			return attr.NextHop{Address: addr.As4()}, netip.Addr{}, i + 2, nil
		}
		return nil, addr, i + 2, nil
	case "med":
		v, n, err := parseUintArg(toks, i, "med")
		if err != nil {
			return nil, netip.Addr{}, i, err
		}
		return attr.MED{Value: v}, netip.Addr{}, n, nil
	case "local-preference":
		v, n, err := parseUintArg(toks, i, "local-preference")
		if err != nil {
			return nil, netip.Addr{}, i, err
		}
		return attr.LocalPref{Value: v}, netip.Addr{}, n, nil
	case "origin":
		if i+1 >= len(toks) {
			return nil, netip.Addr{}, i, fmt.Errorf("origin: missing value")
		}
		var v attr.OriginValue
		switch toks[i+1] {
		case "igp":
			v = attr.OriginIGP
		case "egp":
			v = attr.OriginEGP
		case "incomplete":
			v = attr.OriginIncomplete
		default:
			return nil, netip.Addr{}, i, fmt.Errorf("origin: unknown value %q", toks[i+1])
		}
		return attr.Origin{Value: v}, netip.Addr{}, i + 2, nil
	case "as-path":
		seq, n, err := parseASPath(toks, i)
		if err != nil {
			return nil, netip.Addr{}, i, err
		}
		return attr.ASPath{Segments: []attr.Segment{{Type: attr.SegSequence, ASNs: seq}}}, netip.Addr{}, n, nil
	case "community":
		vals, n, err := parseCommunities(toks, i)
		if err != nil {
			return nil, netip.Addr{}, i, err
		}
		return attr.Communities{Values: vals}, netip.Addr{}, n, nil
	default:
		return nil, netip.Addr{}, i, fmt.Errorf("unknown route attribute %q", toks[i])
	}
}

// withOrigin prepends the default incomplete ORIGIN attribute to attrs
// if none was set explicitly (spec §4.2 requires ORIGIN on every
// announced route).
func withOrigin(attrs []attr.Attribute) []attr.Attribute {
	for _, a := range attrs {
		if a.Code() == attr.CodeOrigin {
			return attrs
		}
	}
	return append([]attr.Attribute{attr.Origin{Value: attr.OriginIncomplete}}, attrs...)
}

func parseUintArg(toks []string, i int, name string) (uint32, int, error) {
	if i+1 >= len(toks) {
		return 0, i, fmt.Errorf("%s: missing value", name)
	}
	v, err := strconv.ParseUint(toks[i+1], 10, 32)
	if err != nil {
		return 0, i, fmt.Errorf("%s: %w", name, err)
	}
	return uint32(v), i + 2, nil
}

func parseASPath(toks []string, i int) ([]wire.ASN, int, error) {
	i++
	bracketed := i < len(toks) && strings.HasPrefix(toks[i], "[")
	var seq []wire.ASN
	for i < len(toks) {
		tok := strings.TrimPrefix(strings.TrimSuffix(toks[i], "]"), "[")
		if tok == "" {
			closed := strings.HasSuffix(toks[i], "]")
			i++
			if closed {
				break
			}
			continue
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return nil, i, fmt.Errorf("as-path: bad ASN %q", tok)
		}
		seq = append(seq, wire.ASN(v))
		closed := strings.HasSuffix(toks[i], "]")
		i++
		if !bracketed || closed {
			break
		}
	}
	return seq, i, nil
}

func parseCommunities(toks []string, i int) ([]attr.Community, int, error) {
	i++
	bracketed := i < len(toks) && strings.HasPrefix(toks[i], "[")
	var vals []attr.Community
	for i < len(toks) {
		tok := strings.TrimPrefix(strings.TrimSuffix(toks[i], "]"), "[")
		if tok == "" {
			closed := strings.HasSuffix(toks[i], "]")
			i++
			if closed {
				break
			}
			continue
		}
		c, err := parseOneCommunity(tok)
		if err != nil {
			return nil, i, err
		}
		vals = append(vals, c)
		closed := strings.HasSuffix(toks[i], "]")
		i++
		if !bracketed || closed {
			break
		}
	}
	return vals, i, nil
}

func parseOneCommunity(tok string) (attr.Community, error) {
	parts := strings.SplitN(tok, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("community: expected A:B, got %q", tok)
	}
	hi, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("community: bad high word %q", parts[0])
	}
	lo, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("community: bad low word %q", parts[1])
	}
	return attr.Community(hi<<16 | lo), nil
}
