package msg

import (
	"github.com/dc-labs/bgpd/internal/attr"
	"github.com/dc-labs/bgpd/internal/negotiated"
	"github.com/dc-labs/bgpd/internal/nlri"
	"github.com/dc-labs/bgpd/internal/wire"
)

// Update is the UPDATE message (spec §4.1): withdrawn routes and
// announced NLRI in this section are always IPv4 unicast (ADD-PATH
// aware); every other family travels inside MP_REACH/MP_UNREACH path
// attributes.
type Update struct {
	WithdrawnRoutes []nlri.WithPathID
	PathAttributes  []attr.Attribute
	NLRIs           []nlri.WithPathID
}

func (u Update) Pack(n *negotiated.Negotiated) []byte {
	addPath := n != nil && n.AddPathFor(wire.IPv4Unicast).Send()

	var withdrawn []byte
	for _, w := range u.WithdrawnRoutes {
		withdrawn = append(withdrawn, nlri.PackOne(n, w, addPath)...)
	}
	attrs := attr.PackSet(n, u.PathAttributes)
	var announced []byte
	for _, w := range u.NLRIs {
		announced = append(announced, nlri.PackOne(n, w, addPath)...)
	}

	body := make([]byte, 0, 4+len(withdrawn)+len(attrs)+len(announced))
	body = append(body, byte(len(withdrawn)>>8), byte(len(withdrawn)))
	body = append(body, withdrawn...)
	body = append(body, byte(len(attrs)>>8), byte(len(attrs)))
	body = append(body, attrs...)
	body = append(body, announced...)
	return append(PackHeader(TypeUpdate, len(body)), body...)
}

func UnpackUpdate(n *negotiated.Negotiated, body []byte, offset int) (Update, error) {
	if len(body) < 2 {
		return Update{}, badFormat(offset, "truncated update withdrawn-routes length")
	}
	wlen := int(body[0])<<8 | int(body[1])
	body = body[2:]
	off := offset + 2
	if len(body) < wlen {
		return Update{}, badFormat(off, "truncated withdrawn routes")
	}
	addPath := n != nil && n.AddPathFor(wire.IPv4Unicast).Receive()
	withdrawn, err := nlri.UnpackAll(wire.IPv4Unicast, addPath, body[:wlen], off)
	if err != nil {
		return Update{}, toNotify(err, UpdateInvalidNetworkField)
	}
	body = body[wlen:]
	off += wlen

	if len(body) < 2 {
		return Update{}, badFormat(off, "truncated update path-attributes length")
	}
	alen := int(body[0])<<8 | int(body[1])
	body = body[2:]
	off += 2
	if len(body) < alen {
		return Update{}, badFormat(off, "truncated path attributes")
	}
	attrs, err := attr.UnpackSet(n, body[:alen], off)
	if err != nil {
		return Update{}, toNotify(err, UpdateMalformedAttrList)
	}
	body = body[alen:]
	off += alen

	announced, err := nlri.UnpackAll(wire.IPv4Unicast, addPath, body, off)
	if err != nil {
		return Update{}, toNotify(err, UpdateInvalidNetworkField)
	}

	return Update{WithdrawnRoutes: withdrawn, PathAttributes: attrs, NLRIs: announced}, nil
}

// toNotify maps a bare decode error to the UPDATE Notification subcode a
// reader would expect for the section it came from, unless it already
// carries a more specific classification.
func toNotify(err error, sub uint8) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*NotificationError); ok {
		return err
	}
	if _, ok := err.(*attr.LengthError); ok {
		return Notify(NotifyUpdateError, UpdateAttrLengthError)
	}
	return Notify(NotifyUpdateError, sub)
}

// IsEndOfRIB reports whether u is the End-of-RIB marker for afi/safi:
// either an entirely empty IPv4-unicast UPDATE, or an UPDATE whose only
// attribute is an empty MP_UNREACH_NLRI for that family (spec §4.3, RFC
// 4724 §2).
func (u Update) IsEndOfRIB(f wire.Family) bool {
	if f == wire.IPv4Unicast {
		return len(u.WithdrawnRoutes) == 0 && len(u.PathAttributes) == 0 && len(u.NLRIs) == 0
	}
	if len(u.PathAttributes) != 1 {
		return false
	}
	mp, ok := u.PathAttributes[0].(attr.MPUnreachNLRI)
	return ok && mp.Family == f && len(mp.NLRIs) == 0
}
