package msg

import "github.com/dc-labs/bgpd/internal/negotiated"

// Message is the decoded form of any of the five message types; callers
// type-switch on the concrete value (Open, Update, Notification,
// Keepalive, RouteRefresh).
type Message interface{}

// Decode consumes exactly one message from the front of b, given the
// session's currently negotiated maximum message size (4096 before OPEN
// exchange completes). It returns the decoded message, the number of
// bytes consumed, and an error suitable for sending back as a
// NOTIFICATION when non-nil.
func Decode(n *negotiated.Negotiated, b []byte, maxLen int) (Message, int, error) {
	t, total, err := UnpackHeader(b, maxLen)
	if err != nil {
		return nil, 0, err
	}
	if len(b) < total {
		return nil, 0, badFormat(HeaderLen, "incomplete message body")
	}
	body := b[HeaderLen:total]

	var m Message
	switch t {
	case TypeOpen:
		m, err = UnpackOpen(body, HeaderLen)
	case TypeUpdate:
		m, err = UnpackUpdate(n, body, HeaderLen)
	case TypeNotification:
		m, err = UnpackNotification(body, HeaderLen)
	case TypeKeepalive:
		m, err = UnpackKeepalive(body, HeaderLen)
	case TypeRouteRefresh:
		m, err = UnpackRouteRefresh(body, HeaderLen)
	}
	if err != nil {
		return nil, 0, err
	}
	return m, total, nil
}

// Encode renders any of the five message kinds to wire bytes. Update is
// the only kind whose encoding depends on Negotiated; the others accept
// it for interface uniformity and ignore it.
func Encode(n *negotiated.Negotiated, m Message) []byte {
	switch v := m.(type) {
	case Open:
		return v.Pack()
	case Update:
		return v.Pack(n)
	case Notification:
		return v.Pack()
	case Keepalive:
		return v.Pack()
	case RouteRefresh:
		return v.Pack()
	default:
		return nil
	}
}
