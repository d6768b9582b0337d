package msg

// MessageType is the BGP message header's one-byte type field.
type MessageType uint8

const (
	TypeOpen         MessageType = 1
	TypeUpdate       MessageType = 2
	TypeNotification MessageType = 3
	TypeKeepalive    MessageType = 4
	TypeRouteRefresh MessageType = 5
)

// HeaderLen is the fixed 19-byte header: 16-byte marker, 2-byte length,
// 1-byte type (spec §4.1).
const HeaderLen = 19

// MinMessageLen is the lower bound of the length field. There is no
// upper-bound constant: the limit is 4096 unless Extended Message was
// negotiated, in which case it is 65535 — callers pass the session's
// Negotiated.MaxMessageSize() as max.
const MinMessageLen = HeaderLen

var marker = [16]byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// PackHeader renders the 19-byte header for a body of the given type and
// length (total message length, including the header itself).
func PackHeader(t MessageType, bodyLen int) []byte {
	total := HeaderLen + bodyLen
	out := make([]byte, 0, HeaderLen)
	out = append(out, marker[:]...)
	out = append(out, byte(total>>8), byte(total))
	out = append(out, byte(t))
	return out
}

// UnpackHeader validates the marker and returns the message type and
// total length (including the header). maxLen is the session's currently
// negotiated maximum message size.
func UnpackHeader(b []byte, maxLen int) (MessageType, int, error) {
	if len(b) < HeaderLen {
		return 0, 0, badFormat(0, "truncated message header")
	}
	for i := 0; i < 16; i++ {
		if b[i] != 0xff {
			return 0, 0, Notify(NotifyHeaderError, HeaderConnectionNotSynced)
		}
	}
	length := int(b[16])<<8 | int(b[17])
	if length < MinMessageLen || length > maxLen {
		return 0, 0, Notify(NotifyHeaderError, HeaderBadMessageLength, b[16], b[17])
	}
	t := MessageType(b[18])
	switch t {
	case TypeOpen, TypeUpdate, TypeNotification, TypeKeepalive, TypeRouteRefresh:
	default:
		return 0, 0, Notify(NotifyHeaderError, HeaderBadMessageType, b[18])
	}
	return t, length, nil
}
