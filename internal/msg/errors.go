// Package msg implements OPEN/UPDATE/NOTIFICATION/KEEPALIVE/ROUTE-REFRESH
// framing, capability negotiation, and the NOTIFICATION (code, subcode)
// taxonomy that every decoder error is translated into at the FSM
// boundary (Design Notes: exceptions-as-control-flow -> result-or-error).
package msg

import "fmt"

// NotifyCode and NotifySubcode are the well-known BGP error
// code/subcode pairs (RFC 4271 §4.5, RFC 4486, RFC 8203).
type NotifyCode uint8

const (
	NotifyHeaderError        NotifyCode = 1
	NotifyOpenError          NotifyCode = 2
	NotifyUpdateError        NotifyCode = 3
	NotifyHoldTimerExpired   NotifyCode = 4
	NotifyFSMError           NotifyCode = 5
	NotifyCease              NotifyCode = 6
)

const (
	HeaderConnectionNotSynced  uint8 = 1
	HeaderBadMessageLength     uint8 = 2
	HeaderBadMessageType       uint8 = 3

	OpenUnsupportedVersion     uint8 = 1
	OpenBadPeerAS              uint8 = 2
	OpenBadBGPIdentifier       uint8 = 3
	OpenUnsupportedOptional    uint8 = 4
	OpenUnacceptableHoldTime   uint8 = 6
	OpenUnsupportedCapability  uint8 = 7

	UpdateMalformedAttrList    uint8 = 1
	UpdateUnrecognizedAttr     uint8 = 2
	UpdateMissingWellKnownAttr uint8 = 3
	UpdateAttrFlagsError       uint8 = 4
	UpdateAttrLengthError      uint8 = 5
	UpdateInvalidOriginAttr    uint8 = 6
	UpdateInvalidNextHopAttr   uint8 = 8
	UpdateOptionalAttrError    uint8 = 9
	UpdateInvalidNetworkField  uint8 = 10
	UpdateMalformedASPath      uint8 = 11

	CeaseMaxPrefixesReached       uint8 = 1
	CeaseAdministrativeShutdown   uint8 = 2
	CeasePeerDeconfigured         uint8 = 3
	CeaseAdministrativeReset      uint8 = 4
	CeaseConnectionRejected       uint8 = 5
	CeaseOtherConfigChange        uint8 = 6
	CeaseCollisionResolution      uint8 = 7
	CeaseOutOfResources           uint8 = 8
)

// BadFormat mirrors wire.BadFormat so decoders at this layer can still
// report an offset without importing wire's unexported constructor.
type BadFormat struct {
	Reason string
	Offset int
}

func (e *BadFormat) Error() string {
	return fmt.Sprintf("bad format at offset %d: %s", e.Offset, e.Reason)
}

func badFormat(offset int, format string, args ...any) error {
	return &BadFormat{Reason: fmt.Sprintf(format, args...), Offset: offset}
}

// NotificationError is a decoded protocol violation already mapped to its
// NOTIFICATION (code, subcode); it carries optional data bytes to echo
// back on the wire.
type NotificationError struct {
	Code    NotifyCode
	Subcode uint8
	Data    []byte
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification(%d,%d)", e.Code, e.Subcode)
}

func Notify(code NotifyCode, sub uint8, data ...byte) error {
	return &NotificationError{Code: code, Subcode: sub, Data: data}
}
