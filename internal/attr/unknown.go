package attr

import "github.com/dc-labs/bgpd/internal/negotiated"

// Unknown preserves an attribute code this speaker does not interpret,
// verbatim. Per spec §4.2, an optional-transitive attribute received
// without the Partial flag set is re-marked Partial before being passed
// on, since this speaker did not originate it; RawFlags holds the flags
// exactly as received for any caller that needs to inspect them prior to
// that re-marking.
type Unknown struct {
	UnknownCode Code
	RawFlags    Flags
	Body        []byte
}

func (u Unknown) Code() Code { return u.UnknownCode }

func (u Unknown) Flags() Flags {
	f := u.RawFlags
	if f.Optional() && f.Transitive() {
		f = f.WithPartial(true)
	}
	return f
}

func (u Unknown) PackBody(*negotiated.Negotiated) []byte { return u.Body }

func unpackUnknown(code Code, flags Flags, body []byte) (Attribute, error) {
	return Unknown{UnknownCode: code, RawFlags: flags, Body: append([]byte{}, body...)}, nil
}
