package wire

import "encoding/hex"

// ESI is a 10-byte Ethernet Segment Identifier (RFC 7432 §5).
type ESI [10]byte

func (e ESI) Pack() []byte { return e[:] }

func (e ESI) IsZero() bool {
	var z ESI
	return e == z
}

func UnpackESI(b []byte, offset int) (ESI, []byte, error) {
	if err := needBytes(b, 10, offset); err != nil {
		return ESI{}, nil, err
	}
	var e ESI
	copy(e[:], b[:10])
	return e, b[10:], nil
}

func (e ESI) String() string { return hex.EncodeToString(e[:]) }
