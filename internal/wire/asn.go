package wire

import "encoding/binary"

// ASTrans is the well-known AS_TRANS value (RFC 6793 §4.2.3.2), used in
// the 2-byte AS_PATH/AGGREGATOR/OPEN fields whenever a true ASN does not
// fit in 16 bits and the peer has not negotiated 4-byte ASNs.
const ASTrans = 23456

// ASN carries a full 32-bit Autonomous System number. Wire width (2 or 4
// bytes) is a property of Negotiated, never of the value itself.
type ASN uint32

func (a ASN) Pack4() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(a))
	return b
}

// Pack2 renders a, substituting AS_TRANS when a does not fit in 16 bits.
func (a ASN) Pack2() []byte {
	b := make([]byte, 2)
	if a > 0xFFFF {
		binary.BigEndian.PutUint16(b, ASTrans)
	} else {
		binary.BigEndian.PutUint16(b, uint16(a))
	}
	return b
}

func UnpackASN4(b []byte, offset int) (ASN, error) {
	if err := needBytes(b, 4, offset); err != nil {
		return 0, err
	}
	return ASN(binary.BigEndian.Uint32(b)), nil
}

func UnpackASN2(b []byte, offset int) (ASN, error) {
	if err := needBytes(b, 2, offset); err != nil {
		return 0, err
	}
	return ASN(binary.BigEndian.Uint16(b)), nil
}
