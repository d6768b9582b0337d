// Package mrt implements a minimal MRT (RFC 6396) BGP4MP writer/reader,
// patterned after the BGP4MP_MESSAGE_AS4 framing in other BGP
// implementations' MRT support. No other package in this module imports
// it; the daemon writes no MRT records.
package mrt

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
)

// Type is the MRT top-level record type (RFC 6396 §4).
type Type uint16

const (
	TypeBGP4MP   Type = 16
	TypeBGP4MPET Type = 17
)

// Subtype distinguishes BGP4MP record shapes (IANA MRT subtype
// registry); this writer only ever emits the 4-byte-ASN message form.
type Subtype uint16

const (
	SubBGP4MPMessageAS4      Subtype = 4
	SubBGP4MPMessageAS4Local Subtype = 7
)

const headerLen = 12
const bgp4mpHeadLen = 16 // 4+4+2+2 (peerAS,localAS,iface,afi) for the AS4 form

var errShort = fmt.Errorf("mrt: truncated record")

// WriteBGP4MPMessage appends one MRT BGP4MP_MESSAGE_AS4 record carrying
// the already-packed wire-format BGP message raw.
func WriteBGP4MPMessage(w io.Writer, timestamp uint32, peerAS, localAS uint32, peerIP, localIP netip.Addr, raw []byte) error {
	var afi uint16 = 1
	ipLen := 4
	if peerIP.Is6() {
		afi = 2
		ipLen = 16
	}

	body := make([]byte, 0, bgp4mpHeadLen+2*ipLen+len(raw))
	var buf4 [4]byte
	binary.BigEndian.PutUint32(buf4[:], peerAS)
	body = append(body, buf4[:]...)
	binary.BigEndian.PutUint32(buf4[:], localAS)
	body = append(body, buf4[:]...)
	body = append(body, 0, 0) // interface index, unused
	var buf2 [2]byte
	binary.BigEndian.PutUint16(buf2[:], afi)
	body = append(body, buf2[:]...)
	body = append(body, ipBytes(peerIP, ipLen)...)
	body = append(body, ipBytes(localIP, ipLen)...)
	body = append(body, raw...)

	header := make([]byte, headerLen)
	binary.BigEndian.PutUint32(header[0:4], timestamp)
	binary.BigEndian.PutUint16(header[4:6], uint16(TypeBGP4MP))
	binary.BigEndian.PutUint16(header[6:8], uint16(SubBGP4MPMessageAS4))
	binary.BigEndian.PutUint32(header[8:12], uint32(len(body)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func ipBytes(a netip.Addr, n int) []byte {
	if n == 4 {
		b := a.As4()
		return b[:]
	}
	b := a.As16()
	return b[:]
}

// Record is one decoded MRT BGP4MP_MESSAGE_AS4 record.
type Record struct {
	Timestamp uint32
	PeerAS    uint32
	LocalAS   uint32
	PeerIP    netip.Addr
	LocalIP   netip.Addr
	Data      []byte
}

// ReadBGP4MPMessage reads one MRT record from r and decodes it as a
// BGP4MP_MESSAGE_AS4 record.
func ReadBGP4MPMessage(r io.Reader) (Record, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Record{}, err
	}
	length := binary.BigEndian.Uint32(header[8:12])
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Record{}, err
	}

	typ := Type(binary.BigEndian.Uint16(header[4:6]))
	if typ != TypeBGP4MP && typ != TypeBGP4MPET {
		return Record{}, fmt.Errorf("mrt: unsupported record type %d", typ)
	}
	if len(body) < bgp4mpHeadLen {
		return Record{}, errShort
	}

	rec := Record{Timestamp: binary.BigEndian.Uint32(header[0:4])}
	rec.PeerAS = binary.BigEndian.Uint32(body[0:4])
	rec.LocalAS = binary.BigEndian.Uint32(body[4:8])
	afi := binary.BigEndian.Uint16(body[10:12])
	rest := body[12:]

	switch afi {
	case 1:
		if len(rest) < 8 {
			return Record{}, errShort
		}
		rec.PeerIP = netip.AddrFrom4([4]byte(rest[0:4]))
		rec.LocalIP = netip.AddrFrom4([4]byte(rest[4:8]))
		rest = rest[8:]
	case 2:
		if len(rest) < 32 {
			return Record{}, errShort
		}
		rec.PeerIP = netip.AddrFrom16([16]byte(rest[0:16]))
		rec.LocalIP = netip.AddrFrom16([16]byte(rest[16:32]))
		rest = rest[32:]
	default:
		return Record{}, fmt.Errorf("mrt: unknown afi %d", afi)
	}

	rec.Data = rest
	return rec, nil
}
