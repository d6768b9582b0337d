package attr

import "github.com/dc-labs/bgpd/internal/negotiated"

// Community is a plain 32-bit community value (RFC 1997).
type Community uint32

type Communities struct {
	Values []Community
}

func (Communities) Code() Code   { return CodeCommunities }
func (Communities) Flags() Flags { return FlagOptional | FlagTransitive }

func (c Communities) PackBody(*negotiated.Negotiated) []byte {
	out := make([]byte, 0, 4*len(c.Values))
	for _, v := range c.Values {
		out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return out
}

func unpackCommunities(_ Flags, body []byte, offset int) (Attribute, error) {
	if len(body)%4 != 0 {
		return nil, badFormat(offset, "communities attribute length not a multiple of 4")
	}
	var out Communities
	for i := 0; i < len(body); i += 4 {
		out.Values = append(out.Values, Community(be32(body[i:])))
	}
	return out, nil
}

// ExtendedCommunity is an 8-byte extended community (RFC 4360): a 2-byte
// type/subtype followed by a 6-byte value, kept opaque past the type byte
// since the registry of subtypes is large and this speaker only needs to
// round-trip them intact.
type ExtendedCommunity [8]byte

type ExtCommunities struct {
	Values []ExtendedCommunity
}

func (ExtCommunities) Code() Code   { return CodeExtCommunities }
func (ExtCommunities) Flags() Flags { return FlagOptional | FlagTransitive }

func (c ExtCommunities) PackBody(*negotiated.Negotiated) []byte {
	out := make([]byte, 0, 8*len(c.Values))
	for _, v := range c.Values {
		out = append(out, v[:]...)
	}
	return out
}

func unpackExtCommunities(_ Flags, body []byte, offset int) (Attribute, error) {
	if len(body)%8 != 0 {
		return nil, badFormat(offset, "extended communities attribute length not a multiple of 8")
	}
	var out ExtCommunities
	for i := 0; i < len(body); i += 8 {
		var v ExtendedCommunity
		copy(v[:], body[i:i+8])
		out.Values = append(out.Values, v)
	}
	return out, nil
}

// LargeCommunity is a 12-byte large community (RFC 8092): global admin,
// local data part 1, local data part 2, each a uint32.
type LargeCommunity struct {
	GlobalAdmin uint32
	LocalData1  uint32
	LocalData2  uint32
}

type LargeCommunities struct {
	Values []LargeCommunity
}

func (LargeCommunities) Code() Code   { return CodeLargeCommunities }
func (LargeCommunities) Flags() Flags { return FlagOptional | FlagTransitive }

func (c LargeCommunities) PackBody(*negotiated.Negotiated) []byte {
	out := make([]byte, 0, 12*len(c.Values))
	for _, v := range c.Values {
		out = append(out, u32b(v.GlobalAdmin)...)
		out = append(out, u32b(v.LocalData1)...)
		out = append(out, u32b(v.LocalData2)...)
	}
	return out
}

func u32b(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func unpackLargeCommunities(_ Flags, body []byte, offset int) (Attribute, error) {
	if len(body)%12 != 0 {
		return nil, badFormat(offset, "large communities attribute length not a multiple of 12")
	}
	var out LargeCommunities
	for i := 0; i < len(body); i += 12 {
		out.Values = append(out.Values, LargeCommunity{
			GlobalAdmin: be32(body[i:]),
			LocalData1:  be32(body[i+4:]),
			LocalData2:  be32(body[i+8:]),
		})
	}
	return out, nil
}

// OriginatorID / ClusterList (RFC 4456 route reflection)

type OriginatorID struct {
	RouterID uint32
}

func (OriginatorID) Code() Code   { return CodeOriginatorID }
func (OriginatorID) Flags() Flags { return FlagOptional }
func (o OriginatorID) PackBody(*negotiated.Negotiated) []byte { return u32b(o.RouterID) }

func unpackOriginatorID(_ Flags, body []byte, offset int) (Attribute, error) {
	if len(body) != 4 {
		return nil, badFormat(offset, "originator-id attribute must be 4 bytes")
	}
	return OriginatorID{RouterID: be32(body)}, nil
}

type ClusterList struct {
	ClusterIDs []uint32
}

func (ClusterList) Code() Code   { return CodeClusterList }
func (ClusterList) Flags() Flags { return FlagOptional }

func (c ClusterList) PackBody(*negotiated.Negotiated) []byte {
	out := make([]byte, 0, 4*len(c.ClusterIDs))
	for _, v := range c.ClusterIDs {
		out = append(out, u32b(v)...)
	}
	return out
}

func unpackClusterList(_ Flags, body []byte, offset int) (Attribute, error) {
	if len(body)%4 != 0 {
		return nil, badFormat(offset, "cluster-list attribute length not a multiple of 4")
	}
	var out ClusterList
	for i := 0; i < len(body); i += 4 {
		out.ClusterIDs = append(out.ClusterIDs, be32(body[i:]))
	}
	return out, nil
}
