// Package attr implements the path attribute codec: one Go type per
// attribute code, decoded through a registry keyed by code, encoded in
// the canonical order reference implementations use (spec §4.2).
package attr

// Flags is the 4-bit-plus-reserved flag byte that precedes every
// attribute's code and length on the wire (spec §3).
type Flags uint8

const (
	FlagExtendedLength Flags = 1 << 4
	FlagPartial        Flags = 1 << 5
	FlagTransitive     Flags = 1 << 6
	FlagOptional       Flags = 1 << 7
)

func (f Flags) Optional() bool       { return f&FlagOptional != 0 }
func (f Flags) Transitive() bool     { return f&FlagTransitive != 0 }
func (f Flags) Partial() bool        { return f&FlagPartial != 0 }
func (f Flags) ExtendedLength() bool { return f&FlagExtendedLength != 0 }

func (f Flags) WithPartial(p bool) Flags {
	if p {
		return f | FlagPartial
	}
	return f &^ FlagPartial
}
