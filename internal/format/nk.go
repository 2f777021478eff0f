package format

import (
	"bytes"
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
)

// Nk is a decoded view of an nk (key node) record payload (the bytes
// immediately after the cell header). String and sub-structure fields
// are resolved lazily by the navigator; this struct only exposes the
// fixed-width fields at their documented offsets.
type Nk struct {
	raw []byte
}

// ParseNk validates the "nk" tag and the minimum fixed-header length.
func ParseNk(payload []byte) (Nk, error) {
	if len(payload) < NkFixedSize {
		return Nk{}, fmt.Errorf("nk record: %w", ErrTruncated)
	}
	if !bytes.Equal(payload[NkIDOff:NkIDOff+2], NkID) {
		return Nk{}, fmt.Errorf("nk record: %w", ErrSignature)
	}
	return Nk{raw: payload}, nil
}

func (n Nk) Flags() uint16         { return buf.U16LE(n.raw[NkFlagsOff:]) }
func (n Nk) ASCIIName() bool       { return n.Flags()&NkFlagASCIIName != 0 }
func (n Nk) TimestampRaw() uint64  { return buf.U64LE(n.raw[NkTimestampOff:]) }
func (n Nk) ParentOffset() uint32  { return buf.U32LE(n.raw[NkParentOff:]) }
func (n Nk) SubkeyCount() uint32   { return buf.U32LE(n.raw[NkSubkeyCountOff:]) }
func (n Nk) SubkeyListOffset() uint32 { return buf.U32LE(n.raw[NkSubkeyListOff:]) }
func (n Nk) ValueCount() uint32    { return buf.U32LE(n.raw[NkValueCountOff:]) }
func (n Nk) ValueListOffset() uint32 { return buf.U32LE(n.raw[NkValueListOff:]) }
func (n Nk) SkOffset() uint32      { return buf.U32LE(n.raw[NkSkOff:]) }
func (n Nk) ClassNameOffset() uint32 { return buf.U32LE(n.raw[NkClassNameOff:]) }
func (n Nk) MaxSubkeyNameLen() uint32 { return buf.U32LE(n.raw[NkMaxSubNameOff:]) }
func (n Nk) MaxClassLen() uint32   { return buf.U32LE(n.raw[NkMaxClassLenOff:]) }
func (n Nk) MaxValueNameLen() uint32 { return buf.U32LE(n.raw[NkMaxVkNameOff:]) }
func (n Nk) MaxValueDataLen() uint32 { return buf.U32LE(n.raw[NkMaxVkDataOff:]) }
func (n Nk) NameLen() uint16       { return buf.U16LE(n.raw[NkNameLenOff:]) }
func (n Nk) ClassLen() uint16      { return buf.U16LE(n.raw[NkClassLenOff:]) }

// NameBytes returns the raw, un-decoded name bytes (ASCII or UTF-16LE
// depending on ASCIIName), or ok=false if name_len runs past the end of
// the record payload.
func (n Nk) NameBytes() ([]byte, bool) {
	end := NkNameOff + int(n.NameLen())
	if end > len(n.raw) {
		return nil, false
	}
	return n.raw[NkNameOff:end], true
}

// SetParentOffset / SetSubkeyCount / ... are used by the writer when
// mutating an existing nk record in place.
func (n Nk) SetFlags(v uint16)            { buf.PutU16LE(n.raw[NkFlagsOff:], v) }
func (n Nk) SetParentOffset(v uint32)     { buf.PutU32LE(n.raw[NkParentOff:], v) }
func (n Nk) SetSubkeyCount(v uint32)      { buf.PutU32LE(n.raw[NkSubkeyCountOff:], v) }
func (n Nk) SetSubkeyListOffset(v uint32) { buf.PutU32LE(n.raw[NkSubkeyListOff:], v) }
func (n Nk) SetValueCount(v uint32)       { buf.PutU32LE(n.raw[NkValueCountOff:], v) }
func (n Nk) SetValueListOffset(v uint32)  { buf.PutU32LE(n.raw[NkValueListOff:], v) }
func (n Nk) SetSkOffset(v uint32)         { buf.PutU32LE(n.raw[NkSkOff:], v) }
func (n Nk) SetMaxSubkeyNameLen(v uint32) { buf.PutU32LE(n.raw[NkMaxSubNameOff:], v) }
func (n Nk) SetMaxValueNameLen(v uint32)  { buf.PutU32LE(n.raw[NkMaxVkNameOff:], v) }
func (n Nk) SetMaxValueDataLen(v uint32)  { buf.PutU32LE(n.raw[NkMaxVkDataOff:], v) }
func (n Nk) SetNameLen(v uint16)          { buf.PutU16LE(n.raw[NkNameLenOff:], v) }
func (n Nk) SetTimestampRaw(v uint64)     { buf.PutU64LE(n.raw[NkTimestampOff:], v) }

// WriteName copies name into the record's inline name storage, which
// must already have been sized to fit it.
func (n Nk) WriteName(name []byte) {
	copy(n.raw[NkNameOff:NkNameOff+len(name)], name)
}

// InitFixed lays out a brand-new nk record's fixed header: signature,
// ASCII-name flag, parent, empty subkey/value lists, and no security or
// class blob yet.
func InitFixed(payload []byte, parent uint32, nameLen int) {
	copy(payload[NkIDOff:], NkID)
	buf.PutU16LE(payload[NkFlagsOff:], NkFlagASCIIName)
	buf.PutU32LE(payload[NkParentOff:], parent)
	buf.PutU32LE(payload[NkSubkeyCountOff:], 0)
	buf.PutU32LE(payload[NkSubkeyListOff:], InvalidOffset)
	buf.PutU32LE(payload[NkValueCountOff:], 0)
	buf.PutU32LE(payload[NkValueListOff:], InvalidOffset)
	buf.PutU32LE(payload[NkSkOff:], InvalidOffset)
	buf.PutU32LE(payload[NkClassNameOff:], InvalidOffset)
	buf.PutU16LE(payload[NkNameLenOff:], uint16(nameLen))
}

// InvalidOffset marks an absent cross-reference (no subkey list, no
// values, no security descriptor, etc).
const InvalidOffset = 0xFFFFFFFF
