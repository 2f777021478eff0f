package format

import (
	"bytes"
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
)

// Vk is a decoded view of a vk (value) record payload.
type Vk struct {
	raw []byte
}

// ParseVk validates the "vk" tag and minimum length.
func ParseVk(payload []byte) (Vk, error) {
	if len(payload) < VkFixedSize {
		return Vk{}, fmt.Errorf("vk record: %w", ErrTruncated)
	}
	if !bytes.Equal(payload[VkIDOff:VkIDOff+2], VkID) {
		return Vk{}, fmt.Errorf("vk record: %w", ErrSignature)
	}
	return Vk{raw: payload}, nil
}

func (v Vk) NameLen() uint16 { return buf.U16LE(v.raw[VkNameLenOff:]) }

// RawDataLen is the unmasked 32-bit data_len field: its top bit is the
// inline flag, the low 31 bits are the length.
func (v Vk) RawDataLen() uint32 { return buf.U32LE(v.raw[VkDataLenOff:]) }

// Inline reports whether the value's data lives inside DataOffsetField
// rather than in a separate block.
func (v Vk) Inline() bool { return v.RawDataLen()&VkDataInlineBit != 0 }

// DataLen is the data length with the inline flag masked off.
func (v Vk) DataLen() uint32 { return v.RawDataLen() & VkDataLenMask }

// DataOffsetField is the raw 4 bytes at 0x08: either a literal file
// offset (out-of-line) or the first up-to-4 bytes of inline data.
func (v Vk) DataOffsetField() []byte { return v.raw[VkDataOff : VkDataOff+4] }

func (v Vk) DataOffset() uint32  { return buf.U32LE(v.raw[VkDataOff:]) }
func (v Vk) DataType() uint32    { return buf.U32LE(v.raw[VkTypeOff:]) }
func (v Vk) Flags() uint16       { return buf.U16LE(v.raw[VkFlagsOff:]) }
func (v Vk) ASCIIName() bool     { return v.Flags()&VkFlagASCIIName != 0 }

// NameBytes returns the raw name bytes without cross-cell bounds checks.
func (v Vk) NameBytes() ([]byte, bool) {
	end := VkNameOff + int(v.NameLen())
	if end > len(v.raw) {
		return nil, false
	}
	return v.raw[VkNameOff:end], true
}

func (v Vk) SetNameLen(n uint16)    { buf.PutU16LE(v.raw[VkNameLenOff:], n) }
func (v Vk) SetDataType(t uint32)   { buf.PutU32LE(v.raw[VkTypeOff:], t) }
func (v Vk) SetFlags(f uint16)      { buf.PutU16LE(v.raw[VkFlagsOff:], f) }
func (v Vk) WriteName(name []byte)  { copy(v.raw[VkNameOff:VkNameOff+len(name)], name) }

// SetInlineData stores up to 4 bytes of data directly in the record,
// setting the inline bit and the (masked) length.
func (v Vk) SetInlineData(data []byte) {
	var field [4]byte
	copy(field[:], data)
	buf.PutU32LE(v.raw[VkDataOff:], buf.U32LE(field[:]))
	buf.PutU32LE(v.raw[VkDataLenOff:], VkDataInlineBit|uint32(len(data)))
}

// SetOutOfLineData points the record at a separately-allocated data
// block and records the data's true length (unmasked, inline bit clear).
func (v Vk) SetOutOfLineData(dataOffset uint32, length uint32) {
	buf.PutU32LE(v.raw[VkDataOff:], dataOffset)
	buf.PutU32LE(v.raw[VkDataLenOff:], length&VkDataLenMask)
}

// InitVk lays out a brand-new vk record's fixed header.
func InitVk(payload []byte, nameLen int) {
	copy(payload[VkIDOff:], VkID)
	buf.PutU16LE(payload[VkNameLenOff:], uint16(nameLen))
	buf.PutU16LE(payload[VkFlagsOff:], VkFlagASCIIName)
}
