package hive

import (
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// ValueType returns the vk's declared type and length (with the inline
// flag already masked off the length).
func (h *Handle) ValueType(offset int) (typ uint32, length int, err error) {
	if err := h.checkOpen("value_type"); err != nil {
		return 0, 0, err
	}
	vk, err := h.vkAt(offset)
	if err != nil {
		return 0, 0, err
	}
	return vk.DataType(), int(vk.DataLen()), nil
}

// ValueRaw resolves a vk's data: inline data is copied straight out of
// the record, out-of-line data is resolved through the BlockMap and
// truncated (with no error) to the containing block's capacity if the
// declared length overruns it, matching hives observed in the wild that
// violate their own stated length.
func (h *Handle) ValueRaw(offset int) ([]byte, error) {
	const op = "value_raw"
	if err := h.checkOpen(op); err != nil {
		return nil, err
	}
	vk, err := h.vkAt(offset)
	if err != nil {
		return nil, err
	}

	length := int(vk.DataLen())
	if length > h.limits.MaxValueDataLen {
		return nil, newErr(op, KindOutOfRange, fmt.Errorf("declared length %d exceeds limit", length))
	}

	if vk.Inline() {
		if length > 4 {
			return nil, newErr(op, KindNotSupported, fmt.Errorf("inline value declares length %d > 4", length))
		}
		field := vk.DataOffsetField()
		out := make([]byte, length)
		copy(out, field[:length])
		return out, nil
	}

	dataAbs := format.HeaderSize + int(vk.DataOffset())
	payload, err := h.cellPayload(dataAbs)
	if err != nil {
		return nil, newErr(op, KindCorrupt, fmt.Errorf("out-of-line data block: %w", err))
	}
	if id, ok := format.RecordID(payload); ok && bytesEq(id, format.DbID) {
		return nil, newErr(op, KindNotSupported, fmt.Errorf("value data stored in a big-data (db) indirection block, which is not supported"))
	}
	if length > len(payload) {
		h.log.Warn("value_raw: declared length exceeds containing block, truncating",
			"vk", offset, "declared", length, "block_capacity", len(payload))
		length = len(payload)
	}
	out := make([]byte, length)
	copy(out, payload[:length])
	return out, nil
}

// ValueString decodes a string/expand_string/link value to UTF-8.
// Ill-formed UTF-16 surfaces as KindInvalidEncoding, distinct from
// every other failure, so the caller can still retrieve ValueRaw.
func (h *Handle) ValueString(offset int) (string, error) {
	const op = "value_string"
	typ, _, err := h.ValueType(offset)
	if err != nil {
		return "", err
	}
	if typ != format.TypeString && typ != format.TypeExpandString && typ != format.TypeLink {
		return "", newErr(op, KindInvalidArgument, fmt.Errorf("value type %d is not a string type", typ))
	}
	raw, err := h.ValueRaw(offset)
	if err != nil {
		return "", err
	}
	s, derr := format.DecodeUTF16LE(raw)
	if derr != nil {
		return "", newErr(op, KindInvalidEncoding, derr)
	}
	return s, nil
}

// ValueMultiStrings decodes a REG_MULTI_SZ value into its component
// strings.
func (h *Handle) ValueMultiStrings(offset int) ([]string, error) {
	const op = "value_multi_strings"
	typ, _, err := h.ValueType(offset)
	if err != nil {
		return nil, err
	}
	if typ != format.TypeMultiString {
		return nil, newErr(op, KindInvalidArgument, fmt.Errorf("value type %d is not multi_string", typ))
	}
	raw, err := h.ValueRaw(offset)
	if err != nil {
		return nil, err
	}
	parts := format.SplitMultiString(raw)
	out := make([]string, len(parts))
	for i, p := range parts {
		s, derr := format.DecodeUTF16LE(p)
		if derr != nil {
			return nil, newErr(op, KindInvalidEncoding, derr)
		}
		out[i] = s
	}
	return out, nil
}

// ValueDword decodes a dword_le or dword_be value as a signed 32-bit
// integer, honoring the type's endianness.
func (h *Handle) ValueDword(offset int) (int32, error) {
	const op = "value_dword"
	typ, length, err := h.ValueType(offset)
	if err != nil {
		return 0, err
	}
	if length != 4 || (typ != format.TypeDwordLE && typ != format.TypeDwordBE) {
		return 0, newErr(op, KindInvalidArgument, fmt.Errorf("value is not a 4-byte dword (type=%d len=%d)", typ, length))
	}
	raw, err := h.ValueRaw(offset)
	if err != nil {
		return 0, err
	}
	if typ == format.TypeDwordBE {
		return int32(buf.U32BE(raw)), nil
	}
	return buf.I32LE(raw), nil
}

// ValueQword decodes a qword value as a signed 64-bit little-endian
// integer.
func (h *Handle) ValueQword(offset int) (int64, error) {
	const op = "value_qword"
	typ, length, err := h.ValueType(offset)
	if err != nil {
		return 0, err
	}
	if length != 8 || typ != format.TypeQword {
		return 0, newErr(op, KindInvalidArgument, fmt.Errorf("value is not an 8-byte qword (type=%d len=%d)", typ, length))
	}
	raw, err := h.ValueRaw(offset)
	if err != nil {
		return 0, err
	}
	return int64(buf.U64LE(raw)), nil
}
