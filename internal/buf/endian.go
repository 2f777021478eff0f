// Package buf provides endian-aware field accessors shared by the format
// and allocator layers. Every hive field is little-endian except the
// data_type==dword_be value payload, which callers decode with U32BE.
package buf

import "encoding/binary"

// U16LE reads a little-endian uint16. Returns 0 if b is too short.
func U16LE(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32LE reads a little-endian uint32. Returns 0 if b is too short.
func U32LE(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// U64LE reads a little-endian uint64. Returns 0 if b is too short.
func U64LE(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// I32LE reads a little-endian int32 (used for the signed seg_len field).
func I32LE(b []byte) int32 {
	if len(b) < 4 {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// U32BE reads a big-endian uint32 (dword_be values only).
func U32BE(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// PutU16LE writes a little-endian uint16. Panics if b is too short, same
// as the standard library encoders it wraps.
func PutU16LE(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

// PutU32LE writes a little-endian uint32.
func PutU32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// PutI32LE writes a little-endian int32.
func PutI32LE(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) }

// PutU64LE writes a little-endian uint64.
func PutU64LE(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
