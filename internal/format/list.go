package format

import (
	"bytes"
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
)

// LeafIndex is a decoded view of an lf or lh subkey-index leaf: a
// 2-byte ID, a 2-byte count, then `count` (nk_offset, hash) pairs.
type LeafIndex struct {
	raw []byte
	id  []byte
}

// ParseLeafIndex accepts either the lf or lh signature; the caller
// distinguishes them by IsLh() when the hashing scheme matters.
func ParseLeafIndex(payload []byte) (LeafIndex, error) {
	if len(payload) < IdxEntriesOff {
		return LeafIndex{}, fmt.Errorf("leaf index: %w", ErrTruncated)
	}
	id := payload[IdxIDOff : IdxIDOff+2]
	if !bytes.Equal(id, LfID) && !bytes.Equal(id, LhID) {
		return LeafIndex{}, fmt.Errorf("leaf index: %w", ErrSignature)
	}
	li := LeafIndex{raw: payload, id: id}
	need := IdxEntriesOff + li.Count()*LeafEntrySize
	if len(payload) < need {
		return LeafIndex{}, fmt.Errorf("leaf index: %w", ErrTruncated)
	}
	return li, nil
}

func (l LeafIndex) IsLh() bool { return bytes.Equal(l.id, LhID) }
func (l LeafIndex) Count() int { return int(buf.U16LE(l.raw[IdxCountOff:])) }

// Entry returns the (nk offset, hash) pair at index i.
func (l LeafIndex) Entry(i int) (offset, hash uint32) {
	base := IdxEntriesOff + i*LeafEntrySize
	return buf.U32LE(l.raw[base:]), buf.U32LE(l.raw[base+4:])
}

// RiIndex is a decoded view of an ri (indirect) subkey-index: a 2-byte
// ID, 2-byte count, then `count` bare offsets to lf/lh leaves.
type RiIndex struct {
	raw []byte
}

func ParseRiIndex(payload []byte) (RiIndex, error) {
	if len(payload) < IdxEntriesOff {
		return RiIndex{}, fmt.Errorf("ri index: %w", ErrTruncated)
	}
	if !bytes.Equal(payload[IdxIDOff:IdxIDOff+2], RiID) {
		return RiIndex{}, fmt.Errorf("ri index: %w", ErrSignature)
	}
	ri := RiIndex{raw: payload}
	need := IdxEntriesOff + ri.Count()*RiEntrySize
	if len(payload) < need {
		return RiIndex{}, fmt.Errorf("ri index: %w", ErrTruncated)
	}
	return ri, nil
}

func (r RiIndex) Count() int { return int(buf.U16LE(r.raw[IdxCountOff:])) }

func (r RiIndex) Entry(i int) uint32 {
	return buf.U32LE(r.raw[IdxEntriesOff+i*RiEntrySize:])
}

// HashLH computes the "new" subkey-index hash: h := h*37 + toupper(c)
// over the decoded name's runes, matching what Windows stores in lh
// leaves.
func HashLH(name string) uint32 {
	var h uint32
	for _, r := range name {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		} else if r >= utf8LowerStart && r <= utf8LowerEnd {
			// best-effort uppercasing for the Latin-1 supplement; the
			// original format's case table is locale-dependent and only
			// matters for index-lookup acceleration, not correctness,
			// since every reader here re-verifies with a full compare.
			r -= 0x20
		}
		h = h*HashMultiplier + uint32(r)
	}
	return h
}

const (
	utf8LowerStart = 0xE0
	utf8LowerEnd   = 0xFE
)

// HashLF returns the legacy lf hash: the first 4 ASCII/Windows-1252
// bytes of the name's on-disk encoding, zero-padded.
func HashLF(name string) uint32 {
	raw, _ := EncodeName(name)
	var b [4]byte
	copy(b[:], raw)
	return buf.U32LE(b[:])
}

// InitLeafIndex lays out a brand-new leaf index header (lh by default;
// the writer only ever creates lh leaves, matching modern hives).
func InitLeafIndex(payload []byte, count int) {
	copy(payload[IdxIDOff:], LhID)
	buf.PutU16LE(payload[IdxCountOff:], uint16(count))
}

// PutLeafEntry writes entry i of a leaf index in place.
func PutLeafEntry(payload []byte, i int, offset, hash uint32) {
	base := IdxEntriesOff + i*LeafEntrySize
	buf.PutU32LE(payload[base:], offset)
	buf.PutU32LE(payload[base+4:], hash)
}

// InitRiIndex lays out a brand-new ri index header.
func InitRiIndex(payload []byte, count int) {
	copy(payload[IdxIDOff:], RiID)
	buf.PutU16LE(payload[IdxCountOff:], uint16(count))
}

// PutRiEntry writes entry i of an ri index in place.
func PutRiEntry(payload []byte, i int, offset uint32) {
	buf.PutU32LE(payload[IdxEntriesOff+i*RiEntrySize:], offset)
}
