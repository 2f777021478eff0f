package hive

import "github.com/libguestfs/libguestfs-sub015/internal/format"

// BlockMap is a bit vector over file offsets, one bit per 4-byte-aligned
// position, recording which offsets are the start of a validated, used
// block. Every cross-reference in the tree resolves through
// IsValidBlock rather than being trusted outright, since the hive is
// untrusted input.
type BlockMap struct {
	bits []byte
	size int // number of trackable offsets (file_size/4, rounded up)
}

// NewBlockMap allocates a zeroed map large enough to index every
// 4-byte-aligned offset in a file of the given size.
func NewBlockMap(fileSize int) *BlockMap {
	n := fileSize/format.BlockAlign + 1
	return &BlockMap{
		bits: make([]byte, (n+7)/8),
		size: n,
	}
}

func (m *BlockMap) index(offset int) (int, bool) {
	if offset < 0 || offset%format.BlockAlign != 0 {
		return 0, false
	}
	idx := offset / format.BlockAlign
	if idx >= m.size {
		return 0, false
	}
	return idx, true
}

// Set marks offset as the start of a used block.
func (m *BlockMap) Set(offset int) {
	idx, ok := m.index(offset)
	if !ok {
		return
	}
	m.bits[idx/8] |= 1 << uint(idx%8)
}

// Clear unmarks offset.
func (m *BlockMap) Clear(offset int) {
	idx, ok := m.index(offset)
	if !ok {
		return
	}
	m.bits[idx/8] &^= 1 << uint(idx%8)
}

// Test reports whether offset is currently marked.
func (m *BlockMap) Test(offset int) bool {
	idx, ok := m.index(offset)
	if !ok {
		return false
	}
	return m.bits[idx/8]&(1<<uint(idx%8)) != 0
}

// IsValidBlock is the single predicate every offset dereference in the
// engine must pass through: 4-byte aligned, within [0x1000, fileSize),
// and marked used.
func (m *BlockMap) IsValidBlock(offset int, fileSize int) bool {
	if offset < format.HeaderSize || offset >= fileSize {
		return false
	}
	if offset%format.BlockAlign != 0 {
		return false
	}
	return m.Test(offset)
}

// Grow extends the map to cover a larger file size, e.g. after the
// writer appends a new hbin page. Existing bits are preserved.
func (m *BlockMap) Grow(newFileSize int) {
	n := newFileSize/format.BlockAlign + 1
	if n <= m.size {
		return
	}
	nb := make([]byte, (n+7)/8)
	copy(nb, m.bits)
	m.bits = nb
	m.size = n
}

// Clone returns an independent copy, used by the visitor to derive a
// per-traversal "unvisited" map without mutating the handle's BlockMap.
func (m *BlockMap) Clone() *BlockMap {
	cp := make([]byte, len(m.bits))
	copy(cp, m.bits)
	return &BlockMap{bits: cp, size: m.size}
}
