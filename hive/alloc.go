package hive

import (
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// allocate reserves a new block of at least length total bytes
// (including the 4-byte cell header) and returns its absolute offset
// and payload slice. It never reuses a free cell left over from the
// loaded file or from a prior mark-unused; every allocation in a write
// session comes from a monotonically advancing high-water mark, which
// trades space for the guarantee that offsets handed out this session
// are strictly increasing and never alias a previously-freed cell.
func (h *Handle) allocate(length int, id []byte) (offset int, payload []byte, err error) {
	const op = "allocate"
	if err := h.checkWritable(op); err != nil {
		return 0, nil, err
	}
	if length <= format.BlockLenSize {
		return 0, nil, newErr(op, KindInvalidArgument, fmt.Errorf("length %d too small", length))
	}
	if length > h.limits.MaxAllocation {
		return 0, nil, newErr(op, KindOutOfRange, fmt.Errorf("length %d exceeds max allocation", length))
	}
	segLen := alignUp(length, format.CellAlignment)

	for h.allocCursor == 0 || h.allocCursor+segLen > h.allocPageEnd {
		if err := h.growPage(segLen); err != nil {
			return 0, nil, err
		}
	}

	off := h.allocCursor
	format.PutCellHeader(h.data[off:], -int32(segLen))
	if len(id) > 0 {
		copy(h.data[off+format.BlockLenSize:], id)
	}
	h.bm.Set(off)

	h.allocCursor += segLen

	if remainder := h.allocPageEnd - h.allocCursor; remainder >= format.BlockMinLen {
		format.PutCellHeader(h.data[h.allocCursor:], int32(remainder))
	}

	return off, h.data[off+format.BlockLenSize : off+segLen], nil
}

// growPage appends a fresh hbin page sized to fit at least hint bytes
// and repositions the bump cursor to its first usable offset.
func (h *Handle) growPage(hint int) error {
	pages := (hint + format.HbinHeaderSize + format.PageAlignment - 1) / format.PageAlignment
	if pages < 1 {
		pages = 1
	}
	pageBytes := pages * format.PageAlignment

	oldLen := len(h.data)
	h.data = append(h.data, make([]byte, pageBytes)...)
	h.bm.Grow(len(h.data))

	format.WritePageHeader(h.data[oldLen:], uint32(oldLen-format.HeaderSize), uint32(pageBytes))

	h.allocCursor = oldLen + format.HbinHeaderSize
	h.allocPageEnd = oldLen + pageBytes
	h.endPages = oldLen + pageBytes
	return nil
}

// markUnused flips a block's seg_len sign to positive (free) and clears
// it from the BlockMap. It never recurses into the cell's own
// cross-references and never coalesces with neighbors.
func (h *Handle) markUnused(offset int) error {
	const op = "mark_unused"
	if err := h.checkWritable(op); err != nil {
		return err
	}
	if !h.bm.IsValidBlock(offset, len(h.data)) {
		return newErr(op, KindCorrupt, fmt.Errorf("offset %#x is not a valid used block", offset))
	}
	ch, err := format.ParseCellHeader(h.data[offset:])
	if err != nil {
		return newErr(op, KindCorrupt, err)
	}
	format.PutCellHeader(h.data[offset:], ch.Len())
	h.bm.Clear(offset)
	return nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}
