package format

import (
	"github.com/libguestfs/libguestfs-sub015/internal/buf"
)

// CellHeader is the 4-byte length prefix shared by every block (cell) in
// an hbin page. A negative seg_len means the cell is in use; a positive
// one means it is free. The absolute value is the full length of the
// cell including this 4-byte header.
type CellHeader struct {
	SegLen int32
}

// ParseCellHeader reads the signed length at the start of b.
func ParseCellHeader(b []byte) (CellHeader, error) {
	if len(b) < BlockLenSize {
		return CellHeader{}, ErrTruncated
	}
	return CellHeader{SegLen: buf.I32LE(b)}, nil
}

// Used reports whether the cell is currently allocated.
func (c CellHeader) Used() bool { return c.SegLen < 0 }

// Len returns the absolute cell length, including the 4-byte header.
func (c CellHeader) Len() int32 {
	if c.SegLen < 0 {
		return -c.SegLen
	}
	return c.SegLen
}

// PutCellHeader writes seg_len (already signed to reflect used/free) at
// the start of b.
func PutCellHeader(b []byte, segLen int32) {
	buf.PutI32LE(b, segLen)
}

// RecordID reads the two-byte type tag that typed cells (nk, vk, sk,
// lf, lh, ri) store immediately after the cell header. Value-list cells
// carry no ID and must not be probed this way.
func RecordID(payload []byte) ([]byte, bool) {
	if len(payload) < 2 {
		return nil, false
	}
	return payload[:2], true
}
