package format

import (
	"bytes"
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
)

// PageHeader is the 32-byte header at the start of every hbin page.
//
//	0x00  4   magic "hbin"
//	0x04  4   offset of this page, relative to the first hbin (0x1000)
//	0x08  4   page size, a multiple of 0x1000
type PageHeader struct {
	OffsetFirst uint32
	PageSize    uint32
}

// ParsePageHeader validates the magic of an hbin page and decodes its
// offset and size fields.
func ParsePageHeader(b []byte) (PageHeader, error) {
	if len(b) < HbinHeaderSize {
		return PageHeader{}, fmt.Errorf("hbin header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[HbinMagicOff:HbinMagicOff+4], HbinMagic) {
		return PageHeader{}, fmt.Errorf("hbin header: %w", ErrSignature)
	}
	return PageHeader{
		OffsetFirst: buf.U32LE(b[HbinOffsetOff:]),
		PageSize:    buf.U32LE(b[HbinPageSizeOff:]),
	}, nil
}

// WritePageHeader serializes a fresh hbin page header into dst. Only
// the fields the format requires are set; the remaining 0x14 bytes of
// header (reserved/timestamp fields the reader never inspects) are left
// zeroed by the caller's already-zeroed allocation.
func WritePageHeader(dst []byte, offsetFirst, pageSize uint32) {
	copy(dst[HbinMagicOff:], HbinMagic)
	buf.PutU32LE(dst[HbinOffsetOff:], offsetFirst)
	buf.PutU32LE(dst[HbinPageSizeOff:], pageSize)
}
