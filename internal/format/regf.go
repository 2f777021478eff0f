package format

import (
	"bytes"
	"fmt"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
)

// Header is the decoded form of the 4096-byte base block that starts
// every hive file.
//
//	0x000  4    magic "regf"
//	0x004  4    sequence 1
//	0x008  4    sequence 2
//	0x00C  8    last-written FILETIME
//	0x014  4    major version
//	0x018  4    minor version
//	0x01C  4    file type
//	0x024  4    root cell offset, relative to the first hbin page
//	0x028  4    total size of hbin data (end_pages - 0x1000)
//	0x02C  4    clustering factor
//	0x030  64   original file name, UTF-16LE
//	0x1FC  4    XOR checksum of the first 0x1FC bytes
type Header struct {
	Sequence1      uint32
	Sequence2      uint32
	LastWriteRaw   uint64
	MajorVersion   uint32
	MinorVersion   uint32
	FileType       uint32
	RootCellOffset uint32
	Blocks         uint32
	ClusterFactor  uint32
	FileName       [HdrFileNameSize]byte
	Checksum       uint32
}

// ParseHeader validates the magic of a raw 4096-byte base block and
// decodes its fields. It does not verify the checksum (see Checksum) or
// validate version; callers decide which major/minor versions they
// accept.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("regf header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[HdrMagicOff:HdrMagicOff+4], RegfMagic) {
		return Header{}, fmt.Errorf("regf header: %w", ErrSignature)
	}

	h := Header{
		Sequence1:      buf.U32LE(b[HdrSeq1Off:]),
		Sequence2:      buf.U32LE(b[HdrSeq2Off:]),
		LastWriteRaw:   buf.U64LE(b[HdrLastWriteOff:]),
		MajorVersion:   buf.U32LE(b[HdrMajorVersionOff:]),
		MinorVersion:   buf.U32LE(b[HdrMinorVersionOff:]),
		FileType:       buf.U32LE(b[HdrFileTypeOff:]),
		RootCellOffset: buf.U32LE(b[HdrRootCellOff:]),
		Blocks:         buf.U32LE(b[HdrBlocksOff:]),
		ClusterFactor:  buf.U32LE(b[HdrClusterOff:]),
		Checksum:       buf.U32LE(b[HdrChecksumOff:]),
	}
	copy(h.FileName[:], b[HdrFileNameOff:HdrFileNameOff+HdrFileNameSize])
	return h, nil
}

// Checksum computes the XOR-of-dwords checksum over the first
// HdrChecksumSpan bytes of a raw base block, per invariant 9.
func Checksum(b []byte) uint32 {
	var sum uint32
	for i := 0; i < HdrChecksumWords; i++ {
		sum ^= buf.U32LE(b[i*4:])
	}
	return sum
}

// WriteHeader serializes h into dst[0:HeaderSize], including a freshly
// computed checksum. dst must be at least HeaderSize bytes.
func WriteHeader(dst []byte, h Header) {
	copy(dst[HdrMagicOff:], RegfMagic)
	buf.PutU32LE(dst[HdrSeq1Off:], h.Sequence1)
	buf.PutU32LE(dst[HdrSeq2Off:], h.Sequence2)
	buf.PutU64LE(dst[HdrLastWriteOff:], h.LastWriteRaw)
	buf.PutU32LE(dst[HdrMajorVersionOff:], h.MajorVersion)
	buf.PutU32LE(dst[HdrMinorVersionOff:], h.MinorVersion)
	buf.PutU32LE(dst[HdrFileTypeOff:], h.FileType)
	buf.PutU32LE(dst[HdrRootCellOff:], h.RootCellOffset)
	buf.PutU32LE(dst[HdrBlocksOff:], h.Blocks)
	buf.PutU32LE(dst[HdrClusterOff:], h.ClusterFactor)
	copy(dst[HdrFileNameOff:HdrFileNameOff+HdrFileNameSize], h.FileName[:])
	buf.PutU32LE(dst[HdrChecksumOff:], Checksum(dst))
}
