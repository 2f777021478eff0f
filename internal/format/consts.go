// Package format contains the low-level byte layout of the Windows NT
// registry hive file format: header, hbin pages, and the typed records
// (nk, vk, sk, lf/lh/ri, value-list) that live inside them.
//
// Nothing in this package dereferences a cross-record offset; it only
// knows how to read and write fixed fields at fixed byte positions.
// Offset resolution and validity checking belong to the block map and
// navigator layers above it.
package format

// Magic signatures. All are exactly two or four ASCII bytes, no NUL.
var (
	RegfMagic = []byte("regf")
	HbinMagic = []byte("hbin")

	NkID = []byte("nk")
	VkID = []byte("vk")
	SkID = []byte("sk")
	LfID = []byte("lf")
	LhID = []byte("lh")
	LiID = []byte("li")
	RiID = []byte("ri")
	DbID = []byte("db")
)

// Base block (header) layout. The header occupies exactly 4096 bytes;
// every multi-byte field is little-endian.
const (
	HeaderSize = 0x1000

	HdrMagicOff        = 0x000
	HdrSeq1Off         = 0x004
	HdrSeq2Off         = 0x008
	HdrLastWriteOff    = 0x00C // FILETIME, 8 bytes
	HdrMajorVersionOff = 0x014
	HdrMinorVersionOff = 0x018
	HdrFileTypeOff     = 0x01C
	HdrRootCellOff     = 0x024 // relative to first hbin (0x1000)
	HdrBlocksOff       = 0x028 // total size of hbin data (end_pages - 0x1000)
	HdrClusterOff      = 0x02C
	HdrFileNameOff     = 0x030
	HdrFileNameSize    = 64 // UTF-16LE, original hive name
	HdrChecksumOff     = 0x1FC

	// HdrChecksumSpan is the number of leading bytes the XOR checksum covers:
	// 127 little-endian dwords, i.e. everything before the checksum field.
	HdrChecksumSpan  = 0x1FC
	HdrChecksumWords = HdrChecksumSpan / 4

	SupportedMajorVersion = 1
)

// hbin page layout.
const (
	HbinHeaderSize  = 0x20
	HbinMagicOff    = 0x00
	HbinOffsetOff   = 0x04 // offset of this page relative to the first hbin
	HbinPageSizeOff = 0x08
)

// Block (cell) layout: every block begins with a signed 32-bit length.
const (
	BlockLenSize  = 4
	BlockAlign    = 4
	BlockMinLen   = 8 // smallest legal block: seg_len > 4 and a multiple of 4
	CellAlignment = 8 // allocator rounds new blocks up to this
	PageAlignment = 0x1000
)

// nk (key node) layout.
const (
	NkIDOff           = 0x00
	NkFlagsOff        = 0x02
	NkTimestampOff    = 0x04 // FILETIME, 8 bytes
	NkSpareOff        = 0x0C
	NkParentOff       = 0x10
	NkSubkeyCountOff  = 0x14
	NkVolSubkeyCntOff = 0x18
	NkSubkeyListOff   = 0x1C
	NkVolSubkeyLstOff = 0x20
	NkValueCountOff   = 0x24
	NkValueListOff    = 0x28
	NkSkOff           = 0x2C
	NkClassNameOff    = 0x30
	NkMaxSubNameOff   = 0x34
	NkMaxClassLenOff  = 0x38
	NkMaxVkNameOff    = 0x3C
	NkMaxVkDataOff    = 0x40
	NkWorkVarOff      = 0x44
	NkNameLenOff      = 0x48
	NkClassLenOff     = 0x4A
	NkNameOff         = 0x4C

	NkFixedSize = NkNameOff

	NkFlagASCIIName = 0x0020
)

// vk (value) layout.
const (
	VkIDOff      = 0x00
	VkNameLenOff = 0x02
	VkDataLenOff = 0x04
	VkDataOff    = 0x08
	VkTypeOff    = 0x0C
	VkFlagsOff   = 0x10
	VkSpareOff   = 0x12
	VkNameOff    = 0x14

	VkFixedSize = VkNameOff

	VkFlagASCIIName = 0x0001
	VkDataInlineBit = uint32(1) << 31
	VkDataLenMask   = VkDataInlineBit - 1
)

// Value type codes (the `data_type` field of a vk record).
const (
	TypeNone         = 0
	TypeString       = 1
	TypeExpandString = 2
	TypeBinary       = 3
	TypeDwordLE      = 4
	TypeDwordBE      = 5
	TypeLink         = 6
	TypeMultiString  = 7
	TypeResourceList = 8
	TypeFullResource = 9
	TypeResourceReqs = 10
	TypeQword        = 11
)

// sk (security descriptor) layout.
const (
	SkIDOff       = 0x00
	SkReservedOff = 0x02
	SkFlinkOff    = 0x04
	SkBlinkOff    = 0x08
	SkRefCountOff = 0x0C
	SkDescLenOff  = 0x10
	SkDescOff     = 0x14

	SkFixedSize = SkDescOff
)

// Subkey index (lf/lh/ri) layout. lf and lh share the same shape: a
// 2-byte ID, a 2-byte count, then `count` (offset, hash) pairs of 4
// bytes each. ri differs only in that each 4-byte entry is a bare
// offset to another lf/lh block (no hash).
const (
	IdxIDOff      = 0x00
	IdxCountOff   = 0x02
	IdxEntriesOff = 0x04

	LeafEntrySize = 8 // offset(4) + hash(4), for lf/lh
	RiEntrySize   = 4 // offset(4), for ri

	HashMultiplier = 37
)

// Value-list: a headerless block whose payload is an array of 4-byte
// offsets, one per value owned by the parent node.
const ValueListEntrySize = 4
