package hive

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

// hiveBuilder hand-assembles a single-hbin-page hive image byte by
// byte, the way a crafted test fixture needs to: every cell is placed
// and sized explicitly so tests can exercise the loader's validation
// and the navigator's traversal without going through the writer.
type hiveBuilder struct {
	t        *testing.T
	data     []byte
	cursor   int
	pageEnd  int
	rootRel  uint32
	rootSeen bool
}

func newHiveBuilder(t *testing.T, pages int) *hiveBuilder {
	size := format.HeaderSize + pages*format.PageAlignment
	data := make([]byte, size)
	off := format.HeaderSize
	for p := 0; p < pages; p++ {
		format.WritePageHeader(data[off:], uint32(off-format.HeaderSize), format.PageAlignment)
		off += format.PageAlignment
	}
	return &hiveBuilder{
		t:       t,
		data:    data,
		cursor:  format.HeaderSize + format.HbinHeaderSize,
		pageEnd: format.HeaderSize + format.PageAlignment,
	}
}

// alloc places a new used cell of at least length bytes (header
// included) and returns its absolute offset and payload slice.
func (b *hiveBuilder) alloc(length int, id []byte) (abs int, payload []byte) {
	segLen := alignUp(length, format.CellAlignment)
	require.LessOrEqual(b.t, b.cursor+segLen, b.pageEnd, "fixture page too small, add more pages")
	off := b.cursor
	format.PutCellHeader(b.data[off:], -int32(segLen))
	if len(id) > 0 {
		copy(b.data[off+format.BlockLenSize:], id)
	}
	b.cursor += segLen
	return off, b.data[off+format.BlockLenSize : off+segLen]
}

// nk places a brand-new nk record for name, parented at parentAbs
// (pass 0 for the root, which is conventionally self-parented).
func (b *hiveBuilder) nk(name string, parentAbs int) (abs int, nk format.Nk) {
	raw, ascii := format.EncodeName(name)
	abs, payload := b.alloc(format.BlockLenSize+format.NkFixedSize+len(raw), format.NkID)
	format.InitFixed(payload, uint32(parentAbs-format.HeaderSize), len(raw))
	nk, err := format.ParseNk(payload)
	require.NoError(b.t, err)
	nk.WriteName(raw)
	if !ascii {
		nk.SetFlags(nk.Flags() &^ format.NkFlagASCIIName)
	}
	return abs, nk
}

// leaf places a single lh leaf listing children (name -> absolute nk
// offset), sorted the way the writer would sort them.
func (b *hiveBuilder) leaf(children []int) (abs int) {
	abs, payload := b.alloc(format.IdxEntriesOff+len(children)*format.LeafEntrySize, format.LhID)
	format.InitLeafIndex(payload, len(children))
	for i, childAbs := range children {
		name, err := b.nameOf(childAbs)
		require.NoError(b.t, err)
		format.PutLeafEntry(payload, i, uint32(childAbs-format.HeaderSize), format.HashLH(name))
	}
	return abs
}

// nameOf reads the already-written name back out of a child nk cell,
// purely as a fixture-building convenience (production code never
// needs to do this before the cell is linked into the tree).
func (b *hiveBuilder) nameOf(childAbs int) (string, error) {
	ch, err := format.ParseCellHeader(b.data[childAbs:])
	if err != nil {
		return "", err
	}
	payload := b.data[childAbs+format.BlockLenSize : childAbs+int(ch.Len())]
	nk, err := format.ParseNk(payload)
	if err != nil {
		return "", err
	}
	raw, ok := nk.NameBytes()
	if !ok {
		return "", format.ErrTruncated
	}
	return format.DecodeName(raw, nk.ASCIIName())
}

// value places a new vk record for name/typ/data and returns its
// absolute offset.
func (b *hiveBuilder) value(name string, typ uint32, data []byte) int {
	raw, ascii := format.EncodeName(name)
	abs, payload := b.alloc(format.BlockLenSize+format.VkFixedSize+len(raw), format.VkID)
	format.InitVk(payload, len(raw))
	vk, err := format.ParseVk(payload)
	require.NoError(b.t, err)
	vk.WriteName(raw)
	if !ascii {
		vk.SetFlags(vk.Flags() &^ format.VkFlagASCIIName)
	}
	vk.SetDataType(typ)
	if len(data) <= 4 {
		vk.SetInlineData(data)
	} else {
		dataAbs, dataPayload := b.alloc(format.BlockLenSize+len(data), nil)
		copy(dataPayload, data)
		vk.SetOutOfLineData(uint32(dataAbs-format.HeaderSize), uint32(len(data)))
	}
	return abs
}

// valueList places a headerless value-list referencing vks in order.
func (b *hiveBuilder) valueList(vks []int) int {
	abs, payload := b.alloc(format.BlockLenSize+format.ValueListEntrySize*len(vks), nil)
	vl, err := format.ParseValueList(payload, len(vks))
	require.NoError(b.t, err)
	for i, v := range vks {
		vl.PutOffset(i, uint32(v-format.HeaderSize))
	}
	return abs
}

// sk places a self-referencing sk record with refcount 1.
func (b *hiveBuilder) sk() int {
	abs, payload := b.alloc(format.BlockLenSize+format.SkFixedSize+4, format.SkID)
	format.InitSk(payload, uint32(abs-format.HeaderSize), []byte{0, 0, 0, 0})
	return abs
}

// finish fills the page's trailing free space and writes a valid
// header pointing at root, returning the complete image.
func (b *hiveBuilder) finish(rootAbs int) []byte {
	if remainder := b.pageEnd - b.cursor; remainder > 0 {
		format.PutCellHeader(b.data[b.cursor:], int32(remainder))
	}
	hdr := format.Header{
		Sequence1:      1,
		Sequence2:      1,
		MajorVersion:   format.SupportedMajorVersion,
		MinorVersion:   5,
		RootCellOffset: uint32(rootAbs - format.HeaderSize),
		Blocks:         uint32(len(b.data) - format.HeaderSize),
	}
	format.WriteHeader(b.data[:format.HeaderSize], hdr)
	return b.data
}

// buildRootOnly returns a minimal valid hive: a self-parented root nk
// named "root", with no subkeys, values, or security descriptor.
func buildRootOnly(t *testing.T) []byte {
	b := newHiveBuilder(t, 1)
	rootAbs, rootNk := b.nk("root", 0)
	rootNk.SetParentOffset(uint32(rootAbs - format.HeaderSize)) // the root conventionally parents itself
	return b.finish(rootAbs)
}

// buildWithChildAndValue returns a hive with root -> "Software" child,
// root owns one dword value "Count"=42, and the child owns a string
// value "Ver"="1.0".
func buildWithChildAndValue(t *testing.T) []byte {
	b := newHiveBuilder(t, 1)

	rootAbs, rootNk := b.nk("root", 0)
	rootNk.SetParentOffset(uint32(rootAbs - format.HeaderSize))

	childAbs, childNk := b.nk("Software", rootAbs)

	verVal := b.value("Ver", format.TypeString, format.EncodeUTF16LE("1.0"))
	childVl := b.valueList([]int{verVal})
	childNk.SetValueCount(1)
	childNk.SetValueListOffset(uint32(childVl - format.HeaderSize))

	leafAbs := b.leaf([]int{childAbs})
	rootNk.SetSubkeyCount(1)
	rootNk.SetSubkeyListOffset(uint32(leafAbs - format.HeaderSize))

	countVal := b.value("Count", format.TypeDwordLE, []byte{42, 0, 0, 0})
	rootVl := b.valueList([]int{countVal})
	rootNk.SetValueCount(1)
	rootNk.SetValueListOffset(uint32(rootVl - format.HeaderSize))

	return b.finish(rootAbs)
}

func openImage(t *testing.T, data []byte, write bool) *Handle {
	t.Helper()
	path := t.TempDir() + "/test.hiv"
	require.NoError(t, os.WriteFile(path, data, 0o644))
	h, err := Open(path, OpenFlags{Write: write})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}
