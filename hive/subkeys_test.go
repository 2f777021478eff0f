package hive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

func TestInsertSubkey_RiShapedParent(t *testing.T) {
	b := newHiveBuilder(t, 1)
	rootAbs, rootNk := b.nk("root", 0)
	rootNk.SetParentOffset(uint32(rootAbs - format.HeaderSize))

	childAbs, _ := b.nk("Existing", rootAbs)
	leafAbs := b.leaf([]int{childAbs})
	riAbs, riPayload := b.alloc(format.BlockLenSize+format.IdxEntriesOff+format.RiEntrySize, format.RiID)
	format.InitRiIndex(riPayload, 1)
	format.PutRiEntry(riPayload, 0, uint32(leafAbs-format.HeaderSize))

	rootNk.SetSubkeyCount(1)
	rootNk.SetSubkeyListOffset(uint32(riAbs - format.HeaderSize))

	h := openImage(t, b.finish(rootAbs), true)
	root := mustRoot(t, h)

	_, err := h.AddChild(root, "New")
	require.NoError(t, err)

	names := childNames(t, h, root)
	require.Equal(t, []string{"Existing", "New"}, names)

	// The ri cell itself must survive unchanged in shape: still one
	// slot, now pointing at the replacement leaf rather than leafAbs.
	nk, err := h.nkAt(root)
	require.NoError(t, err)
	require.Equal(t, uint32(riAbs-format.HeaderSize), nk.SubkeyListOffset())
}

func TestInsertSubkey_RiMultiLeafPicksCorrectLeaf(t *testing.T) {
	b := newHiveBuilder(t, 1)
	rootAbs, rootNk := b.nk("root", 0)
	rootNk.SetParentOffset(uint32(rootAbs - format.HeaderSize))

	aAbs, _ := b.nk("a", rootAbs)
	cAbs, _ := b.nk("c", rootAbs)
	leaf1 := b.leaf([]int{aAbs})
	leaf2 := b.leaf([]int{cAbs})
	riAbs, riPayload := b.alloc(format.IdxEntriesOff+2*format.RiEntrySize, format.RiID)
	format.InitRiIndex(riPayload, 2)
	format.PutRiEntry(riPayload, 0, uint32(leaf1-format.HeaderSize))
	format.PutRiEntry(riPayload, 1, uint32(leaf2-format.HeaderSize))

	rootNk.SetSubkeyCount(2)
	rootNk.SetSubkeyListOffset(uint32(riAbs - format.HeaderSize))

	h := openImage(t, b.finish(rootAbs), true)
	root := mustRoot(t, h)

	_, err := h.AddChild(root, "b")
	require.NoError(t, err)

	names := childNames(t, h, root)
	require.Equal(t, []string{"a", "b", "c"}, names)

	// "c" is the first existing name greater than "b", so "b" belongs
	// in the leaf ri slot 1 referenced; slot 0 (leaf1, holding only
	// "a") must be left untouched.
	riPayload2, err := h.cellPayload(riAbs)
	require.NoError(t, err)
	ri, err := format.ParseRiIndex(riPayload2)
	require.NoError(t, err)
	require.Equal(t, uint32(leaf1-format.HeaderSize), ri.Entry(0))
	require.NotEqual(t, uint32(leaf2-format.HeaderSize), ri.Entry(1))
}

func TestRemoveSubkey_RiShapedParent(t *testing.T) {
	b := newHiveBuilder(t, 1)
	rootAbs, rootNk := b.nk("root", 0)
	rootNk.SetParentOffset(uint32(rootAbs - format.HeaderSize))

	aAbs, _ := b.nk("a", rootAbs)
	bAbs, _ := b.nk("b", rootAbs)
	leafAbs := b.leaf([]int{aAbs, bAbs})
	riAbs, riPayload := b.alloc(format.BlockLenSize+format.IdxEntriesOff+format.RiEntrySize, format.RiID)
	format.InitRiIndex(riPayload, 1)
	format.PutRiEntry(riPayload, 0, uint32(leafAbs-format.HeaderSize))

	rootNk.SetSubkeyCount(2)
	rootNk.SetSubkeyListOffset(uint32(riAbs - format.HeaderSize))

	h := openImage(t, b.finish(rootAbs), true)
	root := mustRoot(t, h)

	require.NoError(t, h.DeleteChild(aAbs))

	names := childNames(t, h, root)
	require.Equal(t, []string{"b"}, names)
}

func TestRemoveSubkey_ShrinksLeafInPlace(t *testing.T) {
	h := openImage(t, buildRootOnly(t), true)
	root := mustRoot(t, h)

	var children []int
	for _, name := range []string{"a", "b", "c"} {
		c, err := h.AddChild(root, name)
		require.NoError(t, err)
		children = append(children, c)
	}

	require.NoError(t, h.DeleteChild(children[1])) // remove "b"

	names := childNames(t, h, root)
	require.Equal(t, []string{"a", "c"}, names)
}

func childNames(t *testing.T, h *Handle, parent int) []string {
	t.Helper()
	kids, err := h.NodeChildren(parent)
	require.NoError(t, err)
	var names []string
	for _, k := range kids {
		n, err := h.NodeName(k)
		require.NoError(t, err)
		names = append(names, n)
	}
	return names
}
