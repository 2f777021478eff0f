package hive

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libguestfs/libguestfs-sub015/internal/format"
)

func TestAllocate_FirstCallAlwaysGrowsFreshPage(t *testing.T) {
	h := openImage(t, buildRootOnly(t), true)
	sizeBefore := h.FileSize()

	// The fixture's page has plenty of unused space after root, but the
	// allocator must never reuse it: the first allocation in a writable
	// session always extends with a brand-new hbin page.
	off, payload, err := h.allocate(32, format.VkID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, off, sizeBefore)
	require.GreaterOrEqual(t, len(payload), 32-format.BlockLenSize)
	require.Greater(t, h.FileSize(), sizeBefore)
}

func TestAllocate_SubsequentCallsPackTheSamePage(t *testing.T) {
	h := openImage(t, buildRootOnly(t), true)

	off1, _, err := h.allocate(32, format.VkID)
	require.NoError(t, err)
	sizeAfterFirst := h.FileSize()

	off2, _, err := h.allocate(32, format.VkID)
	require.NoError(t, err)

	require.Greater(t, off2, off1)
	require.Equal(t, sizeAfterFirst, h.FileSize(), "second small allocation should reuse the page just grown")
}

func TestAllocate_RejectsReadOnly(t *testing.T) {
	h := openImage(t, buildRootOnly(t), false)
	_, _, err := h.allocate(32, format.VkID)
	require.Equal(t, KindReadOnly, KindOf(err))
}

func TestAllocate_RejectsOversizeRequest(t *testing.T) {
	h := openImage(t, buildRootOnly(t), true)
	h.limits.MaxAllocation = 16
	_, _, err := h.allocate(32, format.VkID)
	require.Equal(t, KindOutOfRange, KindOf(err))
}

func TestMarkUnused_FlipsSegLenAndClearsBlockMap(t *testing.T) {
	h := openImage(t, buildRootOnly(t), true)
	off, _, err := h.allocate(32, format.VkID)
	require.NoError(t, err)
	require.True(t, h.bm.Test(off))

	require.NoError(t, h.markUnused(off))
	require.False(t, h.bm.Test(off))
}
