package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLeafIndex_InitAndEntries(t *testing.T) {
	payload := make([]byte, IdxEntriesOff+2*LeafEntrySize)
	InitLeafIndex(payload, 2)
	PutLeafEntry(payload, 0, 0x1000, 0xAABBCCDD)
	PutLeafEntry(payload, 1, 0x2000, 0x11223344)

	leaf, err := ParseLeafIndex(payload)
	require.NoError(t, err)
	require.True(t, leaf.IsLh())
	require.Equal(t, 2, leaf.Count())

	off, hash := leaf.Entry(0)
	require.Equal(t, uint32(0x1000), off)
	require.Equal(t, uint32(0xAABBCCDD), hash)

	off, hash = leaf.Entry(1)
	require.Equal(t, uint32(0x2000), off)
	require.Equal(t, uint32(0x11223344), hash)
}

func TestLeafIndex_TruncatedEntries(t *testing.T) {
	payload := make([]byte, IdxEntriesOff+LeafEntrySize)
	InitLeafIndex(payload, 2)
	_, err := ParseLeafIndex(payload)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestLeafIndex_BadSignature(t *testing.T) {
	payload := make([]byte, IdxEntriesOff)
	copy(payload[IdxIDOff:], RiID)
	_, err := ParseLeafIndex(payload)
	require.ErrorIs(t, err, ErrSignature)
}

func TestRiIndex_InitAndEntries(t *testing.T) {
	payload := make([]byte, IdxEntriesOff+2*RiEntrySize)
	InitRiIndex(payload, 2)
	PutRiEntry(payload, 0, 0x5000)
	PutRiEntry(payload, 1, 0x6000)

	ri, err := ParseRiIndex(payload)
	require.NoError(t, err)
	require.Equal(t, 2, ri.Count())
	require.Equal(t, uint32(0x5000), ri.Entry(0))
	require.Equal(t, uint32(0x6000), ri.Entry(1))
}

func TestHashLH_CaseInsensitive(t *testing.T) {
	require.Equal(t, HashLH("Software"), HashLH("SOFTWARE"))
	require.Equal(t, HashLH("abc"), HashLH("ABC"))
}

func TestHashLF_FirstFourNameBytes(t *testing.T) {
	got := HashLF("AB")
	want := buf32ASCII("AB")
	require.Equal(t, want, got)
}

func TestHashLF_TruncatesLongerNames(t *testing.T) {
	got := HashLF("ABCDEF")
	want := buf32ASCII("ABCD")
	require.Equal(t, want, got)
}

func buf32ASCII(s string) uint32 {
	raw, _ := EncodeName(s)
	var pad [4]byte
	copy(pad[:], raw)
	return uint32(pad[0]) | uint32(pad[1])<<8 | uint32(pad[2])<<16 | uint32(pad[3])<<24
}
