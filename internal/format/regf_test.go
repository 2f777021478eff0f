package format

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libguestfs/libguestfs-sub015/internal/buf"
)

func mkValidHeader() []byte {
	b := make([]byte, HeaderSize)
	copy(b[HdrMagicOff:], RegfMagic)
	buf.PutU32LE(b[HdrSeq1Off:], 7)
	buf.PutU32LE(b[HdrSeq2Off:], 7)
	buf.PutU32LE(b[HdrMajorVersionOff:], SupportedMajorVersion)
	buf.PutU32LE(b[HdrMinorVersionOff:], 5)
	buf.PutU32LE(b[HdrRootCellOff:], 0x20)
	buf.PutU32LE(b[HdrBlocksOff:], 0x3000)
	buf.PutU32LE(b[HdrChecksumOff:], Checksum(b))
	return b
}

func TestParseHeader_OK(t *testing.T) {
	b := mkValidHeader()
	h, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, uint32(7), h.Sequence1)
	require.Equal(t, uint32(SupportedMajorVersion), h.MajorVersion)
	require.Equal(t, uint32(0x20), h.RootCellOffset)
}

func TestParseHeader_BadMagic(t *testing.T) {
	b := mkValidHeader()
	b[0] = 'x'
	_, err := ParseHeader(b)
	require.ErrorIs(t, err, ErrSignature)
}

func TestParseHeader_Truncated(t *testing.T) {
	_, err := ParseHeader(make([]byte, 10))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestChecksum_XorOfDwords(t *testing.T) {
	b := make([]byte, HeaderSize)
	buf.PutU32LE(b[0:], 0x11111111)
	buf.PutU32LE(b[4:], 0x22222222)
	require.Equal(t, uint32(0x11111111^0x22222222), Checksum(b))
}

func TestWriteHeader_RoundTrip(t *testing.T) {
	dst := make([]byte, HeaderSize)
	in := Header{
		Sequence1:      3,
		Sequence2:      3,
		MajorVersion:   1,
		MinorVersion:   5,
		RootCellOffset: 0x20,
		Blocks:         0x1000,
	}
	WriteHeader(dst, in)
	out, err := ParseHeader(dst)
	require.NoError(t, err)
	require.Equal(t, in.Sequence1, out.Sequence1)
	require.Equal(t, in.RootCellOffset, out.RootCellOffset)
	require.Equal(t, Checksum(dst), out.Checksum)
}
