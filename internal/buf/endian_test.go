package buf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteRoundTrip(t *testing.T) {
	b := make([]byte, 8)

	PutU16LE(b, 0xBEEF)
	require.Equal(t, uint16(0xBEEF), U16LE(b))

	PutU32LE(b, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), U32LE(b))

	PutI32LE(b, -5)
	require.Equal(t, int32(-5), I32LE(b))

	PutU64LE(b, 0x0123456789ABCDEF)
	require.Equal(t, uint64(0x0123456789ABCDEF), U64LE(b))
}

func TestShortBufferReadsAreZero(t *testing.T) {
	require.Equal(t, uint16(0), U16LE(nil))
	require.Equal(t, uint32(0), U32LE([]byte{1, 2}))
	require.Equal(t, uint64(0), U64LE([]byte{1, 2, 3}))
	require.Equal(t, int32(0), I32LE([]byte{1}))
	require.Equal(t, uint32(0), U32BE([]byte{1}))
}

func TestU32BEIsBigEndian(t *testing.T) {
	b := []byte{0x00, 0x00, 0x01, 0x02}
	require.Equal(t, uint32(0x0102), U32BE(b))
}
