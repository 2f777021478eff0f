package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSk_InitSelfReferencing(t *testing.T) {
	desc := []byte{0xde, 0xad, 0xbe, 0xef}
	payload := make([]byte, SkFixedSize+len(desc))
	InitSk(payload, 0x1000, desc)

	sk, err := ParseSk(payload)
	require.NoError(t, err)
	require.Equal(t, uint32(0x1000), sk.Flink())
	require.Equal(t, uint32(0x1000), sk.Blink())
	require.Equal(t, uint32(1), sk.RefCount())
	require.Equal(t, uint32(len(desc)), sk.DescLen())
}

func TestSk_RefCountRoundTrip(t *testing.T) {
	payload := make([]byte, SkFixedSize)
	InitSk(payload, 0, nil)
	sk, err := ParseSk(payload)
	require.NoError(t, err)

	sk.SetRefCount(3)
	require.Equal(t, uint32(3), sk.RefCount())

	sk.SetFlink(0x2000)
	sk.SetBlink(0x3000)
	require.Equal(t, uint32(0x2000), sk.Flink())
	require.Equal(t, uint32(0x3000), sk.Blink())
}

func TestSk_BadSignature(t *testing.T) {
	payload := make([]byte, SkFixedSize)
	copy(payload[SkIDOff:], "nk")
	_, err := ParseSk(payload)
	require.ErrorIs(t, err, ErrSignature)
}

func TestSk_Truncated(t *testing.T) {
	_, err := ParseSk(make([]byte, 4))
	require.ErrorIs(t, err, ErrTruncated)
}
