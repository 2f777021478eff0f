package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVk_InitAndName(t *testing.T) {
	name := []byte("Count")
	payload := make([]byte, VkFixedSize+len(name))
	InitVk(payload, len(name))

	vk, err := ParseVk(payload)
	require.NoError(t, err)
	vk.WriteName(name)

	require.Equal(t, uint16(len(name)), vk.NameLen())
	require.True(t, vk.ASCIIName())
	raw, ok := vk.NameBytes()
	require.True(t, ok)
	require.Equal(t, name, raw)
}

func TestVk_InlineData(t *testing.T) {
	payload := make([]byte, VkFixedSize)
	InitVk(payload, 0)
	vk, err := ParseVk(payload)
	require.NoError(t, err)

	vk.SetDataType(TypeDwordLE)
	vk.SetInlineData([]byte{0x01, 0x02, 0x03, 0x04})

	require.True(t, vk.Inline())
	require.Equal(t, uint32(4), vk.DataLen())
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, vk.DataOffsetField())
}

func TestVk_OutOfLineData(t *testing.T) {
	payload := make([]byte, VkFixedSize)
	InitVk(payload, 0)
	vk, err := ParseVk(payload)
	require.NoError(t, err)

	vk.SetOutOfLineData(0x4000, 128)
	require.False(t, vk.Inline())
	require.Equal(t, uint32(128), vk.DataLen())
	require.Equal(t, uint32(0x4000), vk.DataOffset())
}

func TestVk_BadSignature(t *testing.T) {
	payload := make([]byte, VkFixedSize)
	copy(payload[VkIDOff:], "nk")
	_, err := ParseVk(payload)
	require.ErrorIs(t, err, ErrSignature)
}
