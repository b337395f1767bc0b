package shiftreg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWireMaskOrder(t *testing.T) {
	require.True(t, MSBFirst)
	expected := []byte{0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01}
	for i, m := range expected {
		require.Equal(t, m, wireMask(i))
	}
}

func TestLevelToBit(t *testing.T) {
	require.True(t, ActiveLowInput)
	require.True(t, levelToBit(false))
	require.False(t, levelToBit(true))
}

func TestFormatBits(t *testing.T) {
	require.Equal(t, "00000000", FormatBits(0))
	require.Equal(t, "11111111", FormatBits(0xff))
	require.Equal(t, "10110000", FormatBits(0xb0))
}
