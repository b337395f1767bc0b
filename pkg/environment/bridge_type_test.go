package environment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBridgeTypeForMachine(t *testing.T) {
	require.Equal(t, BridgeTypeSysfs, bridgeTypeForMachine("armv7l", true))
	require.Equal(t, BridgeTypePeriph, bridgeTypeForMachine("armv6l", false))
	require.Equal(t, BridgeTypeSysfs, bridgeTypeForMachine("aarch64", true))
	require.Equal(t, BridgeTypeVirtual, bridgeTypeForMachine("x86_64", true))
	require.Equal(t, BridgeTypeVirtual, bridgeTypeForMachine("", false))
}
