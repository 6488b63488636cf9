package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestDirectionLayers(t *testing.T) {
	require.Equal(t, LayerL1, DirectionL1ToL2.Source())
	require.Equal(t, LayerL2, DirectionL1ToL2.Target())
	require.Equal(t, LayerL2, DirectionL2ToL1.Source())
	require.Equal(t, LayerL1, DirectionL2ToL1.Target())

	for _, d := range Directions {
		require.NotEqual(t, d.Source(), d.Target())
		require.Equal(t, d.Target(), d.Source().Other())
	}
}

func TestContractAddressFollowsTarget(t *testing.T) {
	cfg := ChainConfig{
		Directions: DirectionSet{L1ToL2: true},
		Contracts: Contracts{
			L1: LayerConfig{Address: common.HexToAddress("0x01")},
			L2: LayerConfig{Address: common.HexToAddress("0x02")},
		},
	}

	require.Equal(t, common.HexToAddress("0x02"), cfg.ContractAddress(DirectionL1ToL2))
	require.Equal(t, common.HexToAddress("0x01"), cfg.ContractAddress(DirectionL2ToL1))
	require.True(t, cfg.Supports(DirectionL1ToL2))
	require.False(t, cfg.Supports(DirectionL2ToL1))
	require.False(t, cfg.Supports("sideways"))
}

func TestParse(t *testing.T) {
	n, err := ParseNetwork("mainnet")
	require.NoError(t, err)
	require.Equal(t, NetworkMainnet, n)
	_, err = ParseNetwork("devnet")
	require.ErrorContains(t, err, "use mainnet or testnet")

	d, err := ParseDirection("l2ToL1")
	require.NoError(t, err)
	require.Equal(t, DirectionL2ToL1, d)
	_, err = ParseDirection("L2TOL1")
	require.ErrorContains(t, err, "use l1ToL2 or l2ToL1")
}
