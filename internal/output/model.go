package output

import (
	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

type (
	ChainList struct {
		Network domain.Network `json:"network" yaml:"network"`
		Chains  []ChainSummary `json:"chains" yaml:"chains"`
	}

	ChainSummary struct {
		ID                      string             `json:"id" yaml:"id"`
		Name                    string             `json:"name" yaml:"name"`
		Family                  domain.Family      `json:"family" yaml:"family"`
		Directions              []domain.Direction `json:"directions" yaml:"directions"`
		SupportsProofGeneration bool               `json:"supportsProofGeneration" yaml:"supports-proof-generation"`
		L1                      LayerSummary       `json:"l1" yaml:"l1"`
		L2                      LayerSummary       `json:"l2" yaml:"l2"`
	}

	LayerSummary struct {
		ChainID     uint64         `json:"chainId" yaml:"chain-id"`
		Address     common.Address `json:"address" yaml:"address"`
		ExplorerURL string         `json:"explorerUrl,omitempty" yaml:"explorer-url,omitempty"`
	}

	CheckpointList struct {
		Chain       string              `json:"chain" yaml:"chain"`
		Direction   domain.Direction    `json:"direction" yaml:"direction"`
		Checkpoints []domain.Checkpoint `json:"checkpoints" yaml:"checkpoints"`
		Count       int                 `json:"count" yaml:"count"`
	}
)

// NewChainList summarizes configured chains. RPC endpoints are left out since
// they commonly carry provider keys.
func NewChainList(network domain.Network, chains []domain.ChainConfig) ChainList {
	list := ChainList{Network: network, Chains: make([]ChainSummary, 0, len(chains))}
	for _, chain := range chains {
		summary := ChainSummary{
			ID:                      chain.ID,
			Name:                    chain.Name,
			Family:                  chain.Family,
			Directions:              []domain.Direction{},
			SupportsProofGeneration: chain.SupportsProofGeneration,
			L1:                      newLayerSummary(chain.Contracts.L1),
			L2:                      newLayerSummary(chain.Contracts.L2),
		}
		for _, direction := range domain.Directions {
			if chain.Supports(direction) {
				summary.Directions = append(summary.Directions, direction)
			}
		}
		list.Chains = append(list.Chains, summary)
	}
	return list
}

func NewCheckpointList(chain string, direction domain.Direction, checkpoints []domain.Checkpoint) CheckpointList {
	if checkpoints == nil {
		checkpoints = []domain.Checkpoint{}
	}
	return CheckpointList{Chain: chain, Direction: direction, Checkpoints: checkpoints, Count: len(checkpoints)}
}

func newLayerSummary(layer domain.LayerConfig) LayerSummary {
	return LayerSummary{ChainID: layer.ChainID, Address: layer.Address, ExplorerURL: layer.ExplorerURL}
}
