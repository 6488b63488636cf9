// Package registry maps (network, chain identifier) pairs to their resolved
// ChainConfig. It is a pure lookup table built once from configuration.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/compose-network/checkpoint-monitor/configs"
	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

type Registry struct {
	chains map[domain.Network]map[string]domain.ChainConfig
	order  map[domain.Network][]string
}

// New builds a registry from the configured network partitions. Chain order
// within a network is preserved.
func New(networks map[configs.NetworkName][]configs.Chain) (*Registry, error) {
	r := &Registry{
		chains: make(map[domain.Network]map[string]domain.ChainConfig, len(networks)),
		order:  make(map[domain.Network][]string, len(networks)),
	}

	var errs []error
	for name, chains := range networks {
		network, err := domain.ParseNetwork(string(name))
		if err != nil {
			errs = append(errs, err)
			continue
		}

		r.chains[network] = make(map[string]domain.ChainConfig, len(chains))
		for _, chain := range chains {
			cfg, err := toChainConfig(chain)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", network, chain.ID, err))
				continue
			}
			if _, dup := r.chains[network][cfg.ID]; dup {
				errs = append(errs, fmt.Errorf("%s.%s: duplicate chain", network, chain.ID))
				continue
			}
			r.chains[network][cfg.ID] = cfg
			r.order[network] = append(r.order[network], cfg.ID)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to build chain registry: %w", errors.Join(errs...))
	}

	return r, nil
}

// Lookup returns the chain config for the pair, or false if it is not registered.
func (r *Registry) Lookup(network domain.Network, chainID string) (domain.ChainConfig, bool) {
	cfg, ok := r.chains[network][chainID]
	return cfg, ok
}

// ListChains returns the chain identifiers registered for a network in configured order.
func (r *Registry) ListChains(network domain.Network) []string {
	return slices.Clone(r.order[network])
}

func toChainConfig(chain configs.Chain) (domain.ChainConfig, error) {
	l1, err := toLayerConfig(chain.L1)
	if err != nil {
		return domain.ChainConfig{}, fmt.Errorf("l1: %w", err)
	}
	l2, err := toLayerConfig(chain.L2)
	if err != nil {
		return domain.ChainConfig{}, fmt.Errorf("l2: %w", err)
	}

	cfg := domain.ChainConfig{
		ID:        chain.ID,
		Name:      chain.Name,
		ShortName: chain.ShortName,
		Family:    domain.Family(chain.Family),
		Directions: domain.DirectionSet{
			L1ToL2: chain.Directions.L1ToL2,
			L2ToL1: chain.Directions.L2ToL1,
		},
		Contracts: domain.Contracts{
			L1: l1,
			L2: l2,
		},
		SupportsProofGeneration: chain.SupportsProofGeneration,
	}

	if !cfg.Directions.L1ToL2 && !cfg.Directions.L2ToL1 {
		return domain.ChainConfig{}, errors.New("no direction enabled")
	}
	if cfg.ShortName == "" {
		cfg.ShortName = cfg.Name
	}

	return cfg, nil
}

func toLayerConfig(layer configs.Layer) (domain.LayerConfig, error) {
	if !common.IsHexAddress(layer.Address) {
		return domain.LayerConfig{}, fmt.Errorf("invalid address %q", layer.Address)
	}

	cfg := domain.LayerConfig{
		Address:     common.HexToAddress(layer.Address),
		RPC:         layer.RPC,
		ChainID:     layer.ChainID,
		ExplorerURL: layer.ExplorerURL,
	}

	if layer.Broadcaster != "" {
		if !common.IsHexAddress(layer.Broadcaster) {
			return domain.LayerConfig{}, fmt.Errorf("invalid broadcaster %q", layer.Broadcaster)
		}
		broadcaster := common.HexToAddress(layer.Broadcaster)
		cfg.Broadcaster = &broadcaster
	}
	if layer.CheckpointsSlot != nil {
		slot := *layer.CheckpointsSlot
		cfg.CheckpointsSlot = &slot
	}

	return cfg, nil
}
