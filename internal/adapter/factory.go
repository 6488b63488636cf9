package adapter

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/logger"
)

// Registry is the chain configuration lookup the Factory builds adapters from.
type Registry interface {
	Lookup(network domain.Network, chainID string) (domain.ChainConfig, bool)
	ListChains(network domain.Network) []string
}

type factoryKey struct {
	network domain.Network
	chainID string
}

// Factory memoizes one adapter per (network, chain) for the process lifetime.
type Factory struct {
	registry Registry
	opts     Options
	logger   *slog.Logger

	mu       sync.Mutex
	adapters map[factoryKey]Adapter
}

func NewFactory(registry Registry, opts Options) *Factory {
	return &Factory{
		registry: registry,
		opts:     opts.withDefaults(),
		logger:   logger.Named("adapter_factory"),
		adapters: make(map[factoryKey]Adapter),
	}
}

// Get returns the adapter for the pair, constructing it on first use. It
// reports false for pairs the registry does not know. Construction does no I/O,
// so the lock is never held across a remote call.
func (f *Factory) Get(chainID string, network domain.Network) (Adapter, bool) {
	key := factoryKey{network: network, chainID: chainID}

	f.mu.Lock()
	defer f.mu.Unlock()

	if adapter, ok := f.adapters[key]; ok {
		return adapter, true
	}

	if !slices.Contains(f.registry.ListChains(network), chainID) {
		return nil, false
	}
	cfg, ok := f.registry.Lookup(network, chainID)
	if !ok {
		return nil, false
	}

	adapter, err := New(network, cfg, f.opts)
	if err != nil {
		f.logger.With("network", network).With("chain", chainID).With("err", err).Error("failed to create chain adapter")
		return nil, false
	}

	f.adapters[key] = adapter
	f.logger.With("network", network).With("chain", chainID).With("family", cfg.Family).Debug("created chain adapter")

	return adapter, true
}

// All returns the adapters of every chain registered for the network, in registry order.
func (f *Factory) All(network domain.Network) []Adapter {
	chains := f.registry.ListChains(network)
	adapters := make([]Adapter, 0, len(chains))
	for _, chainID := range chains {
		if adapter, ok := f.Get(chainID, network); ok {
			adapters = append(adapters, adapter)
		}
	}
	return adapters
}

// Close releases every client dialled by the cached adapters. Adapters stay
// usable and redial on next use.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, adapter := range f.adapters {
		if c, ok := adapter.(interface{ close() }); ok {
			c.close()
		}
	}
}
