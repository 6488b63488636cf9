package adapter

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/remote"
)

type clientHandle struct {
	remote.Client
}

// layerClients lazily dials one client per layer and keeps it for the adapter's lifetime.
// Dialling happens outside any lock; when two callers race, the loser closes its client.
type layerClients struct {
	network domain.Network
	cfg     domain.ChainConfig
	dial    Dialer
	rpc     remote.Options

	l1 atomic.Pointer[clientHandle]
	l2 atomic.Pointer[clientHandle]
}

func newLayerClients(network domain.Network, cfg domain.ChainConfig, opts Options) *layerClients {
	return &layerClients{
		network: network,
		cfg:     cfg,
		dial:    opts.Dialer,
		rpc:     opts.RPC,
	}
}

func (c *layerClients) slot(layer domain.Layer) *atomic.Pointer[clientHandle] {
	if layer == domain.LayerL1 {
		return &c.l1
	}
	return &c.l2
}

func (c *layerClients) get(ctx context.Context, layer domain.Layer) (remote.Client, error) {
	slot := c.slot(layer)
	if handle := slot.Load(); handle != nil {
		return handle.Client, nil
	}

	opts := c.rpc
	opts.Label = fmt.Sprintf("%s/%s/%s", c.cfg.ID, c.network, layer)

	client, err := c.dial(ctx, c.cfg.Layer(layer).RPC, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", layer, err)
	}

	handle := &clientHandle{Client: client}
	if !slot.CompareAndSwap(nil, handle) {
		client.Close()
		return slot.Load().Client, nil
	}

	return client, nil
}

func (c *layerClients) close() {
	for _, slot := range []*atomic.Pointer[clientHandle]{&c.l1, &c.l2} {
		if handle := slot.Swap(nil); handle != nil {
			handle.Close()
		}
	}
}
