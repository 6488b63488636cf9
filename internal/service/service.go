// Package service is the facade the CLI and the HTTP API call into. It resolves
// chains through the registry, routes queries to cached adapters and drives the
// proof generator.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/compose-network/checkpoint-monitor/configs"
	"github.com/compose-network/checkpoint-monitor/internal/adapter"
	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/logger"
	"github.com/compose-network/checkpoint-monitor/internal/metrics"
	"github.com/compose-network/checkpoint-monitor/internal/proof"
	"github.com/compose-network/checkpoint-monitor/internal/registry"
	"github.com/compose-network/checkpoint-monitor/internal/remote"
	"golang.org/x/sync/errgroup"
)

var (
	ErrChainNotFound              = errors.New("chain not found")
	ErrProofGenerationUnsupported = errors.New("proof generation not supported")
	ErrBroadcasterNotConfigured   = errors.New("broadcaster address not configured")
)

// ChainNotFoundError names the chains the network does support.
type ChainNotFoundError struct {
	Chain     string
	Network   domain.Network
	Supported []string
}

func (e *ChainNotFoundError) Error() string {
	return fmt.Sprintf("Unknown chain: %s. Supported: %s", e.Chain, strings.Join(e.Supported, ", "))
}

func (e *ChainNotFoundError) Is(target error) bool {
	return target == ErrChainNotFound
}

type Metricer interface {
	remote.Metricer
	RecordStatus(network domain.Network, chain string, status domain.ChainStatus)
}

type Options struct {
	Metrics   Metricer
	Dialer    adapter.Dialer
	Generator proof.Generator
	// Now is used for proof metadata timestamps.
	Now func() time.Time
}

type Service struct {
	registry  *registry.Registry
	factory   *adapter.Factory
	generator proof.Generator
	metrics   Metricer
	now       func() time.Time
	logger    *slog.Logger
}

func New(cfg configs.Config, opts Options) (*Service, error) {
	reg, err := registry.New(cfg.Networks)
	if err != nil {
		return nil, err
	}

	if opts.Metrics == nil {
		opts.Metrics = metrics.NoopMetrics
	}
	if opts.Generator == nil {
		opts.Generator = proof.NewEthGenerator(cfg.RPC.Timeout)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	factory := adapter.NewFactory(reg, adapter.Options{
		Dialer: opts.Dialer,
		RPC: remote.Options{
			Timeout:       cfg.RPC.Timeout,
			RetryAttempts: cfg.RPC.RetryAttempts,
			RetryDelay:    cfg.RPC.RetryDelay,
			CacheSize:     cfg.RPC.HeaderCacheSize,
			Metrics:       opts.Metrics,
		},
		SignalWindow: cfg.Scan.SignalWindow,
		OutboxWindow: cfg.Scan.OutboxWindow,
	})

	return &Service{
		registry:  reg,
		factory:   factory,
		generator: opts.Generator,
		metrics:   opts.Metrics,
		now:       opts.Now,
		logger:    logger.Named("checkpoint_service"),
	}, nil
}

// Close releases every RPC client opened by the cached adapters.
func (s *Service) Close() {
	s.factory.Close()
}

// Chains lists the chains configured for the network in configured order.
func (s *Service) Chains(network domain.Network) []domain.ChainConfig {
	ids := s.registry.ListChains(network)
	chains := make([]domain.ChainConfig, 0, len(ids))
	for _, id := range ids {
		if cfg, ok := s.registry.Lookup(network, id); ok {
			chains = append(chains, cfg)
		}
	}
	return chains
}

func (s *Service) Status(ctx context.Context, network domain.Network, chainID string, direction domain.Direction) (domain.ChainStatus, error) {
	a, err := s.adapter(network, chainID)
	if err != nil {
		return domain.ChainStatus{}, err
	}

	status := a.Status(ctx, direction)
	s.metrics.RecordStatus(network, chainID, status)
	return status, nil
}

type ChainStatusEntry struct {
	Chain  string             `json:"chain" yaml:"chain"`
	Status domain.ChainStatus `json:"status" yaml:"status"`
}

// StatusAll queries every chain of the network concurrently, in registry order.
func (s *Service) StatusAll(ctx context.Context, network domain.Network, direction domain.Direction) []ChainStatusEntry {
	adapters := s.factory.All(network)
	entries := make([]ChainStatusEntry, len(adapters))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range adapters {
		g.Go(func() error {
			chainID := a.Config().ID
			status := a.Status(gctx, direction)
			s.metrics.RecordStatus(network, chainID, status)
			entries[i] = ChainStatusEntry{Chain: chainID, Status: status}
			return nil
		})
	}
	_ = g.Wait()

	return entries
}

func (s *Service) Checkpoints(ctx context.Context, network domain.Network, chainID string, direction domain.Direction, limit int) ([]domain.Checkpoint, error) {
	a, err := s.adapter(network, chainID)
	if err != nil {
		return nil, err
	}
	return a.Checkpoints(ctx, direction, limit), nil
}

func (s *Service) CheckProof(ctx context.Context, network domain.Network, chainID string, direction domain.Direction, blockNumber uint64) (domain.ProofResult, error) {
	a, err := s.adapter(network, chainID)
	if err != nil {
		return domain.ProofResult{}, err
	}
	return a.CheckProof(ctx, direction, blockNumber), nil
}

func (s *Service) adapter(network domain.Network, chainID string) (adapter.Adapter, error) {
	if a, ok := s.factory.Get(chainID, network); ok {
		return a, nil
	}
	return nil, &ChainNotFoundError{Chain: chainID, Network: network, Supported: s.registry.ListChains(network)}
}
