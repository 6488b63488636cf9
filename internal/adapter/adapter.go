// Package adapter implements the chain-family specific logic that finds anchored
// checkpoints, answers provability questions and computes staleness for one
// chain pair.
//
// Adapter operations never return errors: connectivity failures are folded into
// the result (disconnected status, empty checkpoint list, ProofResult.Error) so
// callers can always render a state.
package adapter

import (
	"context"
	"fmt"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/remote"
)

const (
	DefaultSignalWindow uint64 = 10_000
	DefaultOutboxWindow uint64 = 900

	// AccessibilityWindow is how many recent L1 block hashes an outbox-family L2 can read.
	AccessibilityWindow uint64 = 256

	// ProofLookback bounds how many recent checkpoints CheckProof inspects.
	ProofLookback = 50

	maxAccessibleCheckpoints = 20
	// logHeadroom multiplies limit when selecting raw logs, leaving room for entries lost to resolution failures.
	logHeadroom        = 2
	resolveConcurrency = 8
)

type Adapter interface {
	Config() domain.ChainConfig
	// Status reports anchoring progress for the direction.
	Status(ctx context.Context, direction domain.Direction) domain.ChainStatus
	// Checkpoints returns at most limit checkpoints in strictly descending block order.
	Checkpoints(ctx context.Context, direction domain.Direction, limit int) []domain.Checkpoint
	// CheckProof reports whether source block blockNumber can currently be proven on the target layer.
	CheckProof(ctx context.Context, direction domain.Direction, blockNumber uint64) domain.ProofResult
}

// Dialer opens a remote client for one layer endpoint.
type Dialer func(ctx context.Context, endpoint string, opts remote.Options) (remote.Client, error)

// DialRemote is the production Dialer.
func DialRemote(ctx context.Context, endpoint string, opts remote.Options) (remote.Client, error) {
	return remote.Dial(ctx, endpoint, opts)
}

type Options struct {
	Dialer Dialer
	// RPC is the template for every dialled client; Label is set per layer.
	RPC          remote.Options
	SignalWindow uint64
	OutboxWindow uint64
}

func (o Options) withDefaults() Options {
	if o.Dialer == nil {
		o.Dialer = DialRemote
	}
	if o.SignalWindow == 0 {
		o.SignalWindow = DefaultSignalWindow
	}
	if o.OutboxWindow == 0 {
		o.OutboxWindow = DefaultOutboxWindow
	}
	return o
}

// New builds the adapter variant for the chain's family.
func New(network domain.Network, cfg domain.ChainConfig, opts Options) (Adapter, error) {
	opts = opts.withDefaults()

	switch cfg.Family {
	case domain.FamilySignalService:
		return NewSignalAdapter(network, cfg, opts), nil
	case domain.FamilyRollupOutbox:
		return NewOutboxAdapter(network, cfg, opts), nil
	default:
		return nil, fmt.Errorf("unsupported chain family %q for %s", cfg.Family, cfg.ID)
	}
}
