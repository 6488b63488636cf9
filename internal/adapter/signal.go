package adapter

import (
	"context"
	"fmt"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/remote"
	"github.com/ethereum/go-ethereum/core/types"
)

var signalMessages = proofMessages{
	next: "Block not checkpointed. Next available: %d",
	none: "Block not checkpointed. No future checkpoints found.",
}

// SignalAdapter serves chains whose target layer hosts a signal service emitting
// one CheckpointSaved event per anchored source block. Both directions use the
// same event; the direction only selects which layer is read.
type SignalAdapter struct {
	base
}

var _ Adapter = (*SignalAdapter)(nil)

func NewSignalAdapter(network domain.Network, cfg domain.ChainConfig, opts Options) *SignalAdapter {
	return &SignalAdapter{base: newBase("signal_adapter", network, cfg, opts.withDefaults())}
}

func (a *SignalAdapter) Status(ctx context.Context, direction domain.Direction) domain.ChainStatus {
	return a.status(ctx, direction, a.checkpoints)
}

func (a *SignalAdapter) Checkpoints(ctx context.Context, direction domain.Direction, limit int) []domain.Checkpoint {
	return a.listCheckpoints(ctx, direction, limit, a.checkpoints)
}

func (a *SignalAdapter) CheckProof(ctx context.Context, direction domain.Direction, blockNumber uint64) domain.ProofResult {
	if !direction.Valid() {
		return failedProof(blockNumber, errInvalidDirection)
	}

	checkpoints, err := a.checkpoints(ctx, direction, ProofLookback)
	if err != nil {
		a.logger.With("direction", direction).With("block", blockNumber).With("err", err).Warn("failed to check proof")
		return failedProof(blockNumber, err)
	}

	return lookupProof(blockNumber, checkpoints, signalMessages)
}

func (a *SignalAdapter) checkpoints(ctx context.Context, direction domain.Direction, limit int) ([]domain.Checkpoint, error) {
	if limit <= 0 {
		return []domain.Checkpoint{}, nil
	}

	target := direction.Target()
	client, err := a.clients.get(ctx, target)
	if err != nil {
		return nil, err
	}

	logs, err := a.scanLogs(ctx, client, a.cfg.ContractAddress(direction), checkpointSavedTopic, a.opts.SignalWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s checkpoints: %w", target, err)
	}

	checkpoints := resolveEach(ctx, recentLogs(logs, logHeadroom*limit), func(ctx context.Context, log types.Log) (domain.Checkpoint, bool) {
		return a.resolve(ctx, client, log)
	})

	return newestFirst(checkpoints, limit), nil
}

// resolve decodes one CheckpointSaved log. The anchoring block's timestamp is best-effort.
func (a *SignalAdapter) resolve(ctx context.Context, client remote.Client, log types.Log) (domain.Checkpoint, bool) {
	event, err := decodeCheckpointSaved(log)
	if err != nil {
		a.logger.With("tx", log.TxHash).With("err", err).Warn("skipping undecodable checkpoint event")
		return domain.Checkpoint{}, false
	}

	txHash := log.TxHash
	stateRoot := event.StateRoot
	checkpoint := domain.Checkpoint{
		BlockNumber: event.BlockNumber,
		BlockHash:   event.BlockHash,
		StateRoot:   &stateRoot,
		TxHash:      &txHash,
	}

	block, err := client.BlockByNumber(ctx, log.BlockNumber)
	if err != nil {
		a.logger.With("block", log.BlockNumber).With("err", err).Debug("checkpoint timestamp unavailable")
		return checkpoint, true
	}
	checkpoint.Timestamp = millis(block.Timestamp)

	return checkpoint, true
}
