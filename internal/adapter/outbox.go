package adapter

import (
	"context"
	"fmt"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/remote"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

var outboxMessages = proofMessages{
	next: "Block not confirmed on L1. Next confirmed: %d",
	none: "Block not confirmed on L1 yet.",
}

// OutboxAdapter serves rollups that confirm L2 state on L1 through an outbox
// SendRootUpdated event (l2ToL1) and expose the most recent L1 block hashes to
// L2 without any anchoring event (l1ToL2).
type OutboxAdapter struct {
	base
}

var _ Adapter = (*OutboxAdapter)(nil)

func NewOutboxAdapter(network domain.Network, cfg domain.ChainConfig, opts Options) *OutboxAdapter {
	return &OutboxAdapter{base: newBase("outbox_adapter", network, cfg, opts.withDefaults())}
}

func (a *OutboxAdapter) Status(ctx context.Context, direction domain.Direction) domain.ChainStatus {
	return a.status(ctx, direction, a.checkpoints)
}

func (a *OutboxAdapter) Checkpoints(ctx context.Context, direction domain.Direction, limit int) []domain.Checkpoint {
	return a.listCheckpoints(ctx, direction, limit, a.checkpoints)
}

func (a *OutboxAdapter) CheckProof(ctx context.Context, direction domain.Direction, blockNumber uint64) domain.ProofResult {
	var result domain.ProofResult
	var err error

	switch direction {
	case domain.DirectionL2ToL1:
		var checkpoints []domain.Checkpoint
		checkpoints, err = a.confirmed(ctx, ProofLookback)
		if err == nil {
			result = lookupProof(blockNumber, checkpoints, outboxMessages)
		}
	case domain.DirectionL1ToL2:
		result, err = a.checkAccessible(ctx, blockNumber)
	default:
		err = errInvalidDirection
	}

	if err != nil {
		a.logger.With("direction", direction).With("block", blockNumber).With("err", err).Warn("failed to check proof")
		return failedProof(blockNumber, err)
	}
	return result
}

func (a *OutboxAdapter) checkpoints(ctx context.Context, direction domain.Direction, limit int) ([]domain.Checkpoint, error) {
	if limit <= 0 {
		return []domain.Checkpoint{}, nil
	}

	switch direction {
	case domain.DirectionL2ToL1:
		return a.confirmed(ctx, limit)
	case domain.DirectionL1ToL2:
		return a.accessible(ctx, limit)
	default:
		return nil, errInvalidDirection
	}
}

// confirmed lists L2 blocks confirmed by the L1 outbox. The event carries only
// the L2 block hash, so each entry's number is resolved on L2; entries that
// cannot be resolved are dropped.
func (a *OutboxAdapter) confirmed(ctx context.Context, limit int) ([]domain.Checkpoint, error) {
	l1, err := a.clients.get(ctx, domain.LayerL1)
	if err != nil {
		return nil, err
	}
	l2, err := a.clients.get(ctx, domain.LayerL2)
	if err != nil {
		return nil, err
	}

	logs, err := a.scanLogs(ctx, l1, a.cfg.ContractAddress(domain.DirectionL2ToL1), sendRootUpdatedTopic, a.opts.OutboxWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to scan outbox confirmations: %w", err)
	}

	checkpoints := resolveEach(ctx, recentLogs(logs, logHeadroom*limit), func(ctx context.Context, log types.Log) (domain.Checkpoint, bool) {
		return a.resolveConfirmation(ctx, l1, l2, log)
	})

	return newestFirst(checkpoints, limit), nil
}

func (a *OutboxAdapter) resolveConfirmation(ctx context.Context, l1, l2 remote.Client, log types.Log) (domain.Checkpoint, bool) {
	event, err := decodeSendRootUpdated(log)
	if err != nil {
		a.logger.With("tx", log.TxHash).With("err", err).Warn("skipping undecodable outbox event")
		return domain.Checkpoint{}, false
	}

	var (
		l2Block remote.Block
		l1Block remote.Block
		l1Err   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		l2Block, err = l2.BlockByHash(gctx, event.L2BlockHash)
		return err
	})
	g.Go(func() error {
		l1Block, l1Err = l1.BlockByNumber(gctx, log.BlockNumber)
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.With("l2_block_hash", event.L2BlockHash).With("err", err).Warn("could not resolve L2 block number")
		return domain.Checkpoint{}, false
	}

	txHash := log.TxHash
	sendRoot := event.OutputRoot
	checkpoint := domain.Checkpoint{
		BlockNumber: l2Block.Number,
		BlockHash:   event.L2BlockHash,
		SendRoot:    &sendRoot,
		TxHash:      &txHash,
	}
	if l1Err == nil {
		checkpoint.Timestamp = millis(l1Block.Timestamp)
	} else {
		a.logger.With("block", log.BlockNumber).With("err", l1Err).Debug("confirmation timestamp unavailable")
	}

	return checkpoint, true
}

// accessible synthesizes pseudo-checkpoints from the newest L1 blocks, which L2
// can read directly. The list stops at the first unreadable block or at genesis.
func (a *OutboxAdapter) accessible(ctx context.Context, limit int) ([]domain.Checkpoint, error) {
	l1, err := a.clients.get(ctx, domain.LayerL1)
	if err != nil {
		return nil, err
	}

	head, err := l1.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get l1 block number: %w", err)
	}

	count := min(uint64(min(limit, maxAccessibleCheckpoints)), head+1)
	blocks := make([]*remote.Block, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i := range count {
		g.Go(func() error {
			block, err := l1.BlockByNumber(gctx, head-i)
			if err != nil {
				a.logger.With("block", head-i).With("err", err).Debug("stopping accessible block listing")
				return nil
			}
			blocks[i] = &block
			return nil
		})
	}
	_ = g.Wait()

	checkpoints := make([]domain.Checkpoint, 0, count)
	for _, block := range blocks {
		if block == nil {
			break
		}
		stateRoot := block.StateRoot
		checkpoints = append(checkpoints, domain.Checkpoint{
			BlockNumber: block.Number,
			BlockHash:   block.Hash,
			StateRoot:   &stateRoot,
			Timestamp:   millis(block.Timestamp),
		})
	}

	return checkpoints, nil
}

func (a *OutboxAdapter) checkAccessible(ctx context.Context, blockNumber uint64) (domain.ProofResult, error) {
	l1, err := a.clients.get(ctx, domain.LayerL1)
	if err != nil {
		return domain.ProofResult{}, err
	}

	head, err := l1.BlockNumber(ctx)
	if err != nil {
		return domain.ProofResult{}, fmt.Errorf("failed to get l1 block number: %w", err)
	}

	if !isAccessible(blockNumber, head) {
		return domain.ProofResult{
			BlockNumber: blockNumber,
			Error: fmt.Sprintf("L1 block %d is outside the accessible range %d-%d. Current L1 block: %d",
				blockNumber, oldestAccessible(head), head, head),
		}, nil
	}

	block, err := l1.BlockByNumber(ctx, blockNumber)
	if err != nil {
		return domain.ProofResult{}, fmt.Errorf("failed to get l1 block %d: %w", blockNumber, err)
	}

	hash, stateRoot := block.Hash, block.StateRoot
	return domain.ProofResult{
		Exists:      true,
		BlockNumber: blockNumber,
		BlockHash:   &hash,
		StateRoot:   &stateRoot,
	}, nil
}

// isAccessible reports head-K < blockNumber <= head without underflowing.
func isAccessible(blockNumber, head uint64) bool {
	return blockNumber <= head && blockNumber+AccessibilityWindow > head
}

func oldestAccessible(head uint64) uint64 {
	if head < AccessibilityWindow {
		return 0
	}
	return head - AccessibilityWindow + 1
}
