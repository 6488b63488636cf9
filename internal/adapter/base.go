package adapter

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/logger"
	"github.com/compose-network/checkpoint-monitor/internal/remote"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

var errInvalidDirection = errors.New("invalid direction: use l1ToL2 or l2ToL1")

// checkpointsFunc is the error-returning checkpoint query a variant exposes to the shared helpers.
type checkpointsFunc func(ctx context.Context, direction domain.Direction, limit int) ([]domain.Checkpoint, error)

// base holds what both chain families share: configuration, lazily dialled clients and logging.
type base struct {
	network domain.Network
	cfg     domain.ChainConfig
	opts    Options
	clients *layerClients
	logger  *slog.Logger
}

func newBase(name string, network domain.Network, cfg domain.ChainConfig, opts Options) base {
	return base{
		network: network,
		cfg:     cfg,
		opts:    opts,
		clients: newLayerClients(network, cfg, opts),
		logger:  logger.Named(name).With("network", network).With("chain", cfg.ID),
	}
}

func (b *base) Config() domain.ChainConfig {
	return b.cfg
}

func (b *base) close() {
	b.clients.close()
}

// status fetches the latest checkpoint and the source head concurrently.
func (b *base) status(ctx context.Context, direction domain.Direction, checkpoints checkpointsFunc) domain.ChainStatus {
	status := domain.ChainStatus{
		ChainName:       b.cfg.Name,
		Direction:       direction,
		ContractAddress: b.cfg.ContractAddress(direction),
	}

	fail := func(err error) domain.ChainStatus {
		b.logger.With("direction", direction).With("err", err).Warn("failed to get chain status")
		status.Error = err.Error()
		return status
	}

	if !direction.Valid() {
		return fail(errInvalidDirection)
	}

	source, err := b.clients.get(ctx, direction.Source())
	if err != nil {
		return fail(err)
	}

	var (
		latest []domain.Checkpoint
		head   uint64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		latest, err = checkpoints(gctx, direction, 1)
		return err
	})
	g.Go(func() error {
		var err error
		head, err = source.BlockNumber(gctx)
		if err != nil {
			return fmt.Errorf("failed to get %s block number: %w", direction.Source(), err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	status.IsConnected = true
	status.CurrentBlock = &head
	status.TotalCheckpoints = len(latest)
	if len(latest) > 0 {
		checkpoint := latest[0]
		behind := int64(head) - int64(checkpoint.BlockNumber)
		status.LatestCheckpoint = &checkpoint
		status.BlocksBehind = &behind
	}

	return status
}

// listCheckpoints adapts an error-returning query to the never-failing public contract.
func (b *base) listCheckpoints(ctx context.Context, direction domain.Direction, limit int, checkpoints checkpointsFunc) []domain.Checkpoint {
	if !direction.Valid() {
		b.logger.With("direction", direction).Warn("rejected checkpoints query with invalid direction")
		return []domain.Checkpoint{}
	}

	result, err := checkpoints(ctx, direction, limit)
	if err != nil {
		b.logger.With("direction", direction).With("err", err).Warn("failed to get checkpoints")
		return []domain.Checkpoint{}
	}

	return result
}

// scanLogs queries the target contract for one event over [head-window, head].
func (b *base) scanLogs(ctx context.Context, client remote.Client, address common.Address, topic common.Hash, window uint64) ([]types.Log, error) {
	head, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block number: %w", err)
	}

	from := uint64(0)
	if head > window {
		from = head - window
	}

	logs, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{address},
		Topics:    [][]common.Hash{{topic}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get logs in blocks %d-%d: %w", from, head, err)
	}

	b.logger.With("from", from).With("to", head).With("logs", len(logs)).Debug("scanned anchoring events")

	return logs, nil
}

// recentLogs keeps the newest n non-removed logs in chain order.
func recentLogs(logs []types.Log, n int) []types.Log {
	kept := make([]types.Log, 0, len(logs))
	for _, log := range logs {
		if !log.Removed {
			kept = append(kept, log)
		}
	}
	slices.SortStableFunc(kept, func(a, b types.Log) int {
		if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}

// resolveEach runs resolve for every log with bounded concurrency and keeps the
// entries it returns, in log order.
func resolveEach(ctx context.Context, logs []types.Log, resolve func(ctx context.Context, log types.Log) (domain.Checkpoint, bool)) []domain.Checkpoint {
	resolved := make([]*domain.Checkpoint, len(logs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, log := range logs {
		g.Go(func() error {
			if checkpoint, ok := resolve(gctx, log); ok {
				resolved[i] = &checkpoint
			}
			return nil
		})
	}
	_ = g.Wait()

	checkpoints := make([]domain.Checkpoint, 0, len(resolved))
	for _, checkpoint := range resolved {
		if checkpoint != nil {
			checkpoints = append(checkpoints, *checkpoint)
		}
	}
	return checkpoints
}

// newestFirst dedupes by block number, later entries winning, then orders
// descending and truncates to limit.
func newestFirst(checkpoints []domain.Checkpoint, limit int) []domain.Checkpoint {
	seen := make(map[uint64]struct{}, len(checkpoints))
	result := make([]domain.Checkpoint, 0, len(checkpoints))
	for i := len(checkpoints) - 1; i >= 0; i-- {
		if _, dup := seen[checkpoints[i].BlockNumber]; dup {
			continue
		}
		seen[checkpoints[i].BlockNumber] = struct{}{}
		result = append(result, checkpoints[i])
	}

	slices.SortFunc(result, func(a, b domain.Checkpoint) int {
		return cmp.Compare(b.BlockNumber, a.BlockNumber)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

type proofMessages struct {
	// next is formatted with the next anchored block number.
	next string
	none string
}

// lookupProof answers a proof query from a checkpoint list: exact match first,
// otherwise the smallest checkpoint strictly above blockNumber.
func lookupProof(blockNumber uint64, checkpoints []domain.Checkpoint, messages proofMessages) domain.ProofResult {
	var next *domain.Checkpoint
	for i := range checkpoints {
		checkpoint := checkpoints[i]
		if checkpoint.BlockNumber == blockNumber {
			hash := checkpoint.BlockHash
			return domain.ProofResult{
				Exists:      true,
				BlockNumber: blockNumber,
				BlockHash:   &hash,
				StateRoot:   checkpoint.StateRoot,
				SendRoot:    checkpoint.SendRoot,
			}
		}
		if checkpoint.BlockNumber > blockNumber && (next == nil || checkpoint.BlockNumber < next.BlockNumber) {
			next = &checkpoints[i]
		}
	}

	if next == nil {
		return domain.ProofResult{BlockNumber: blockNumber, Error: messages.none}
	}

	nextNumber := next.BlockNumber
	return domain.ProofResult{
		BlockNumber:    blockNumber,
		NextCheckpoint: &nextNumber,
		Error:          fmt.Sprintf(messages.next, nextNumber),
	}
}

func failedProof(blockNumber uint64, err error) domain.ProofResult {
	return domain.ProofResult{BlockNumber: blockNumber, Error: err.Error()}
}

func millis(seconds uint64) *int64 {
	ms := int64(seconds) * 1000
	return &ms
}
