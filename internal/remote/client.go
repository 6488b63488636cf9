// Package remote provides the per-endpoint chain RPC handle used by the chain adapters.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/compose-network/checkpoint-monitor/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotFound is returned when the node answers with a null block.
var ErrNotFound = ethereum.NotFound

const (
	DefaultTimeout   = 10 * time.Second
	DefaultCacheSize = 4096
)

// Block is the subset of a block header the adapters consume. Hash is the
// node-reported hash, never a locally recomputed one.
type Block struct {
	Number    uint64
	Hash      common.Hash
	StateRoot common.Hash
	// Timestamp is in seconds since epoch.
	Timestamp uint64
}

// Client is the capability the chain adapters depend on.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number uint64) (Block, error)
	BlockByHash(ctx context.Context, hash common.Hash) (Block, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	Close()
}

type Metricer interface {
	RecordRPCRequest(endpoint, method string, err error, duration time.Duration)
}

type Options struct {
	// Label identifies the endpoint in logs and metrics; never the raw URL, which may carry API keys.
	Label         string
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	CacheSize     int
	Metrics       Metricer
}

// EthClient implements Client over go-ethereum's JSON-RPC client.
type EthClient struct {
	rpc    *rpc.Client
	eth    *ethclient.Client
	opts   Options
	blocks *lru.Cache[common.Hash, Block]
	logger *slog.Logger
}

var _ Client = (*EthClient)(nil)

// Dial connects to endpoint. For HTTP endpoints no request is made until the first read.
func Dial(ctx context.Context, endpoint string, opts Options) (*EthClient, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC: %w", err)
	}

	client, err := NewEthClient(rpcClient, opts)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}

	return client, nil
}

func NewEthClient(rpcClient *rpc.Client, opts Options) (*EthClient, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetricer{}
	}

	blocks, err := lru.New[common.Hash, Block](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cache: %w", err)
	}

	return &EthClient{
		rpc:    rpcClient,
		eth:    ethclient.NewClient(rpcClient),
		opts:   opts,
		blocks: blocks,
		logger: logger.Named("remote_client").With("endpoint", opts.Label),
	}, nil
}

func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return call(ctx, c, "eth_blockNumber", c.eth.BlockNumber)
}

func (c *EthClient) BlockByNumber(ctx context.Context, number uint64) (Block, error) {
	block, err := call(ctx, c, "eth_getBlockByNumber", func(ctx context.Context) (Block, error) {
		return c.getBlock(ctx, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false)
	})
	if err != nil {
		return Block{}, err
	}

	c.blocks.Add(block.Hash, block)
	return block, nil
}

// BlockByHash serves repeated lookups from an LRU cache; a hash always names the same block.
func (c *EthClient) BlockByHash(ctx context.Context, hash common.Hash) (Block, error) {
	if block, ok := c.blocks.Get(hash); ok {
		return block, nil
	}

	block, err := call(ctx, c, "eth_getBlockByHash", func(ctx context.Context) (Block, error) {
		return c.getBlock(ctx, "eth_getBlockByHash", hash, false)
	})
	if err != nil {
		return Block{}, err
	}

	c.blocks.Add(hash, block)
	return block, nil
}

func (c *EthClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return call(ctx, c, "eth_getLogs", func(ctx context.Context) ([]types.Log, error) {
		return c.eth.FilterLogs(ctx, q)
	})
}

func (c *EthClient) Close() {
	c.rpc.Close()
}

type rpcBlock struct {
	Number    hexutil.Uint64 `json:"number"`
	Hash      common.Hash    `json:"hash"`
	StateRoot common.Hash    `json:"stateRoot"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

func (c *EthClient) getBlock(ctx context.Context, method string, args ...any) (Block, error) {
	var raw *rpcBlock
	if err := c.rpc.CallContext(ctx, &raw, method, args...); err != nil {
		return Block{}, fmt.Errorf("%s failed: %w", method, err)
	}
	if raw == nil {
		return Block{}, ErrNotFound
	}

	return Block{
		Number:    uint64(raw.Number),
		Hash:      raw.Hash,
		StateRoot: raw.StateRoot,
		Timestamp: uint64(raw.Timestamp),
	}, nil
}

// call runs fn with a per-attempt timeout, retrying transient failures. A
// missing block is an answer, not a failure, and is never retried.
func call[T any](ctx context.Context, c *EthClient, method string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()

	result, err := retry.DoWithData(
		func() (T, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
			return fn(attemptCtx)
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.RetryAttempts),
		retry.Delay(c.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrNotFound)
		}),
		retry.OnRetry(func(attempt uint, err error) {
			c.logger.With("method", method).With("attempt", attempt+1).With("err", err).Debug("retrying RPC request")
		}),
	)

	c.opts.Metrics.RecordRPCRequest(c.opts.Label, method, err, time.Since(start))
	return result, err
}

type noopMetricer struct{}

func (noopMetricer) RecordRPCRequest(string, string, error, time.Duration) {}
