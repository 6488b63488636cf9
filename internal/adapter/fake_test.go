package adapter

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/remote"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var errRPCDown = errors.New("connection refused")

// fakeClient is an in-memory chain. Blocks are synthesized for any number up
// to head unless listed in missing.
type fakeClient struct {
	mu sync.Mutex

	head    uint64
	headErr error
	logs    []types.Log
	logsErr error
	missing map[uint64]bool
	byHash  map[common.Hash]remote.Block

	filters []ethereum.FilterQuery
	closed  atomic.Bool
}

func newFakeClient(head uint64) *fakeClient {
	return &fakeClient{
		head:    head,
		missing: make(map[uint64]bool),
		byHash:  make(map[common.Hash]remote.Block),
	}
}

func fakeBlock(number uint64) remote.Block {
	return remote.Block{
		Number:    number,
		Hash:      common.BigToHash(new(big.Int).SetUint64(number + 0xb10c)),
		StateRoot: common.BigToHash(new(big.Int).SetUint64(number + 0x5747e)),
		Timestamp: 1_700_000_000 + number*12,
	}
}

func (c *fakeClient) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, c.headErr
}

func (c *fakeClient) BlockByNumber(_ context.Context, number uint64) (remote.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headErr != nil {
		return remote.Block{}, c.headErr
	}
	if number > c.head || c.missing[number] {
		return remote.Block{}, remote.ErrNotFound
	}
	return fakeBlock(number), nil
}

func (c *fakeClient) BlockByHash(_ context.Context, hash common.Hash) (remote.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	block, ok := c.byHash[hash]
	if !ok {
		return remote.Block{}, remote.ErrNotFound
	}
	return block, nil
}

func (c *fakeClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append(c.filters, q)
	if c.logsErr != nil {
		return nil, c.logsErr
	}

	var logs []types.Log
	for _, log := range c.logs {
		if q.FromBlock != nil && log.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && log.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && log.Address != q.Addresses[0] {
			continue
		}
		if len(q.Topics) > 0 && len(log.Topics) > 0 && log.Topics[0] != q.Topics[0][0] {
			continue
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func (c *fakeClient) Close() {
	c.closed.Store(true)
}

func (c *fakeClient) addBlockHash(block remote.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byHash[block.Hash] = block
}

func (c *fakeClient) setHead(head uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
}

func (c *fakeClient) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headErr = err
}

// fakeDialer hands out the fake bound to each endpoint and counts dials.
type fakeDialer struct {
	clients map[string]*fakeClient
	dials   atomic.Int32
	err     error
}

func (d *fakeDialer) dial(_ context.Context, endpoint string, _ remote.Options) (remote.Client, error) {
	d.dials.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	client, ok := d.clients[endpoint]
	if !ok {
		return nil, errors.New("unknown endpoint " + endpoint)
	}
	return client, nil
}

var (
	l1Contract = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	l2Contract = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func testChain(id string, family domain.Family) domain.ChainConfig {
	return domain.ChainConfig{
		ID:         id,
		Name:       id + " chain",
		ShortName:  id,
		Family:     family,
		Directions: domain.DirectionSet{L1ToL2: true, L2ToL1: true},
		Contracts: domain.Contracts{
			L1: domain.LayerConfig{Address: l1Contract, RPC: id + "-l1", ChainID: 1},
			L2: domain.LayerConfig{Address: l2Contract, RPC: id + "-l2", ChainID: 2},
		},
	}
}

// checkpointSavedLog builds a CheckpointSaved log emitted at emittedAt for source block number.
func checkpointSavedLog(contract common.Address, emittedAt uint64, index uint, number uint64) types.Log {
	source := fakeBlock(number)
	data := append(source.Hash.Bytes(), source.StateRoot.Bytes()...)
	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{checkpointSavedTopic, common.BigToHash(new(big.Int).SetUint64(number))},
		Data:        data,
		BlockNumber: emittedAt,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(emittedAt*1000 + uint64(index))),
		Index:       index,
	}
}

func sendRootUpdatedLog(emittedAt uint64, index uint, l2Block remote.Block) types.Log {
	return types.Log{
		Address:     l1Contract,
		Topics:      []common.Hash{sendRootUpdatedTopic, outputRoot(l2Block.Number), l2Block.Hash},
		BlockNumber: emittedAt,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(emittedAt*1000 + uint64(index))),
		Index:       index,
	}
}

func outputRoot(number uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(number + 0x5e4d))
}

func requireStrictlyDescending(t *testing.T, checkpoints []domain.Checkpoint) {
	t.Helper()
	for i := 1; i < len(checkpoints); i++ {
		if checkpoints[i-1].BlockNumber <= checkpoints[i].BlockNumber {
			t.Errorf("checkpoints not strictly descending at %d: %d then %d", i, checkpoints[i-1].BlockNumber, checkpoints[i].BlockNumber)
		}
	}
}
