// Package proof generates Merkle storage proofs against a chain endpoint and
// detects when the chain no longer matches the block being proven.
package proof

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/compose-network/checkpoint-monitor/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultCheckpointsSlot is the signal service storage slot holding checkpoint data.
const DefaultCheckpointsSlot uint64 = 254

var (
	ErrBlockHashMismatch = errors.New("block hash mismatch")
	ErrStateRootMismatch = errors.New("state root mismatch")
	ErrEmptyProof        = errors.New("empty account proof")
	ErrBlockNotFound     = errors.New("block not found")
)

// MismatchError reports which value disagreed. It matches its Kind with errors.Is.
type MismatchError struct {
	Kind     error
	Expected common.Hash
	Actual   common.Hash
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Kind, e.Expected.Hex(), e.Actual.Hex())
}

func (e *MismatchError) Is(target error) bool {
	return target == e.Kind
}

type Request struct {
	Endpoint    string
	Account     common.Address
	Slot        uint64
	BlockNumber uint64
}

type StorageProof struct {
	BlockHash    common.Hash  `json:"blockHash" yaml:"blockHash"`
	BlockNumber  uint64       `json:"blockNumber" yaml:"blockNumber"`
	StateRoot    common.Hash  `json:"stateRoot" yaml:"stateRoot"`
	AccountProof []string     `json:"accountProof" yaml:"accountProof"`
	StorageProof []string     `json:"storageProof" yaml:"storageProof"`
	StorageValue *hexutil.Big `json:"storageValue" yaml:"storageValue"`
}

type Generator interface {
	GenerateStorageProof(ctx context.Context, req Request) (*StorageProof, error)
}

// EthGenerator builds proofs with eth_getProof.
type EthGenerator struct {
	timeout time.Duration
	logger  *slog.Logger
}

var _ Generator = (*EthGenerator)(nil)

func NewEthGenerator(timeout time.Duration) *EthGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EthGenerator{
		timeout: timeout,
		logger:  logger.Named("proof_generator"),
	}
}

func (g *EthGenerator) GenerateStorageProof(ctx context.Context, req Request) (*StorageProof, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := rpc.DialContext(ctx, req.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC: %w", err)
	}
	defer client.Close()

	header, err := verifiedHeader(ctx, client, req.BlockNumber)
	if err != nil {
		return nil, err
	}

	slot := common.BigToHash(new(big.Int).SetUint64(req.Slot))
	result, err := gethclient.New(client).GetProof(ctx, req.Account, []string{slot.Hex()}, header.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}

	if len(result.AccountProof) == 0 {
		return nil, ErrEmptyProof
	}
	rootNode, err := hexutil.Decode(result.AccountProof[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode account proof root: %w", err)
	}
	if provenRoot := crypto.Keccak256Hash(rootNode); provenRoot != header.Root {
		return nil, &MismatchError{Kind: ErrStateRootMismatch, Expected: header.Root, Actual: provenRoot}
	}

	proof := &StorageProof{
		BlockHash:    header.Hash(),
		BlockNumber:  header.Number.Uint64(),
		StateRoot:    header.Root,
		AccountProof: result.AccountProof,
		StorageProof: []string{},
		StorageValue: (*hexutil.Big)(new(big.Int)),
	}
	if len(result.StorageProof) > 0 {
		proof.StorageProof = result.StorageProof[0].Proof
		if value := result.StorageProof[0].Value; value != nil {
			proof.StorageValue = (*hexutil.Big)(value)
		}
	}

	g.logger.With("account", req.Account).With("block", req.BlockNumber).With("slot", req.Slot).
		With("account_proof_nodes", len(proof.AccountProof)).Info("generated storage proof")

	return proof, nil
}

// verifiedHeader fetches the block header and checks that the node-reported
// hash matches the hash of the header it returned.
func verifiedHeader(ctx context.Context, client *rpc.Client, number uint64) (*types.Header, error) {
	var raw json.RawMessage
	if err := client.CallContext(ctx, &raw, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false); err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", number, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: %d", ErrBlockNotFound, number)
	}

	var reported struct {
		Hash common.Hash `json:"hash"`
	}
	if err := json.Unmarshal(raw, &reported); err != nil {
		return nil, fmt.Errorf("failed to decode block hash: %w", err)
	}

	var header types.Header
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("failed to decode block header: %w", err)
	}

	if computed := header.Hash(); computed != reported.Hash {
		return nil, &MismatchError{Kind: ErrBlockHashMismatch, Expected: reported.Hash, Actual: computed}
	}

	return &header, nil
}
