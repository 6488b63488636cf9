// Package domain holds the value types shared by the registry, the chain
// adapters and their callers. Every value is constructed fresh per call.
package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type (
	Network   string
	Direction string
	Layer     string
	Family    string
)

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"

	DirectionL1ToL2 Direction = "l1ToL2"
	DirectionL2ToL1 Direction = "l2ToL1"

	LayerL1 Layer = "l1"
	LayerL2 Layer = "l2"

	// FamilySignalService anchors with a single canonical checkpoint event on the target layer.
	FamilySignalService Family = "signal-service"
	// FamilyRollupOutbox confirms L2 state through an outbox event and exposes
	// recent L1 history to L2 through a fixed accessibility window.
	FamilyRollupOutbox Family = "rollup-outbox"
)

// Networks lists the known networks in display order.
var Networks = []Network{NetworkTestnet, NetworkMainnet}

// Directions lists both directions in display order.
var Directions = []Direction{DirectionL1ToL2, DirectionL2ToL1}

func (n Network) Valid() bool {
	return n == NetworkMainnet || n == NetworkTestnet
}

func (d Direction) Valid() bool {
	return d == DirectionL1ToL2 || d == DirectionL2ToL1
}

// Source is the layer whose blocks are committed for this direction.
func (d Direction) Source() Layer {
	if d == DirectionL1ToL2 {
		return LayerL1
	}
	return LayerL2
}

// Target is the layer on which commitments for this direction are observed.
func (d Direction) Target() Layer {
	if d == DirectionL1ToL2 {
		return LayerL2
	}
	return LayerL1
}

// Other returns the opposite layer.
func (l Layer) Other() Layer {
	if l == LayerL1 {
		return LayerL2
	}
	return LayerL1
}

// LayerConfig holds one chain layer's connection facts.
type LayerConfig struct {
	Address         common.Address  `json:"address" yaml:"address"`
	RPC             string          `json:"-" yaml:"-"`
	ChainID         uint64          `json:"chainId" yaml:"chainId"`
	ExplorerURL     string          `json:"explorerUrl" yaml:"explorerUrl"`
	Broadcaster     *common.Address `json:"broadcaster,omitempty" yaml:"broadcaster,omitempty"`
	CheckpointsSlot *uint64         `json:"checkpointsSlot,omitempty" yaml:"checkpointsSlot,omitempty"`
}

type DirectionSet struct {
	L1ToL2 bool `json:"l1ToL2" yaml:"l1ToL2"`
	L2ToL1 bool `json:"l2ToL1" yaml:"l2ToL1"`
}

type Contracts struct {
	L1 LayerConfig `json:"l1" yaml:"l1"`
	L2 LayerConfig `json:"l2" yaml:"l2"`
}

// ChainConfig describes a logical L1/L2 chain pair. It is never mutated after
// the registry builds it.
type ChainConfig struct {
	ID                      string       `json:"id" yaml:"id"`
	Name                    string       `json:"name" yaml:"name"`
	ShortName               string       `json:"shortName" yaml:"shortName"`
	Family                  Family       `json:"family" yaml:"family"`
	Directions              DirectionSet `json:"directions" yaml:"directions"`
	Contracts               Contracts    `json:"contracts" yaml:"contracts"`
	SupportsProofGeneration bool         `json:"supportsProofGeneration" yaml:"supportsProofGeneration"`
}

func (c ChainConfig) Layer(l Layer) LayerConfig {
	if l == LayerL1 {
		return c.Contracts.L1
	}
	return c.Contracts.L2
}

// ContractAddress is the contract or service observed for a direction: the
// one hosted on the direction's target layer.
func (c ChainConfig) ContractAddress(d Direction) common.Address {
	return c.Layer(d.Target()).Address
}

func (c ChainConfig) Supports(d Direction) bool {
	switch d {
	case DirectionL1ToL2:
		return c.Directions.L1ToL2
	case DirectionL2ToL1:
		return c.Directions.L2ToL1
	default:
		return false
	}
}

// Checkpoint is one anchored commitment of a source-chain block.
type Checkpoint struct {
	BlockNumber uint64       `json:"blockNumber" yaml:"blockNumber"`
	BlockHash   common.Hash  `json:"blockHash" yaml:"blockHash"`
	StateRoot   *common.Hash `json:"stateRoot,omitempty" yaml:"stateRoot,omitempty"`
	SendRoot    *common.Hash `json:"sendRoot,omitempty" yaml:"sendRoot,omitempty"`
	// Timestamp is the anchoring block time in milliseconds since epoch.
	Timestamp *int64       `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	TxHash    *common.Hash `json:"txHash,omitempty" yaml:"txHash,omitempty"`
}

// ChainStatus is a snapshot of anchoring progress for one direction.
type ChainStatus struct {
	ChainName        string         `json:"chainName" yaml:"chainName"`
	Direction        Direction      `json:"direction" yaml:"direction"`
	IsConnected      bool           `json:"isConnected" yaml:"isConnected"`
	LatestCheckpoint *Checkpoint    `json:"latestCheckpoint" yaml:"latestCheckpoint"`
	TotalCheckpoints int            `json:"totalCheckpoints" yaml:"totalCheckpoints"`
	ContractAddress  common.Address `json:"contractAddress" yaml:"contractAddress"`
	CurrentBlock     *uint64        `json:"currentBlock,omitempty" yaml:"currentBlock,omitempty"`
	// BlocksBehind is nil when no checkpoint exists. It goes negative only
	// when the source head reorgs below the last anchor.
	BlocksBehind *int64 `json:"blocksBehind,omitempty" yaml:"blocksBehind,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProofResult answers whether a source block can currently be proven on the target layer.
type ProofResult struct {
	Exists      bool         `json:"exists" yaml:"exists"`
	BlockNumber uint64       `json:"blockNumber" yaml:"blockNumber"`
	BlockHash   *common.Hash `json:"blockHash,omitempty" yaml:"blockHash,omitempty"`
	StateRoot   *common.Hash `json:"stateRoot,omitempty" yaml:"stateRoot,omitempty"`
	SendRoot    *common.Hash `json:"sendRoot,omitempty" yaml:"sendRoot,omitempty"`
	// NextCheckpoint is the smallest anchored block above BlockNumber, when one is known.
	NextCheckpoint *uint64 `json:"nextCheckpoint,omitempty" yaml:"nextCheckpoint,omitempty"`
	Error          string  `json:"error,omitempty" yaml:"error,omitempty"`
}

func ParseNetwork(s string) (Network, error) {
	n := Network(s)
	if !n.Valid() {
		return "", fmt.Errorf("invalid network %q: use mainnet or testnet", s)
	}
	return n, nil
}

func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", fmt.Errorf("invalid direction %q: use l1ToL2 or l2ToL1", s)
	}
	return d, nil
}
