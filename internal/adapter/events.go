package adapter

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// CheckpointSaved(uint48 indexed blockNumber, bytes32 blockHash, bytes32 stateRoot)
	checkpointSavedTopic = crypto.Keccak256Hash([]byte("CheckpointSaved(uint48,bytes32,bytes32)"))
	// SendRootUpdated(bytes32 indexed outputRoot, bytes32 indexed l2BlockHash)
	sendRootUpdatedTopic = crypto.Keccak256Hash([]byte("SendRootUpdated(bytes32,bytes32)"))

	errUnexpectedEvent = errors.New("unexpected event")
)

type checkpointSaved struct {
	BlockNumber uint64
	BlockHash   common.Hash
	StateRoot   common.Hash
}

func decodeCheckpointSaved(log types.Log) (checkpointSaved, error) {
	if len(log.Topics) != 2 || log.Topics[0] != checkpointSavedTopic {
		return checkpointSaved{}, errUnexpectedEvent
	}

	number := new(big.Int).SetBytes(log.Topics[1].Bytes())
	if number.BitLen() > 48 {
		return checkpointSaved{}, fmt.Errorf("block number %s overflows uint48", number)
	}

	words := chunk32(log.Data)
	if len(words) < 2 {
		return checkpointSaved{}, fmt.Errorf("insufficient data: %d bytes", len(log.Data))
	}

	return checkpointSaved{
		BlockNumber: number.Uint64(),
		BlockHash:   common.BytesToHash(words[0]),
		StateRoot:   common.BytesToHash(words[1]),
	}, nil
}

type sendRootUpdated struct {
	OutputRoot  common.Hash
	L2BlockHash common.Hash
}

func decodeSendRootUpdated(log types.Log) (sendRootUpdated, error) {
	if len(log.Topics) != 3 || log.Topics[0] != sendRootUpdatedTopic {
		return sendRootUpdated{}, errUnexpectedEvent
	}

	return sendRootUpdated{
		OutputRoot:  log.Topics[1],
		L2BlockHash: log.Topics[2],
	}, nil
}

func chunk32(data []byte) [][]byte {
	words := make([][]byte, 0, len(data)/32)
	for i := 0; i+32 <= len(data); i += 32 {
		words = append(words, data[i:i+32])
	}
	return words
}
