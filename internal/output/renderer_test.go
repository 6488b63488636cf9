package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("table")
	require.ErrorContains(t, err, `unknown output format "table"`)
}

func testCheckpoints() CheckpointList {
	ts := int64(1_700_000_000_000)
	return NewCheckpointList("taiko", domain.DirectionL1ToL2, []domain.Checkpoint{
		{BlockNumber: 200, BlockHash: common.HexToHash("0x02"), Timestamp: &ts},
		{BlockNumber: 100, BlockHash: common.HexToHash("0x01")},
	})
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, FormatJSON).Render(testCheckpoints()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "taiko", decoded["chain"])
	assert.EqualValues(t, 2, decoded["count"])

	first := decoded["checkpoints"].([]any)[0].(map[string]any)
	assert.Equal(t, common.HexToHash("0x02").Hex(), first["blockHash"])
	assert.EqualValues(t, 1_700_000_000_000, first["timestamp"])
}

func TestRenderYAMLUsesHexForHashes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, FormatYAML).Render(testCheckpoints()))

	var decoded struct {
		Count       int `yaml:"count"`
		Checkpoints []struct {
			BlockNumber uint64 `yaml:"blockNumber"`
			BlockHash   string `yaml:"blockHash"`
			Timestamp   *int64 `yaml:"timestamp"`
		} `yaml:"checkpoints"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, 2, decoded.Count)
	assert.Equal(t, uint64(100), decoded.Checkpoints[1].BlockNumber)
	assert.Equal(t, common.HexToHash("0x01").Hex(), decoded.Checkpoints[1].BlockHash)
	assert.Nil(t, decoded.Checkpoints[1].Timestamp)
}

func TestNewChainList(t *testing.T) {
	list := NewChainList(domain.NetworkTestnet, []domain.ChainConfig{{
		ID:         "arbitrum",
		Name:       "Arbitrum Sepolia",
		Family:     domain.FamilyRollupOutbox,
		Directions: domain.DirectionSet{L2ToL1: true},
		Contracts: domain.Contracts{
			L1: domain.LayerConfig{ChainID: 11155111, RPC: "https://key@provider"},
			L2: domain.LayerConfig{ChainID: 421614},
		},
	}})

	require.Len(t, list.Chains, 1)
	assert.Equal(t, []domain.Direction{domain.DirectionL2ToL1}, list.Chains[0].Directions)
	assert.Equal(t, uint64(11155111), list.Chains[0].L1.ChainID)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, FormatYAML).Render(list))
	assert.NotContains(t, buf.String(), "provider")
}

func TestNewCheckpointListNeverNil(t *testing.T) {
	list := NewCheckpointList("taiko", domain.DirectionL2ToL1, nil)
	assert.NotNil(t, list.Checkpoints)
	assert.Zero(t, list.Count)
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proofs", "taiko.json")

	require.NoError(t, WriteFile(path, FormatJSON, testCheckpoints()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded CheckpointList
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Count)
	assert.Equal(t, uint64(200), decoded.Checkpoints[0].BlockNumber)
}
