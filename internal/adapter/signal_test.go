package adapter

import (
	"context"
	"testing"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signalFixture struct {
	adapter *SignalAdapter
	dialer  *fakeDialer
	l1, l2  *fakeClient
}

// newSignalFixture anchors L2 blocks 100..1000 on L1 at L1 blocks 15100..16000,
// plus one stale anchor outside the scan window, and L1 blocks 19000..19200 on L2.
func newSignalFixture(t *testing.T) *signalFixture {
	t.Helper()

	l1 := newFakeClient(20_000)
	l2 := newFakeClient(5_000)

	l1.logs = append(l1.logs, checkpointSavedLog(l1Contract, 5_000, 0, 50))
	for number := uint64(100); number <= 1_000; number += 100 {
		l1.logs = append(l1.logs, checkpointSavedLog(l1Contract, 15_000+number, 0, number))
	}
	for i, number := range []uint64{19_000, 19_100, 19_200} {
		l2.logs = append(l2.logs, checkpointSavedLog(l2Contract, 4_000+uint64(i)*100, 0, number))
	}

	cfg := testChain("taiko", domain.FamilySignalService)
	dialer := &fakeDialer{clients: map[string]*fakeClient{
		cfg.Contracts.L1.RPC: l1,
		cfg.Contracts.L2.RPC: l2,
	}}

	return &signalFixture{
		adapter: NewSignalAdapter(domain.NetworkTestnet, cfg, Options{Dialer: dialer.dial}),
		dialer:  dialer,
		l1:      l1,
		l2:      l2,
	}
}

func TestSignalCheckpointsNewestFirst(t *testing.T) {
	f := newSignalFixture(t)
	ctx := context.Background()

	checkpoints := f.adapter.Checkpoints(ctx, domain.DirectionL2ToL1, 3)
	require.Len(t, checkpoints, 3)
	requireStrictlyDescending(t, checkpoints)
	require.Equal(t, []uint64{1_000, 900, 800}, blockNumbers(checkpoints))

	latest := checkpoints[0]
	require.Equal(t, fakeBlock(1_000).Hash, latest.BlockHash)
	require.NotNil(t, latest.StateRoot)
	require.Equal(t, fakeBlock(1_000).StateRoot, *latest.StateRoot)
	require.Nil(t, latest.SendRoot)
	require.NotNil(t, latest.TxHash)
	require.NotNil(t, latest.Timestamp)
	require.Equal(t, int64(fakeBlock(16_000).Timestamp)*1000, *latest.Timestamp)
}

func TestSignalCheckpointsScanBoundedWindow(t *testing.T) {
	f := newSignalFixture(t)

	checkpoints := f.adapter.Checkpoints(context.Background(), domain.DirectionL2ToL1, 50)
	require.Len(t, checkpoints, 10)
	require.NotContains(t, blockNumbers(checkpoints), uint64(50))

	require.Len(t, f.l1.filters, 1)
	query := f.l1.filters[0]
	require.Equal(t, uint64(10_000), query.FromBlock.Uint64())
	require.Equal(t, uint64(20_000), query.ToBlock.Uint64())
	require.Equal(t, []common.Address{l1Contract}, query.Addresses)
	require.Equal(t, checkpointSavedTopic, query.Topics[0][0])
}

func TestSignalCheckpointsWindowStartsAtGenesis(t *testing.T) {
	f := newSignalFixture(t)
	f.l2.setHead(4_500)

	checkpoints := f.adapter.Checkpoints(context.Background(), domain.DirectionL1ToL2, 20)
	require.Equal(t, []uint64{19_200, 19_100, 19_000}, blockNumbers(checkpoints))
	require.Equal(t, uint64(0), f.l2.filters[0].FromBlock.Uint64())
	require.Empty(t, f.l1.filters)
}

func TestSignalCheckpointsTimestampIsBestEffort(t *testing.T) {
	f := newSignalFixture(t)
	f.l1.missing[16_000] = true

	checkpoints := f.adapter.Checkpoints(context.Background(), domain.DirectionL2ToL1, 2)
	require.Equal(t, []uint64{1_000, 900}, blockNumbers(checkpoints))
	require.Nil(t, checkpoints[0].Timestamp)
	require.NotNil(t, checkpoints[1].Timestamp)
}

func TestSignalCheckpointsDeduplicates(t *testing.T) {
	f := newSignalFixture(t)
	f.l1.logs = append(f.l1.logs, checkpointSavedLog(l1Contract, 16_010, 3, 1_000))

	checkpoints := f.adapter.Checkpoints(context.Background(), domain.DirectionL2ToL1, 2)
	require.Equal(t, []uint64{1_000, 900}, blockNumbers(checkpoints))
}

func TestSignalCheckpointsSkipsForeignEvents(t *testing.T) {
	f := newSignalFixture(t)
	foreign := checkpointSavedLog(l1Contract, 16_100, 0, 1_100)
	foreign.Topics = foreign.Topics[:1]
	f.l1.logs = append(f.l1.logs, foreign)

	checkpoints := f.adapter.Checkpoints(context.Background(), domain.DirectionL2ToL1, 1)
	require.Equal(t, []uint64{1_000}, blockNumbers(checkpoints))
}

func TestSignalCheckpointsFailureIsEmpty(t *testing.T) {
	t.Run("log query", func(t *testing.T) {
		f := newSignalFixture(t)
		f.l1.logsErr = errRPCDown

		checkpoints := f.adapter.Checkpoints(context.Background(), domain.DirectionL2ToL1, 5)
		require.NotNil(t, checkpoints)
		require.Empty(t, checkpoints)
	})

	t.Run("head", func(t *testing.T) {
		f := newSignalFixture(t)
		f.l1.fail(errRPCDown)

		checkpoints := f.adapter.Checkpoints(context.Background(), domain.DirectionL2ToL1, 5)
		require.NotNil(t, checkpoints)
		require.Empty(t, checkpoints)
	})

	t.Run("dial", func(t *testing.T) {
		f := newSignalFixture(t)
		f.dialer.err = errRPCDown

		require.Empty(t, f.adapter.Checkpoints(context.Background(), domain.DirectionL2ToL1, 5))
	})

	t.Run("invalid direction", func(t *testing.T) {
		f := newSignalFixture(t)
		require.Empty(t, f.adapter.Checkpoints(context.Background(), "sideways", 5))
	})
}

func TestSignalCheckProof(t *testing.T) {
	f := newSignalFixture(t)
	ctx := context.Background()

	t.Run("exact match", func(t *testing.T) {
		result := f.adapter.CheckProof(ctx, domain.DirectionL2ToL1, 500)
		require.True(t, result.Exists)
		require.Equal(t, uint64(500), result.BlockNumber)
		require.Equal(t, fakeBlock(500).Hash, *result.BlockHash)
		require.Equal(t, fakeBlock(500).StateRoot, *result.StateRoot)
		require.Nil(t, result.NextCheckpoint)
		require.Empty(t, result.Error)
	})

	t.Run("between checkpoints names the next", func(t *testing.T) {
		result := f.adapter.CheckProof(ctx, domain.DirectionL2ToL1, 450)
		require.False(t, result.Exists)
		require.Equal(t, "Block not checkpointed. Next available: 500", result.Error)
		require.Equal(t, uint64(500), *result.NextCheckpoint)
		require.Nil(t, result.BlockHash)
	})

	t.Run("below every checkpoint names the smallest", func(t *testing.T) {
		result := f.adapter.CheckProof(ctx, domain.DirectionL2ToL1, 10)
		require.False(t, result.Exists)
		require.Equal(t, uint64(100), *result.NextCheckpoint)
	})

	t.Run("above every checkpoint", func(t *testing.T) {
		result := f.adapter.CheckProof(ctx, domain.DirectionL2ToL1, 1_001)
		require.False(t, result.Exists)
		require.Equal(t, "Block not checkpointed. No future checkpoints found.", result.Error)
		require.Nil(t, result.NextCheckpoint)
	})
}

func TestSignalCheckProofOnlyInspectsRecentCheckpoints(t *testing.T) {
	f := newSignalFixture(t)
	f.l1.logs = nil
	for number := uint64(1); number <= 60; number++ {
		f.l1.logs = append(f.l1.logs, checkpointSavedLog(l1Contract, 15_000+number, 0, number))
	}

	// 50 newest cover blocks 11..60; 5 is older than the lookback.
	result := f.adapter.CheckProof(context.Background(), domain.DirectionL2ToL1, 5)
	require.False(t, result.Exists)
	require.Equal(t, uint64(11), *result.NextCheckpoint)

	require.True(t, f.adapter.CheckProof(context.Background(), domain.DirectionL2ToL1, 11).Exists)
}

func TestSignalCheckProofFailure(t *testing.T) {
	f := newSignalFixture(t)
	f.l1.fail(errRPCDown)

	result := f.adapter.CheckProof(context.Background(), domain.DirectionL2ToL1, 500)
	require.False(t, result.Exists)
	require.Equal(t, uint64(500), result.BlockNumber)
	require.Contains(t, result.Error, errRPCDown.Error())

	invalid := f.adapter.CheckProof(context.Background(), "sideways", 500)
	require.False(t, invalid.Exists)
	require.NotEmpty(t, invalid.Error)
}

func TestSignalCheckpointProofRoundTrip(t *testing.T) {
	f := newSignalFixture(t)
	ctx := context.Background()

	for _, direction := range domain.Directions {
		checkpoints := f.adapter.Checkpoints(ctx, direction, 5)
		require.NotEmpty(t, checkpoints)

		for _, checkpoint := range checkpoints {
			result := f.adapter.CheckProof(ctx, direction, checkpoint.BlockNumber)
			assert.True(t, result.Exists, "%s block %d", direction, checkpoint.BlockNumber)
			assert.Equal(t, checkpoint.BlockHash, *result.BlockHash)
		}
	}
}

func TestSignalStatus(t *testing.T) {
	t.Run("l2ToL1 measures against the L2 head", func(t *testing.T) {
		f := newSignalFixture(t)

		status := f.adapter.Status(context.Background(), domain.DirectionL2ToL1)
		require.True(t, status.IsConnected)
		require.Empty(t, status.Error)
		require.Equal(t, "taiko chain", status.ChainName)
		require.Equal(t, domain.DirectionL2ToL1, status.Direction)
		require.Equal(t, l1Contract, status.ContractAddress)
		require.Equal(t, 1, status.TotalCheckpoints)
		require.Equal(t, uint64(1_000), status.LatestCheckpoint.BlockNumber)
		require.Equal(t, uint64(5_000), *status.CurrentBlock)
		require.Equal(t, int64(4_000), *status.BlocksBehind)
	})

	t.Run("l1ToL2 measures against the L1 head", func(t *testing.T) {
		f := newSignalFixture(t)

		status := f.adapter.Status(context.Background(), domain.DirectionL1ToL2)
		require.True(t, status.IsConnected)
		require.Equal(t, l2Contract, status.ContractAddress)
		require.Equal(t, uint64(19_200), status.LatestCheckpoint.BlockNumber)
		require.Equal(t, int64(800), *status.BlocksBehind)
	})

	t.Run("negative when the source reorgs below the anchor", func(t *testing.T) {
		f := newSignalFixture(t)
		f.l2.setHead(900)

		status := f.adapter.Status(context.Background(), domain.DirectionL2ToL1)
		require.True(t, status.IsConnected)
		require.Equal(t, int64(-100), *status.BlocksBehind)
	})

	t.Run("no checkpoint leaves blocks behind undefined", func(t *testing.T) {
		f := newSignalFixture(t)
		f.l1.logs = nil

		status := f.adapter.Status(context.Background(), domain.DirectionL2ToL1)
		require.True(t, status.IsConnected)
		require.Nil(t, status.LatestCheckpoint)
		require.Nil(t, status.BlocksBehind)
		require.Zero(t, status.TotalCheckpoints)
		require.Equal(t, uint64(5_000), *status.CurrentBlock)
	})
}

func TestSignalStatusFailure(t *testing.T) {
	tests := []struct {
		name      string
		direction domain.Direction
		breakIt   func(f *signalFixture)
		contract  common.Address
	}{
		{
			name:      "target scan fails",
			direction: domain.DirectionL2ToL1,
			breakIt:   func(f *signalFixture) { f.l1.logsErr = errRPCDown },
			contract:  l1Contract,
		},
		{
			name:      "source head fails",
			direction: domain.DirectionL2ToL1,
			breakIt:   func(f *signalFixture) { f.l2.fail(errRPCDown) },
			contract:  l1Contract,
		},
		{
			name:      "dial fails",
			direction: domain.DirectionL1ToL2,
			breakIt:   func(f *signalFixture) { f.dialer.err = errRPCDown },
			contract:  l2Contract,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSignalFixture(t)
			tt.breakIt(f)

			status := f.adapter.Status(context.Background(), tt.direction)
			require.False(t, status.IsConnected)
			require.Contains(t, status.Error, errRPCDown.Error())
			require.Equal(t, tt.contract, status.ContractAddress)
			require.Equal(t, tt.direction, status.Direction)
			require.Nil(t, status.LatestCheckpoint)
			require.Nil(t, status.BlocksBehind)
		})
	}
}

func TestSignalClientsDialledOnce(t *testing.T) {
	f := newSignalFixture(t)
	ctx := context.Background()

	for range 3 {
		f.adapter.Status(ctx, domain.DirectionL2ToL1)
		f.adapter.Status(ctx, domain.DirectionL1ToL2)
	}
	require.Equal(t, int32(2), f.dialer.dials.Load())
}

func blockNumbers(checkpoints []domain.Checkpoint) []uint64 {
	numbers := make([]uint64, len(checkpoints))
	for i, checkpoint := range checkpoints {
		numbers[i] = checkpoint.BlockNumber
	}
	return numbers
}
