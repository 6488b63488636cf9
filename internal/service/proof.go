package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/proof"
)

type GenerateProofRequest struct {
	Chain       string
	Network     domain.Network
	Direction   domain.Direction
	BlockNumber uint64
	// StorageSlot overrides the source layer's configured checkpoints slot.
	StorageSlot *uint64
}

type ProofMetadata struct {
	Chain         string           `json:"chain" yaml:"chain"`
	Network       domain.Network   `json:"network" yaml:"network"`
	Direction     domain.Direction `json:"direction" yaml:"direction"`
	SourceChainID uint64           `json:"sourceChainId" yaml:"sourceChainId"`
	Slot          uint64           `json:"slot" yaml:"slot"`
	GeneratedAt   string           `json:"generatedAt" yaml:"generatedAt"`
}

type GeneratedProof struct {
	Proof    *proof.StorageProof `json:"proof" yaml:"proof"`
	Metadata ProofMetadata       `json:"metadata" yaml:"metadata"`
}

// GenerateProof proves the source layer broadcaster's checkpoint storage at
// BlockNumber. Generator failures are wrapped, so errors.Is still matches
// proof.ErrBlockHashMismatch and proof.ErrStateRootMismatch.
func (s *Service) GenerateProof(ctx context.Context, req GenerateProofRequest) (*GeneratedProof, error) {
	cfg, ok := s.registry.Lookup(req.Network, req.Chain)
	if !ok {
		return nil, &ChainNotFoundError{Chain: req.Chain, Network: req.Network, Supported: s.registry.ListChains(req.Network)}
	}
	if !cfg.SupportsProofGeneration {
		return nil, fmt.Errorf("%w: chain %s", ErrProofGenerationUnsupported, req.Chain)
	}
	if !req.Direction.Valid() {
		return nil, fmt.Errorf("invalid direction %q: use l1ToL2 or l2ToL1", req.Direction)
	}

	sourceLayer := req.Direction.Source()
	source := cfg.Layer(sourceLayer)
	if source.Broadcaster == nil {
		return nil, fmt.Errorf("%w for %s %s %s", ErrBroadcasterNotConfigured, req.Chain, req.Network, strings.ToUpper(string(sourceLayer)))
	}

	slot := proof.DefaultCheckpointsSlot
	switch {
	case req.StorageSlot != nil:
		slot = *req.StorageSlot
	case source.CheckpointsSlot != nil:
		slot = *source.CheckpointsSlot
	}

	log := s.logger.With("chain", req.Chain).With("network", req.Network).With("direction", req.Direction).
		With("block", req.BlockNumber).With("account", *source.Broadcaster).With("slot", slot)
	log.Info("generating storage proof")

	storageProof, err := s.generator.GenerateStorageProof(ctx, proof.Request{
		Endpoint:    source.RPC,
		Account:     *source.Broadcaster,
		Slot:        slot,
		BlockNumber: req.BlockNumber,
	})
	if err != nil {
		log.With("err", err).Warn("failed to generate storage proof")
		return nil, fmt.Errorf("failed to generate proof: %w", err)
	}

	return &GeneratedProof{
		Proof: storageProof,
		Metadata: ProofMetadata{
			Chain:         req.Chain,
			Network:       req.Network,
			Direction:     req.Direction,
			SourceChainID: source.ChainID,
			Slot:          slot,
			GeneratedAt:   s.now().UTC().Format(time.RFC3339),
		},
	}, nil
}
