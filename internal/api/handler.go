// Package api exposes the checkpoint service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/compose-network/checkpoint-monitor/internal/logger"
	"github.com/compose-network/checkpoint-monitor/internal/proof"
	"github.com/compose-network/checkpoint-monitor/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	defaultDirection = domain.DirectionL2ToL1
	defaultNetwork   = domain.NetworkTestnet
	defaultLimit     = 20
)

// Service is the subset of service.Service the handlers call.
type Service interface {
	Chains(network domain.Network) []domain.ChainConfig
	Status(ctx context.Context, network domain.Network, chainID string, direction domain.Direction) (domain.ChainStatus, error)
	Checkpoints(ctx context.Context, network domain.Network, chainID string, direction domain.Direction, limit int) ([]domain.Checkpoint, error)
	CheckProof(ctx context.Context, network domain.Network, chainID string, direction domain.Direction, blockNumber uint64) (domain.ProofResult, error)
	GenerateProof(ctx context.Context, req service.GenerateProofRequest) (*service.GeneratedProof, error)
}

var _ Service = (*service.Service)(nil)

type Handler struct {
	svc      Service
	metrics  http.Handler
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler wires the routes. metrics may be nil, in which case /metrics is not served.
func NewHandler(svc Service, metrics http.Handler) *Handler {
	return &Handler{
		svc:      svc,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger.Named("http_api"),
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/networks/{network}/chains", h.ListChains)
		r.Get("/chains/{chain}/status", h.Status)
		r.Get("/chains/{chain}/checkpoints", h.Checkpoints)
		r.Get("/chains/{chain}/check-proof", h.CheckProof)
		r.Post("/generate-proof", h.GenerateProof)
	})

	return r
}

// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chainsResponse struct {
	Network domain.Network       `json:"network"`
	Chains  []domain.ChainConfig `json:"chains"`
}

// GET /api/networks/{network}/chains
func (h *Handler) ListChains(w http.ResponseWriter, r *http.Request) {
	network, err := domain.ParseNetwork(chi.URLParam(r, "network"))
	if err != nil {
		writeError(w, http.StatusBadRequest, invalidNetworkMessage)
		return
	}

	writeJSON(w, http.StatusOK, chainsResponse{Network: network, Chains: h.svc.Chains(network)})
}

type statusResponse struct {
	Chain string `json:"chain"`
	domain.ChainStatus
}

// GET /api/chains/{chain}/status?direction=&network=
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	chain := chi.URLParam(r, "chain")
	query, ok := h.parseChainQuery(w, r)
	if !ok {
		return
	}

	status, err := h.svc.Status(r.Context(), query.network(), chain, query.direction())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Chain: chain, ChainStatus: status})
}

type checkpointsResponse struct {
	Chain       string              `json:"chain"`
	Direction   domain.Direction    `json:"direction"`
	Checkpoints []domain.Checkpoint `json:"checkpoints"`
	Count       int                 `json:"count"`
}

// GET /api/chains/{chain}/checkpoints?direction=&limit=&network=
func (h *Handler) Checkpoints(w http.ResponseWriter, r *http.Request) {
	chain := chi.URLParam(r, "chain")
	query, ok := h.parseChainQuery(w, r)
	if !ok {
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || h.validate.Var(parsed, "min=1,max=100") != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit. Must be between 1 and 100")
			return
		}
		limit = parsed
	}

	checkpoints, err := h.svc.Checkpoints(r.Context(), query.network(), chain, query.direction(), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkpointsResponse{
		Chain:       chain,
		Direction:   query.direction(),
		Checkpoints: checkpoints,
		Count:       len(checkpoints),
	})
}

type checkProofResponse struct {
	Chain     string           `json:"chain"`
	Direction domain.Direction `json:"direction"`
	domain.ProofResult
}

// GET /api/chains/{chain}/check-proof?direction=&blockNumber=&network=
func (h *Handler) CheckProof(w http.ResponseWriter, r *http.Request) {
	chain := chi.URLParam(r, "chain")
	query, ok := h.parseChainQuery(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("blockNumber")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "blockNumber parameter is required")
		return
	}
	blockNumber, err := parseBlockNumber(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid blockNumber. Must be a positive integer")
		return
	}

	result, err := h.svc.CheckProof(r.Context(), query.network(), chain, query.direction(), blockNumber)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkProofResponse{Chain: chain, Direction: query.direction(), ProofResult: result})
}

type generateProofRequest struct {
	Chain       string       `json:"chain" validate:"required"`
	Network     string       `json:"network" validate:"omitempty,oneof=mainnet testnet"`
	BlockNumber *json.Number `json:"blockNumber" validate:"required"`
	Direction   string       `json:"direction" validate:"required,oneof=l1ToL2 l2ToL1"`
	StorageSlot string       `json:"storageSlot"`
}

type generateProofResponse struct {
	Success bool `json:"success"`
	*service.GeneratedProof
}

// POST /api/generate-proof
func (h *Handler) GenerateProof(w http.ResponseWriter, r *http.Request) {
	var body generateProofRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, map[string]string{
			"Chain":           "Missing chain parameter",
			"Network":         invalidNetworkMessage,
			"BlockNumber":     "Missing blockNumber",
			"Direction":       "Missing direction",
			"Direction.oneof": invalidDirectionMessage,
		}))
		return
	}

	req := service.GenerateProofRequest{
		Chain:     body.Chain,
		Network:   defaultNetwork,
		Direction: domain.Direction(body.Direction),
	}
	if body.Network != "" {
		req.Network = domain.Network(body.Network)
	}

	blockNumber, err := parseBlockNumber(body.BlockNumber.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid block number")
		return
	}
	req.BlockNumber = blockNumber

	if body.StorageSlot != "" {
		slot, err := strconv.ParseUint(body.StorageSlot, 0, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid storageSlot")
			return
		}
		req.StorageSlot = &slot
	}

	generated, err := h.svc.GenerateProof(r.Context(), req)
	if err != nil {
		h.writeProofError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, generateProofResponse{Success: true, GeneratedProof: generated})
}

func (h *Handler) writeProofError(w http.ResponseWriter, req service.GenerateProofRequest, err error) {
	switch {
	case errors.Is(err, service.ErrChainNotFound):
		h.writeServiceError(w, err)
	case errors.Is(err, service.ErrProofGenerationUnsupported):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Chain %s does not support proof generation", req.Chain))
	case errors.Is(err, service.ErrBroadcasterNotConfigured):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, proof.ErrBlockHashMismatch):
		writeErrorDetails(w, http.StatusInternalServerError, "Block hash verification failed", err)
	case errors.Is(err, proof.ErrStateRootMismatch):
		writeErrorDetails(w, http.StatusInternalServerError, "State root verification failed", err)
	default:
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to generate proof", err)
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrChainNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.With("err", err).Error("request failed")
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.With("method", r.Method).With("path", r.URL.Path).With("status", ww.Status()).
			With("duration", time.Since(start)).With("request_id", middleware.GetReqID(r.Context())).Debug("handled request")
	})
}
