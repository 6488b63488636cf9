package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/go-playground/validator/v10"
)

const (
	invalidDirectionMessage = "Invalid direction. Use l1ToL2 or l2ToL1"
	invalidNetworkMessage   = "Invalid network. Use mainnet or testnet"
)

type chainQuery struct {
	Direction string `validate:"oneof=l1ToL2 l2ToL1"`
	Network   string `validate:"oneof=mainnet testnet"`
}

func (q chainQuery) direction() domain.Direction { return domain.Direction(q.Direction) }

func (q chainQuery) network() domain.Network { return domain.Network(q.Network) }

// parseChainQuery reads direction and network with their defaults, writing a 400 when either is invalid.
func (h *Handler) parseChainQuery(w http.ResponseWriter, r *http.Request) (chainQuery, bool) {
	values := r.URL.Query()
	query := chainQuery{
		Direction: values.Get("direction"),
		Network:   values.Get("network"),
	}
	if query.Direction == "" {
		query.Direction = string(defaultDirection)
	}
	if query.Network == "" {
		query.Network = string(defaultNetwork)
	}

	if err := h.validate.Struct(query); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err, map[string]string{
			"Direction": invalidDirectionMessage,
			"Network":   invalidNetworkMessage,
		}))
		return chainQuery{}, false
	}

	return query, true
}

// validationMessage maps the first failing field to its user-facing message.
// Keys are either "Field.tag" or "Field"; the tagged form wins.
func validationMessage(err error, messages map[string]string) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return "Invalid request"
	}

	fe := validationErrors[0]
	if message, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return message
	}
	if message, ok := messages[fe.Field()]; ok {
		return message
	}
	return fe.Field() + " is invalid"
}

func parseBlockNumber(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeErrorDetails(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, errorResponse{Error: message, Details: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
