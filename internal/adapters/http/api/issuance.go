// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/yapmint/yapmint/internal/domain/model"
)

// IssuanceDependencies defines the interface for issuance processing.
type IssuanceDependencies interface {
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
	Issue(ctx context.Context, handle string) (model.Settlement, error)
}

// IssuanceHandler handles issuance requests.
type IssuanceHandler struct {
	deps IssuanceDependencies
}

// NewIssuanceHandler creates a new issuance handler.
func NewIssuanceHandler(deps IssuanceDependencies) *IssuanceHandler {
	return &IssuanceHandler{deps: deps}
}

// HandlePostIssuance handles POST /issuances requests.
func (h *IssuanceHandler) HandlePostIssuance(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_issuance"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req issuanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.RequestID) {
		writeJSON(w, http.StatusOK, issuanceResponse{Status: "duplicate", Duplicate: true})
		return
	}

	settlement, err := h.deps.Issue(r.Context(), req.Handle)
	if err != nil {
		// Rollback the "seen" status so the client can retry the same id
		h.deps.Unrecord(r.Context(), req.RequestID)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issuanceResponse{
		Status:        "settled",
		SettlementRef: settlement.SettlementRef,
		Amount:        settlement.Amount,
		Balance:       settlement.Balance,
		Duplicate:     false,
	})
}
