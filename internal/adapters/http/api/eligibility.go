// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/yapmint/yapmint/internal/domain/eligibility"
)

// EligibilityDependencies defines the interface for eligibility reads.
type EligibilityDependencies interface {
	Eligibility(ctx context.Context) (eligibility.Status, error)
}

// EligibilityHandler handles eligibility snapshot requests.
type EligibilityHandler struct {
	deps EligibilityDependencies
}

// NewEligibilityHandler creates a new eligibility handler.
func NewEligibilityHandler(deps EligibilityDependencies) *EligibilityHandler {
	return &EligibilityHandler{deps: deps}
}

// HandleGetEligibility handles GET /eligibility requests.
func (h *EligibilityHandler) HandleGetEligibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	status, err := h.deps.Eligibility(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
