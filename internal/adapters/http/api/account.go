// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/yapmint/yapmint/internal/domain/model"
)

// AccountDependencies defines the interface for wallet and account reads.
type AccountDependencies interface {
	Connect(ctx context.Context) ([]string, error)
	Account(ctx context.Context) (model.AccountState, error)
}

// AccountHandler handles wallet connection and account state requests.
type AccountHandler struct {
	deps AccountDependencies
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(deps AccountDependencies) *AccountHandler {
	return &AccountHandler{deps: deps}
}

// HandleConnect handles POST /connect requests.
func (h *AccountHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	accounts, err := h.deps.Connect(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, connectResponse{Accounts: accounts})
}

// HandleGetAccount handles GET /account requests.
func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	state, err := h.deps.Account(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{
		AccountID:        state.AccountID,
		Balance:          state.Balance,
		LastIssuanceUnix: state.LastIssuanceUnix,
	})
}
