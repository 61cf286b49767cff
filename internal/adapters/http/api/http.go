// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/yapmint/yapmint/internal/adapters/ledger"
	"github.com/yapmint/yapmint/internal/adapters/provider"
	service "github.com/yapmint/yapmint/internal/app"
	"github.com/yapmint/yapmint/internal/domain/eligibility"
	"github.com/yapmint/yapmint/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Idempotency bookkeeping for POST /issuances request ids.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)

	// Wallet and account reads.
	Connect(ctx context.Context) ([]string, error)
	Account(ctx context.Context) (model.AccountState, error)

	// Score and eligibility reads.
	FetchScore(ctx context.Context, handle string) (model.ScoreRecord, uint64, error)
	Eligibility(ctx context.Context) (eligibility.Status, error)
	StartCountdown(ctx context.Context) (*eligibility.Countdown, error)

	// Issue runs one issuance attempt end to end.
	Issue(ctx context.Context, handle string) (model.Settlement, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoreHandler       *ScoreHandler
	accountHandler     *AccountHandler
	eligibilityHandler *EligibilityHandler
	streamHandler      *StreamHandler
	issuanceHandler    *IssuanceHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		scoreHandler:       NewScoreHandler(deps),
		accountHandler:     NewAccountHandler(deps),
		eligibilityHandler: NewEligibilityHandler(deps),
		streamHandler:      NewStreamHandler(deps),
		issuanceHandler:    NewIssuanceHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/score", MetricsMiddleware(s.scoreHandler.HandleGetScore, "score"))
	mux.HandleFunc("/connect", MetricsMiddleware(s.accountHandler.HandleConnect, "connect"))
	mux.HandleFunc("/account", MetricsMiddleware(s.accountHandler.HandleGetAccount, "account"))
	mux.HandleFunc("/eligibility/stream", s.streamHandler.HandleStream)
	mux.HandleFunc("/eligibility", MetricsMiddleware(s.eligibilityHandler.HandleGetEligibility, "eligibility"))
	mux.HandleFunc("/issuances", MetricsMiddleware(s.issuanceHandler.HandlePostIssuance, "issuances"))
}

// scoreResponse mirrors the OpenAPI schema for GET /score.
type scoreResponse struct {
	Handle        string   `json:"handle"`
	RawScore      uint64   `json:"raw_score"`
	Rank          *uint64  `json:"rank,omitempty"`
	Normalized    *float64 `json:"normalized,omitempty"`
	Transport     string   `json:"transport"`
	FetchedAt     string   `json:"fetched_at"`
	RewardPreview uint64   `json:"reward_preview"`
}

type connectResponse struct {
	Accounts []string `json:"accounts"`
}

type accountResponse struct {
	AccountID        string `json:"account_id"`
	Balance          string `json:"balance"`
	LastIssuanceUnix int64  `json:"last_issuance_unix"`
}

// issuanceRequest mirrors the OpenAPI schema for POST /issuances.
type issuanceRequest struct {
	RequestID string `json:"request_id"`
	Handle    string `json:"handle"`
}

func (i issuanceRequest) validate() error {
	switch {
	case strings.TrimSpace(i.RequestID) == "":
		return errors.New("missing request_id")
	case strings.TrimSpace(i.Handle) == "":
		return errors.New("missing handle")
	}
	return nil
}

type issuanceResponse struct {
	Status        string `json:"status"`
	SettlementRef string `json:"settlement_ref,omitempty"`
	Amount        uint64 `json:"amount,omitempty"`
	Balance       string `json:"balance,omitempty"`
	Duplicate     bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates upstream errors to a status and code. The
// default for anything unrecognized is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, provider.ErrInvalidHandle):
		writeError(w, http.StatusBadRequest, "invalid_handle", err)
	case errors.Is(err, provider.ErrDataUnavailable):
		writeError(w, http.StatusServiceUnavailable, "score_unavailable", err)
	case errors.Is(err, service.ErrNotConnected):
		writeError(w, http.StatusConflict, "not_connected", err)
	case errors.Is(err, service.ErrIssuanceInFlight):
		writeError(w, http.StatusConflict, "issuance_in_flight", err)
	case errors.Is(err, service.ErrCooldownActive):
		writeError(w, http.StatusTooManyRequests, "cooldown_active", err)
	case errors.Is(err, ledger.ErrRejected):
		writeError(w, http.StatusUnprocessableEntity, "ledger_rejected", err)
	case errors.Is(err, ledger.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "ledger_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
