package ledgerd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yapmint/yapmint/internal/adapters/ledger"
	"github.com/yapmint/yapmint/internal/domain/reward"
	"github.com/yapmint/yapmint/pkg/logger"
)

// Server answers the ledger JSON-RPC methods over HTTP. It owns the cooldown
// decision: a submit inside the window is rejected no matter what the caller
// believes about eligibility.
type Server struct {
	store    Store
	calc     *reward.Calculator
	cooldown time.Duration
	clock    func() time.Time
	logger   logger.Logger

	// submitMu serializes the cooldown check against the apply. One lock is
	// enough at ledger scale; split per account if it ever shows up in a
	// profile.
	submitMu sync.Mutex
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithCooldown sets the minimum gap between issuances per account.
func WithCooldown(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithCalculator sets the reward calculator.
func WithCalculator(calc *reward.Calculator) ServerOption {
	return func(s *Server) {
		if calc != nil {
			s.calc = calc
		}
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(clock func() time.Time) ServerOption {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a ledger RPC server over store.
func NewServer(store Store, opts ...ServerOption) *Server {
	s := &Server{
		store:    store,
		cooldown: 24 * time.Hour,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.calc == nil {
		s.calc = reward.NewCalculator()
	}
	if s.logger == nil {
		s.logger = logger.Named("ledgerd")
	}
	return s
}

// ServeHTTP handles one JSON-RPC request per POST.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req ledger.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, 0, ledger.CodeInvalidParams, "malformed request")
		return
	}

	switch req.Method {
	case ledger.MethodBalance:
		s.handleBalance(w, r, req)
	case ledger.MethodLastIssuance:
		s.handleLastIssuance(w, r, req)
	case ledger.MethodSubmit:
		s.handleSubmit(w, r, req)
	default:
		writeRPCError(w, req.ID, ledger.CodeUnknownMethod, "unknown method "+req.Method)
	}
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, req ledger.Request) {
	var params ledger.BalanceParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Account == "" {
		writeRPCError(w, req.ID, ledger.CodeInvalidParams, "missing account")
		return
	}

	acct, err := s.store.Account(r.Context(), params.Account)
	if err != nil {
		s.logger.Error(r.Context(), "balance read failed", logger.Error(err))
		writeRPCError(w, req.ID, ledger.CodeInternal, "storage error")
		return
	}
	writeRPCResult(w, req.ID, ledger.BalanceResult{
		Balance: strconv.FormatUint(acct.Balance, 10),
	})
}

func (s *Server) handleLastIssuance(w http.ResponseWriter, r *http.Request, req ledger.Request) {
	var params ledger.LastIssuanceParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Account == "" {
		writeRPCError(w, req.ID, ledger.CodeInvalidParams, "missing account")
		return
	}

	acct, err := s.store.Account(r.Context(), params.Account)
	if err != nil {
		s.logger.Error(r.Context(), "last issuance read failed", logger.Error(err))
		writeRPCError(w, req.ID, ledger.CodeInternal, "storage error")
		return
	}
	writeRPCResult(w, req.ID, ledger.LastIssuanceResult{
		Timestamp: acct.LastIssuanceUnix,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, req ledger.Request) {
	var params ledger.SubmitParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Account == "" || params.Handle == "" {
		writeRPCError(w, req.ID, ledger.CodeInvalidParams, "missing account or handle")
		return
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	acct, err := s.store.Account(r.Context(), params.Account)
	if err != nil {
		s.logger.Error(r.Context(), "submit read failed", logger.Error(err))
		writeRPCError(w, req.ID, ledger.CodeInternal, "storage error")
		return
	}

	now := s.clock()
	if acct.LastIssuanceUnix != 0 {
		elapsed := now.Unix() - acct.LastIssuanceUnix
		if remaining := int64(s.cooldown/time.Second) - elapsed; remaining > 0 {
			writeRPCError(w, req.ID, ledger.CodeRejected,
				"cooldown active: "+strconv.FormatInt(remaining, 10)+"s remaining")
			return
		}
	}

	iss := Issuance{
		AccountID:     params.Account,
		Handle:        params.Handle,
		RawScore:      params.RawScore,
		Amount:        s.calc.Amount(params.RawScore),
		SettlementRef: uuid.NewString(),
		IssuedAtUnix:  now.Unix(),
	}
	if err := s.store.Apply(r.Context(), iss); err != nil {
		s.logger.Error(r.Context(), "apply failed", logger.Error(err))
		if errors.Is(err, ErrDuplicateRef) {
			writeRPCError(w, req.ID, ledger.CodeRejected, "duplicate settlement ref")
			return
		}
		writeRPCError(w, req.ID, ledger.CodeInternal, "apply failed")
		return
	}

	s.logger.Info(r.Context(), "issuance applied",
		logger.String("account", iss.AccountID),
		logger.String("handle", iss.Handle),
		logger.Uint64("amount", iss.Amount),
		logger.String("settlementRef", iss.SettlementRef),
	)
	writeRPCResult(w, req.ID, ledger.SubmitResult{
		SettlementRef: iss.SettlementRef,
		Amount:        iss.Amount,
		Timestamp:     iss.IssuedAtUnix,
	})
}

func writeRPCResult(w http.ResponseWriter, id uint64, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		writeRPCError(w, id, ledger.CodeInternal, "encode result")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(ledger.Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  raw,
	})
}

func writeRPCError(w http.ResponseWriter, id uint64, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(ledger.Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ledger.RPCError{Code: code, Message: msg},
	})
}
