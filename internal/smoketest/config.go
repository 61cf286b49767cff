package smoketest

import "time"

// Config holds configuration for the issuance smoke test
type Config struct {
	BaseURL string        // Base URL of the yapmintd service
	Handle  string        // Handle to issue rewards for
	Replays int           // Number of duplicate submissions to replay
	Timeout time.Duration // HTTP request timeout
	LogFile string        // Log file for test output
	Verbose bool          // Enable verbose logging
}

// ScoreResponse mirrors GET /score.
type ScoreResponse struct {
	Handle        string  `json:"handle"`
	RawScore      uint64  `json:"raw_score"`
	Transport     string  `json:"transport"`
	RewardPreview uint64  `json:"reward_preview"`
	Rank          *uint64 `json:"rank"`
}

// ConnectResponse mirrors POST /connect.
type ConnectResponse struct {
	Accounts []string `json:"accounts"`
}

// AccountResponse mirrors GET /account.
type AccountResponse struct {
	AccountID        string `json:"account_id"`
	Balance          string `json:"balance"`
	LastIssuanceUnix int64  `json:"last_issuance_unix"`
}

// EligibilityResponse mirrors GET /eligibility.
type EligibilityResponse struct {
	Eligible         bool  `json:"eligible"`
	SecondsRemaining int64 `json:"seconds_remaining"`
}

// IssuanceResponse mirrors POST /issuances.
type IssuanceResponse struct {
	Status        string `json:"status"`
	SettlementRef string `json:"settlement_ref"`
	Amount        uint64 `json:"amount"`
	Balance       string `json:"balance"`
	Duplicate     bool   `json:"duplicate"`
}

// Stats holds smoke test statistics
type Stats struct {
	ScoreFetched     bool
	RawScore         uint64
	AmountSettled    uint64
	ReplaysSubmitted int
	ReplaysDeduped   int
	CooldownSeconds  int64
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
