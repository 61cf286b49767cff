package smoketest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yapmint/yapmint/pkg/logger"
)

// Run executes the complete issuance smoke test against a running yapmintd
// (and, through it, a running ledgerd).
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting yapmint smoke test",
		logger.String("baseURL", config.BaseURL),
		logger.String("handle", config.Handle),
		logger.Int("replays", config.Replays),
		logger.String("timeout", config.Timeout.String()))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Connect the wallet
	account, err := connectWallet(ctx, client, config)
	if err != nil {
		return fmt.Errorf("wallet connection failed: %w", err)
	}

	// Step 3: Fetch the attention score
	score, err := fetchScore(ctx, client, config, stats)
	if err != nil {
		return fmt.Errorf("score fetch failed: %w", err)
	}

	// Step 4: Submit the issuance and replay it
	settled, err := submitIssuance(ctx, client, config, stats)
	if err != nil {
		return fmt.Errorf("issuance failed: %w", err)
	}

	// Step 5: Verify account state and cooldown
	if err := verifyOutcome(ctx, client, config, account, score, settled, stats); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	return nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	status, err := client.getJSON(ctx, config.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected health status %d", status)
	}
	log.Printf("service healthy at %s", config.BaseURL)
	return nil
}

func connectWallet(ctx context.Context, client *HTTPClient, config *Config) (string, error) {
	var resp ConnectResponse
	status, err := client.postJSON(ctx, config.BaseURL+"/connect", nil, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || len(resp.Accounts) == 0 {
		return "", fmt.Errorf("connect returned status %d with %d accounts", status, len(resp.Accounts))
	}
	log.Printf("connected account %s", resp.Accounts[0])
	return resp.Accounts[0], nil
}

func fetchScore(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) (*ScoreResponse, error) {
	var resp ScoreResponse
	status, err := client.getJSON(ctx, config.BaseURL+"/score?handle="+config.Handle, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("score returned status %d", status)
	}
	stats.ScoreFetched = true
	stats.RawScore = resp.RawScore
	log.Printf("score for %s: %d via %s (preview %d)", resp.Handle, resp.RawScore, resp.Transport, resp.RewardPreview)
	return &resp, nil
}

func submitIssuance(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) (*IssuanceResponse, error) {
	requestID := uuid.NewString()
	body := map[string]string{"request_id": requestID, "handle": config.Handle}

	var settled IssuanceResponse
	status, err := client.postJSON(ctx, config.BaseURL+"/issuances", body, &settled)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusCreated:
		stats.AmountSettled = settled.Amount
		log.Printf("issuance settled: ref=%s amount=%d", settled.SettlementRef, settled.Amount)
	case http.StatusTooManyRequests:
		log.Printf("issuance blocked by cooldown; replaying duplicates only")
	default:
		return nil, fmt.Errorf("issuance returned status %d", status)
	}

	// Replay the same request id; every replay must dedupe, not re-issue.
	for i := 0; i < config.Replays; i++ {
		var replay IssuanceResponse
		replayStatus, err := client.postJSON(ctx, config.BaseURL+"/issuances", body, &replay)
		if err != nil {
			return nil, err
		}
		stats.ReplaysSubmitted++
		if replayStatus == http.StatusOK && replay.Duplicate {
			stats.ReplaysDeduped++
		} else if status == http.StatusCreated {
			return nil, fmt.Errorf("replay %d was not deduplicated (status %d)", i+1, replayStatus)
		}
	}

	if status == http.StatusCreated {
		return &settled, nil
	}
	return nil, nil
}

func verifyOutcome(ctx context.Context, client *HTTPClient, config *Config, account string, score *ScoreResponse, settled *IssuanceResponse, stats *Stats) error {
	var acct AccountResponse
	status, err := client.getJSON(ctx, config.BaseURL+"/account", &acct)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("account returned status %d", status)
	}
	if acct.AccountID != account {
		return fmt.Errorf("account mismatch: connected %s, read %s", account, acct.AccountID)
	}
	if settled != nil && acct.LastIssuanceUnix == 0 {
		return fmt.Errorf("issuance settled but last_issuance_unix is zero")
	}
	if settled != nil && settled.Amount != score.RewardPreview {
		return fmt.Errorf("settled amount %d does not match preview %d", settled.Amount, score.RewardPreview)
	}

	var elig EligibilityResponse
	status, err = client.getJSON(ctx, config.BaseURL+"/eligibility", &elig)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("eligibility returned status %d", status)
	}
	if settled != nil && elig.Eligible {
		return fmt.Errorf("account still eligible immediately after settlement")
	}
	stats.CooldownSeconds = elig.SecondsRemaining

	log.Printf("account %s: balance=%s cooldown=%ds", acct.AccountID, acct.Balance, elig.SecondsRemaining)
	return nil
}

func displayFinalStats(stats *Stats) {
	log.Printf("==== smoke test passed ====")
	log.Printf("raw score:        %d", stats.RawScore)
	log.Printf("amount settled:   %d", stats.AmountSettled)
	log.Printf("replays deduped:  %d/%d", stats.ReplaysDeduped, stats.ReplaysSubmitted)
	log.Printf("cooldown left:    %ds", stats.CooldownSeconds)
	log.Printf("duration:         %s", stats.Duration)
}
