// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and env on top.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Default cooldown and reward parameters. Both are configuration, not
// constants: operators may shorten the cooldown on test networks.
const (
	defaultCooldownSeconds = 86_400
	defaultBaseRate        = 10
)

// Config contains process configuration for yapmintd.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CooldownSeconds is the minimum gap between two issuances per account.
	CooldownSeconds int64 `koanf:"cooldown_seconds"`

	// BaseRate scales the reward curve: amount = floor(base_rate * log2(1+score)).
	BaseRate uint64 `koanf:"base_rate"`

	// ProviderEndpoint is the attention-score provider URL.
	ProviderEndpoint string `koanf:"provider_endpoint"`

	// ProviderProxies lists proxy base URLs tried in order before the
	// direct call. Each receives the target URL as an encoded suffix.
	ProviderProxies []string `koanf:"provider_proxies"`

	// ProviderTimeoutMS bounds each transport attempt.
	ProviderTimeoutMS int `koanf:"provider_timeout_ms"`

	// LedgerEndpoint is the JSON-RPC URL of the ledger service.
	LedgerEndpoint string `koanf:"ledger_endpoint"`

	// LedgerTimeoutMS bounds each ledger RPC.
	LedgerTimeoutMS int `koanf:"ledger_timeout_ms"`

	// WalletAccounts seeds the development wallet provider with connected
	// account identities. Empty means no account until /connect.
	WalletAccounts []string `koanf:"wallet_accounts"`

	// AuditQueueSize bounds the settlement audit queue.
	AuditQueueSize int `koanf:"audit_queue_size"`

	// LedgerdAddr configures the ledgerd HTTP listen address.
	LedgerdAddr string `koanf:"ledgerd_addr"`

	// LedgerStore selects the ledgerd backend: "memory" or "postgres".
	LedgerStore string `koanf:"ledger_store"`

	// LedgerPostgresDSN is the connection string for the postgres backend.
	LedgerPostgresDSN string `koanf:"ledger_postgres_dsn"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		CooldownSeconds:  defaultCooldownSeconds,
		BaseRate:         defaultBaseRate,
		ProviderEndpoint: "https://api.kaito.ai/api/v1/yaps",
		ProviderProxies: []string{
			"https://api.allorigins.win/raw?url=",
			"https://thingproxy.freeboard.io/fetch/",
		},
		ProviderTimeoutMS: 8_000,
		LedgerEndpoint:    "http://localhost:9091/rpc",
		LedgerTimeoutMS:   10_000,
		WalletAccounts:    nil,
		AuditQueueSize:    4_096,
		LedgerdAddr:       ":9091",
		LedgerStore:       "memory",
		LedgerPostgresDSN: "",
	}
}

// ProviderTimeout returns the per-transport timeout as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// LedgerTimeout returns the ledger RPC timeout as a duration.
func (c *Config) LedgerTimeout() time.Duration {
	return time.Duration(c.LedgerTimeoutMS) * time.Millisecond
}
