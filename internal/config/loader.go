package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if YAPMINT_CONFIG is set
//  3. env (prefix YAPMINT_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("YAPMINT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: YAPMINT_ADDR, YAPMINT_COOLDOWN_SECONDS, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("YAPMINT_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "yapmint_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CooldownSeconds <= 0:
		return fmt.Errorf("%w: cooldown_seconds must be positive", ErrInvalidConfig)
	case c.BaseRate == 0:
		return fmt.Errorf("%w: base_rate must be positive", ErrInvalidConfig)
	case c.ProviderEndpoint == "":
		return fmt.Errorf("%w: provider_endpoint must not be empty", ErrInvalidConfig)
	case c.ProviderTimeoutMS <= 0:
		return fmt.Errorf("%w: provider_timeout_ms must be positive", ErrInvalidConfig)
	case c.LedgerEndpoint == "":
		return fmt.Errorf("%w: ledger_endpoint must not be empty", ErrInvalidConfig)
	case c.LedgerTimeoutMS <= 0:
		return fmt.Errorf("%w: ledger_timeout_ms must be positive", ErrInvalidConfig)
	case c.AuditQueueSize <= 0:
		return fmt.Errorf("%w: audit_queue_size must be positive", ErrInvalidConfig)
	case c.LedgerdAddr == "":
		return fmt.Errorf("%w: ledgerd_addr must not be empty", ErrInvalidConfig)
	case c.LedgerStore != "memory" && c.LedgerStore != "postgres":
		return fmt.Errorf("%w: ledger_store must be memory or postgres", ErrInvalidConfig)
	case c.LedgerStore == "postgres" && c.LedgerPostgresDSN == "":
		return fmt.Errorf("%w: ledger_postgres_dsn required for postgres store", ErrInvalidConfig)
	}
	return nil
}
