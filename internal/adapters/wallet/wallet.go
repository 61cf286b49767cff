// Package wallet abstracts the wallet/session provider as an injected
// capability. The core only needs an identity source; wallet cryptography
// stays outside this codebase.
package wallet

import (
	"context"
	"sync"
)

// ChangeKind classifies provider change notifications.
type ChangeKind string

const (
	AccountsChanged ChangeKind = "accounts_changed"
	NetworkChanged  ChangeKind = "network_changed"
)

// Change is a provider-side session change.
type Change struct {
	Kind     ChangeKind
	Accounts []string
}

// Provider is the session capability consumed by the orchestrator. Passing
// it explicitly (instead of reading an ambient global) keeps the session
// component substitutable with a test double.
type Provider interface {
	// ConnectedAccounts returns the currently connected identities, most
	// recent first. Empty means no session.
	ConnectedAccounts(ctx context.Context) ([]string, error)

	// RequestConnection asks the provider to establish a session and
	// returns the resulting identities.
	RequestConnection(ctx context.Context) ([]string, error)

	// Changes delivers account/network switch notifications.
	Changes() <-chan Change
}

// StaticProvider is a development Provider seeded from configuration. A
// configured account list connects on RequestConnection; SetAccounts
// simulates provider-side switches.
type StaticProvider struct {
	mu        sync.Mutex
	available []string
	connected []string
	changes   chan Change
}

// StaticOption configures StaticProvider.
type StaticOption func(*StaticProvider)

// WithAvailableAccounts seeds the identities RequestConnection will return.
func WithAvailableAccounts(accounts []string) StaticOption {
	return func(p *StaticProvider) {
		p.available = append([]string(nil), accounts...)
	}
}

// WithConnected starts the provider with an already-established session.
func WithConnected(accounts []string) StaticOption {
	return func(p *StaticProvider) {
		p.connected = append([]string(nil), accounts...)
	}
}

// NewStaticProvider creates a StaticProvider.
func NewStaticProvider(opts ...StaticOption) *StaticProvider {
	p := &StaticProvider{
		changes: make(chan Change, 8),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ConnectedAccounts implements Provider.
func (p *StaticProvider) ConnectedAccounts(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.connected...), nil
}

// RequestConnection implements Provider. Connecting an already-connected
// provider is a no-op returning the current session.
func (p *StaticProvider) RequestConnection(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.connected) == 0 && len(p.available) > 0 {
		p.connected = append([]string(nil), p.available...)
		p.notify(Change{Kind: AccountsChanged, Accounts: p.connected})
	}
	return append([]string(nil), p.connected...), nil
}

// Changes implements Provider.
func (p *StaticProvider) Changes() <-chan Change {
	return p.changes
}

// SetAccounts replaces the connected session and emits a change event.
// Passing nil disconnects.
func (p *StaticProvider) SetAccounts(accounts []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = append([]string(nil), accounts...)
	p.notify(Change{Kind: AccountsChanged, Accounts: p.connected})
}

// notify never blocks; a slow consumer just misses intermediate events.
func (p *StaticProvider) notify(c Change) {
	select {
	case p.changes <- c:
	default:
	}
}
