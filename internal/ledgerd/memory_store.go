package ledgerd

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-process map. It is the default
// backend for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	refs     map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		refs:     make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// Account implements Store.
func (s *MemoryStore) Account(_ context.Context, accountID string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return Account{AccountID: accountID}, nil
	}
	return acct, nil
}

// Apply implements Store.
func (s *MemoryStore) Apply(_ context.Context, iss Issuance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.refs[iss.SettlementRef]; dup {
		return ErrDuplicateRef
	}
	s.refs[iss.SettlementRef] = struct{}{}

	acct := s.accounts[iss.AccountID]
	acct.AccountID = iss.AccountID
	acct.Balance += iss.Amount
	acct.LastIssuanceUnix = iss.IssuedAtUnix
	s.accounts[iss.AccountID] = acct
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
