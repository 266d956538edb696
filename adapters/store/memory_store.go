package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/questauth/core"
)

// MemoryStore is an in-memory implementation of AccountStore and SessionStore.
// Every operation holds the lock for its full duration, so each write is atomic.
type MemoryStore struct {
	accounts   map[string]*core.Account
	wallets    map[string]*core.Wallet // address -> wallet
	sessions   map[string]string       // token -> account ID
	ips        map[string]time.Time    // ip -> last visit
	accountIPs map[string]map[string]time.Time
	mu         sync.RWMutex
	now        func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]*core.Account),
		wallets:    make(map[string]*core.Wallet),
		sessions:   make(map[string]string),
		ips:        make(map[string]time.Time),
		accountIPs: make(map[string]map[string]time.Time),
		now:        time.Now,
	}
}

// CreateAccountWithWallet creates an account and its first wallet atomically
func (s *MemoryStore) CreateAccountWithWallet(ctx context.Context, displayName, address string, network core.Network) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.wallets[address]; exists {
		return nil, core.ErrAddressAlreadyLinked
	}
	for _, existing := range s.accounts {
		if existing.DisplayName == displayName {
			return nil, core.ErrDisplayNameTaken
		}
	}

	now := s.now()
	account := &core.Account{
		ID:           uuid.New().String(),
		DisplayName:  displayName,
		RegisteredAt: now,
	}
	s.accounts[account.ID] = account
	s.wallets[address] = &core.Wallet{
		Address:   address,
		Network:   network,
		AccountID: account.ID,
		CreatedAt: now,
	}

	copied := *account
	return &copied, nil
}

// GetAccount returns an account by ID
func (s *MemoryStore) GetAccount(ctx context.Context, accountID string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, core.ErrAccountNotFound
	}

	copied := *account
	return &copied, nil
}

// FindAccountByAddress returns the account owning address
func (s *MemoryStore) FindAccountByAddress(ctx context.Context, address string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallet, ok := s.wallets[address]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	account, ok := s.accounts[wallet.AccountID]
	if !ok {
		return nil, core.ErrAccountNotFound
	}

	copied := *account
	return &copied, nil
}

// LinkAddress attaches address to an existing account
func (s *MemoryStore) LinkAddress(ctx context.Context, accountID, address string, network core.Network) (*core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, core.ErrAccountNotFound
	}
	if _, exists := s.wallets[address]; exists {
		return nil, core.ErrAddressAlreadyLinked
	}

	wallet := &core.Wallet{
		Address:   address,
		Network:   network,
		AccountID: accountID,
		CreatedAt: s.now(),
	}
	s.wallets[address] = wallet

	copied := *wallet
	return &copied, nil
}

// DisplayNameExists reports whether any account already uses displayName
func (s *MemoryStore) DisplayNameExists(ctx context.Context, displayName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.DisplayName == displayName {
			return true, nil
		}
	}
	return false, nil
}

// RecordIP stores the visit time of ip globally and for the account
func (s *MemoryStore) RecordIP(ctx context.Context, accountID, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return core.ErrAccountNotFound
	}

	now := s.now()
	s.ips[ip] = now
	if s.accountIPs[accountID] == nil {
		s.accountIPs[accountID] = make(map[string]time.Time)
	}
	s.accountIPs[accountID][ip] = now
	return nil
}

// AccountIPs returns the IPs recorded for an account and their last visit
func (s *MemoryStore) AccountIPs(accountID string) map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ips := make(map[string]time.Time, len(s.accountIPs[accountID]))
	for ip, visitedAt := range s.accountIPs[accountID] {
		ips[ip] = visitedAt
	}
	return ips
}

// Wallets returns the addresses owned by an account
func (s *MemoryStore) Wallets(accountID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var addresses []string
	for address, wallet := range s.wallets {
		if wallet.AccountID == accountID {
			addresses = append(addresses, address)
		}
	}
	return addresses
}

// AccountCount returns the number of stored accounts
func (s *MemoryStore) AccountCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// Create persists a session token for an account
func (s *MemoryStore) Create(ctx context.Context, accountID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return core.ErrAccountNotFound
	}
	s.sessions[token] = accountID
	return nil
}

// FindValid returns the account owning a persisted session token
func (s *MemoryStore) FindValid(ctx context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountID, ok := s.sessions[token]
	if !ok {
		return "", core.ErrSessionNotFound
	}
	return accountID, nil
}

// Delete removes a session token. Deleting an unknown token is a no-op.
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

// ListAll returns every persisted session token
func (s *MemoryStore) ListAll(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]string, 0, len(s.sessions))
	for token := range s.sessions {
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// DeleteAccount removes an account with its wallets and sessions
func (s *MemoryStore) DeleteAccount(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return core.ErrAccountNotFound
	}
	delete(s.accounts, accountID)
	delete(s.accountIPs, accountID)
	for address, wallet := range s.wallets {
		if wallet.AccountID == accountID {
			delete(s.wallets, address)
		}
	}
	for token, owner := range s.sessions {
		if owner == accountID {
			delete(s.sessions, token)
		}
	}
	return nil
}
