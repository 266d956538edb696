package core

import "time"

// Account owns wallets and session tokens
type Account struct {
	ID           string
	DisplayName  string
	RegisteredAt time.Time
}

// Wallet binds a wallet address to exactly one account
type Wallet struct {
	Address   string
	Network   Network
	AccountID string
	CreatedAt time.Time
}
