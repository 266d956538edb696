package core

import "time"

// Challenge represents an authentication challenge
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Wallet address claimed by the client
	Nonce     string    // Random nonce to be signed
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Session represents an authenticated wallet session
type Session struct {
	ID        string    // Unique token identifier (jti)
	Address   string    // Wallet address the session was minted for
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session expires
}

// VerifyResult is returned by a successful signature verification
type VerifyResult struct {
	SessionToken string
	Address      string
	Network      Network
	Account      *Account
	Linked       bool // true for the link flow, the session token is the caller's own
	Created      bool // true when a new account was created
}
