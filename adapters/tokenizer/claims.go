package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ChallengeClaims combines standard claims with the challenge nonce
type ChallengeClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// SessionClaims are the standard claims carried by session tokens
type SessionClaims struct {
	jwt.RegisteredClaims
}
