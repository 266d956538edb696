// Package testwallet produces real wallet keys and signatures for tests.
package testwallet

import (
	"crypto/ecdsa"
	"encoding/base64"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// Wallet signs nonces the way a browser wallet would
type Wallet interface {
	Address() string
	Sign(t *testing.T, nonce string) string
}

// EthereumWallet signs with personal_sign semantics
type EthereumWallet struct {
	key *ecdsa.PrivateKey
}

// NewEthereum generates a fresh secp256k1 key
func NewEthereum(t *testing.T) *EthereumWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &EthereumWallet{key: key}
}

func (w *EthereumWallet) Address() string {
	return crypto.PubkeyToAddress(w.key.PublicKey).Hex()
}

func (w *EthereumWallet) Sign(t *testing.T, nonce string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(nonce)), w.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

// SolanaWallet signs raw message bytes with Ed25519
type SolanaWallet struct {
	key solana.PrivateKey
}

// NewSolana generates a key whose base58 address is 44 characters long
func NewSolana(t *testing.T) *SolanaWallet {
	t.Helper()
	for {
		key, err := solana.NewRandomPrivateKey()
		require.NoError(t, err)
		if len(key.PublicKey().String()) == 44 {
			return &SolanaWallet{key: key}
		}
	}
}

func (w *SolanaWallet) Address() string {
	return w.key.PublicKey().String()
}

func (w *SolanaWallet) Sign(t *testing.T, nonce string) string {
	t.Helper()
	sig, err := w.key.Sign([]byte(nonce))
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(sig[:])
}
