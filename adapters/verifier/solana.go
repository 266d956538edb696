package verifier

import (
	"encoding/base64"

	"github.com/gagliardetto/solana-go"
	"github.com/layer-3/questauth/ports"
)

// SolanaVerifier verifies Ed25519 signatures of the raw nonce bytes
type SolanaVerifier struct{}

// NewSolanaVerifier creates a new Solana verifier
func NewSolanaVerifier() ports.Verifier {
	return SolanaVerifier{}
}

// Verify decodes the base58 address as a public key and the base64 signature
func (SolanaVerifier) Verify(address, nonce, signature string) bool {
	pubKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return false
	}

	rawSig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	var sig solana.Signature
	if len(rawSig) != len(sig) {
		return false
	}
	copy(sig[:], rawSig)

	return sig.Verify(pubKey, []byte(nonce))
}
