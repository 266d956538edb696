package verifier

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/questauth/ports"
)

const signatureLength = 65

// EthereumVerifier verifies EIP-191 personal_sign signatures over the nonce
type EthereumVerifier struct{}

// NewEthereumVerifier creates a new Ethereum verifier
func NewEthereumVerifier() ports.Verifier {
	return EthereumVerifier{}
}

// Verify recovers the signer of nonce and compares it to address, ignoring case
func (EthereumVerifier) Verify(address, nonce, signature string) bool {
	decodedSig, err := hexutil.Decode(signature)
	if err != nil || len(decodedSig) != signatureLength {
		return false
	}

	// Wallets produce V as 27/28, SigToPub wants the recovery id 0/1
	if decodedSig[crypto.RecoveryIDOffset] >= 27 {
		decodedSig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(nonce)), decodedSig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return strings.EqualFold(recovered.Hex(), address)
}

// NormalizeAddress returns the EIP-55 checksummed form of address
func (EthereumVerifier) NormalizeAddress(address string) string {
	return common.HexToAddress(address).Hex()
}
