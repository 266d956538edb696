package core

import (
	"fmt"
	"strings"
)

// Network identifies the signature scheme a wallet address belongs to
type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkSolana   Network = "solana"
)

// Networks lists every supported network
var Networks = []Network{NetworkEthereum, NetworkSolana}

const (
	ethereumAddressLength = 42
	solanaAddressLength   = 44
)

// DetectNetwork derives the network from the shape of an address.
// Ethereum addresses are 0x followed by 40 hex characters, Solana
// addresses are 44 alphanumeric characters.
func DetectNetwork(address string) (Network, error) {
	switch {
	case isEthereumAddress(address):
		return NetworkEthereum, nil
	case isSolanaAddress(address):
		return NetworkSolana, nil
	default:
		return "", fmt.Errorf("%w: available networks: %s", ErrUnsupportedNetwork, availableNetworks())
	}
}

func (n Network) String() string {
	return string(n)
}

func isEthereumAddress(address string) bool {
	if len(address) != ethereumAddressLength || !strings.HasPrefix(address, "0x") {
		return false
	}
	for _, r := range address[2:] {
		if !isHex(r) {
			return false
		}
	}
	return true
}

func isSolanaAddress(address string) bool {
	if len(address) != solanaAddressLength {
		return false
	}
	for _, r := range address {
		if !isAlphanumeric(r) {
			return false
		}
	}
	return true
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isAlphanumeric(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func availableNetworks() string {
	names := make([]string, 0, len(Networks))
	for _, n := range Networks {
		names = append(names, n.String())
	}
	return strings.Join(names, ", ")
}
