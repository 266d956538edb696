package verifier

import (
	"github.com/layer-3/questauth/core"
	"github.com/layer-3/questauth/ports"
)

// Registry resolves the verifier for a network
type Registry map[core.Network]ports.Verifier

// NewRegistry returns a registry holding a verifier for every supported network
func NewRegistry() Registry {
	return Registry{
		core.NetworkEthereum: NewEthereumVerifier(),
		core.NetworkSolana:   NewSolanaVerifier(),
	}
}

// For returns the verifier registered for network
func (r Registry) For(network core.Network) (ports.Verifier, bool) {
	v, ok := r[network]
	return v, ok
}
