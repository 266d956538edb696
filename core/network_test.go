package core_test

import (
	"strings"
	"testing"

	"github.com/layer-3/questauth/core"
	"github.com/stretchr/testify/require"
)

func TestDetectNetwork(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    core.Network
		wantErr bool
	}{
		{name: "ethereum lowercase", address: "0x" + strings.Repeat("ab", 20), want: core.NetworkEthereum},
		{name: "ethereum checksummed", address: "0xAbC0000000000000000000000000000000000042", want: core.NetworkEthereum},
		{name: "solana", address: "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", want: core.NetworkSolana},
		{name: "ethereum too short", address: "0x" + strings.Repeat("a", 39), wantErr: true},
		{name: "ethereum too long", address: "0x" + strings.Repeat("a", 41), wantErr: true},
		{name: "ethereum non hex", address: "0x" + strings.Repeat("g", 40), wantErr: true},
		{name: "missing prefix", address: strings.Repeat("a", 42), wantErr: true},
		{name: "solana 43 chars", address: strings.Repeat("A", 43), wantErr: true},
		{name: "solana with symbol", address: strings.Repeat("A", 43) + "_", wantErr: true},
		{name: "empty", address: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.DetectNetwork(tt.address)
			if tt.wantErr {
				require.ErrorIs(t, err, core.ErrUnsupportedNetwork)
				require.Contains(t, err.Error(), "ethereum, solana")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateNonce(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		nonce, err := core.GenerateNonce()
		require.NoError(t, err)
		require.Len(t, nonce, core.NonceLength)
		for _, r := range nonce {
			require.True(t, (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), "unexpected rune %q", r)
		}
		seen[nonce] = struct{}{}
	}
	require.Len(t, seen, 100)
}

func TestIsClientError(t *testing.T) {
	require.True(t, core.IsClientError(core.ErrInvalidSignature))
	require.False(t, core.IsClientError(core.ErrStoreOperationFailed))
	require.False(t, core.IsClientError(core.ErrDisplayNameTaken))
}
