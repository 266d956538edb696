package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/layer-3/questauth/adapters/store"
	"github.com/layer-3/questauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ethAddress   = "0xAbC0000000000000000000000000000000000042"
	otherAddress = "0x1110000000000000000000000000000000000042"
)

func TestMemoryStore_Accounts(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	account, err := s.CreateAccountWithWallet(ctx, "brave-otter", ethAddress, core.NetworkEthereum)
	require.NoError(t, err)
	require.NotEmpty(t, account.ID)

	t.Run("find by address", func(t *testing.T) {
		found, err := s.FindAccountByAddress(ctx, ethAddress)
		require.NoError(t, err)
		require.Equal(t, account.ID, found.ID)
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := s.FindAccountByAddress(ctx, otherAddress)
		require.ErrorIs(t, err, core.ErrAccountNotFound)
	})

	t.Run("duplicate address on create", func(t *testing.T) {
		_, err := s.CreateAccountWithWallet(ctx, "other", ethAddress, core.NetworkEthereum)
		require.ErrorIs(t, err, core.ErrAddressAlreadyLinked)
		require.Equal(t, 1, s.AccountCount())
	})

	t.Run("duplicate display name on create", func(t *testing.T) {
		_, err := s.CreateAccountWithWallet(ctx, "brave-otter", otherAddress, core.NetworkEthereum)
		require.ErrorIs(t, err, core.ErrDisplayNameTaken)
		require.Equal(t, 1, s.AccountCount())

		_, err = s.FindAccountByAddress(ctx, otherAddress)
		require.ErrorIs(t, err, core.ErrAccountNotFound)
	})

	t.Run("display name", func(t *testing.T) {
		exists, err := s.DisplayNameExists(ctx, "brave-otter")
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = s.DisplayNameExists(ctx, "nobody")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("link address", func(t *testing.T) {
		wallet, err := s.LinkAddress(ctx, account.ID, otherAddress, core.NetworkEthereum)
		require.NoError(t, err)
		require.Equal(t, account.ID, wallet.AccountID)
		require.ElementsMatch(t, []string{ethAddress, otherAddress}, s.Wallets(account.ID))

		_, err = s.LinkAddress(ctx, account.ID, otherAddress, core.NetworkEthereum)
		require.ErrorIs(t, err, core.ErrAddressAlreadyLinked)
	})

	t.Run("link to unknown account", func(t *testing.T) {
		_, err := s.LinkAddress(ctx, "missing", "0x2220000000000000000000000000000000000042", core.NetworkEthereum)
		require.ErrorIs(t, err, core.ErrAccountNotFound)
	})

	t.Run("record ip", func(t *testing.T) {
		require.NoError(t, s.RecordIP(ctx, account.ID, "10.0.0.1"))
		require.NoError(t, s.RecordIP(ctx, account.ID, "10.0.0.1"))
		require.NoError(t, s.RecordIP(ctx, account.ID, "10.0.0.2"))
		require.Len(t, s.AccountIPs(account.ID), 2)

		require.ErrorIs(t, s.RecordIP(ctx, "missing", "10.0.0.1"), core.ErrAccountNotFound)
	})
}

func TestMemoryStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	account, err := s.CreateAccountWithWallet(ctx, "brave-otter", ethAddress, core.NetworkEthereum)
	require.NoError(t, err)

	require.NoError(t, s.Create(ctx, account.ID, "token-1"))
	require.NoError(t, s.Create(ctx, account.ID, "token-2"))
	require.ErrorIs(t, s.Create(ctx, "missing", "token-3"), core.ErrAccountNotFound)

	owner, err := s.FindValid(ctx, "token-1")
	require.NoError(t, err)
	require.Equal(t, account.ID, owner)

	tokens, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"token-1", "token-2"}, tokens)

	require.NoError(t, s.Delete(ctx, "token-1"))
	_, err = s.FindValid(ctx, "token-1")
	require.ErrorIs(t, err, core.ErrSessionNotFound)
	require.NoError(t, s.Delete(ctx, "token-1"))
}

func TestMemoryStore_DeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	account, err := s.CreateAccountWithWallet(ctx, "brave-otter", ethAddress, core.NetworkEthereum)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, account.ID, "token-1"))

	require.NoError(t, s.DeleteAccount(ctx, account.ID))

	_, err = s.FindAccountByAddress(ctx, ethAddress)
	require.ErrorIs(t, err, core.ErrAccountNotFound)
	_, err = s.FindValid(ctx, "token-1")
	require.ErrorIs(t, err, core.ErrSessionNotFound)
	require.ErrorIs(t, s.DeleteAccount(ctx, account.ID), core.ErrAccountNotFound)
}

func TestMemoryStore_ConcurrentCreateSameAddress(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateAccountWithWallet(ctx, "racer", ethAddress, core.NetworkEthereum)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, core.ErrAddressAlreadyLinked)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, s.AccountCount())
}
