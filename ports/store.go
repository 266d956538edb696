package ports

import (
	"context"

	"github.com/layer-3/questauth/core"
)

// AccountStore persists accounts, their wallets and the IPs they were seen from
type AccountStore interface {
	// CreateAccountWithWallet creates an account owning address in a single
	// transaction. Returns core.ErrAddressAlreadyLinked if the address is taken
	// and core.ErrDisplayNameTaken if another account already uses displayName.
	CreateAccountWithWallet(ctx context.Context, displayName, address string, network core.Network) (*core.Account, error)

	// GetAccount returns core.ErrAccountNotFound if the account does not exist
	GetAccount(ctx context.Context, accountID string) (*core.Account, error)

	// FindAccountByAddress returns core.ErrAccountNotFound if no account owns the address
	FindAccountByAddress(ctx context.Context, address string) (*core.Account, error)

	// LinkAddress attaches address to an existing account.
	// Returns core.ErrAddressAlreadyLinked if any account already owns it.
	LinkAddress(ctx context.Context, accountID, address string, network core.Network) (*core.Wallet, error)

	DisplayNameExists(ctx context.Context, displayName string) (bool, error)

	// RecordIP upserts the IP and its association with the account
	RecordIP(ctx context.Context, accountID, ip string) error
}

// SessionStore persists issued session tokens so they can be revoked and swept
type SessionStore interface {
	Create(ctx context.Context, accountID, token string) error

	// FindValid returns the owning account ID or core.ErrSessionNotFound
	FindValid(ctx context.Context, token string) (string, error)

	Delete(ctx context.Context, token string) error
	ListAll(ctx context.Context) ([]string, error)
}
