package store

import (
	"time"

	"github.com/layer-3/questauth/core"
)

// AccountModel is the accounts table
type AccountModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	DisplayName  string    `gorm:"size:50;uniqueIndex;not null"`
	RegisteredAt time.Time `gorm:"not null"`

	Wallets  []WalletModel       `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	Sessions []SessionTokenModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

func (AccountModel) TableName() string { return "accounts" }

// WalletModel is the wallets table, address is globally unique
type WalletModel struct {
	ID        uint         `gorm:"primaryKey"`
	Address   string       `gorm:"size:100;uniqueIndex;not null"`
	Network   core.Network `gorm:"size:20;not null"`
	AccountID string       `gorm:"type:varchar(36);index;not null"`
	CreatedAt time.Time
}

func (WalletModel) TableName() string { return "wallets" }

// SessionTokenModel is the session_tokens table
type SessionTokenModel struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"size:1024;uniqueIndex;not null"`
	AccountID string `gorm:"type:varchar(36);index;not null"`
	CreatedAt time.Time
}

func (SessionTokenModel) TableName() string { return "session_tokens" }

// IPAddressModel is the ip_addresses table
type IPAddressModel struct {
	ID        uint      `gorm:"primaryKey"`
	IP        string    `gorm:"size:45;uniqueIndex;not null"`
	VisitedAt time.Time `gorm:"index"`
}

func (IPAddressModel) TableName() string { return "ip_addresses" }

// AccountIPModel associates accounts with the IPs they signed in from
type AccountIPModel struct {
	AccountID   string    `gorm:"type:varchar(36);primaryKey"`
	IPAddressID uint      `gorm:"primaryKey"`
	VisitedAt   time.Time `gorm:"not null"`

	Account   AccountModel   `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	IPAddress IPAddressModel `gorm:"foreignKey:IPAddressID;constraint:OnDelete:CASCADE"`
}

func (AccountIPModel) TableName() string { return "account_ips" }

func (m AccountModel) toDomain() *core.Account {
	return &core.Account{
		ID:           m.ID,
		DisplayName:  m.DisplayName,
		RegisteredAt: m.RegisteredAt,
	}
}

func (m WalletModel) toDomain() *core.Wallet {
	return &core.Wallet{
		Address:   m.Address,
		Network:   m.Network,
		AccountID: m.AccountID,
		CreatedAt: m.CreatedAt,
	}
}
