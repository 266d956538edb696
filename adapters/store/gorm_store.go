package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/questauth/core"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Connect opens a Postgres connection and migrates the schema
func Connect(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the auth tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&AccountModel{},
		&WalletModel{},
		&SessionTokenModel{},
		&IPAddressModel{},
		&AccountIPModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GormStore implements AccountStore and SessionStore on a relational database.
// Uniqueness of wallet addresses is enforced by the database index.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new gorm-backed store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateAccountWithWallet inserts the account and its first wallet in one transaction
func (s *GormStore) CreateAccountWithWallet(ctx context.Context, displayName, address string, network core.Network) (*core.Account, error) {
	account := AccountModel{
		ID:           uuid.New().String(),
		DisplayName:  displayName,
		RegisteredAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		return tx.Create(&WalletModel{
			Address:   address,
			Network:   network,
			AccountID: account.ID,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			taken, lookupErr := s.addressTaken(ctx, address)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to create account: %w", errors.Join(core.ErrStoreOperationFailed, err, lookupErr))
			}
			if taken {
				return nil, core.ErrAddressAlreadyLinked
			}
			return nil, core.ErrDisplayNameTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	return account.toDomain(), nil
}

// addressTaken distinguishes a wallet conflict from a display name conflict
func (s *GormStore) addressTaken(ctx context.Context, address string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&WalletModel{}).Where("address = ?", address).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetAccount returns an account by ID
func (s *GormStore) GetAccount(ctx context.Context, accountID string) (*core.Account, error) {
	var account AccountModel
	if err := s.db.WithContext(ctx).First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return account.toDomain(), nil
}

// FindAccountByAddress returns the account owning address
func (s *GormStore) FindAccountByAddress(ctx context.Context, address string) (*core.Account, error) {
	var account AccountModel
	err := s.db.WithContext(ctx).
		Joins("JOIN wallets ON wallets.account_id = accounts.id").
		Where("wallets.address = ?", address).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return account.toDomain(), nil
}

// LinkAddress attaches address to accountID
func (s *GormStore) LinkAddress(ctx context.Context, accountID, address string, network core.Network) (*core.Wallet, error) {
	wallet := WalletModel{
		Address:   address,
		Network:   network,
		AccountID: accountID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&AccountModel{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return core.ErrAccountNotFound
		}
		return tx.Create(&wallet).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrAccountNotFound):
			return nil, core.ErrAccountNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, core.ErrAddressAlreadyLinked
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return nil, core.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to link wallet: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}

	return wallet.toDomain(), nil
}

// DisplayNameExists reports whether displayName is taken
func (s *GormStore) DisplayNameExists(ctx context.Context, displayName string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&AccountModel{}).Where("display_name = ?", displayName).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check display name: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return count > 0, nil
}

// RecordIP upserts the IP and the account association, refreshing visited_at
func (s *GormStore) RecordIP(ctx context.Context, accountID, ip string) error {
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		address := IPAddressModel{IP: ip, VisitedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ip"}},
			DoUpdates: clause.AssignmentColumns([]string{"visited_at"}),
		}).Create(&address).Error; err != nil {
			return err
		}

		if err := tx.Where("ip = ?", ip).First(&address).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "ip_address_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"visited_at"}),
		}).Omit("Account", "IPAddress").Create(&AccountIPModel{
			AccountID:   accountID,
			IPAddressID: address.ID,
			VisitedAt:   now,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return core.ErrAccountNotFound
		}
		return fmt.Errorf("failed to record ip: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// DeleteAccount removes the account; wallets, sessions and IP links cascade
func (s *GormStore) DeleteAccount(ctx context.Context, accountID string) error {
	result := s.db.WithContext(ctx).Delete(&AccountModel{}, "id = ?", accountID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete account: %w", errors.Join(core.ErrStoreOperationFailed, result.Error))
	}
	if result.RowsAffected == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

// Create persists a session token
func (s *GormStore) Create(ctx context.Context, accountID, token string) error {
	err := s.db.WithContext(ctx).Create(&SessionTokenModel{Token: token, AccountID: accountID}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return core.ErrAccountNotFound
		}
		return fmt.Errorf("failed to store session: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// FindValid returns the account owning token
func (s *GormStore) FindValid(ctx context.Context, token string) (string, error) {
	var session SessionTokenModel
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", core.ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to look up session: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return session.AccountID, nil
}

// Delete removes a session token
func (s *GormStore) Delete(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&SessionTokenModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return nil
}

// ListAll returns every persisted session token
func (s *GormStore) ListAll(ctx context.Context) ([]string, error) {
	var tokens []string
	if err := s.db.WithContext(ctx).Model(&SessionTokenModel{}).Pluck("token", &tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", errors.Join(core.ErrStoreOperationFailed, err))
	}
	return tokens, nil
}
