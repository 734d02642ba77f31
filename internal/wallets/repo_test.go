package wallets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	"github.com/camilavaldes/splitabill-backend/pkg/pagination"
)

func setupWalletsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	wallets := `
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  balance INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'CLP',
  created_at DATETIME,
  updated_at DATETIME
);`
	transactions := `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  settlement_id TEXT,
  invoice_id TEXT,
  type TEXT NOT NULL,
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'CLP',
  description TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(wallets).Error)
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

func createWallet(t *testing.T, db *gorm.DB, balance int) *models.Wallet {
	t.Helper()

	wallet := &models.Wallet{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Balance:  balance,
		Currency: enums.CurrencyCLP,
	}
	require.NoError(t, db.Create(wallet).Error)
	return wallet
}

func createTxn(t *testing.T, db *gorm.DB, walletID uuid.UUID, amount int, created time.Time) *models.WalletTransaction {
	t.Helper()

	txn := &models.WalletTransaction{
		ID:        uuid.New(),
		WalletID:  walletID,
		Type:      enums.WalletTransactionTypeDeposit,
		Amount:    amount,
		Currency:  enums.CurrencyCLP,
		CreatedAt: created,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func TestRepoFindWalletByUser(t *testing.T) {
	db := setupWalletsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	wallet := createWallet(t, db, 5000)

	found, err := repo.FindWalletByUser(ctx, wallet.UserID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, wallet.ID, found.ID)
	assert.Equal(t, 5000, found.Balance)

	missing, err := repo.FindWalletByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepoUpdateBalance(t *testing.T) {
	db := setupWalletsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	wallet := createWallet(t, db, 1000)
	require.NoError(t, repo.UpdateBalance(ctx, wallet.ID, 4500))

	found, err := repo.FindWalletByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 4500, found.Balance)
}

func TestRepoListTransactionsKeyset(t *testing.T) {
	db := setupWalletsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	wallet := createWallet(t, db, 0)
	other := createWallet(t, db, 0)
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	var all []*models.WalletTransaction
	for i := 0; i < 5; i++ {
		all = append(all, createTxn(t, db, wallet.ID, 1000*(i+1), base.Add(time.Duration(i)*time.Minute)))
	}
	createTxn(t, db, other.ID, 9999, base)

	page, err := repo.ListTransactions(ctx, wallet.ID, 3, nil)
	require.NoError(t, err)
	require.Len(t, page, 3)
	// Newest first.
	assert.Equal(t, all[4].ID, page[0].ID)
	assert.Equal(t, all[2].ID, page[2].ID)

	cursor := &pagination.Cursor{CreatedAt: page[2].CreatedAt, ID: page[2].ID}
	rest, err := repo.ListTransactions(ctx, wallet.ID, 3, cursor)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, all[1].ID, rest[0].ID)
	assert.Equal(t, all[0].ID, rest[1].ID)
}
