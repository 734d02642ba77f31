package wallets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the wallets service.
type ServiceParams struct {
	Repo            Repository
	Tx              txRunner
	Logger          *logger.Logger
	DefaultCurrency enums.Currency
}

// Service owns wallets and their append-only transaction ledger. Every
// balance change pairs with a ledger entry inside one transaction scope.
type Service struct {
	repo     Repository
	tx       txRunner
	logg     *logger.Logger
	currency enums.Currency
}

// NewService builds a wallets service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	currency := params.DefaultCurrency
	if currency == "" {
		currency = enums.CurrencyCLP
	}
	return &Service{repo: params.Repo, tx: params.Tx, logg: params.Logger, currency: currency}, nil
}

// GetOrCreate returns the user's wallet, creating an empty one on first use.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return getOrCreate(ctx, s.repo, userID, s.currency)
}

// getOrCreate is shared with the payment workflow, which calls it with a
// transaction-scoped repository.
func getOrCreate(ctx context.Context, repo Repository, userID uuid.UUID, currency enums.Currency) (*models.Wallet, error) {
	wallet, err := repo.FindWalletByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find wallet")
	}
	if wallet != nil {
		return wallet, nil
	}
	wallet = &models.Wallet{UserID: userID, Balance: 0, Currency: currency}
	if err := repo.CreateWallet(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return wallet, nil
}

// GetOrCreateTx is GetOrCreate against a transaction-scoped repository.
func (s *Service) GetOrCreateTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	return getOrCreate(ctx, s.repo.WithTx(tx), userID, s.currency)
}

// GetWallet loads a wallet by id.
func (s *Service) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.FindWalletByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find wallet")
	}
	if wallet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	return wallet, nil
}

// GetWalletForUser loads a user's wallet, creating one lazily.
func (s *Service) GetWalletForUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return s.GetOrCreate(ctx, userID)
}

// ListTransactions pages a wallet's ledger newest first with a cursor. The
// returned cursor is empty on the last page.
func (s *Service) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	if _, err := s.GetWallet(ctx, walletID); err != nil {
		return nil, "", err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	txns, err := s.repo.ListTransactions(ctx, walletID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	var next string
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return txns, next, nil
}

// ApplyTransfer moves amount between two users inside the supplied database
// transaction: one payment_sent entry with a negative amount on the payer's
// wallet and one payment_received entry with the positive amount on the
// payee's, both balances updated. Wallets are created lazily. The caller owns
// the transaction; a returned error must roll the whole scope back so the
// pair is never split.
func (s *Service) ApplyTransfer(ctx context.Context, tx *gorm.DB, fromUserID, toUserID uuid.UUID, amount int, invoiceID *uuid.UUID) error {
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	fromWallet, err := getOrCreate(ctx, repo, fromUserID, s.currency)
	if err != nil {
		return err
	}
	toWallet, err := getOrCreate(ctx, repo, toUserID, s.currency)
	if err != nil {
		return err
	}
	selfTransfer := fromWallet.ID == toWallet.ID

	debit := &models.WalletTransaction{
		WalletID:  fromWallet.ID,
		InvoiceID: invoiceID,
		Type:      enums.WalletTransactionTypePaymentSent,
		Amount:    -amount,
		Currency:  fromWallet.Currency,
	}
	credit := &models.WalletTransaction{
		WalletID:  toWallet.ID,
		InvoiceID: invoiceID,
		Type:      enums.WalletTransactionTypePaymentReceived,
		Amount:    amount,
		Currency:  toWallet.Currency,
	}
	if err := repo.CreateTransaction(ctx, debit); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create debit transaction")
	}
	if err := repo.CreateTransaction(ctx, credit); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create credit transaction")
	}
	if selfTransfer {
		// Both entries land on one wallet; the balance nets out.
		return nil
	}
	if err := repo.UpdateBalance(ctx, fromWallet.ID, fromWallet.Balance-amount); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payer balance")
	}
	if err := repo.UpdateBalance(ctx, toWallet.ID, toWallet.Balance+amount); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payee balance")
	}
	return nil
}

// TopUp credits the user's wallet with an opaque deposit. Payment gateway
// settlement has already happened upstream; here the money just appears.
func (s *Service) TopUp(ctx context.Context, userID uuid.UUID, amount int, description *string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var wallet *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		wallet, err = getOrCreate(ctx, repo, userID, s.currency)
		if err != nil {
			return err
		}
		txn := &models.WalletTransaction{
			WalletID:    wallet.ID,
			Type:        enums.WalletTransactionTypeDeposit,
			Amount:      amount,
			Currency:    wallet.Currency,
			Description: description,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deposit transaction")
		}
		wallet.Balance += amount
		if err := repo.UpdateBalance(ctx, wallet.ID, wallet.Balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": userID,
		"amount":  amount,
	}), "wallet topped up")
	return wallet, nil
}
