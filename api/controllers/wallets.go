package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/api/responses"
	"github.com/camilavaldes/splitabill-backend/api/validators"
	"github.com/camilavaldes/splitabill-backend/internal/wallets"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/pagination"
)

// WalletGetForUser returns the user's wallet, creating an empty one on first
// access.
func WalletGetForUser(svc *wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.GetOrCreate(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wallet)
	}
}

// WalletGet returns one wallet by id.
func WalletGet(svc *wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID, err := validators.ParseUUIDParam(r, "walletID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.GetWallet(r.Context(), walletID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wallet)
	}
}

// WalletTransactions lists a wallet's ledger, newest first.
func WalletTransactions(svc *wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		walletID, err := validators.ParseUUIDParam(r, "walletID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeWalletTransactions(svc, logg, w, r, walletID)
	}
}

// WalletTransactionsForUser lists the ledger of the user's wallet.
func WalletTransactionsForUser(svc *wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.GetOrCreate(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeWalletTransactions(svc, logg, w, r, wallet.ID)
	}
}

func writeWalletTransactions(svc *wallets.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request, walletID uuid.UUID) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	params := pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}
	transactions, next, err := svc.ListTransactions(r.Context(), walletID, params)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]any{
		"transactions": transactions,
		"next_cursor":  next,
	})
}

type topUpRequest struct {
	Amount      int     `json:"amount" validate:"required,gt=0"`
	Description *string `json:"description"`
}

// WalletTopUp credits the user's wallet with an opaque deposit.
func WalletTopUp(svc *wallets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload topUpRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wallet, err := svc.TopUp(r.Context(), userID, payload.Amount, payload.Description)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wallet)
	}
}
