package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/api/responses"
	"github.com/camilavaldes/splitabill-backend/api/validators"
	"github.com/camilavaldes/splitabill-backend/internal/settlements"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

type recordSettlementRequest struct {
	InvoiceID      *uuid.UUID `json:"invoice_id"`
	FromUserID     uuid.UUID  `json:"from_user_id" validate:"required"`
	ToUserID       uuid.UUID  `json:"to_user_id" validate:"required"`
	Amount         int        `json:"amount" validate:"required,gt=0"`
	Currency       string     `json:"currency"`
	SettlementDate *time.Time `json:"settlement_date"`
	PaymentMethod  *string    `json:"payment_method"`
}

// SettlementCreate records a payment event, optionally discharging an
// invoice through the wallet ledger.
func SettlementCreate(svc *settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload recordSettlementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		settlement, err := svc.Record(r.Context(), settlements.RecordInput{
			InvoiceID:      payload.InvoiceID,
			FromUserID:     payload.FromUserID,
			ToUserID:       payload.ToUserID,
			Amount:         payload.Amount,
			Currency:       enums.Currency(payload.Currency),
			SettlementDate: payload.SettlementDate,
			PaymentMethod:  payload.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, settlement)
	}
}

// SettlementGet returns one settlement.
func SettlementGet(svc *settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settlementID, err := validators.ParseUUIDParam(r, "settlementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		settlement, err := svc.GetSettlement(r.Context(), settlementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlement)
	}
}

// SettlementList lists settlements matching the query-string filters.
func SettlementList(svc *settlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := settlements.ListQuery{}
		var err error
		if query.FromUserID, err = validators.ParseUUIDQuery(r, "from_user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.ToUserID, err = validators.ParseUUIDQuery(r, "to_user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.InvoiceID, err = validators.ParseUUIDQuery(r, "invoice_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.Limit, err = validators.ParseQueryInt(r, "limit", 50, 1, 200); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListSettlements(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
