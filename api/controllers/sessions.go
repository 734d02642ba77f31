package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/api/responses"
	"github.com/camilavaldes/splitabill-backend/api/validators"
	"github.com/camilavaldes/splitabill-backend/internal/payments"
	"github.com/camilavaldes/splitabill-backend/internal/sessions"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

type createSessionRequest struct {
	RestaurantRUT string             `json:"restaurant_rut" validate:"required"`
	TableID       uuid.UUID          `json:"table_id" validate:"required"`
	Currency      string             `json:"currency"`
	Items         []orderItemPayload `json:"items" validate:"dive"`
}

type orderItemPayload struct {
	ItemName  string `json:"item_name" validate:"required"`
	UnitPrice int    `json:"unit_price" validate:"required,gt=0"`
}

// SessionCreate opens a session with its initial order items.
func SessionCreate(svc *sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		currency := enums.Currency(payload.Currency)
		if payload.Currency != "" && !currency.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency"))
			return
		}

		items := make([]sessions.OrderItemInput, len(payload.Items))
		for i, item := range payload.Items {
			items[i] = sessions.OrderItemInput{ItemName: item.ItemName, UnitPrice: item.UnitPrice}
		}

		session, err := svc.CreateSession(r.Context(), sessions.CreateSessionInput{
			RestaurantRUT: payload.RestaurantRUT,
			TableID:       payload.TableID,
			Currency:      currency,
			Items:         items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// SessionGet returns one session with participants and order items.
func SessionGet(svc *sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.GetSession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// SessionItems lists the session's order items.
func SessionItems(svc *sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListOrderItems(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// SessionParticipants lists the session's participants in join order.
func SessionParticipants(svc *sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		participants, err := svc.ListParticipants(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, participants)
	}
}

// SessionClose ends the session without computing a bill total.
func SessionClose(svc *sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Close(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

type settleCreditorsRequest struct {
	RecipientUserID uuid.UUID `json:"recipient_user_id" validate:"required"`
	GroupID         uuid.UUID `json:"group_id" validate:"required"`
}

// SessionSettleCreditors runs the per-creditor settlement model.
func SessionSettleCreditors(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload settleCreditorsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SettlePerCreditor(r.Context(), sessionID, payload.RecipientUserID, payload.GroupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type settleWalletRequest struct {
	UserID  uuid.UUID `json:"user_id" validate:"required"`
	GroupID uuid.UUID `json:"group_id" validate:"required"`
}

// SessionSettleWallet runs the wallet-funded settlement model.
func SessionSettleWallet(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := validators.ParseUUIDParam(r, "sessionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload settleWalletRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.PayFromWallet(r.Context(), sessionID, payload.UserID, payload.GroupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
