package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/api/responses"
	"github.com/camilavaldes/splitabill-backend/api/validators"
	"github.com/camilavaldes/splitabill-backend/internal/groups"
	"github.com/camilavaldes/splitabill-backend/internal/invoices"
	"github.com/camilavaldes/splitabill-backend/internal/payments"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/types"
)

type createInvoiceRequest struct {
	SessionID      uuid.UUID   `json:"session_id" validate:"required"`
	GroupID        *uuid.UUID  `json:"group_id"`
	FromUserID     uuid.UUID   `json:"from_user_id" validate:"required"`
	ToUserID       uuid.UUID   `json:"to_user_id" validate:"required"`
	TotalAmount    int         `json:"total_amount" validate:"required,gt=0"`
	Description    *string     `json:"description"`
	Currency       string      `json:"currency"`
	DueDate        *time.Time  `json:"due_date"`
	FrequencyCycle string      `json:"frequency_cycle"`
	AssignmentIDs  []uuid.UUID `json:"assignment_ids"`
}

// InvoiceCreate records a payable obligation backed by assignments.
func InvoiceCreate(svc *invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createInvoiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.CreateInvoice(r.Context(), invoices.CreateInvoiceInput{
			SessionID:      payload.SessionID,
			GroupID:        payload.GroupID,
			FromUserID:     payload.FromUserID,
			ToUserID:       payload.ToUserID,
			TotalAmount:    payload.TotalAmount,
			Description:    payload.Description,
			Currency:       enums.Currency(payload.Currency),
			DueDate:        payload.DueDate,
			FrequencyCycle: enums.ReminderFrequency(payload.FrequencyCycle),
			AssignmentIDs:  payload.AssignmentIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// InvoiceGet returns one invoice with its assignment links.
func InvoiceGet(svc *invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := validators.ParseUUIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.GetInvoice(r.Context(), invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// InvoiceList lists invoices matching the query-string filters.
func InvoiceList(svc *invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := invoices.ListQuery{}
		var err error
		if query.SessionID, err = validators.ParseUUIDQuery(r, "session_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.GroupID, err = validators.ParseUUIDQuery(r, "group_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.FromUserID, err = validators.ParseUUIDQuery(r, "from_user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if query.ToUserID, err = validators.ParseUUIDQuery(r, "to_user_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, err := enums.ParseInvoiceStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			query.Status = &status
		}

		list, err := svc.ListInvoices(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type updateInvoiceRequest struct {
	GroupID        types.Optional[uuid.UUID] `json:"group_id"`
	Description    types.Optional[string]    `json:"description"`
	DueDate        types.Optional[time.Time] `json:"due_date"`
	FrequencyCycle types.Optional[string]    `json:"frequency_cycle"`
}

// InvoiceUpdate applies a partial update. Omitted fields are untouched; an
// explicit null clears the field.
func InvoiceUpdate(svc *invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := validators.ParseUUIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateInvoiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := invoices.UpdateInvoiceInput{
			GroupID:     payload.GroupID,
			Description: payload.Description,
			DueDate:     payload.DueDate,
		}
		if payload.FrequencyCycle.Set {
			if payload.FrequencyCycle.Value == nil {
				input.FrequencyCycle = types.NullOptional[enums.ReminderFrequency]()
			} else {
				frequency, err := enums.ParseReminderFrequency(*payload.FrequencyCycle.Value)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency_cycle"))
					return
				}
				input.FrequencyCycle = types.NewOptional(frequency)
			}
		}

		invoice, err := svc.UpdateInvoice(r.Context(), invoiceID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

type markPaidRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

// InvoiceMarkPaid discharges the invoice through the wallet ledger.
func InvoiceMarkPaid(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoiceID, err := validators.ParseUUIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := markPaidRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		invoice, err := svc.MarkPaid(r.Context(), invoiceID, payload.PaidAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// InvoiceAvailableGroups lists the groups shared by a payer/payee pair, the
// candidates an invoice may be filed under.
func InvoiceAvailableGroups(svc *groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fromID, err := validators.ParseUUIDQuery(r, "from_user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		toID, err := validators.ParseUUIDQuery(r, "to_user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if fromID == nil || toID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "from_user_id and to_user_id are required"))
			return
		}
		common, err := svc.CommonGroups(r.Context(), *fromID, *toID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, common)
	}
}

// UserInvoices lists every invoice a user appears on.
func UserInvoices(svc *invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// UserPendingInvoices lists what a user still owes.
func UserPendingInvoices(svc *invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListPendingForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
