package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/api/responses"
	"github.com/camilavaldes/splitabill-backend/api/validators"
	"github.com/camilavaldes/splitabill-backend/internal/groups"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

type createGroupRequest struct {
	Name        string    `json:"name" validate:"required"`
	Description *string   `json:"description"`
	Currency    string    `json:"currency"`
	CreatedBy   uuid.UUID `json:"created_by" validate:"required"`
}

// GroupCreate creates a group and enrolls the creator.
func GroupCreate(svc *groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createGroupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		currency := enums.Currency(payload.Currency)
		if payload.Currency != "" && !currency.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency"))
			return
		}
		group, err := svc.CreateGroup(r.Context(), groups.CreateGroupInput{
			Name:        payload.Name,
			Description: payload.Description,
			Currency:    currency,
			CreatedBy:   payload.CreatedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, group)
	}
}

// GroupGet returns one group.
func GroupGet(svc *groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := validators.ParseUUIDParam(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		group, err := svc.GetGroup(r.Context(), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, group)
	}
}

type groupMemberRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// GroupAddMember enrolls a user into the group.
func GroupAddMember(svc *groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := validators.ParseUUIDParam(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload groupMemberRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		member, err := svc.AddMember(r.Context(), groupID, payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, member)
	}
}

// GroupRemoveMember removes a user from the group.
func GroupRemoveMember(svc *groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := validators.ParseUUIDParam(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveMember(r.Context(), groupID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// GroupMembers lists the group's members.
func GroupMembers(svc *groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := validators.ParseUUIDParam(r, "groupID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		members, err := svc.ListMembers(r.Context(), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}

// UserGroups lists the groups a user belongs to.
func UserGroups(svc *groups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListGroupsForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
