package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/api/responses"
	"github.com/tefamart/tefamart-backend/api/validators"
	"github.com/tefamart/tefamart-backend/internal/tefas"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/logger"
)

type tefaCreateRequest struct {
	CampusID       string  `json:"campus_id" validate:"required,uuid4"`
	Name           string  `json:"name" validate:"required,min=3"`
	Description    *string `json:"description,omitempty"`
	WhatsAppNumber *string `json:"whatsapp_number,omitempty"`
	OwnerEmail     string  `json:"owner_email" validate:"required,email"`
}

type tefaUpdateRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=3"`
	Description    *string `json:"description,omitempty"`
	LogoURL        *string `json:"logo_url,omitempty"`
	WhatsAppNumber *string `json:"whatsapp_number,omitempty"`
}

type tefaInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// TefaCreate registers a TEFA unit and its owner membership. Admin only.
func TefaCreate(svc tefas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tefas service unavailable"))
			return
		}

		var body tefaCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campusID, err := uuid.Parse(body.CampusID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campus id"))
			return
		}

		tefa, err := svc.Create(r.Context(), tefas.CreateInput{
			CampusID:       campusID,
			Name:           body.Name,
			Description:    body.Description,
			WhatsAppNumber: body.WhatsAppNumber,
			OwnerEmail:     body.OwnerEmail,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tefa)
	}
}

// TefaUpdate modifies the active TEFA's profile. Owner only, enforced by the
// service.
func TefaUpdate(svc tefas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tefas service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tefaID, err := activeTefaID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body tefaUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tefa, err := svc.Update(r.Context(), tefaID, actor, tefas.UpdateInput{
			Name:           body.Name,
			Description:    body.Description,
			LogoURL:        body.LogoURL,
			WhatsAppNumber: body.WhatsAppNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tefa)
	}
}

// TefaList returns active TEFA units, optionally filtered by campus. Public.
func TefaList(svc tefas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tefas service unavailable"))
			return
		}

		var campusID *uuid.UUID
		if raw := r.URL.Query().Get("campus_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campus id"))
				return
			}
			campusID = &id
		}

		rows, err := svc.List(r.Context(), campusID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// TefaDetail resolves a TEFA by slug. Public.
func TefaDetail(svc tefas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tefas service unavailable"))
			return
		}

		tefa, err := svc.Get(r.Context(), chi.URLParam(r, "tefaSlug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tefa)
	}
}

// TefaMembers lists the active TEFA's memberships.
func TefaMembers(svc tefas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tefas service unavailable"))
			return
		}

		tefaID, err := activeTefaID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMembers(r.Context(), tefaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// TefaInvite adds a user to the active TEFA.
func TefaInvite(svc tefas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tefas service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tefaID, err := activeTefaID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body tefaInviteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseMemberRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member role"))
			return
		}

		membership, err := svc.Invite(r.Context(), tefas.InviteInput{
			TefaID:      tefaID,
			Email:       body.Email,
			Role:        role,
			InvitedByID: actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, membership)
	}
}

// TefaRemoveMember removes a member from the active TEFA.
func TefaRemoveMember(svc tefas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tefas service unavailable"))
			return
		}

		tefaID, err := activeTefaID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		if err := svc.RemoveMember(r.Context(), tefaID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
