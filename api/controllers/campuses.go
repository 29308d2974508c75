package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/api/responses"
	"github.com/tefamart/tefamart-backend/api/validators"
	"github.com/tefamart/tefamart-backend/internal/campuses"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/logger"
)

type campusCreateRequest struct {
	Name    string  `json:"name" validate:"required,min=3"`
	City    string  `json:"city" validate:"required"`
	Address *string `json:"address,omitempty"`
}

type campusUpdateRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=3"`
	City    *string `json:"city,omitempty"`
	Address *string `json:"address,omitempty"`
}

// CampusCreate registers a campus. Admin only.
func CampusCreate(svc campuses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campuses service unavailable"))
			return
		}

		var body campusCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campus, err := svc.Create(r.Context(), campuses.CreateInput{
			Name:    body.Name,
			City:    body.City,
			Address: body.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, campus)
	}
}

// CampusUpdate modifies a campus profile. Admin only.
func CampusUpdate(svc campuses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campuses service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "campusId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campus id"))
			return
		}

		var body campusUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campus, err := svc.Update(r.Context(), id, campuses.UpdateInput{
			Name:    body.Name,
			City:    body.City,
			Address: body.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, campus)
	}
}

// CampusList returns all campuses, public.
func CampusList(svc campuses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campuses service unavailable"))
			return
		}

		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// CampusDetail resolves a campus by slug, public.
func CampusDetail(svc campuses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campuses service unavailable"))
			return
		}

		campus, err := svc.Get(r.Context(), chi.URLParam(r, "campusSlug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, campus)
	}
}
