package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/api/responses"
	"github.com/tefamart/tefamart-backend/api/validators"
	"github.com/tefamart/tefamart-backend/internal/auth"
	pkgAuth "github.com/tefamart/tefamart-backend/pkg/auth"
	"github.com/tefamart/tefamart-backend/pkg/config"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-TM-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AuthRegister creates a buyer account and immediately logs it in.
func AuthRegister(registerSvc auth.RegisterService, loginSvc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registerSvc == nil || loginSvc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := registerSvc.Register(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := loginSvc.Login(r.Context(), auth.LoginRequest{
			Email:    body.Email,
			Password: body.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-TM-Token", result.AccessToken)
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type switchTefaRequest struct {
	TefaID       string `json:"tefa_id" validate:"required,uuid4"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthSwitchTefa rotates the session and mints a token scoped to the chosen
// TEFA membership.
func AuthSwitchTefa(svc auth.SwitchTefaService, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body switchTefaRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := parseBearerToken(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		claims, err := pkgAuth.ParseAccessToken(cfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}
		if claims.ID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
			return
		}

		tefaID, err := uuid.Parse(body.TefaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tefa id"))
			return
		}

		result, err := svc.Switch(r.Context(), auth.SwitchTefaInput{
			UserID:        claims.UserID,
			TefaID:        tefaID,
			AccessTokenID: claims.ID,
			RefreshToken:  body.RefreshToken,
			SystemRole:    claims.SystemRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-TM-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
