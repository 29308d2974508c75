package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tefamart/tefamart-backend/api/responses"
	pkgAuth "github.com/tefamart/tefamart-backend/pkg/auth"
	"github.com/tefamart/tefamart-backend/pkg/auth/session"
	"github.com/tefamart/tefamart-backend/pkg/config"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/logger"
)

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// Auth validates the bearer token, confirms the session behind its jti still
// exists in redis, and seeds the request context with the claims. Passing a
// nil verifier skips the redis check, which only tests should do.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deny := func(err error) {
				responses.WriteError(r.Context(), logg, w, err)
			}

			token := bearerToken(r)
			if token == "" {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				deny(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				live, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					deny(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !live {
					// Valid signature but revoked session: logout already ran.
					deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID.String())
			ctx = context.WithValue(ctx, ctxRole, string(claims.SystemRole))
			if claims.MemberRole != nil {
				ctx = context.WithValue(ctx, ctxMemberRole, string(*claims.MemberRole))
			}
			if claims.ActiveTefaID != nil {
				ctx = context.WithValue(ctx, ctxTefaID, claims.ActiveTefaID.String())
			}

			if logg != nil {
				fields := map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.SystemRole),
				}
				if claims.ActiveTefaID != nil {
					fields["tefa_id"] = claims.ActiveTefaID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
