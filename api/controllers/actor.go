package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/api/middleware"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
)

// actorID pulls the authenticated user id seeded by the auth middleware.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// activeTefaID pulls the active TEFA id seeded by the auth middleware.
func activeTefaID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.TefaIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "tefa context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid tefa id")
	}
	return id, nil
}
