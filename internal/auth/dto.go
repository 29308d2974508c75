package auth

import (
	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/internal/users"
	"github.com/tefamart/tefamart-backend/pkg/enums"
)

// LoginRequest carries the credentials posted to the login endpoints.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TefaSummary lists one TEFA a user belongs to, returned with login payloads.
type TefaSummary struct {
	ID   uuid.UUID        `json:"id"`
	Name string           `json:"name"`
	Slug string           `json:"slug"`
	Role enums.MemberRole `json:"role"`
}

// LoginResponse returns the issued tokens and the user's TEFA memberships.
type LoginResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Tefas        []TefaSummary `json:"tefas"`
	User         users.Summary `json:"user"`
}
