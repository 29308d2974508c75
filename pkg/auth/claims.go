package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	SystemRole   enums.SystemRole
	ActiveTefaID *uuid.UUID
	MemberRole   *enums.MemberRole
	JTI          string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID       uuid.UUID         `json:"user_id"`
	SystemRole   enums.SystemRole  `json:"system_role"`
	ActiveTefaID *uuid.UUID        `json:"active_tefa_id,omitempty"`
	MemberRole   *enums.MemberRole `json:"member_role,omitempty"`
	jwt.RegisteredClaims
}
