package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/tefamart/tefamart-backend/pkg/auth"
	"github.com/tefamart/tefamart-backend/pkg/auth/session"
	"github.com/tefamart/tefamart-backend/pkg/config"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
)

// SwitchTefaInput captures the data required to change the active TEFA.
type SwitchTefaInput struct {
	UserID        uuid.UUID
	TefaID        uuid.UUID
	AccessTokenID string
	RefreshToken  string
	SystemRole    enums.SystemRole
}

// SwitchTefaResult returns the tokens issued after switching the active TEFA.
type SwitchTefaResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SwitchTefaService is the interface exposed to the controller.
type SwitchTefaService interface {
	Switch(ctx context.Context, input SwitchTefaInput) (*SwitchTefaResult, error)
}

type switchMembershipFinder interface {
	Find(ctx context.Context, tefaID, userID uuid.UUID) (*models.TefaMembership, error)
}

type switchSessionRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
}

// SwitchTefaServiceParams bundles dependencies for the switch flow.
type SwitchTefaServiceParams struct {
	MembershipsRepo switchMembershipFinder
	SessionManager  switchSessionRotator
	JWTConfig       config.JWTConfig
}

type switchTefaService struct {
	memberships switchMembershipFinder
	session     switchSessionRotator
	jwtCfg      config.JWTConfig
}

// NewSwitchTefaService constructs the service.
func NewSwitchTefaService(params SwitchTefaServiceParams) (SwitchTefaService, error) {
	if params.MembershipsRepo == nil {
		return nil, errors.New("memberships repository required")
	}
	if params.SessionManager == nil {
		return nil, errors.New("session manager required")
	}
	return &switchTefaService{
		memberships: params.MembershipsRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
	}, nil
}

func (s *switchTefaService) Switch(ctx context.Context, input SwitchTefaInput) (*SwitchTefaResult, error) {
	membership, err := s.memberships.Find(ctx, input.TefaID, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "tefa membership required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup membership")
	}
	if membership.Status != enums.MembershipStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "tefa membership inactive")
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, input.AccessTokenID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	role := membership.Role
	payload := pkgAuth.AccessTokenPayload{
		UserID:       input.UserID,
		SystemRole:   input.SystemRole,
		ActiveTefaID: &input.TefaID,
		MemberRole:   &role,
		JTI:          newAccessID,
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &SwitchTefaResult{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}
