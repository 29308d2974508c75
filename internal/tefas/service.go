package tefas

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/internal/users"
	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/slug"
)

// CreateInput carries the fields needed to register a TEFA unit.
type CreateInput struct {
	CampusID       uuid.UUID
	Name           string
	Description    *string
	WhatsAppNumber *string
	OwnerEmail     string
}

// UpdateInput carries optional TEFA profile mutations.
type UpdateInput struct {
	Name           *string
	Description    *string
	LogoURL        *string
	WhatsAppNumber *string
}

// InviteInput adds a user to a TEFA with the given role.
type InviteInput struct {
	TefaID      uuid.UUID
	Email       string
	Role        enums.MemberRole
	InvitedByID uuid.UUID
}

// Service defines TEFA management operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Tefa, error)
	Update(ctx context.Context, tefaID, actorID uuid.UUID, input UpdateInput) (*models.Tefa, error)
	Get(ctx context.Context, slug string) (*models.Tefa, error)
	List(ctx context.Context, campusID *uuid.UUID) ([]models.Tefa, error)
	ListMembers(ctx context.Context, tefaID uuid.UUID) ([]models.TefaMembership, error)
	Invite(ctx context.Context, input InviteInput) (*models.TefaMembership, error)
	RemoveMember(ctx context.Context, tefaID, userID uuid.UUID) error
}

type service struct {
	db          *db.Client
	repo        Repository
	memberships memberships.Repository
	users       users.Repository
}

// ServiceParams bundles the dependencies for the TEFA service.
type ServiceParams struct {
	DB              *db.Client
	Repo            Repository
	MembershipsRepo memberships.Repository
	UsersRepo       users.Repository
}

// NewService wires TEFA dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tefa repository required")
	}
	if params.MembershipsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "memberships repository required")
	}
	if params.UsersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		memberships: params.MembershipsRepo,
		users:       params.UsersRepo,
	}, nil
}

// Create registers the TEFA and seeds its owner membership in one transaction.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Tefa, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tefa name required")
	}
	email := strings.ToLower(strings.TrimSpace(input.OwnerEmail))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner email required")
	}

	owner, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "owner user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup owner")
	}

	tefa := models.Tefa{
		CampusID:       input.CampusID,
		Name:           name,
		Slug:           slug.Make(name),
		Description:    input.Description,
		WhatsAppNumber: input.WhatsAppNumber,
		OwnerID:        owner.ID,
		IsActive:       true,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &tefa); err != nil {
			if db.IsUniqueViolation(err, "idx_tefas_slug") {
				return pkgerrors.New(pkgerrors.CodeConflict, "tefa already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tefa")
		}
		membership := models.TefaMembership{
			TefaID: tefa.ID,
			UserID: owner.ID,
			Role:   enums.MemberRoleOwner,
			Status: enums.MembershipStatusActive,
		}
		if err := s.memberships.WithTx(tx).Create(ctx, &membership); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create owner membership")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tefa, nil
}

func (s *service) Update(ctx context.Context, tefaID, actorID uuid.UUID, input UpdateInput) (*models.Tefa, error) {
	tefa, err := s.repo.FindByID(ctx, tefaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tefa not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tefa")
	}
	if tefa.OwnerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the tefa owner may update the profile")
	}

	if input.Name != nil {
		if trimmed := strings.TrimSpace(*input.Name); trimmed != "" {
			tefa.Name = trimmed
		}
	}
	if input.Description != nil {
		tefa.Description = input.Description
	}
	if input.LogoURL != nil {
		tefa.LogoURL = input.LogoURL
	}
	if input.WhatsAppNumber != nil {
		tefa.WhatsAppNumber = input.WhatsAppNumber
	}

	if err := s.repo.Update(ctx, tefa); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tefa")
	}
	return tefa, nil
}

func (s *service) Get(ctx context.Context, slugValue string) (*models.Tefa, error) {
	tefa, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slugValue))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tefa not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tefa")
	}
	return tefa, nil
}

func (s *service) List(ctx context.Context, campusID *uuid.UUID) ([]models.Tefa, error) {
	var (
		rows []models.Tefa
		err  error
	)
	if campusID != nil {
		rows, err = s.repo.ListByCampus(ctx, *campusID)
	} else {
		rows, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tefas")
	}
	return rows, nil
}

func (s *service) ListMembers(ctx context.Context, tefaID uuid.UUID) ([]models.TefaMembership, error) {
	rows, err := s.memberships.ListByTefa(ctx, tefaID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}
	return rows, nil
}

func (s *service) Invite(ctx context.Context, input InviteInput) (*models.TefaMembership, error) {
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid member role")
	}
	if input.Role == enums.MemberRoleOwner {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ownership cannot be granted by invite")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	if existing, err := s.memberships.Find(ctx, input.TefaID, user.ID); err == nil {
		if existing.Status != enums.MembershipStatusRemoved {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already a member")
		}
		if err := s.memberships.UpdateStatus(ctx, existing.ID, enums.MembershipStatusInvited); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate membership")
		}
		if err := s.memberships.UpdateRole(ctx, existing.ID, input.Role); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set membership role")
		}
		existing.Status = enums.MembershipStatusInvited
		existing.Role = input.Role
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup membership")
	}

	membership := models.TefaMembership{
		TefaID:          input.TefaID,
		UserID:          user.ID,
		Role:            input.Role,
		Status:          enums.MembershipStatusInvited,
		InvitedByUserID: &input.InvitedByID,
	}
	if err := s.memberships.Create(ctx, &membership); err != nil {
		if db.IsUniqueViolation(err, "idx_tefa_memberships_tefa_user") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already a member")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create membership")
	}
	return &membership, nil
}

func (s *service) RemoveMember(ctx context.Context, tefaID, userID uuid.UUID) error {
	membership, err := s.memberships.Find(ctx, tefaID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup membership")
	}
	if membership.Role == enums.MemberRoleOwner {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "the owner cannot be removed")
	}
	if err := s.memberships.UpdateStatus(ctx, membership.ID, enums.MembershipStatusRemoved); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove membership")
	}
	return nil
}
