package campuses

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/slug"
)

// CreateInput carries the fields needed to register a campus.
type CreateInput struct {
	Name    string
	City    string
	Address *string
}

// UpdateInput carries optional campus mutations.
type UpdateInput struct {
	Name    *string
	City    *string
	Address *string
}

// Service defines campus management operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Campus, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Campus, error)
	Get(ctx context.Context, slug string) (*models.Campus, error)
	List(ctx context.Context) ([]models.Campus, error)
}

type service struct {
	repo Repository
}

// NewService wires campus dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "campuses repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Campus, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campus name required")
	}

	campus := models.Campus{
		Name:    name,
		Slug:    slug.Make(name),
		City:    strings.TrimSpace(input.City),
		Address: input.Address,
	}
	if err := s.repo.Create(ctx, &campus); err != nil {
		if db.IsUniqueViolation(err, "idx_campuses_slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "campus already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create campus")
	}
	return &campus, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Campus, error) {
	campus, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campus not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup campus")
	}

	if input.Name != nil {
		if trimmed := strings.TrimSpace(*input.Name); trimmed != "" {
			campus.Name = trimmed
		}
	}
	if input.City != nil {
		campus.City = strings.TrimSpace(*input.City)
	}
	if input.Address != nil {
		campus.Address = input.Address
	}

	if err := s.repo.Update(ctx, campus); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campus")
	}
	return campus, nil
}

func (s *service) Get(ctx context.Context, slugValue string) (*models.Campus, error) {
	campus, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slugValue))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campus not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup campus")
	}
	return campus, nil
}

func (s *service) List(ctx context.Context) ([]models.Campus, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list campuses")
	}
	return rows, nil
}
