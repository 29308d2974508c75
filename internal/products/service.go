package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/pagination"
	"github.com/tefamart/tefamart-backend/pkg/slug"
)

// CreateInput carries the fields for a new listing.
type CreateInput struct {
	TefaID      uuid.UUID
	ActorID     uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
	SaleMode    enums.SaleMode
	ImageURL    *string
}

// UpdateInput carries optional listing mutations. Nil fields are untouched.
type UpdateInput struct {
	TefaID      uuid.UUID
	ActorID     uuid.UUID
	ProductID   uuid.UUID
	CategoryID  *uuid.UUID
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	ImageURL    *string
}

// ListPage is one page of the public catalog.
type ListPage struct {
	Products   []models.Product
	NextCursor string
}

// Service defines catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, input UpdateInput) (*models.Product, error)
	Deactivate(ctx context.Context, tefaID, actorID, productID uuid.UUID) error
	Get(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, filter ListFilter) (*ListPage, error)
}

type service struct {
	repo        Repository
	memberships memberships.Repository
}

// ServiceParams bundles the dependencies for the catalog service.
type ServiceParams struct {
	Repo            Repository
	MembershipsRepo memberships.Repository
}

// NewService wires catalog dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	if params.MembershipsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "memberships repository required")
	}
	return &service{repo: params.Repo, memberships: params.MembershipsRepo}, nil
}

func (s *service) requireCatalogRole(ctx context.Context, userID, tefaID uuid.UUID) error {
	ok, err := s.memberships.UserHasRole(ctx, userID, tefaID, enums.MemberRoleOwner, enums.MemberRoleOperator)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership role")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "catalog changes require an owner or operator role")
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.SaleMode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sale mode")
	}
	if input.Price.IsNegative() || input.Price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if err := s.requireCatalogRole(ctx, input.ActorID, input.TefaID); err != nil {
		return nil, err
	}

	product := models.Product{
		TefaID:      input.TefaID,
		CategoryID:  input.CategoryID,
		Name:        name,
		Slug:        slug.Make(name) + "-" + uuid.NewString()[:8],
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		SaleMode:    input.SaleMode,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, &product); err != nil {
		if db.IsUniqueViolation(err, "idx_products_slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return &product, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Product, error) {
	if err := s.requireCatalogRole(ctx, input.ActorID, input.TefaID); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if product.TefaID != input.TefaID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another tefa")
	}

	if input.Name != nil {
		if trimmed := strings.TrimSpace(*input.Name); trimmed != "" {
			product.Name = trimmed
		}
	}
	if input.CategoryID != nil {
		product.CategoryID = *input.CategoryID
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() || input.Price.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		product.Stock = *input.Stock
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) Deactivate(ctx context.Context, tefaID, actorID, productID uuid.UUID) error {
	if err := s.requireCatalogRole(ctx, actorID, tefaID); err != nil {
		return err
	}
	affected, err := s.repo.Deactivate(ctx, productID, tefaID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, slugValue string) (*models.Product, error) {
	product, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slugValue))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*ListPage, error) {
	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page := &ListPage{Products: rows}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}
