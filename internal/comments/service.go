package comments

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/internal/products"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/pagination"
)

const maxBodyLength = 2000

// ListPage is one page of comments on a product.
type ListPage struct {
	Comments   []models.Comment
	NextCursor string
}

// Service defines comment operations.
type Service interface {
	Create(ctx context.Context, productID, authorID uuid.UUID, body string) (*models.Comment, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int, cursor string) (*ListPage, error)
	Delete(ctx context.Context, commentID, actorID uuid.UUID) error
}

type service struct {
	repo        Repository
	products    products.Repository
	memberships memberships.Repository
}

// ServiceParams bundles the dependencies for the comments service.
type ServiceParams struct {
	Repo            Repository
	ProductsRepo    products.Repository
	MembershipsRepo memberships.Repository
}

// NewService wires comments dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "comments repository required")
	}
	if params.ProductsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	if params.MembershipsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "memberships repository required")
	}
	return &service{
		repo:        params.Repo,
		products:    params.ProductsRepo,
		memberships: params.MembershipsRepo,
	}, nil
}

func (s *service) Create(ctx context.Context, productID, authorID uuid.UUID, body string) (*models.Comment, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body required")
	}
	if len(trimmed) > maxBodyLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body too long")
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}

	comment := models.Comment{
		ProductID: productID,
		AuthorID:  authorID,
		Body:      trimmed,
	}
	if err := s.repo.Create(ctx, &comment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create comment")
	}
	return &comment, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, limit int, cursorValue string) (*ListPage, error) {
	cursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListByProduct(ctx, productID, limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}

	page := &ListPage{Comments: rows}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// Delete removes a comment. Allowed for the author, or for an owner/operator
// of the TEFA that sells the product.
func (s *service) Delete(ctx context.Context, commentID, actorID uuid.UUID) error {
	comment, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup comment")
	}

	if comment.AuthorID != actorID {
		product, err := s.products.FindByID(ctx, comment.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
		}
		ok, err := s.memberships.UserHasRole(ctx, actorID, product.TefaID, enums.MemberRoleOwner, enums.MemberRoleOperator)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership role")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to delete this comment")
		}
	}

	if _, err := s.repo.Delete(ctx, commentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete comment")
	}
	return nil
}
