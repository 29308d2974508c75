package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/pagination"
)

// ListFilter narrows the public catalog listing.
type ListFilter struct {
	Search     string
	CategoryID *uuid.UUID
	CampusID   *uuid.UUID
	TefaID     *uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

// Repository exposes persistence helpers for products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Deactivate(ctx context.Context, id, tefaID uuid.UUID) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, filter ListFilter) ([]models.Product, *pagination.Cursor, error)
	DecrementStock(tx *gorm.DB, id uuid.UUID, quantity int) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a products repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repositoryImpl) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repositoryImpl) Deactivate(ctx context.Context, id, tefaID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tefa_id = ? AND is_active", id, tefaID).
		UpdateColumn("is_active", false)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repositoryImpl) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("slug = ? AND is_active", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.Product, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(filter.Limit)
	normalized := pagination.NormalizeLimit(filter.Limit)

	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("products.is_active")
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("products.name ILIKE ?", "%"+search+"%")
	}
	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.TefaID != nil {
		query = query.Where("products.tefa_id = ?", *filter.TefaID)
	}
	if filter.CampusID != nil {
		query = query.Joins("JOIN tefas ON tefas.id = products.tefa_id").
			Where("tefas.campus_id = ?", *filter.CampusID)
	}
	if filter.Cursor != nil {
		query = query.Where("(products.created_at, products.id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var rows []models.Product
	if err := query.Order("products.created_at DESC, products.id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// DecrementStock runs inside the caller's transaction; the guard keeps stock
// from going negative.
func (r *repositoryImpl) DecrementStock(tx *gorm.DB, id uuid.UUID, quantity int) (int64, error) {
	result := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	return result.RowsAffected, result.Error
}
