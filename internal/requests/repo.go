package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	"github.com/tefamart/tefamart-backend/pkg/pagination"
)

// TefaListFilter narrows the inbox listing for a TEFA.
type TefaListFilter struct {
	TefaID uuid.UUID
	Status *enums.RequestStatus
	Limit  int
	Cursor *pagination.Cursor
}

// Repository exposes persistence helpers for purchase requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.PurchaseRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error)
	ListByTefa(ctx context.Context, filter TefaListFilter) ([]models.PurchaseRequest, *pagination.Cursor, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.PurchaseRequest, *pagination.Cursor, error)
	Update(ctx context.Context, request *models.PurchaseRequest) error
	CountPendingForProduct(ctx context.Context, productID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a purchase request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, request *models.PurchaseRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	var request models.PurchaseRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByIDForUpdate takes a row lock so concurrent decisions on the same
// request serialize. Call inside a transaction.
func (r *repositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	var request models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repositoryImpl) ListByTefa(ctx context.Context, filter TefaListFilter) ([]models.PurchaseRequest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(filter.Limit)
	normalized := pagination.NormalizeLimit(filter.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.PurchaseRequest{}).
		Joins("JOIN products ON products.id = purchase_requests.product_id").
		Where("products.tefa_id = ?", filter.TefaID)
	if filter.Status != nil {
		query = query.Where("purchase_requests.status = ?", *filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where("(purchase_requests.created_at, purchase_requests.id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var rows []models.PurchaseRequest
	err := query.
		Order("purchase_requests.created_at DESC, purchase_requests.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

func (r *repositoryImpl) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.PurchaseRequest, *pagination.Cursor, error) {
	padded := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)

	query := r.db.WithContext(ctx).Model(&models.PurchaseRequest{}).Where("buyer_id = ?", buyerID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.PurchaseRequest
	if err := query.Order("created_at DESC, id DESC").Limit(padded).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

func (r *repositoryImpl) Update(ctx context.Context, request *models.PurchaseRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

func (r *repositoryImpl) CountPendingForProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseRequest{}).
		Where("product_id = ? AND status = ?", productID, enums.RequestStatusPending).
		Count(&count).Error
	return count, err
}
