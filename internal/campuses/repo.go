package campuses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
)

// Repository exposes persistence helpers for campuses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, campus *models.Campus) error
	Update(ctx context.Context, campus *models.Campus) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campus, error)
	FindBySlug(ctx context.Context, slug string) (*models.Campus, error)
	List(ctx context.Context) ([]models.Campus, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a campuses repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, campus *models.Campus) error {
	return r.db.WithContext(ctx).Create(campus).Error
}

func (r *repositoryImpl) Update(ctx context.Context, campus *models.Campus) error {
	return r.db.WithContext(ctx).Save(campus).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Campus, error) {
	var campus models.Campus
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&campus).Error; err != nil {
		return nil, err
	}
	return &campus, nil
}

func (r *repositoryImpl) FindBySlug(ctx context.Context, slug string) (*models.Campus, error) {
	var campus models.Campus
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&campus).Error; err != nil {
		return nil, err
	}
	return &campus, nil
}

func (r *repositoryImpl) List(ctx context.Context) ([]models.Campus, error) {
	var rows []models.Campus
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}
