package tefas

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
)

// Repository exposes persistence helpers for TEFA units.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tefa *models.Tefa) error
	Update(ctx context.Context, tefa *models.Tefa) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tefa, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tefa, error)
	ListByCampus(ctx context.Context, campusID uuid.UUID) ([]models.Tefa, error)
	List(ctx context.Context) ([]models.Tefa, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a TEFA repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, tefa *models.Tefa) error {
	return r.db.WithContext(ctx).Create(tefa).Error
}

func (r *repositoryImpl) Update(ctx context.Context, tefa *models.Tefa) error {
	return r.db.WithContext(ctx).Save(tefa).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Tefa, error) {
	var tefa models.Tefa
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tefa).Error; err != nil {
		return nil, err
	}
	return &tefa, nil
}

func (r *repositoryImpl) FindBySlug(ctx context.Context, slug string) (*models.Tefa, error) {
	var tefa models.Tefa
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tefa).Error; err != nil {
		return nil, err
	}
	return &tefa, nil
}

func (r *repositoryImpl) ListByCampus(ctx context.Context, campusID uuid.UUID) ([]models.Tefa, error) {
	var rows []models.Tefa
	err := r.db.WithContext(ctx).
		Where("campus_id = ? AND is_active", campusID).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) List(ctx context.Context) ([]models.Tefa, error) {
	var rows []models.Tefa
	err := r.db.WithContext(ctx).Where("is_active").Order("name ASC").Find(&rows).Error
	return rows, err
}
