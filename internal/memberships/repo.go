package memberships

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
)

// MembershipWithTefa joins a membership row with its TEFA for login payloads.
type MembershipWithTefa struct {
	TefaID   uuid.UUID        `gorm:"column:tefa_id"`
	TefaName string           `gorm:"column:tefa_name"`
	TefaSlug string           `gorm:"column:tefa_slug"`
	Role     enums.MemberRole `gorm:"column:role"`
}

// Repository exposes persistence helpers for TEFA memberships.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, membership *models.TefaMembership) error
	Find(ctx context.Context, tefaID, userID uuid.UUID) (*models.TefaMembership, error)
	ListByTefa(ctx context.Context, tefaID uuid.UUID) ([]models.TefaMembership, error)
	ListUserTefas(ctx context.Context, userID uuid.UUID) ([]MembershipWithTefa, error)
	ListActiveUserIDs(ctx context.Context, tefaID uuid.UUID) ([]uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MembershipStatus) error
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.MemberRole) error
	UserHasRole(ctx context.Context, userID, tefaID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a memberships repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, membership *models.TefaMembership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *repositoryImpl) Find(ctx context.Context, tefaID, userID uuid.UUID) (*models.TefaMembership, error) {
	var membership models.TefaMembership
	err := r.db.WithContext(ctx).
		Where("tefa_id = ? AND user_id = ?", tefaID, userID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *repositoryImpl) ListByTefa(ctx context.Context, tefaID uuid.UUID) ([]models.TefaMembership, error) {
	var rows []models.TefaMembership
	err := r.db.WithContext(ctx).
		Where("tefa_id = ? AND status <> ?", tefaID, enums.MembershipStatusRemoved).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListUserTefas(ctx context.Context, userID uuid.UUID) ([]MembershipWithTefa, error) {
	var rows []MembershipWithTefa
	err := r.db.WithContext(ctx).
		Table("tefa_memberships").
		Select("tefa_memberships.tefa_id AS tefa_id, tefas.name AS tefa_name, tefas.slug AS tefa_slug, tefa_memberships.role AS role").
		Joins("JOIN tefas ON tefas.id = tefa_memberships.tefa_id").
		Where("tefa_memberships.user_id = ? AND tefa_memberships.status = ?", userID, enums.MembershipStatusActive).
		Order("tefa_memberships.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListActiveUserIDs(ctx context.Context, tefaID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.TefaMembership{}).
		Where("tefa_id = ? AND status = ?", tefaID, enums.MembershipStatusActive).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MembershipStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.TefaMembership{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

func (r *repositoryImpl) UpdateRole(ctx context.Context, id uuid.UUID, role enums.MemberRole) error {
	return r.db.WithContext(ctx).
		Model(&models.TefaMembership{}).
		Where("id = ?", id).
		UpdateColumn("role", role).Error
}

func (r *repositoryImpl) UserHasRole(ctx context.Context, userID, tefaID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TefaMembership{}).
		Where("user_id = ? AND tefa_id = ? AND status = ? AND role IN ?", userID, tefaID, enums.MembershipStatusActive, roles).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
