package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/pkg/enums"
)

// TefaMembership links a user with a TEFA and captures their role/status.
type TefaMembership struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TefaID          uuid.UUID              `gorm:"column:tefa_id;type:uuid;not null;index:idx_tefa_memberships_tefa_user,unique"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index:idx_tefa_memberships_tefa_user,unique"`
	Role            enums.MemberRole       `gorm:"column:role;type:text;not null"`
	Status          enums.MembershipStatus `gorm:"column:status;type:text;not null"`
	InvitedByUserID *uuid.UUID             `gorm:"column:invited_by_user_id;type:uuid"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
