package models

import (
	"time"

	"github.com/google/uuid"
)

// Tefa represents the canonical tenant model: a teaching-factory unit
// affiliated with a campus.
type Tefa struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CampusID       uuid.UUID `gorm:"column:campus_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	Slug           string    `gorm:"column:slug;not null;uniqueIndex"`
	Description    *string   `gorm:"column:description"`
	LogoURL        *string   `gorm:"column:logo_url"`
	WhatsAppNumber *string   `gorm:"column:whatsapp_number"`
	OwnerID        uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
