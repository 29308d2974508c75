package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/pkg/enums"
)

// Notification is an in-app message for a single recipient.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	Type        enums.NotificationType `gorm:"column:type;type:text;not null"`
	Payload     json.RawMessage        `gorm:"column:payload;type:jsonb"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
