package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/pkg/enums"
)

// PurchaseRequest is a buyer's fixed-price order intent against a direct-sale
// product, decided by the owning TEFA.
type PurchaseRequest struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	BuyerID     uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	Quantity    int                 `gorm:"column:quantity;not null"`
	Note        *string             `gorm:"column:note"`
	Status      enums.RequestStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	DecidedByID *uuid.UUID          `gorm:"column:decided_by_id;type:uuid"`
	DecidedAt   *time.Time          `gorm:"column:decided_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
