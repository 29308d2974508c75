package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tefamart/tefamart-backend/pkg/enums"
)

// Bid is one accepted entry in the append-only bid ledger. Rows are created
// exactly once by the acceptance transaction and are immutable afterwards
// except for status transitions applied at auction close.
type Bid struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AuctionID uuid.UUID       `gorm:"column:auction_id;type:uuid;not null;index"`
	BidderID  uuid.UUID       `gorm:"column:bidder_id;type:uuid;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Status    enums.BidStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
