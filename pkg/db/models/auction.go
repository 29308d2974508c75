package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tefamart/tefamart-backend/pkg/enums"
)

// Auction is a time-bounded sale window for a product.
//
// CurrentBid is a denormalized watermark over the bid ledger: zero until the
// first accepted bid, then equal to the highest accepted amount and
// non-decreasing for the auction's lifetime. Only the bid-acceptance
// transaction and the closure sweep may write it. A partial unique index
// (migrations) keeps at most one active auction per product.
type Auction struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	StartPrice   decimal.Decimal     `gorm:"column:start_price;type:numeric(14,2);not null"`
	CurrentBid   decimal.Decimal     `gorm:"column:current_bid;type:numeric(14,2);not null;default:0"`
	StartTime    time.Time           `gorm:"column:start_time;not null"`
	EndTime      time.Time           `gorm:"column:end_time;not null"`
	Status       enums.AuctionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	WinningBidID *uuid.UUID          `gorm:"column:winning_bid_id;type:uuid"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
