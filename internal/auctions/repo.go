package auctions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	"github.com/tefamart/tefamart-backend/pkg/pagination"
)

// WatermarkMismatch pairs an auction with the true maximum of its bid ledger
// when the denormalized current_bid has drifted from it.
type WatermarkMismatch struct {
	AuctionID  uuid.UUID       `gorm:"column:auction_id"`
	CurrentBid decimal.Decimal `gorm:"column:current_bid"`
	LedgerMax  decimal.Decimal `gorm:"column:ledger_max"`
}

// Repository exposes persistence helpers for auctions and their bid ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, auction *models.Auction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	FindLiveByProduct(ctx context.Context, productID uuid.UUID, now time.Time) (*models.Auction, error)
	HasOpenAuction(ctx context.Context, productID uuid.UUID) (bool, error)
	ListByTefa(ctx context.Context, tefaID uuid.UUID, status *enums.AuctionStatus) ([]models.Auction, error)
	Cancel(ctx context.Context, id, tefaID uuid.UUID) (int64, error)

	HighestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error)
	InsertBid(ctx context.Context, bid *models.Bid) error
	UpdateCurrentBid(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error
	ListBids(ctx context.Context, auctionID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Bid, *pagination.Cursor, error)

	ListDueToActivate(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
	ListDueToEnd(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
	MarkBidStatuses(ctx context.Context, auctionID uuid.UUID, winnerBidID *uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.AuctionStatus) (int64, error)
	CloseWithWinner(ctx context.Context, id uuid.UUID, winnerBidID *uuid.UUID) error

	FindWatermarkMismatches(ctx context.Context, limit int) ([]WatermarkMismatch, error)
	RepairWatermark(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an auctions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, auction *models.Auction) error {
	return r.db.WithContext(ctx).Create(auction).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&auction).Error; err != nil {
		return nil, err
	}
	return &auction, nil
}

// FindByIDForUpdate takes a row lock on the auction so concurrent bid
// acceptances serialize on it. Call inside a transaction.
func (r *repositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// FindLiveByProduct returns the product's auction that is active and inside
// its [start_time, end_time) window at the given instant.
func (r *repositoryImpl) FindLiveByProduct(ctx context.Context, productID uuid.UUID, now time.Time) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND status = ? AND start_time <= ? AND end_time > ?",
			productID, enums.AuctionStatusActive, now, now).
		First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// HasOpenAuction reports whether the product already has a pending or active
// auction. The partial unique index only covers active rows, so scheduling
// conflicts against pending auctions need this check.
func (r *repositoryImpl) HasOpenAuction(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("product_id = ? AND status IN ?",
			productID, []enums.AuctionStatus{enums.AuctionStatusPending, enums.AuctionStatusActive}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) ListByTefa(ctx context.Context, tefaID uuid.UUID, status *enums.AuctionStatus) ([]models.Auction, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Joins("JOIN products ON products.id = auctions.product_id").
		Where("products.tefa_id = ?", tefaID)
	if status != nil {
		query = query.Where("auctions.status = ?", *status)
	}

	var rows []models.Auction
	err := query.Order("auctions.start_time DESC").Find(&rows).Error
	return rows, err
}

// Cancel transitions a not-yet-ended auction to cancelled, scoped to the
// owning tefa through the product join.
func (r *repositoryImpl) Cancel(ctx context.Context, id, tefaID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ? AND status IN ? AND product_id IN (?)",
			id,
			[]enums.AuctionStatus{enums.AuctionStatusPending, enums.AuctionStatusActive},
			r.db.Model(&models.Product{}).Select("id").Where("tefa_id = ?", tefaID),
		).
		UpdateColumn("status", enums.AuctionStatusCancelled)
	return result.RowsAffected, result.Error
}

// HighestBid returns the current top of the ledger. Ties on amount resolve to
// the earliest bid.
func (r *repositoryImpl) HighestBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("amount DESC, created_at ASC, id ASC").
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

func (r *repositoryImpl) InsertBid(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *repositoryImpl) UpdateCurrentBid(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", auctionID).
		UpdateColumn("current_bid", amount).Error
}

func (r *repositoryImpl) ListBids(ctx context.Context, auctionID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Bid, *pagination.Cursor, error) {
	padded := pagination.LimitWithBuffer(limit)
	normalized := pagination.NormalizeLimit(limit)

	query := r.db.WithContext(ctx).Model(&models.Bid{}).Where("auction_id = ?", auctionID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Bid
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

func (r *repositoryImpl) ListDueToActivate(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	var rows []models.Auction
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_time <= ? AND end_time > ?", enums.AuctionStatusPending, now, now).
		Order("start_time ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListDueToEnd(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	var rows []models.Auction
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", enums.AuctionStatusActive, now).
		Order("end_time ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkBidStatuses flags the winning bid accepted and every other ledger entry
// missed. A nil winner marks the whole ledger missed.
func (r *repositoryImpl) MarkBidStatuses(ctx context.Context, auctionID uuid.UUID, winnerBidID *uuid.UUID) error {
	if winnerBidID != nil {
		err := r.db.WithContext(ctx).
			Model(&models.Bid{}).
			Where("id = ?", *winnerBidID).
			UpdateColumn("status", enums.BidStatusAccepted).Error
		if err != nil {
			return err
		}
		return r.db.WithContext(ctx).
			Model(&models.Bid{}).
			Where("auction_id = ? AND id <> ? AND status = ?", auctionID, *winnerBidID, enums.BidStatusActive).
			UpdateColumn("status", enums.BidStatusMissed).Error
	}
	return r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("auction_id = ? AND status = ?", auctionID, enums.BidStatusActive).
		UpdateColumn("status", enums.BidStatusMissed).Error
}

// UpdateStatus performs a compare-and-set transition; callers check the
// affected count to detect lost races.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.AuctionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumn("status", to)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CloseWithWinner(ctx context.Context, id uuid.UUID, winnerBidID *uuid.UUID) error {
	updates := map[string]any{
		"status":         enums.AuctionStatusEnded,
		"winning_bid_id": winnerBidID,
	}
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ? AND status = ?", id, enums.AuctionStatusActive).
		Updates(updates).Error
}

// FindWatermarkMismatches reports auctions whose current_bid disagrees with
// the ledger maximum. The ledger is the source of truth.
func (r *repositoryImpl) FindWatermarkMismatches(ctx context.Context, limit int) ([]WatermarkMismatch, error) {
	var rows []WatermarkMismatch
	err := r.db.WithContext(ctx).
		Table("auctions").
		Select("auctions.id AS auction_id, auctions.current_bid AS current_bid, COALESCE(MAX(bids.amount), 0) AS ledger_max").
		Joins("LEFT JOIN bids ON bids.auction_id = auctions.id").
		Where("auctions.status IN ?", []enums.AuctionStatus{enums.AuctionStatusActive, enums.AuctionStatusEnded}).
		Group("auctions.id, auctions.current_bid").
		Having("auctions.current_bid <> COALESCE(MAX(bids.amount), 0)").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) RepairWatermark(ctx context.Context, auctionID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", auctionID).
		UpdateColumn("current_bid", amount).Error
}
