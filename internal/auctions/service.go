package auctions

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/internal/products"
	"github.com/tefamart/tefamart-backend/pkg/config"
	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/logger"
	"github.com/tefamart/tefamart-backend/pkg/metrics"
	"github.com/tefamart/tefamart-backend/pkg/outbox"
	"github.com/tefamart/tefamart-backend/pkg/pagination"
)

// CreateInput schedules an auction for an auction-mode product.
type CreateInput struct {
	TefaID     uuid.UUID
	ActorID    uuid.UUID
	ProductID  uuid.UUID
	StartPrice decimal.Decimal
	StartTime  time.Time
	EndTime    time.Time
}

// PlaceBidInput carries one bid attempt against a live auction.
type PlaceBidInput struct {
	Ref      string
	BidderID uuid.UUID
	Amount   decimal.Decimal
}

// BidReceipt is returned to the bidder on acceptance.
type BidReceipt struct {
	Bid            *models.Bid
	Auction        *models.Auction
	MinimumNextBid decimal.Decimal
}

// LiveView is the public snapshot of a running auction.
type LiveView struct {
	Auction        *models.Auction
	Product        *models.Product
	MinimumNextBid decimal.Decimal
}

// BidsPage is one page of the bid history.
type BidsPage struct {
	Bids       []models.Bid
	NextCursor string
}

// notifier inserts in-app notifications inside the caller's transaction.
type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, kind enums.NotificationType, payload any) error
	NotifyMany(ctx context.Context, tx *gorm.DB, recipientIDs []uuid.UUID, kind enums.NotificationType, payload any) error
}

// Service defines auction operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Auction, error)
	GetLive(ctx context.Context, ref string) (*LiveView, error)
	ListForTefa(ctx context.Context, tefaID uuid.UUID, status *enums.AuctionStatus) ([]models.Auction, error)
	Cancel(ctx context.Context, tefaID, actorID, auctionID uuid.UUID) error
	PlaceBid(ctx context.Context, input PlaceBidInput) (*BidReceipt, error)
	ListBids(ctx context.Context, auctionID uuid.UUID, limit int, cursor string) (*BidsPage, error)
}

type service struct {
	db            *db.Client
	cfg           config.AuctionConfig
	repo          Repository
	products      products.Repository
	memberships   memberships.Repository
	notifications notifier
	outbox        *outbox.Service
	metrics       *metrics.AuctionMetrics
	logg          *logger.Logger
}

// ServiceParams bundles the dependencies for the auction service.
type ServiceParams struct {
	DB              *db.Client
	Config          config.AuctionConfig
	Repo            Repository
	ProductsRepo    products.Repository
	MembershipsRepo memberships.Repository
	Notifications   notifier
	Outbox          *outbox.Service
	Metrics         *metrics.AuctionMetrics
	Logger          *logger.Logger
}

// NewService wires auction dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "auctions repository required")
	}
	if params.ProductsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	if params.MembershipsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "memberships repository required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Config.MinIncrement.IsZero() || params.Config.MinIncrement.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "minimum increment must be positive")
	}
	if params.Config.BidRetries <= 0 {
		params.Config.BidRetries = 3
	}
	if params.Config.BidTimeout <= 0 {
		params.Config.BidTimeout = 5 * time.Second
	}
	return &service{
		db:            params.DB,
		cfg:           params.Config,
		repo:          params.Repo,
		products:      params.ProductsRepo,
		memberships:   params.MembershipsRepo,
		notifications: params.Notifications,
		outbox:        params.Outbox,
		metrics:       params.Metrics,
		logg:          params.Logger,
	}, nil
}

// Create schedules an auction. The partial unique index on active auctions is
// the backstop against two live auctions for one product; scheduling conflicts
// against pending auctions are checked here.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Auction, error) {
	if input.StartPrice.IsZero() || input.StartPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start price must be positive")
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end time must be after start time")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if product.TefaID != input.TefaID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another tefa")
	}
	if product.SaleMode != enums.SaleModeAuction {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not sold by auction")
	}

	open, err := s.repo.HasOpenAuction(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open auctions")
	}
	if open {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already has a scheduled or active auction")
	}

	auction := models.Auction{
		ProductID:  product.ID,
		StartPrice: input.StartPrice,
		CurrentBid: decimal.Zero,
		StartTime:  input.StartTime.UTC(),
		EndTime:    input.EndTime.UTC(),
		Status:     enums.AuctionStatusPending,
	}
	if err := s.repo.Create(ctx, &auction); err != nil {
		if db.IsUniqueViolation(err, "idx_auctions_one_active_per_product") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already has an active auction")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create auction")
	}
	return &auction, nil
}

// GetLive resolves a live auction by auction id or product slug and returns it
// with the current acceptance floor.
func (s *service) GetLive(ctx context.Context, ref string) (*LiveView, error) {
	now := time.Now().UTC()
	auction, err := s.resolveLive(ctx, ref, now)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, auction.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}

	highest, err := s.repo.HighestBid(ctx, auction.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup highest bid")
	}

	return &LiveView{
		Auction:        auction,
		Product:        product,
		MinimumNextBid: MinimumNextBid(auction, highest, s.cfg.MinIncrement),
	}, nil
}

func (s *service) ListForTefa(ctx context.Context, tefaID uuid.UUID, status *enums.AuctionStatus) ([]models.Auction, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid auction status")
	}
	rows, err := s.repo.ListByTefa(ctx, tefaID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list auctions")
	}
	return rows, nil
}

func (s *service) Cancel(ctx context.Context, tefaID, actorID, auctionID uuid.UUID) error {
	ok, err := s.memberships.UserHasRole(ctx, actorID, tefaID, enums.MemberRoleOwner, enums.MemberRoleOperator)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership role")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cancelling auctions requires an owner or operator role")
	}

	affected, err := s.repo.Cancel(ctx, auctionID, tefaID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel auction")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found or already ended")
	}
	return nil
}

// PlaceBid runs the acceptance protocol: lock the auction row, re-validate the
// window and floor under the lock, append to the ledger, and advance the
// watermark, all in one repeatable-read transaction. Serialization failures
// retry up to the configured bound.
func (s *service) PlaceBid(ctx context.Context, input PlaceBidInput) (*BidReceipt, error) {
	started := time.Now()
	receipt, err := s.placeBid(ctx, input)
	elapsed := time.Since(started).Seconds()

	if err != nil {
		reason := rejectionReason(err)
		if s.metrics != nil {
			s.metrics.IncRejected(reason)
			s.metrics.ObserveBidDuration("rejected", elapsed)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncAccepted("accepted")
		s.metrics.ObserveBidDuration("accepted", elapsed)
	}
	return receipt, nil
}

func (s *service) placeBid(ctx context.Context, input PlaceBidInput) (*BidReceipt, error) {
	if err := validateBidAmount(input.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	auction, err := s.resolveLive(ctx, input.Ref, now)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, auction.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if s.cfg.ForbidSelfBids {
		isStaff, err := s.memberships.UserHasRole(ctx, input.BidderID, product.TefaID,
			enums.MemberRoleOwner, enums.MemberRoleOperator, enums.MemberRoleViewer)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check bidder membership")
		}
		if isStaff {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "members cannot bid on their own tefa's auctions")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.BidTimeout)
	defer cancel()

	var receipt *BidReceipt
	txOpts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead}

	for attempt := 1; attempt <= s.cfg.BidRetries; attempt++ {
		receipt, err = s.tryAcceptBid(ctx, txOpts, auction.ID, input)
		if err == nil {
			return receipt, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "bid acceptance timed out")
		}
		if !pkgerrors.IsSerializationFailure(err) {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.IncRetry(strconv.Itoa(attempt))
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"auction_id": auction.ID.String(),
			"attempt":    attempt,
			"error":      err.Error(),
		})
		s.logg.Warn(logCtx, "bid transaction serialization failure, retrying")
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "bid lost the race too many times")
}

// tryAcceptBid is one attempt of the acceptance transaction. State read before
// the lock is stale by definition, so everything is re-checked inside.
func (s *service) tryAcceptBid(ctx context.Context, txOpts *sql.TxOptions, auctionID uuid.UUID, input PlaceBidInput) (*BidReceipt, error) {
	var receipt *BidReceipt

	err := s.db.WithTxOptions(ctx, txOpts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now().UTC()

		auction, err := repo.FindByIDForUpdate(ctx, auctionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no live auction for this product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock auction")
		}
		if err := validateLiveWindow(auction, now); err != nil {
			return err
		}

		highest, err := repo.HighestBid(ctx, auction.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup highest bid")
		}
		minimum := MinimumNextBid(auction, highest, s.cfg.MinIncrement)
		if err := validateAgainstFloor(input.Amount, minimum); err != nil {
			return err
		}

		bid := models.Bid{
			AuctionID: auction.ID,
			BidderID:  input.BidderID,
			Amount:    input.Amount,
			Status:    enums.BidStatusActive,
		}
		if err := repo.InsertBid(ctx, &bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert bid")
		}
		if err := repo.UpdateCurrentBid(ctx, auction.ID, bid.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance watermark")
		}
		auction.CurrentBid = bid.Amount

		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventBidAccepted,
			AggregateType: enums.OutboxAggregateAuction,
			AggregateID:   auction.ID,
			Actor:         &outbox.ActorRef{UserID: input.BidderID},
			Data: map[string]any{
				"auction_id": auction.ID,
				"bid_id":     bid.ID,
				"amount":     bid.Amount.String(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit bid event")
		}

		if highest != nil && highest.BidderID != input.BidderID {
			payload := map[string]any{
				"auction_id": auction.ID,
				"amount":     bid.Amount.String(),
			}
			if err := s.notifications.Notify(ctx, tx, highest.BidderID, enums.NotificationBidOutbid, payload); err != nil {
				return err
			}
		}

		receipt = &BidReceipt{
			Bid:            &bid,
			Auction:        auction,
			MinimumNextBid: bid.Amount.Add(s.cfg.MinIncrement),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *service) ListBids(ctx context.Context, auctionID uuid.UUID, limit int, cursorValue string) (*BidsPage, error) {
	if _, err := s.repo.FindByID(ctx, auctionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup auction")
	}

	cursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListBids(ctx, auctionID, limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}

	page := &BidsPage{Bids: rows}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// resolveLive accepts either an auction id or a product slug and returns the
// auction only if it is live at the given instant. Anything else, including a
// correct id whose window has lapsed, reads as not found.
func (s *service) resolveLive(ctx context.Context, ref string, now time.Time) (*models.Auction, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction reference required")
	}

	if id, err := uuid.Parse(ref); err == nil {
		auction, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no live auction for this product")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup auction")
		}
		if err := validateLiveWindow(auction, now); err != nil {
			return nil, err
		}
		return auction, nil
	}

	product, err := s.products.FindBySlug(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no live auction for this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}

	auction, err := s.repo.FindLiveByProduct(ctx, product.ID, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no live auction for this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup auction")
	}
	return auction, nil
}

func rejectionReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "internal"
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation:
		return "invalid_amount"
	case pkgerrors.CodeStateConflict:
		return "too_low"
	case pkgerrors.CodeNotFound:
		return "not_live"
	case pkgerrors.CodeForbidden:
		return "self_bid"
	case pkgerrors.CodeConflict:
		return "contention"
	case pkgerrors.CodeTimeout:
		return "timeout"
	default:
		return "dependency"
	}
}
