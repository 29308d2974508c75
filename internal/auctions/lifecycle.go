package auctions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/internal/products"
	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/logger"
	"github.com/tefamart/tefamart-backend/pkg/outbox"
)

const sweepBatchSize = 100

// Lifecycle owns the timed transitions the request path never performs:
// opening pending auctions, closing expired ones, and auditing the watermark
// against the ledger.
type Lifecycle struct {
	db            *db.Client
	repo          Repository
	products      products.Repository
	memberships   memberships.Repository
	notifications notifier
	outbox        *outbox.Service
	logg          *logger.Logger
}

// LifecycleParams bundles the dependencies for auction lifecycle sweeps.
type LifecycleParams struct {
	DB              *db.Client
	Repo            Repository
	ProductsRepo    products.Repository
	MembershipsRepo memberships.Repository
	Notifications   notifier
	Outbox          *outbox.Service
	Logger          *logger.Logger
}

// NewLifecycle wires the sweep dependencies.
func NewLifecycle(params LifecycleParams) (*Lifecycle, error) {
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
	return &Lifecycle{
		db:            params.DB,
		repo:          params.Repo,
		products:      params.ProductsRepo,
		memberships:   params.MembershipsRepo,
		notifications: params.Notifications,
		outbox:        params.Outbox,
		logg:          params.Logger,
	}, nil
}

// ActivateDue opens pending auctions whose window has started. The transition
// is a compare-and-set, so a concurrent sweep or cancel wins harmlessly.
func (l *Lifecycle) ActivateDue(ctx context.Context, now time.Time) (int, error) {
	due, err := l.repo.ListDueToActivate(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending auctions")
	}

	activated := 0
	for _, auction := range due {
		affected, err := l.repo.UpdateStatus(ctx, auction.ID, enums.AuctionStatusPending, enums.AuctionStatusActive)
		if err != nil {
			return activated, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate auction")
		}
		if affected > 0 {
			activated++
			logCtx := l.logg.WithField(ctx, "auction_id", auction.ID.String())
			l.logg.Info(logCtx, "auction opened")
		}
	}
	return activated, nil
}

// CloseDue ends active auctions past their window: the highest ledger entry
// wins, every other bid is marked missed, and the closure event and
// notifications commit with the status change.
func (l *Lifecycle) CloseDue(ctx context.Context, now time.Time) (int, error) {
	due, err := l.repo.ListDueToEnd(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired auctions")
	}

	closed := 0
	for _, auction := range due {
		if err := l.closeOne(ctx, auction.ID, now); err != nil {
			logCtx := l.logg.WithField(ctx, "auction_id", auction.ID.String())
			l.logg.Error(logCtx, "auction close failed", err)
			continue
		}
		closed++
	}
	return closed, nil
}

func (l *Lifecycle) closeOne(ctx context.Context, auctionID uuid.UUID, now time.Time) error {
	return l.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := l.repo.WithTx(tx)

		auction, err := repo.FindByIDForUpdate(ctx, auctionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if auction.Status != enums.AuctionStatusActive || auction.EndTime.After(now) {
			return nil
		}

		winner, err := repo.HighestBid(ctx, auction.ID)
		if err != nil {
			return err
		}

		var winnerBidID *uuid.UUID
		if winner != nil {
			winnerBidID = &winner.ID
		}
		if err := repo.MarkBidStatuses(ctx, auction.ID, winnerBidID); err != nil {
			return err
		}
		if err := repo.CloseWithWinner(ctx, auction.ID, winnerBidID); err != nil {
			return err
		}

		data := map[string]any{
			"auction_id": auction.ID,
			"product_id": auction.ProductID,
		}
		if winner != nil {
			data["winning_bid_id"] = winner.ID
			data["winner_id"] = winner.BidderID
			data["amount"] = winner.Amount.String()
		}
		event := outbox.DomainEvent{
			EventType:     enums.OutboxEventAuctionEnded,
			AggregateType: enums.OutboxAggregateAuction,
			AggregateID:   auction.ID,
			Data:          data,
		}
		if err := l.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if err := l.notifyClosure(ctx, tx, auction, winner); err != nil {
			return err
		}

		logCtx := l.logg.WithField(ctx, "auction_id", auction.ID.String())
		l.logg.Info(logCtx, "auction closed")
		return nil
	})
}

func (l *Lifecycle) notifyClosure(ctx context.Context, tx *gorm.DB, auction *models.Auction, winner *models.Bid) error {
	product, err := l.products.WithTx(tx).FindByID(ctx, auction.ProductID)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"auction_id":   auction.ID,
		"product_id":   product.ID,
		"product_name": product.Name,
	}
	if winner != nil {
		payload["amount"] = winner.Amount.String()
		if err := l.notifications.Notify(ctx, tx, winner.BidderID, enums.NotificationAuctionWon, payload); err != nil {
			return err
		}
	}

	staff, err := l.memberships.ListActiveUserIDs(ctx, product.TefaID)
	if err != nil {
		return err
	}
	return l.notifications.NotifyMany(ctx, tx, staff, enums.NotificationAuctionEnded, payload)
}

// AuditWatermarks repairs any auction whose current_bid disagrees with the
// ledger maximum. Mismatches should never happen; each repair is logged loudly
// so drift gets investigated.
func (l *Lifecycle) AuditWatermarks(ctx context.Context) (int, error) {
	mismatches, err := l.repo.FindWatermarkMismatches(ctx, sweepBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan watermarks")
	}

	repaired := 0
	for _, mismatch := range mismatches {
		if err := l.repo.RepairWatermark(ctx, mismatch.AuctionID, mismatch.LedgerMax); err != nil {
			return repaired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "repair watermark")
		}
		repaired++

		logCtx := l.logg.WithFields(ctx, map[string]any{
			"auction_id":  mismatch.AuctionID.String(),
			"current_bid": mismatch.CurrentBid.String(),
			"ledger_max":  mismatch.LedgerMax.String(),
		})
		l.logg.Warn(logCtx, "watermark drift repaired from ledger")
	}
	return repaired, nil
}
