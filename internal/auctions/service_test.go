package auctions

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/internal/notifications"
	"github.com/tefamart/tefamart-backend/internal/products"
	"github.com/tefamart/tefamart-backend/pkg/config"
	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/logger"
	"github.com/tefamart/tefamart-backend/pkg/outbox"
)

func newAuctionService(t *testing.T, conn *gorm.DB) *service {
	t.Helper()

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		DB: db.FromConn(conn),
		Config: config.AuctionConfig{
			MinIncrement:   decimal.NewFromInt(10000),
			BidRetries:     3,
			BidTimeout:     5 * time.Second,
			ForbidSelfBids: true,
		},
		Repo:            NewRepository(conn),
		ProductsRepo:    products.NewRepository(conn),
		MembershipsRepo: memberships.NewRepository(conn),
		Notifications:   notificationService,
		Outbox:          outbox.NewService(outbox.NewRepository(conn), logger.New(logger.Options{ServiceName: "test"})),
		Logger:          logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)

	impl, ok := svc.(*service)
	require.True(t, ok)
	return impl
}

func TestNewServiceRequiresPositiveIncrement(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)

	_, err = NewService(ServiceParams{
		DB:              db.FromConn(conn),
		Config:          config.AuctionConfig{MinIncrement: decimal.Zero},
		Repo:            NewRepository(conn),
		ProductsRepo:    products.NewRepository(conn),
		MembershipsRepo: memberships.NewRepository(conn),
		Notifications:   notificationService,
		Outbox:          outbox.NewService(outbox.NewRepository(conn), logger.New(logger.Options{ServiceName: "test"})),
		Logger:          logger.New(logger.Options{ServiceName: "test"}),
	})
	require.Error(t, err)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	tefa, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()

	cases := []struct {
		name  string
		input CreateInput
		code  pkgerrors.Code
	}{
		{
			name: "zero start price",
			input: CreateInput{
				TefaID: tefa.ID, ProductID: product.ID,
				StartPrice: decimal.Zero,
				StartTime:  now, EndTime: now.Add(time.Hour),
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "end before start",
			input: CreateInput{
				TefaID: tefa.ID, ProductID: product.ID,
				StartPrice: decimal.NewFromInt(100000),
				StartTime:  now.Add(time.Hour), EndTime: now,
			},
			code: pkgerrors.CodeValidation,
		},
		{
			name: "unknown product",
			input: CreateInput{
				TefaID: tefa.ID, ProductID: uuid.New(),
				StartPrice: decimal.NewFromInt(100000),
				StartTime:  now, EndTime: now.Add(time.Hour),
			},
			code: pkgerrors.CodeNotFound,
		},
		{
			name: "foreign tefa",
			input: CreateInput{
				TefaID: uuid.New(), ProductID: product.ID,
				StartPrice: decimal.NewFromInt(100000),
				StartTime:  now, EndTime: now.Add(time.Hour),
			},
			code: pkgerrors.CodeForbidden,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tc.code, typed.Code())
		})
	}
}

func TestCreateRejectsDirectSaleProduct(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	tefa, product := seedAuctionProduct(t, conn, enums.SaleModeDirect)
	now := time.Now().UTC()

	_, err := svc.Create(context.Background(), CreateInput{
		TefaID: tefa.ID, ProductID: product.ID,
		StartPrice: decimal.NewFromInt(100000),
		StartTime:  now, EndTime: now.Add(time.Hour),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCreateSchedulesPendingAuction(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	tefa, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()

	auction, err := svc.Create(context.Background(), CreateInput{
		TefaID: tefa.ID, ProductID: product.ID,
		StartPrice: decimal.NewFromInt(100000),
		StartTime:  now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AuctionStatusPending, auction.Status)
	assert.True(t, auction.CurrentBid.IsZero())
}

func TestCreateRejectsSecondOpenAuction(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	tefa, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()

	input := CreateInput{
		TefaID: tefa.ID, ProductID: product.ID,
		StartPrice: decimal.NewFromInt(100000),
		StartTime:  now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
	}
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	input.StartTime = now.Add(3 * time.Hour)
	input.EndTime = now.Add(4 * time.Hour)
	_, err = svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestGetLiveResolvesByProductSlug(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	view, err := svc.GetLive(context.Background(), product.Slug)
	require.NoError(t, err)
	assert.Equal(t, auction.ID, view.Auction.ID)
	assert.Equal(t, product.ID, view.Product.ID)
	assert.True(t, view.MinimumNextBid.Equal(auction.StartPrice), "empty ledger floor is the start price")
}

func TestGetLiveResolvesByAuctionID(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))
	seedBid(t, conn, auction.ID, uuid.New(), 120000, now.Add(-10*time.Minute))

	view, err := svc.GetLive(context.Background(), auction.ID.String())
	require.NoError(t, err)
	assert.True(t, view.MinimumNextBid.Equal(decimal.NewFromInt(130000)), "floor follows the ledger")
}

func TestGetLiveExpiredWindowReadsAsNotFound(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-2*time.Hour), now.Add(-time.Hour))

	_, err := svc.GetLive(context.Background(), auction.ID.String())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestPlaceBidRejectsFractionalAmount(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)

	_, err := svc.PlaceBid(context.Background(), PlaceBidInput{
		Ref:      uuid.NewString(),
		BidderID: uuid.New(),
		Amount:   decimal.RequireFromString("100000.25"),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestPlaceBidUnknownRefReadsAsNotFound(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)

	_, err := svc.PlaceBid(context.Background(), PlaceBidInput{
		Ref:      uuid.NewString(),
		BidderID: uuid.New(),
		Amount:   decimal.NewFromInt(100000),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestPlaceBidForbidsTefaMembers(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	tefa, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	staff := uuid.New()
	require.NoError(t, conn.Create(&models.TefaMembership{
		ID:     uuid.New(),
		TefaID: tefa.ID,
		UserID: staff,
		Role:   enums.MemberRoleOperator,
		Status: enums.MembershipStatusActive,
	}).Error)

	_, err := svc.PlaceBid(context.Background(), PlaceBidInput{
		Ref:      product.Slug,
		BidderID: staff,
		Amount:   decimal.NewFromInt(100000),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestTryAcceptBidFirstBidAtStartPrice(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	bidder := uuid.New()
	receipt, err := svc.tryAcceptBid(context.Background(), &sql.TxOptions{}, auction.ID, PlaceBidInput{
		BidderID: bidder,
		Amount:   decimal.NewFromInt(100000),
	})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, bidder, receipt.Bid.BidderID)
	assert.True(t, receipt.MinimumNextBid.Equal(decimal.NewFromInt(110000)))

	var reloaded models.Auction
	require.NoError(t, conn.First(&reloaded, "id = ?", auction.ID).Error)
	assert.True(t, reloaded.CurrentBid.Equal(decimal.NewFromInt(100000)), "watermark advances with acceptance")

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.OutboxEventBidAccepted, auction.ID).
		Count(&events).Error)
	assert.Equal(t, int64(1), events, "acceptance emits exactly one outbox event")
}

func TestTryAcceptBidBelowFloorReportsMinimum(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))
	seedBid(t, conn, auction.ID, uuid.New(), 120000, now.Add(-10*time.Minute))

	_, err := svc.tryAcceptBid(context.Background(), &sql.TxOptions{}, auction.ID, PlaceBidInput{
		BidderID: uuid.New(),
		Amount:   decimal.NewFromInt(125000),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "130000", details["minimum_next_bid"])

	// Rejected bids never touch the ledger or the watermark.
	var count int64
	require.NoError(t, conn.Model(&models.Bid{}).Where("auction_id = ?", auction.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTryAcceptBidSameMinimumSingleWinner(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	// Both bidders propose exactly the current minimum against the same
	// watermark. The second attempt re-reads under the lock and must see the
	// floor the first acceptance raised.
	atMinimum := decimal.NewFromInt(100000)
	winner := uuid.New()
	receipt, err := svc.tryAcceptBid(context.Background(), &sql.TxOptions{}, auction.ID, PlaceBidInput{
		BidderID: winner,
		Amount:   atMinimum,
	})
	require.NoError(t, err)
	assert.Equal(t, winner, receipt.Bid.BidderID)

	_, err = svc.tryAcceptBid(context.Background(), &sql.TxOptions{}, auction.ID, PlaceBidInput{
		BidderID: uuid.New(),
		Amount:   atMinimum,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "110000", details["minimum_next_bid"], "loser sees the advanced floor")

	var count int64
	require.NoError(t, conn.Model(&models.Bid{}).Where("auction_id = ?", auction.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "exactly one of the two proposals lands in the ledger")

	var reloaded models.Auction
	require.NoError(t, conn.First(&reloaded, "id = ?", auction.ID).Error)
	assert.True(t, reloaded.CurrentBid.Equal(atMinimum))
}

func TestTryAcceptBidLedgerStrictlyIncreasing(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	for _, amount := range []int64{100000, 110000, 125000} {
		_, err := svc.tryAcceptBid(context.Background(), &sql.TxOptions{}, auction.ID, PlaceBidInput{
			BidderID: uuid.New(),
			Amount:   decimal.NewFromInt(amount),
		})
		require.NoError(t, err)
	}

	// Repeating the accepted high is below the new floor and must not land.
	_, err := svc.tryAcceptBid(context.Background(), &sql.TxOptions{}, auction.ID, PlaceBidInput{
		BidderID: uuid.New(),
		Amount:   decimal.NewFromInt(125000),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	var bids []models.Bid
	require.NoError(t, conn.
		Where("auction_id = ?", auction.ID).
		Order("created_at ASC, id ASC").
		Find(&bids).Error)
	require.Len(t, bids, 3)
	for i := 1; i < len(bids); i++ {
		assert.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount),
			"accepted amounts must be strictly increasing in acceptance order")
	}

	var reloaded models.Auction
	require.NoError(t, conn.First(&reloaded, "id = ?", auction.ID).Error)
	assert.True(t, reloaded.CurrentBid.Equal(bids[len(bids)-1].Amount), "watermark tracks the ledger maximum")
}

func TestTryAcceptBidNotifiesOutbidBidder(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	first := uuid.New()
	seedBid(t, conn, auction.ID, first, 120000, now.Add(-10*time.Minute))

	receipt, err := svc.tryAcceptBid(context.Background(), &sql.TxOptions{}, auction.ID, PlaceBidInput{
		BidderID: uuid.New(),
		Amount:   decimal.NewFromInt(130000),
	})
	require.NoError(t, err)
	assert.True(t, receipt.Auction.CurrentBid.Equal(decimal.NewFromInt(130000)))

	var notification models.Notification
	require.NoError(t, conn.First(&notification, "recipient_id = ?", first).Error)
	assert.Equal(t, enums.NotificationBidOutbid, notification.Type)
}

func TestTryAcceptBidSelfOutbidSkipsNotification(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)
	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	bidder := uuid.New()
	seedBid(t, conn, auction.ID, bidder, 120000, now.Add(-10*time.Minute))

	_, err := svc.tryAcceptBid(context.Background(), &sql.TxOptions{}, auction.ID, PlaceBidInput{
		BidderID: bidder,
		Amount:   decimal.NewFromInt(130000),
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Where("recipient_id = ?", bidder).Count(&count).Error)
	assert.Equal(t, int64(0), count, "raising your own bid is not an outbid")
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, *gorm.DB, uuid.UUID, enums.NotificationType, any) error {
	return pkgerrors.New(pkgerrors.CodeDependency, "notification store unavailable")
}

func (failingNotifier) NotifyMany(context.Context, *gorm.DB, []uuid.UUID, enums.NotificationType, any) error {
	return pkgerrors.New(pkgerrors.CodeDependency, "notification store unavailable")
}

func TestTryAcceptBidRollsBackOnLateFailure(t *testing.T) {
	conn := setupAuctionsTestDB(t)

	svc, err := NewService(ServiceParams{
		DB: db.FromConn(conn),
		Config: config.AuctionConfig{
			MinIncrement: decimal.NewFromInt(10000),
			BidRetries:   3,
			BidTimeout:   5 * time.Second,
		},
		Repo:            NewRepository(conn),
		ProductsRepo:    products.NewRepository(conn),
		MembershipsRepo: memberships.NewRepository(conn),
		Notifications:   failingNotifier{},
		Outbox:          outbox.NewService(outbox.NewRepository(conn), logger.New(logger.Options{ServiceName: "test"})),
		Logger:          logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)
	impl, ok := svc.(*service)
	require.True(t, ok)

	_, product := seedAuctionProduct(t, conn, enums.SaleModeAuction)
	now := time.Now().UTC()
	auction := seedAuction(t, conn, product.ID, enums.AuctionStatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	prior := uuid.New()
	seedBid(t, conn, auction.ID, prior, 120000, now.Add(-10*time.Minute))
	watermark := decimal.NewFromInt(120000)
	require.NoError(t, conn.Model(&models.Auction{}).
		Where("id = ?", auction.ID).
		UpdateColumn("current_bid", watermark).Error)

	// The outbid notification fails after the bid row and watermark were
	// written inside the transaction, so the whole attempt must unwind.
	_, err = impl.tryAcceptBid(context.Background(), &sql.TxOptions{}, auction.ID, PlaceBidInput{
		BidderID: uuid.New(),
		Amount:   decimal.NewFromInt(130000),
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.Bid{}).Where("auction_id = ?", auction.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "the aborted bid must not reach the ledger")

	var reloaded models.Auction
	require.NoError(t, conn.First(&reloaded, "id = ?", auction.ID).Error)
	assert.True(t, reloaded.CurrentBid.Equal(watermark), "the watermark must not advance on a failed attempt")

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ?", auction.ID).
		Count(&events).Error)
	assert.Equal(t, int64(0), events, "no event survives a rolled-back acceptance")
}

func TestListBidsUnknownAuction(t *testing.T) {
	conn := setupAuctionsTestDB(t)
	svc := newAuctionService(t, conn)

	_, err := svc.ListBids(context.Background(), uuid.New(), 10, "")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
