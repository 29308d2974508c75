package auctions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
)

func setupAuctionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE tefas (
  id TEXT PRIMARY KEY,
  campus_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  logo_url TEXT,
  whatsapp_number TEXT,
  owner_id TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  tefa_id TEXT NOT NULL,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT,
  price NUMERIC NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  sale_mode TEXT NOT NULL DEFAULT 'direct',
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE auctions (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  start_price NUMERIC NOT NULL,
  current_bid NUMERIC NOT NULL DEFAULT 0,
  start_time DATETIME NOT NULL,
  end_time DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  winning_bid_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE bids (
  id TEXT PRIMARY KEY,
  auction_id TEXT NOT NULL,
  bidder_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME
);`,
		`CREATE TABLE tefa_memberships (
  id TEXT PRIMARY KEY,
  tefa_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  status TEXT NOT NULL,
  invited_by_user_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  recipient_id TEXT NOT NULL,
  type TEXT NOT NULL,
  payload TEXT,
  read_at DATETIME,
  created_at DATETIME
);`,
		`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	return conn
}

func seedAuctionProduct(t *testing.T, conn *gorm.DB, saleMode enums.SaleMode) (*models.Tefa, *models.Product) {
	t.Helper()

	tefa := &models.Tefa{
		ID:       uuid.New(),
		CampusID: uuid.New(),
		Name:     "TEFA Boga",
		Slug:     "tefa-boga-" + uuid.NewString()[:8],
		OwnerID:  uuid.New(),
		IsActive: true,
	}
	require.NoError(t, conn.Create(tefa).Error)

	product := &models.Product{
		ID:         uuid.New(),
		TefaID:     tefa.ID,
		CategoryID: uuid.New(),
		Name:       "Roti Sourdough",
		Slug:       "roti-sourdough-" + uuid.NewString()[:8],
		Price:      decimal.NewFromInt(50000),
		Stock:      10,
		SaleMode:   saleMode,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(product).Error)

	return tefa, product
}

func seedAuction(t *testing.T, conn *gorm.DB, productID uuid.UUID, status enums.AuctionStatus, start, end time.Time) *models.Auction {
	t.Helper()

	auction := &models.Auction{
		ID:         uuid.New(),
		ProductID:  productID,
		StartPrice: decimal.NewFromInt(100000),
		CurrentBid: decimal.Zero,
		StartTime:  start,
		EndTime:    end,
		Status:     status,
	}
	require.NoError(t, conn.Create(auction).Error)
	return auction
}

func seedBid(t *testing.T, conn *gorm.DB, auctionID, bidderID uuid.UUID, amount int64, createdAt time.Time) *models.Bid {
	t.Helper()

	bid := &models.Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    decimal.NewFromInt(amount),
		Status:    enums.BidStatusActive,
		CreatedAt: createdAt,
	}
	require.NoError(t, conn.Create(bid).Error)
	return bid
}
