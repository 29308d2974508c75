package requests

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/internal/notifications"
	"github.com/tefamart/tefamart-backend/internal/products"
	"github.com/tefamart/tefamart-backend/internal/tefas"
	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	"github.com/tefamart/tefamart-backend/pkg/logger"
	"github.com/tefamart/tefamart-backend/pkg/outbox"
)

func setupRequestsTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE purchase_requests (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  note TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  decided_by_id TEXT,
  decided_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
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

func newRequestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		DB:              db.FromConn(conn),
		Repo:            NewRepository(conn),
		ProductsRepo:    products.NewRepository(conn),
		TefasRepo:       tefas.NewRepository(conn),
		MembershipsRepo: memberships.NewRepository(conn),
		Notifications:   notificationService,
		Outbox:          outbox.NewService(outbox.NewRepository(conn), logger.New(logger.Options{ServiceName: "test"})),
		Logger:          logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)
	return svc
}

func seedDirectProduct(t *testing.T, conn *gorm.DB, stock int) (*models.Tefa, *models.Product) {
	t.Helper()

	number := "+62 812-3456-7890"
	tefa := &models.Tefa{
		ID:             uuid.New(),
		CampusID:       uuid.New(),
		Name:           "TEFA Busana",
		Slug:           "tefa-busana-" + uuid.NewString()[:8],
		WhatsAppNumber: &number,
		OwnerID:        uuid.New(),
		IsActive:       true,
	}
	require.NoError(t, conn.Create(tefa).Error)

	product := &models.Product{
		ID:         uuid.New(),
		TefaID:     tefa.ID,
		CategoryID: uuid.New(),
		Name:       "Batik Tulis",
		Slug:       "batik-tulis-" + uuid.NewString()[:8],
		Price:      decimal.NewFromInt(250000),
		Stock:      stock,
		SaleMode:   enums.SaleModeDirect,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(product).Error)

	return tefa, product
}

func seedMember(t *testing.T, conn *gorm.DB, tefaID uuid.UUID, role enums.MemberRole) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	require.NoError(t, conn.Create(&models.TefaMembership{
		ID:     uuid.New(),
		TefaID: tefaID,
		UserID: userID,
		Role:   role,
		Status: enums.MembershipStatusActive,
	}).Error)
	return userID
}

func seedRequest(t *testing.T, conn *gorm.DB, productID, buyerID uuid.UUID, quantity int, status enums.RequestStatus, createdAt time.Time) *models.PurchaseRequest {
	t.Helper()

	request := &models.PurchaseRequest{
		ID:        uuid.New(),
		ProductID: productID,
		BuyerID:   buyerID,
		Quantity:  quantity,
		Status:    status,
		CreatedAt: createdAt,
	}
	require.NoError(t, conn.Create(request).Error)
	return request
}
