package products

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/pagination"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	statements := []string{
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
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	return conn
}

func newProductService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:            NewRepository(conn),
		MembershipsRepo: memberships.NewRepository(conn),
	})
	require.NoError(t, err)
	return svc
}

func seedOperator(t *testing.T, conn *gorm.DB, tefaID uuid.UUID) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	require.NoError(t, conn.Create(&models.TefaMembership{
		ID:     uuid.New(),
		TefaID: tefaID,
		UserID: userID,
		Role:   enums.MemberRoleOperator,
		Status: enums.MembershipStatusActive,
	}).Error)
	return userID
}

func TestCreateProductValidation(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)
	tefaID := uuid.New()
	operator := seedOperator(t, conn, tefaID)

	base := CreateInput{
		TefaID:     tefaID,
		ActorID:    operator,
		CategoryID: uuid.New(),
		Name:       "Keripik Singkong",
		Price:      decimal.NewFromInt(15000),
		Stock:      20,
		SaleMode:   enums.SaleModeDirect,
	}

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty name", func(in *CreateInput) { in.Name = "   " }},
		{"invalid sale mode", func(in *CreateInput) { in.SaleMode = enums.SaleMode("raffle") }},
		{"zero price", func(in *CreateInput) { in.Price = decimal.Zero }},
		{"negative stock", func(in *CreateInput) { in.Stock = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := base
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), input)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}

func TestCreateProductRequiresCatalogRole(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)

	_, err := svc.Create(context.Background(), CreateInput{
		TefaID:     uuid.New(),
		ActorID:    uuid.New(),
		CategoryID: uuid.New(),
		Name:       "Keripik Singkong",
		Price:      decimal.NewFromInt(15000),
		Stock:      20,
		SaleMode:   enums.SaleModeDirect,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCreateProductSlugsName(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)
	tefaID := uuid.New()
	operator := seedOperator(t, conn, tefaID)

	product, err := svc.Create(context.Background(), CreateInput{
		TefaID:     tefaID,
		ActorID:    operator,
		CategoryID: uuid.New(),
		Name:       "  Keripik Singkong Pedas  ",
		Price:      decimal.NewFromInt(15000),
		Stock:      20,
		SaleMode:   enums.SaleModeDirect,
	})
	require.NoError(t, err)
	assert.Equal(t, "Keripik Singkong Pedas", product.Name)
	assert.True(t, strings.HasPrefix(product.Slug, "keripik-singkong-pedas-"), product.Slug)
	assert.True(t, product.IsActive)
}

func TestUpdateProductPartialFields(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)
	tefaID := uuid.New()
	operator := seedOperator(t, conn, tefaID)

	product, err := svc.Create(context.Background(), CreateInput{
		TefaID:     tefaID,
		ActorID:    operator,
		CategoryID: uuid.New(),
		Name:       "Keripik Singkong",
		Price:      decimal.NewFromInt(15000),
		Stock:      20,
		SaleMode:   enums.SaleModeDirect,
	})
	require.NoError(t, err)

	newPrice := decimal.NewFromInt(18000)
	updated, err := svc.Update(context.Background(), UpdateInput{
		TefaID:    tefaID,
		ActorID:   operator,
		ProductID: product.ID,
		Price:     &newPrice,
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, product.Name, updated.Name, "untouched fields survive")
	assert.Equal(t, product.Stock, updated.Stock)

	bad := decimal.Zero
	_, err = svc.Update(context.Background(), UpdateInput{
		TefaID:    tefaID,
		ActorID:   operator,
		ProductID: product.ID,
		Price:     &bad,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateProductForeignTefa(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)
	tefaID := uuid.New()
	operator := seedOperator(t, conn, tefaID)

	product, err := svc.Create(context.Background(), CreateInput{
		TefaID:     tefaID,
		ActorID:    operator,
		CategoryID: uuid.New(),
		Name:       "Keripik Singkong",
		Price:      decimal.NewFromInt(15000),
		Stock:      20,
		SaleMode:   enums.SaleModeDirect,
	})
	require.NoError(t, err)

	otherTefa := uuid.New()
	otherOperator := seedOperator(t, conn, otherTefa)
	name := "Hijacked"
	_, err = svc.Update(context.Background(), UpdateInput{
		TefaID:    otherTefa,
		ActorID:   otherOperator,
		ProductID: product.ID,
		Name:      &name,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestDeactivateHidesFromCatalog(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)
	tefaID := uuid.New()
	operator := seedOperator(t, conn, tefaID)

	product, err := svc.Create(context.Background(), CreateInput{
		TefaID:     tefaID,
		ActorID:    operator,
		CategoryID: uuid.New(),
		Name:       "Keripik Singkong",
		Price:      decimal.NewFromInt(15000),
		Stock:      20,
		SaleMode:   enums.SaleModeDirect,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), tefaID, operator, product.ID))

	_, err = svc.Get(context.Background(), product.Slug)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	// Deactivation is idempotent only in effect; the second call finds nothing.
	err = svc.Deactivate(context.Background(), tefaID, operator, product.ID)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListFiltersByTefaAndPaginates(t *testing.T) {
	conn := setupProductsTestDB(t)
	svc := newProductService(t, conn)
	tefaID := uuid.New()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, conn.Create(&models.Product{
			ID:         uuid.New(),
			TefaID:     tefaID,
			CategoryID: uuid.New(),
			Name:       "Produk",
			Slug:       "produk-" + uuid.NewString()[:8],
			Price:      decimal.NewFromInt(10000),
			SaleMode:   enums.SaleModeDirect,
			IsActive:   true,
			CreatedAt:  now.Add(time.Duration(i-10) * time.Minute),
		}).Error)
	}
	require.NoError(t, conn.Create(&models.Product{
		ID:         uuid.New(),
		TefaID:     uuid.New(),
		CategoryID: uuid.New(),
		Name:       "Produk Lain",
		Slug:       "produk-lain-" + uuid.NewString()[:8],
		Price:      decimal.NewFromInt(10000),
		SaleMode:   enums.SaleModeDirect,
		IsActive:   true,
		CreatedAt:  now,
	}).Error)

	page, err := svc.List(context.Background(), ListFilter{TefaID: &tefaID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	require.NotEmpty(t, page.NextCursor)
	for _, row := range page.Products {
		assert.Equal(t, tefaID, row.TefaID)
	}

	cursor, err := pagination.ParseCursor(page.NextCursor)
	require.NoError(t, err)
	rest, err := svc.List(context.Background(), ListFilter{TefaID: &tefaID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest.Products, 1)
	assert.Empty(t, rest.NextCursor)
}
