package requests

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
)

func TestCreateRejectsNonPositiveQuantity(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)

	_, err := svc.Create(context.Background(), CreateInput{
		BuyerID:   uuid.New(),
		ProductID: uuid.New(),
		Quantity:  0,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateRejectsAuctionModeProduct(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	_, product := seedDirectProduct(t, conn, 10)
	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", product.ID).
		UpdateColumn("sale_mode", enums.SaleModeAuction).Error)

	_, err := svc.Create(context.Background(), CreateInput{
		BuyerID:   uuid.New(),
		ProductID: product.ID,
		Quantity:  1,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCreateReportsAvailableStock(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	_, product := seedDirectProduct(t, conn, 3)

	_, err := svc.Create(context.Background(), CreateInput{
		BuyerID:   uuid.New(),
		ProductID: product.ID,
		Quantity:  5,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, details["available_stock"])
}

func TestCreateNotifiesActiveStaff(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	tefa, product := seedDirectProduct(t, conn, 10)
	owner := seedMember(t, conn, tefa.ID, enums.MemberRoleOwner)
	operator := seedMember(t, conn, tefa.ID, enums.MemberRoleOperator)

	request, err := svc.Create(context.Background(), CreateInput{
		BuyerID:   uuid.New(),
		ProductID: product.ID,
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusPending, request.Status)

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).
		Where("type = ? AND recipient_id IN ?", enums.NotificationRequestReceived, []uuid.UUID{owner, operator}).
		Count(&count).Error)
	assert.Equal(t, int64(2), count, "every active member hears about the new request")
}

func TestAcceptDecrementsStockAndLinksWhatsApp(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	tefa, product := seedDirectProduct(t, conn, 5)
	operator := seedMember(t, conn, tefa.ID, enums.MemberRoleOperator)
	buyer := uuid.New()
	request := seedRequest(t, conn, product.ID, buyer, 2, enums.RequestStatusPending, time.Now().UTC())

	result, err := svc.Accept(context.Background(), DecideInput{
		RequestID: request.ID,
		TefaID:    tefa.ID,
		ActorID:   operator,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusAccepted, result.Request.Status)
	require.NotNil(t, result.Request.DecidedByID)
	assert.Equal(t, operator, *result.Request.DecidedByID)
	assert.True(t, strings.HasPrefix(result.WhatsAppLink, "https://wa.me/6281234567890"), result.WhatsAppLink)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 3, reloaded.Stock)

	var notified int64
	require.NoError(t, conn.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", buyer, enums.NotificationRequestDecided).
		Count(&notified).Error)
	assert.Equal(t, int64(1), notified)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.OutboxEventRequestAccepted, request.ID).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestAcceptInsufficientStockAtDecisionTime(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	tefa, product := seedDirectProduct(t, conn, 5)
	operator := seedMember(t, conn, tefa.ID, enums.MemberRoleOperator)
	request := seedRequest(t, conn, product.ID, uuid.New(), 4, enums.RequestStatusPending, time.Now().UTC())

	// Stock drained between request creation and the decision.
	require.NoError(t, conn.Model(&models.Product{}).
		Where("id = ?", product.ID).
		UpdateColumn("stock", 1).Error)

	_, err := svc.Accept(context.Background(), DecideInput{
		RequestID: request.ID,
		TefaID:    tefa.ID,
		ActorID:   operator,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// The aborted transaction leaves the request pending and stock untouched.
	var reloadedRequest models.PurchaseRequest
	require.NoError(t, conn.First(&reloadedRequest, "id = ?", request.ID).Error)
	assert.Equal(t, enums.RequestStatusPending, reloadedRequest.Status)

	var reloadedProduct models.Product
	require.NoError(t, conn.First(&reloadedProduct, "id = ?", product.ID).Error)
	assert.Equal(t, 1, reloadedProduct.Stock)
}

func TestAcceptForeignTefaForbidden(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	_, product := seedDirectProduct(t, conn, 5)
	request := seedRequest(t, conn, product.ID, uuid.New(), 1, enums.RequestStatusPending, time.Now().UTC())

	_, err := svc.Accept(context.Background(), DecideInput{
		RequestID: request.ID,
		TefaID:    uuid.New(),
		ActorID:   uuid.New(),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestRejectKeepsStock(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	tefa, product := seedDirectProduct(t, conn, 5)
	operator := seedMember(t, conn, tefa.ID, enums.MemberRoleOperator)
	buyer := uuid.New()
	request := seedRequest(t, conn, product.ID, buyer, 2, enums.RequestStatusPending, time.Now().UTC())

	decided, err := svc.Reject(context.Background(), DecideInput{
		RequestID: request.ID,
		TefaID:    tefa.ID,
		ActorID:   operator,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusRejected, decided.Status)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 5, reloaded.Stock, "rejection never touches stock")

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.OutboxEventRequestRejected, request.ID).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestDecideAlreadyDecidedRequest(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	tefa, product := seedDirectProduct(t, conn, 5)
	operator := seedMember(t, conn, tefa.ID, enums.MemberRoleOperator)
	request := seedRequest(t, conn, product.ID, uuid.New(), 1, enums.RequestStatusRejected, time.Now().UTC())

	_, err := svc.Accept(context.Background(), DecideInput{
		RequestID: request.ID,
		TefaID:    tefa.ID,
		ActorID:   operator,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCompleteRequiresAcceptedState(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	tefa, product := seedDirectProduct(t, conn, 5)
	operator := seedMember(t, conn, tefa.ID, enums.MemberRoleOperator)

	accepted := seedRequest(t, conn, product.ID, uuid.New(), 1, enums.RequestStatusAccepted, time.Now().UTC())
	done, err := svc.Complete(context.Background(), DecideInput{
		RequestID: accepted.ID,
		TefaID:    tefa.ID,
		ActorID:   operator,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusCompleted, done.Status)

	pending := seedRequest(t, conn, product.ID, uuid.New(), 1, enums.RequestStatusPending, time.Now().UTC())
	_, err = svc.Complete(context.Background(), DecideInput{
		RequestID: pending.ID,
		TefaID:    tefa.ID,
		ActorID:   operator,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCancelOnlyByOwningBuyer(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	_, product := seedDirectProduct(t, conn, 5)
	buyer := uuid.New()
	request := seedRequest(t, conn, product.ID, buyer, 1, enums.RequestStatusPending, time.Now().UTC())

	_, err := svc.Cancel(context.Background(), request.ID, uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	cancelled, err := svc.Cancel(context.Background(), request.ID, buyer)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusCancelled, cancelled.Status)

	// Cancellation is terminal.
	_, err = svc.Cancel(context.Background(), request.ID, buyer)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestListForBuyerPaginates(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	_, product := seedDirectProduct(t, conn, 50)
	buyer := uuid.New()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		seedRequest(t, conn, product.ID, buyer, 1, enums.RequestStatusPending, now.Add(time.Duration(i-10)*time.Minute))
	}

	page, err := svc.ListForBuyer(context.Background(), buyer, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Requests, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Requests[0].CreatedAt.After(page.Requests[1].CreatedAt), "newest first")

	rest, err := svc.ListForBuyer(context.Background(), buyer, 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, rest.Requests, 1)
	assert.Empty(t, rest.NextCursor)
}

func TestListForTefaFiltersStatus(t *testing.T) {
	conn := setupRequestsTestDB(t)
	svc := newRequestService(t, conn)
	tefa, product := seedDirectProduct(t, conn, 50)
	now := time.Now().UTC()

	seedRequest(t, conn, product.ID, uuid.New(), 1, enums.RequestStatusPending, now.Add(-2*time.Minute))
	seedRequest(t, conn, product.ID, uuid.New(), 1, enums.RequestStatusAccepted, now.Add(-time.Minute))

	pending := enums.RequestStatusPending
	page, err := svc.ListForTefa(context.Background(), tefa.ID, &pending, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Requests, 1)
	assert.Equal(t, enums.RequestStatusPending, page.Requests[0].Status)

	page, err = svc.ListForTefa(context.Background(), tefa.ID, nil, 10, "")
	require.NoError(t, err)
	assert.Len(t, page.Requests, 2)
}
