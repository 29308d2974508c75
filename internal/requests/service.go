package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/internal/products"
	"github.com/tefamart/tefamart-backend/internal/tefas"
	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/logger"
	"github.com/tefamart/tefamart-backend/pkg/outbox"
	"github.com/tefamart/tefamart-backend/pkg/pagination"
	"github.com/tefamart/tefamart-backend/pkg/whatsapp"
)

// CreateInput carries a buyer's order intent.
type CreateInput struct {
	BuyerID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Note      *string
}

// DecideInput identifies a pending request and the member deciding it.
type DecideInput struct {
	RequestID uuid.UUID
	TefaID    uuid.UUID
	ActorID   uuid.UUID
}

// AcceptResult returns the decided request plus the handoff contact link.
type AcceptResult struct {
	Request      *models.PurchaseRequest
	WhatsAppLink string
}

// ListPage is one page of purchase requests.
type ListPage struct {
	Requests   []models.PurchaseRequest
	NextCursor string
}

// notifier inserts in-app notifications inside the caller's transaction.
type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, kind enums.NotificationType, payload any) error
	NotifyMany(ctx context.Context, tx *gorm.DB, recipientIDs []uuid.UUID, kind enums.NotificationType, payload any) error
}

// Service defines purchase request operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseRequest, error)
	ListForTefa(ctx context.Context, tefaID uuid.UUID, status *enums.RequestStatus, limit int, cursor string) (*ListPage, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursor string) (*ListPage, error)
	Accept(ctx context.Context, input DecideInput) (*AcceptResult, error)
	Reject(ctx context.Context, input DecideInput) (*models.PurchaseRequest, error)
	Complete(ctx context.Context, input DecideInput) (*models.PurchaseRequest, error)
	Cancel(ctx context.Context, requestID, buyerID uuid.UUID) (*models.PurchaseRequest, error)
}

type service struct {
	db            *db.Client
	repo          Repository
	products      products.Repository
	tefas         tefas.Repository
	memberships   memberships.Repository
	notifications notifier
	outbox        *outbox.Service
	logg          *logger.Logger
}

// ServiceParams bundles the dependencies for the purchase request service.
type ServiceParams struct {
	DB              *db.Client
	Repo            Repository
	ProductsRepo    products.Repository
	TefasRepo       tefas.Repository
	MembershipsRepo memberships.Repository
	Notifications   notifier
	Outbox          *outbox.Service
	Logger          *logger.Logger
}

// NewService wires purchase request dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests repository required")
	}
	if params.ProductsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	if params.TefasRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tefas repository required")
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
	return &service{
		db:            params.DB,
		repo:          params.Repo,
		products:      params.ProductsRepo,
		tefas:         params.TefasRepo,
		memberships:   params.MembershipsRepo,
		notifications: params.Notifications,
		outbox:        params.Outbox,
		logg:          params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseRequest, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.SaleMode != enums.SaleModeDirect {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not sold at a fixed price")
	}
	if product.Stock < input.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
			WithDetails(map[string]any{"available_stock": product.Stock})
	}

	request := models.PurchaseRequest{
		ProductID: product.ID,
		BuyerID:   input.BuyerID,
		Quantity:  input.Quantity,
		Note:      input.Note,
		Status:    enums.RequestStatusPending,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase request")
		}
		staff, err := s.memberships.ListActiveUserIDs(ctx, product.TefaID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tefa members")
		}
		payload := map[string]any{
			"request_id":   request.ID,
			"product_id":   product.ID,
			"product_name": product.Name,
			"quantity":     request.Quantity,
		}
		return s.notifications.NotifyMany(ctx, tx, staff, enums.NotificationRequestReceived, payload)
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *service) ListForTefa(ctx context.Context, tefaID uuid.UUID, status *enums.RequestStatus, limit int, cursorValue string) (*ListPage, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request status")
	}
	cursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListByTefa(ctx, TefaListFilter{
		TefaID: tefaID,
		Status: status,
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	return buildPage(rows, next), nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, limit int, cursorValue string) (*ListPage, error) {
	cursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListByBuyer(ctx, buyerID, limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	return buildPage(rows, next), nil
}

// Accept decides a pending request in favor of the buyer. Stock is decremented
// in the same transaction; a shortfall at decision time rejects the accept.
func (s *service) Accept(ctx context.Context, input DecideInput) (*AcceptResult, error) {
	var (
		request *models.PurchaseRequest
		product *models.Product
	)

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		request, product, err = s.lockPendingRequest(ctx, tx, input)
		if err != nil {
			return err
		}

		affected, err := s.products.WithTx(tx).DecrementStock(tx, product.ID, request.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]any{"available_stock": product.Stock})
		}

		now := time.Now().UTC()
		request.Status = enums.RequestStatusAccepted
		request.DecidedByID = &input.ActorID
		request.DecidedAt = &now
		if err := s.repo.WithTx(tx).Update(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
		}

		if err := s.emitDecision(ctx, tx, enums.OutboxEventRequestAccepted, request, input); err != nil {
			return err
		}
		return s.notifyBuyer(ctx, tx, request, product, "accepted")
	})
	if err != nil {
		return nil, err
	}

	result := &AcceptResult{Request: request}
	tefa, err := s.tefas.FindByID(ctx, input.TefaID)
	if err == nil && tefa.WhatsAppNumber != nil {
		message := fmt.Sprintf("Halo! Pesanan %q (x%d) sudah diterima. Mari atur pengambilan dan pembayaran.", product.Name, request.Quantity)
		if link, linkErr := whatsapp.DeepLink(*tefa.WhatsAppNumber, message); linkErr == nil {
			result.WhatsAppLink = link
		}
	}
	return result, nil
}

func (s *service) Reject(ctx context.Context, input DecideInput) (*models.PurchaseRequest, error) {
	var request *models.PurchaseRequest

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var (
			product *models.Product
			err     error
		)
		request, product, err = s.lockPendingRequest(ctx, tx, input)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		request.Status = enums.RequestStatusRejected
		request.DecidedByID = &input.ActorID
		request.DecidedAt = &now
		if err := s.repo.WithTx(tx).Update(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
		}

		if err := s.emitDecision(ctx, tx, enums.OutboxEventRequestRejected, request, input); err != nil {
			return err
		}
		return s.notifyBuyer(ctx, tx, request, product, "rejected")
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Complete marks an accepted request as fulfilled after the offline handoff.
func (s *service) Complete(ctx context.Context, input DecideInput) (*models.PurchaseRequest, error) {
	var request *models.PurchaseRequest

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		found, _, err := s.loadOwnedRequest(ctx, tx, input)
		if err != nil {
			return err
		}
		if found.Status != enums.RequestStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only accepted requests can be completed")
		}

		found.Status = enums.RequestStatusCompleted
		if err := s.repo.WithTx(tx).Update(ctx, found); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
		}
		request = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Cancel lets the buyer withdraw a request that has not been decided yet.
func (s *service) Cancel(ctx context.Context, requestID, buyerID uuid.UUID) (*models.PurchaseRequest, error) {
	var request *models.PurchaseRequest

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup request")
		}
		if found.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another buyer")
		}
		if found.Status != enums.RequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending requests can be cancelled")
		}

		found.Status = enums.RequestStatusCancelled
		if err := s.repo.WithTx(tx).Update(ctx, found); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request")
		}
		request = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// lockPendingRequest loads the request under a row lock, checks tefa ownership
// through the product, and enforces the pending state.
func (s *service) lockPendingRequest(ctx context.Context, tx *gorm.DB, input DecideInput) (*models.PurchaseRequest, *models.Product, error) {
	request, product, err := s.loadOwnedRequest(ctx, tx, input)
	if err != nil {
		return nil, nil, err
	}
	if request.Status != enums.RequestStatusPending {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request already decided").
			WithDetails(map[string]any{"status": request.Status})
	}
	return request, product, nil
}

func (s *service) loadOwnedRequest(ctx context.Context, tx *gorm.DB, input DecideInput) (*models.PurchaseRequest, *models.Product, error) {
	request, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, input.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup request")
	}

	product, err := s.products.WithTx(tx).FindByID(ctx, request.ProductID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	if product.TefaID != input.TefaID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another tefa")
	}
	return request, product, nil
}

func (s *service) emitDecision(ctx context.Context, tx *gorm.DB, kind enums.OutboxEventType, request *models.PurchaseRequest, input DecideInput) error {
	event := outbox.DomainEvent{
		EventType:     kind,
		AggregateType: enums.OutboxAggregateRequest,
		AggregateID:   request.ID,
		Actor: &outbox.ActorRef{
			UserID: input.ActorID,
			TefaID: &input.TefaID,
		},
		Data: map[string]any{
			"request_id": request.ID,
			"product_id": request.ProductID,
			"buyer_id":   request.BuyerID,
			"quantity":   request.Quantity,
			"status":     request.Status,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit request event")
	}
	return nil
}

func (s *service) notifyBuyer(ctx context.Context, tx *gorm.DB, request *models.PurchaseRequest, product *models.Product, decision string) error {
	payload := map[string]any{
		"request_id":   request.ID,
		"product_id":   request.ProductID,
		"product_name": strings.TrimSpace(product.Name),
		"decision":     decision,
	}
	return s.notifications.Notify(ctx, tx, request.BuyerID, enums.NotificationRequestDecided, payload)
}

func buildPage(rows []models.PurchaseRequest, next *pagination.Cursor) *ListPage {
	page := &ListPage{Requests: rows}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page
}
