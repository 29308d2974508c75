package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tefamart/tefamart-backend/api/middleware"
	"github.com/tefamart/tefamart-backend/internal/auctions"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
	"github.com/tefamart/tefamart-backend/pkg/logger"
	"github.com/tefamart/tefamart-backend/pkg/types"
)

type stubAuctionService struct {
	placeBidReceipt *auctions.BidReceipt
	placeBidErr     error
	gotInput        auctions.PlaceBidInput
	liveView        *auctions.LiveView
	liveErr         error
}

func (s *stubAuctionService) Create(context.Context, auctions.CreateInput) (*models.Auction, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not stubbed")
}

func (s *stubAuctionService) GetLive(context.Context, string) (*auctions.LiveView, error) {
	return s.liveView, s.liveErr
}

func (s *stubAuctionService) ListForTefa(context.Context, uuid.UUID, *enums.AuctionStatus) ([]models.Auction, error) {
	return nil, nil
}

func (s *stubAuctionService) Cancel(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error {
	return nil
}

func (s *stubAuctionService) PlaceBid(_ context.Context, input auctions.PlaceBidInput) (*auctions.BidReceipt, error) {
	s.gotInput = input
	return s.placeBidReceipt, s.placeBidErr
}

func (s *stubAuctionService) ListBids(context.Context, uuid.UUID, int, string) (*auctions.BidsPage, error) {
	return &auctions.BidsPage{}, nil
}

func placeBidRequestFor(t *testing.T, ref, body string, userID string) *http.Request {
	t.Helper()

	r := httptest.NewRequest("POST", "/api/auctions/"+ref+"/bids", strings.NewReader(body))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("auctionRef", ref)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx)
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	return r.WithContext(ctx)
}

func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

func TestAuctionPlaceBidAccepted(t *testing.T) {
	bidder := uuid.New()
	stub := &stubAuctionService{
		placeBidReceipt: &auctions.BidReceipt{
			Bid:            &models.Bid{ID: uuid.New(), BidderID: bidder, Amount: decimal.NewFromInt(150000)},
			Auction:        &models.Auction{ID: uuid.New(), CurrentBid: decimal.NewFromInt(150000)},
			MinimumNextBid: decimal.NewFromInt(160000),
		},
	}
	handler := AuctionPlaceBid(stub, logger.New(logger.Options{ServiceName: "test"}))

	rec := httptest.NewRecorder()
	handler(rec, placeBidRequestFor(t, "roti-sourdough", `{"amount":"150000"}`, bidder.String()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if stub.gotInput.Ref != "roti-sourdough" {
		t.Fatalf("ref = %q", stub.gotInput.Ref)
	}
	if stub.gotInput.BidderID != bidder {
		t.Fatal("bidder id must come from the authenticated context")
	}
	if !stub.gotInput.Amount.Equal(decimal.NewFromInt(150000)) {
		t.Fatalf("amount = %s", stub.gotInput.Amount)
	}
}

func TestAuctionPlaceBidBelowFloor(t *testing.T) {
	stub := &stubAuctionService{
		placeBidErr: pkgerrors.New(pkgerrors.CodeStateConflict, "bid below the minimum next bid").
			WithDetails(map[string]any{"minimum_next_bid": "160000"}),
	}
	handler := AuctionPlaceBid(stub, logger.New(logger.Options{ServiceName: "test"}))

	rec := httptest.NewRecorder()
	handler(rec, placeBidRequestFor(t, "roti-sourdough", `{"amount":"150000"}`, uuid.NewString()))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	envelope := decodeErrorEnvelope(t, rec)
	if envelope.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("code = %s", envelope.Error.Code)
	}
	details, ok := envelope.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("details type %T", envelope.Error.Details)
	}
	if details["minimum_next_bid"] != "160000" {
		t.Fatalf("details = %v", details)
	}
}

func TestAuctionPlaceBidRequiresAuth(t *testing.T) {
	stub := &stubAuctionService{}
	handler := AuctionPlaceBid(stub, logger.New(logger.Options{ServiceName: "test"}))

	rec := httptest.NewRecorder()
	handler(rec, placeBidRequestFor(t, "roti-sourdough", `{"amount":"150000"}`, ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuctionPlaceBidRejectsBadAmount(t *testing.T) {
	stub := &stubAuctionService{}
	handler := AuctionPlaceBid(stub, logger.New(logger.Options{ServiceName: "test"}))

	rec := httptest.NewRecorder()
	handler(rec, placeBidRequestFor(t, "roti-sourdough", `{"amount":"seratus"}`, uuid.NewString()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuctionLiveNotFound(t *testing.T) {
	stub := &stubAuctionService{
		liveErr: pkgerrors.New(pkgerrors.CodeNotFound, "no live auction for this product"),
	}
	handler := AuctionLive(stub, logger.New(logger.Options{ServiceName: "test"}))

	r := httptest.NewRequest("GET", "/api/auctions/gone", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("auctionRef", "gone")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	handler(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	envelope := decodeErrorEnvelope(t, rec)
	if envelope.Error.Code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("code = %s", envelope.Error.Code)
	}
	if envelope.Error.Message != "no live auction for this product" {
		t.Fatalf("message = %q", envelope.Error.Message)
	}
}

func TestErrorResponsesHideInternalDetail(t *testing.T) {
	stub := &stubAuctionService{
		liveErr: pkgerrors.Wrap(pkgerrors.CodeInternal, context.DeadlineExceeded, "db exploded with secrets"),
	}
	handler := AuctionLive(stub, logger.New(logger.Options{ServiceName: "test"}))

	r := httptest.NewRequest("GET", "/api/auctions/x", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("auctionRef", "x")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	handler(rec, r)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	envelope := decodeErrorEnvelope(t, rec)
	if strings.Contains(envelope.Error.Message, "secrets") {
		t.Fatalf("internal detail leaked: %q", envelope.Error.Message)
	}
}
