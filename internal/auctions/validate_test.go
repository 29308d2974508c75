package auctions

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
)

func TestMinimumNextBidEmptyLedger(t *testing.T) {
	auction := &models.Auction{StartPrice: decimal.NewFromInt(100000)}
	got := MinimumNextBid(auction, nil, decimal.NewFromInt(10000))
	if !got.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected floor to be the start price, got %s", got)
	}
}

func TestMinimumNextBidWithHighest(t *testing.T) {
	auction := &models.Auction{StartPrice: decimal.NewFromInt(100000)}
	highest := &models.Bid{Amount: decimal.NewFromInt(150000)}
	got := MinimumNextBid(auction, highest, decimal.NewFromInt(10000))
	if !got.Equal(decimal.NewFromInt(160000)) {
		t.Fatalf("expected highest plus increment, got %s", got)
	}
}

func TestValidateBidAmount(t *testing.T) {
	cases := []struct {
		name   string
		amount decimal.Decimal
		valid  bool
	}{
		{"positive whole", decimal.NewFromInt(100000), true},
		{"zero", decimal.Zero, false},
		{"negative", decimal.NewFromInt(-5), false},
		{"fractional", decimal.RequireFromString("100000.50"), false},
		{"whole with trailing zeros", decimal.RequireFromString("100000.00"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateBidAmount(tc.amount)
			if tc.valid && err != nil {
				t.Fatalf("expected %s to be valid, got %v", tc.amount, err)
			}
			if !tc.valid {
				if err == nil {
					t.Fatalf("expected %s to be rejected", tc.amount)
				}
				if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
					t.Fatalf("expected validation error, got %v", err)
				}
			}
		})
	}
}

func TestValidateLiveWindow(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	base := models.Auction{
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		Status:    enums.AuctionStatusActive,
	}

	if err := validateLiveWindow(&base, now); err != nil {
		t.Fatalf("expected live auction, got %v", err)
	}

	atStart := base
	if err := validateLiveWindow(&atStart, base.StartTime); err != nil {
		t.Fatalf("start instant is inclusive, got %v", err)
	}

	atEnd := base
	if err := validateLiveWindow(&atEnd, base.EndTime); err == nil {
		t.Fatal("end instant is exclusive, expected rejection")
	}

	pending := base
	pending.Status = enums.AuctionStatusPending
	if err := validateLiveWindow(&pending, now); err == nil {
		t.Fatal("pending auction must not accept bids")
	}

	ended := base
	ended.Status = enums.AuctionStatusEnded
	if err := validateLiveWindow(&ended, now); err == nil {
		t.Fatal("ended auction must not accept bids")
	}

	early := base
	early.StartTime = now.Add(time.Minute)
	if err := validateLiveWindow(&early, now); err == nil {
		t.Fatal("auction before its window must not accept bids")
	}
}

func TestValidateAgainstFloor(t *testing.T) {
	minimum := decimal.NewFromInt(110000)

	if err := validateAgainstFloor(decimal.NewFromInt(110000), minimum); err != nil {
		t.Fatalf("bid at the floor must be accepted, got %v", err)
	}
	if err := validateAgainstFloor(decimal.NewFromInt(200000), minimum); err != nil {
		t.Fatalf("bid above the floor must be accepted, got %v", err)
	}

	err := validateAgainstFloor(decimal.NewFromInt(109999), minimum)
	if err == nil {
		t.Fatal("expected rejection below the floor")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["minimum_next_bid"] != "110000" {
		t.Fatalf("expected floor in details, got %v", details["minimum_next_bid"])
	}
}
