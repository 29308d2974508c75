package auctions

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	pkgerrors "github.com/tefamart/tefamart-backend/pkg/errors"
)

// MinimumNextBid computes the acceptance floor for the next bid: the start
// price while the ledger is empty, otherwise the highest accepted amount plus
// the configured increment.
func MinimumNextBid(auction *models.Auction, highest *models.Bid, increment decimal.Decimal) decimal.Decimal {
	if highest == nil {
		return auction.StartPrice
	}
	return highest.Amount.Add(increment)
}

// validateBidAmount applies the shape checks that do not depend on ledger
// state. Amounts are whole rupiah.
func validateBidAmount(amount decimal.Decimal) error {
	if amount.IsZero() || amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive")
	}
	if !amount.Equal(amount.Truncate(0)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be a whole rupiah value")
	}
	return nil
}

// validateLiveWindow confirms the auction accepts bids at the given instant.
func validateLiveWindow(auction *models.Auction, now time.Time) error {
	if auction.Status != enums.AuctionStatusActive ||
		now.Before(auction.StartTime) ||
		!now.Before(auction.EndTime) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no live auction for this product")
	}
	return nil
}

// validateAgainstFloor rejects bids below the acceptance floor, reporting the
// floor so clients can rebid without another round trip.
func validateAgainstFloor(amount, minimum decimal.Decimal) error {
	if amount.LessThan(minimum) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "bid below the minimum next bid").
			WithDetails(map[string]any{"minimum_next_bid": minimum.String()})
	}
	return nil
}
