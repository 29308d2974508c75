package enums

import "fmt"

// AuctionStatus is the stored lifecycle state of an auction. The lookup
// contract additionally requires the time window to contain "now" before an
// auction counts as live.
type AuctionStatus string

const (
	AuctionStatusPending   AuctionStatus = "pending"
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusEnded     AuctionStatus = "ended"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

var validAuctionStatuses = []AuctionStatus{
	AuctionStatusPending,
	AuctionStatusActive,
	AuctionStatusEnded,
	AuctionStatusCancelled,
}

// String implements fmt.Stringer.
func (a AuctionStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuctionStatus.
func (a AuctionStatus) IsValid() bool {
	for _, candidate := range validAuctionStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the auction can no longer accept bids.
func (a AuctionStatus) IsTerminal() bool {
	return a == AuctionStatusEnded || a == AuctionStatusCancelled
}

// ParseAuctionStatus converts raw input into an AuctionStatus.
func ParseAuctionStatus(value string) (AuctionStatus, error) {
	for _, candidate := range validAuctionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid auction status %q", value)
}
