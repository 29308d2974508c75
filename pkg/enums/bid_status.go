package enums

import "fmt"

// BidStatus tracks a bid from acceptance to auction settlement.
type BidStatus string

const (
	BidStatusActive    BidStatus = "active"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusMissed    BidStatus = "missed"
	BidStatusCancelled BidStatus = "cancelled"
)

var validBidStatuses = []BidStatus{
	BidStatusActive,
	BidStatusAccepted,
	BidStatusMissed,
	BidStatusCancelled,
}

// String implements fmt.Stringer.
func (b BidStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BidStatus.
func (b BidStatus) IsValid() bool {
	for _, candidate := range validBidStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBidStatus converts raw input into a BidStatus.
func ParseBidStatus(value string) (BidStatus, error) {
	for _, candidate := range validBidStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid status %q", value)
}
