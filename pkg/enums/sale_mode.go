package enums

import "fmt"

// SaleMode declares how a product is sold: at a fixed price via purchase
// requests, or through time-bounded auctions.
type SaleMode string

const (
	SaleModeDirect  SaleMode = "direct"
	SaleModeAuction SaleMode = "auction"
)

var validSaleModes = []SaleMode{
	SaleModeDirect,
	SaleModeAuction,
}

// String implements fmt.Stringer.
func (s SaleMode) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleMode.
func (s SaleMode) IsValid() bool {
	for _, candidate := range validSaleModes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleMode converts raw input into a SaleMode.
func ParseSaleMode(value string) (SaleMode, error) {
	for _, candidate := range validSaleModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale mode %q", value)
}
