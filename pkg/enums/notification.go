package enums

import "fmt"

// NotificationType distinguishes the in-app notification rows.
type NotificationType string

const (
	NotificationAuctionWon       NotificationType = "auction_won"
	NotificationAuctionEnded     NotificationType = "auction_ended"
	NotificationBidOutbid        NotificationType = "bid_outbid"
	NotificationRequestReceived  NotificationType = "request_received"
	NotificationRequestDecided   NotificationType = "request_decided"
	NotificationMembershipInvite NotificationType = "membership_invite"
)

var validNotificationTypes = []NotificationType{
	NotificationAuctionWon,
	NotificationAuctionEnded,
	NotificationBidOutbid,
	NotificationRequestReceived,
	NotificationRequestDecided,
	NotificationMembershipInvite,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
