package enums

// OutboxEventType names the domain events written to the transactional outbox.
type OutboxEventType string

const (
	OutboxEventBidAccepted     OutboxEventType = "bid.accepted"
	OutboxEventAuctionEnded    OutboxEventType = "auction.ended"
	OutboxEventRequestAccepted OutboxEventType = "request.accepted"
	OutboxEventRequestRejected OutboxEventType = "request.rejected"
)

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// OutboxAggregateType names the aggregate a domain event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateAuction OutboxAggregateType = "auction"
	OutboxAggregateRequest OutboxAggregateType = "purchase_request"
)

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}
