package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AuctionMetrics tracks the bid-acceptance pipeline.
type AuctionMetrics struct {
	accepted *prometheus.CounterVec
	rejected *prometheus.CounterVec
	retries  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewAuctionMetrics registers the auction metrics on the provided registerer.
func NewAuctionMetrics(reg prometheus.Registerer) *AuctionMetrics {
	if reg == nil {
		return &AuctionMetrics{}
	}
	accepted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_bids_accepted_total",
		Help: "Bids recorded as the new auction watermark.",
	}, []string{"outcome"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_bids_rejected_total",
		Help: "Bids rejected before being recorded, by reason.",
	}, []string{"reason"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_bid_tx_retries_total",
		Help: "Bid transaction retries after serialization conflicts.",
	}, []string{"attempt"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auction_bid_duration_seconds",
		Help:    "End-to-end duration of bid placement.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(accepted, rejected, retries, latency)
	return &AuctionMetrics{
		accepted: accepted,
		rejected: rejected,
		retries:  retries,
		latency:  latency,
	}
}

// IncAccepted counts a bid that became the new high bid.
func (a *AuctionMetrics) IncAccepted(outcome string) {
	if a == nil || a.accepted == nil {
		return
	}
	a.accepted.WithLabelValues(jobLabel(outcome)).Inc()
}

// IncRejected counts a rejected bid by reason.
func (a *AuctionMetrics) IncRejected(reason string) {
	if a == nil || a.rejected == nil {
		return
	}
	a.rejected.WithLabelValues(jobLabel(reason)).Inc()
}

// IncRetry counts a transaction retry for the given attempt number.
func (a *AuctionMetrics) IncRetry(attempt string) {
	if a == nil || a.retries == nil {
		return
	}
	a.retries.WithLabelValues(jobLabel(attempt)).Inc()
}

// ObserveBidDuration records the elapsed seconds for a bid attempt.
func (a *AuctionMetrics) ObserveBidDuration(outcome string, seconds float64) {
	if a == nil || a.latency == nil {
		return
	}
	a.latency.WithLabelValues(jobLabel(outcome)).Observe(seconds)
}
