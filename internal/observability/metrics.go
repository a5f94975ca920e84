package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BidsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_bids_accepted_total",
			Help: "Total accepted bids",
		},
	)

	BidsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_rejected_total",
			Help: "Total rejected bids by reason",
		},
		[]string{"reason"},
	)

	ItemsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_items_resolved_total",
			Help: "Total auctions resolved by outcome",
		},
		[]string{"outcome"},
	)

	OrdersCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_orders_completed_total",
			Help: "Total orders completed at checkout",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auction_sweep_duration_seconds",
			Help:    "Duration of one expiration sweep pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auction_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_notify_failures_total",
			Help: "Total dropped notification publishes",
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
