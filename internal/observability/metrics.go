package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_bookings_created_total",
			Help: "Bookings created, by booking type",
		},
		[]string{"booking_type"},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_booking_transitions_total",
			Help: "Booking status transitions",
		},
		[]string{"from", "to"},
	)

	AvailabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_availability_checks_total",
			Help: "Availability checks, by outcome",
		},
		[]string{"available"},
	)

	LedgerConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_ledger_conflicts_total",
			Help: "Confirmations rejected by the reservation ledger",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studio_db_tx_seconds",
			Help:    "Duration of ledger DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studio_outbox_lag_seconds",
			Help: "Age of the oldest outbox record published in the last batch",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)

	SubscriptionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_subscriptions_expired_total",
			Help: "Subscriptions moved to Expired by the sweeper",
		},
	)
)
