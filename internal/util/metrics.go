package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPreparedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_prepared_total",
		Help: "Total number of pending orders prepared for payment",
	})

	ApprovalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "approvals_total",
		Help: "Total number of successful PG approvals",
	})

	ApprovalsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "approvals_failed_total",
		Help: "Total number of failed PG approvals",
	}, []string{"reason"})

	CancelsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cancels_total",
		Help: "Total number of successful PG cancellations",
	}, []string{"kind"})

	CancelsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cancels_failed_total",
		Help: "Total number of failed PG cancellations",
	}, []string{"reason"})

	RedemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redemptions_total",
		Help: "Total number of tickets admitted at the gate",
	})

	DuplicateScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_scans_total",
		Help: "Total number of scans rejected as already used",
	})

	InvalidScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invalid_scans_total",
		Help: "Total number of scans rejected as invalid",
	}, []string{"reason"})

	GatewayExchangeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_exchange_latency_seconds",
		Help:    "Latency of one PG socket exchange",
		Buckets: prometheus.DefBuckets,
	})

	GatewayErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Total number of PG exchange failures",
	}, []string{"kind"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
