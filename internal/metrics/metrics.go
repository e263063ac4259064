package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 跳过原因
const (
	SkipReasonExists     = "exists"
	SkipReasonCutoff     = "cutoff"
	SkipReasonNoCustomer = "no_customer"
)

var (
	SalesOrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erp_sales_orders_created_total",
		Help: "Total number of sales orders created from Shopify orders",
	}, []string{"trigger"})

	OrdersSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_orders_skipped_total",
		Help: "Total number of Shopify orders skipped during sync",
	}, []string{"reason"})

	OrderErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_order_errors_total",
		Help: "Total number of Shopify orders that failed to map",
	}, []string{"trigger"})

	ShopifyFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopify_fetch_errors_total",
		Help: "Total number of aborted Shopify order fetches",
	})

	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_sync_runs_total",
		Help: "Total number of order sync runs",
	}, []string{"operation", "status"})

	SyncRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopify_sync_run_duration_seconds",
		Help:    "Duration of order sync runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

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
