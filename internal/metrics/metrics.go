package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for change-order impact processing and the HTTP API
var (
	ImpactOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_order_impact_operations_total",
			Help: "Change-order impact operations by operation, entity type and outcome",
		},
		[]string{"operation", "entity_type", "outcome"},
	)

	BudgetItemsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "change_order_budget_items_created_total",
			Help: "Project budget items materialized from change orders",
		},
	)

	BudgetItemsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "change_order_budget_items_deleted_total",
			Help: "Project budget items removed by change-order reversal",
		},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// Outcome labels for ImpactOperationsTotal.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

var registerOnce sync.Once

// Register registers all metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ImpactOperationsTotal)
		prometheus.MustRegister(BudgetItemsCreatedTotal)
		prometheus.MustRegister(BudgetItemsDeletedTotal)
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
	})
}
