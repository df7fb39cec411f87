package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dividi",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	expenseMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dividi",
		Subsystem: "ledger",
		Name:      "expense_mutations_total",
		Help:      "Expense create/update/delete operations accepted by the API.",
	}, []string{"operation"})

	settlementPlans = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dividi",
		Subsystem: "ledger",
		Name:      "settlement_plans_total",
		Help:      "Settlement plans computed.",
	})
)

func observeRequest(method string, status int, elapsed time.Duration) {
	requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
