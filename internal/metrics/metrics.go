package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TransactionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenpay_transactions_created_total",
			Help: "Transactions accepted by the ledger",
		},
		[]string{"type"},
	)
	TransactionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenpay_transactions_rejected_total",
			Help: "Transactions rejected before any mutation",
		},
		[]string{"reason"},
	)
	SettlementsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "greenpay_settlements_completed_total",
			Help: "Processing transactions flipped to completed by the settlement worker",
		},
	)
	SettlementsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "greenpay_settlements_pending",
			Help: "Transactions currently awaiting settlement",
		},
	)
	RateFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "greenpay_rate_fallbacks_total",
			Help: "Rate lookups served from the static fallback table",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(TransactionsCreated)
	prometheus.MustRegister(TransactionsRejected)
	prometheus.MustRegister(SettlementsCompleted)
	prometheus.MustRegister(SettlementsPending)
	prometheus.MustRegister(RateFallbacks)
}
