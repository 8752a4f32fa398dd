// Package metrics provides Prometheus instrumentation for the
// simulation, exposed by the observation API at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts settled trades, partitioned by good.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsim_trades_total",
		Help: "Total number of trades settled",
	}, []string{"item"})

	// CurrentRound tracks the round being processed.
	CurrentRound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketsim_round",
		Help: "Current simulation round",
	})

	// AgentsAlive tracks the living agent pool.
	AgentsAlive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketsim_agents_alive",
		Help: "Number of agents still alive",
	})

	// OpenOffers tracks standing offers on the book.
	OpenOffers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketsim_open_offers",
		Help: "Number of open offers on the book",
	})

	// AvgTradePrice reports the per-round average unit price per good.
	AvgTradePrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "marketsim_avg_trade_price",
		Help: "Average unit price of the most recent round's trades",
	}, []string{"item"})

	// PolicyLatency measures decision-policy invocation time.
	PolicyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketsim_policy_latency_seconds",
		Help:    "Decision policy invocation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// IntentFailures counts ledger rejections fed back to agents.
	IntentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsim_intent_failures_total",
		Help: "Intents rejected by ledger validation",
	}, []string{"kind"})

	// Terminations counts terminal lifecycle transitions by cause.
	Terminations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketsim_terminations_total",
		Help: "Agents removed from the pool, by cause",
	}, []string{"cause"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
