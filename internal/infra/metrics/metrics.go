package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SnapshotFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "snapshot_fetches_total", Help: "Snapshot fetches by venue"}, []string{"venue"})
	SnapshotErrorsTotal  = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "snapshot_errors_total", Help: "Snapshot fetch failures by venue"}, []string{"venue"})
	SnapshotLevels       = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "snapshot_levels", Help: "Level count of the current snapshot by venue and side"}, []string{"venue", "side"})
	BookStalenessMs      = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "book_staleness_ms", Help: "Age of the current snapshot in ms by venue"}, []string{"venue"})
	BookSpread           = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "book_spread", Help: "Best-ask minus best-bid by venue"}, []string{"venue"})

	ImpactEvalSeconds          = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "impact_eval_seconds", Help: "Impact estimation latency", Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10)})
	SimulationsTotal           = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "simulations_total", Help: "Simulations by venue and order type"}, []string{"venue", "type"})
	SimulationsRevealedTotal   = prometheus.NewCounter(prometheus.CounterOpts{Name: "simulations_revealed_total", Help: "Delayed simulation results revealed"})
	SimulationsSupersededTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "simulations_superseded_total", Help: "Pending reveals discarded by a newer request"})
	RejectedOrdersTotal        = prometheus.NewCounter(prometheus.CounterOpts{Name: "rejected_orders_total", Help: "Orders rejected by input validation"})

	WSClients        = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ws_clients", Help: "Connected orderbook stream clients"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "rate_limited_total", Help: "Requests rejected by the simulate rate limiter"})
)

func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		SnapshotFetchesTotal, SnapshotErrorsTotal, SnapshotLevels, BookStalenessMs, BookSpread,
		ImpactEvalSeconds, SimulationsTotal, SimulationsRevealedTotal, SimulationsSupersededTotal, RejectedOrdersTotal,
		WSClients, RateLimitedTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
