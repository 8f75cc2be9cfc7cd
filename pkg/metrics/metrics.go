package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EvaluationsTotal counts pipeline runs by outcome (ok, input_error, state_error, error)
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairlab_evaluations_total", Help: "Pair evaluations run"},
		[]string{"source", "outcome"},
	)
	// StageDuration observes the wall time of each pipeline stage
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairlab_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"stage"},
	)
	// CointegratedTotal counts evaluations by cointegration verdict
	CointegratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairlab_cointegration_verdicts_total", Help: "Cointegration verdicts"},
		[]string{"cointegrated"},
	)
	// PriceRowsIngested counts price rows written to the store
	PriceRowsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairlab_price_rows_ingested_total", Help: "Price rows ingested"},
		[]string{"source"},
	)
	// HTTPRequests counts API requests by route and status code
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairlab_http_requests_total", Help: "API requests served"},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(EvaluationsTotal, StageDuration, CointegratedTotal, PriceRowsIngested, HTTPRequests)
}

// ObserveStage records one stage duration
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a standalone /metrics listener
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
