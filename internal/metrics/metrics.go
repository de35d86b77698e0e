package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/young1lin/deepdive/pkg/logger"
)

// Request outcomes
const (
	OutcomeBriefing  = "briefing"
	OutcomeNoResults = "no_results"
	OutcomeFailed    = "failed"
)

// Pipeline stages
const (
	StageSearch     = "search"
	StageSynthesize = "synthesize"
)

// Metrics holds the process collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	searchFailures prometheus.Counter
	searchResults  prometheus.Histogram
	stageDuration  *prometheus.HistogramVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deepdive_requests_total",
				Help: "Total number of research requests by outcome",
			},
			[]string{"outcome"},
		),
		searchFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "deepdive_search_failures_total",
				Help: "Total number of failed search provider calls",
			},
		),
		searchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "deepdive_search_results",
				Help:    "Number of results returned per search",
				Buckets: []float64{0, 1, 2, 4, 8, 16},
			},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deepdive_stage_duration_seconds",
				Help:    "Duration of each request stage in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"stage"},
		),
	}

	m.registry.MustRegister(m.requests, m.searchFailures, m.searchResults, m.stageDuration)
	return m
}

// ObserveRequest counts one finished request
func (m *Metrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

// ObserveSearchFailure counts one failed provider call
func (m *Metrics) ObserveSearchFailure() {
	if m == nil {
		return
	}
	m.searchFailures.Inc()
}

// ObserveSearchResults records the result count of one search
func (m *Metrics) ObserveSearchResults(n int) {
	if m == nil {
		return
	}
	m.searchResults.Observe(float64(n))
}

// ObserveStage records how long a stage took
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
