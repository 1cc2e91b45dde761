// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesTotal        *prometheus.CounterVec
	scraperRecipesSavedTotal *prometheus.CounterVec
	scraperFailuresTotal     *prometheus.CounterVec
	scraperRetriesTotal      *prometheus.CounterVec
	scraperRateLimitSeconds  *prometheus.HistogramVec
	scraperActiveSources     prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Total number of recipe pages fetched, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		scraperRecipesSavedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_recipes_saved_total",
				Help: "Total number of recipes persisted, labeled by source.",
			},
			[]string{"source"},
		)

		scraperFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_failures_total",
				Help: "Total number of per-URL failures, labeled by error category.",
			},
			[]string{"category"},
		)

		scraperRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_retries_total",
				Help: "Total number of fetch retries, labeled by source.",
			},
			[]string{"source"},
		)

		scraperRateLimitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		)

		scraperActiveSources = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_active_sources",
				Help: "Number of sources currently being scraped.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page counter for the given source and outcome.
func ObservePage(source, outcome string) {
	if scraperPagesTotal == nil {
		return
	}
	scraperPagesTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveRecipeSaved increments the saved recipe counter.
func ObserveRecipeSaved(source string) {
	if scraperRecipesSavedTotal == nil {
		return
	}
	scraperRecipesSavedTotal.WithLabelValues(source).Inc()
}

// ObserveFailure increments the failure counter for the given category.
func ObserveFailure(category string) {
	if scraperFailuresTotal == nil {
		return
	}
	scraperFailuresTotal.WithLabelValues(category).Inc()
}

// ObserveRetry increments the retry counter for the given source.
func ObserveRetry(source string) {
	if scraperRetriesTotal == nil {
		return
	}
	scraperRetriesTotal.WithLabelValues(source).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(source string, duration time.Duration) {
	if scraperRateLimitSeconds == nil {
		return
	}
	scraperRateLimitSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// IncActiveSources increments the active sources gauge.
func IncActiveSources() {
	if scraperActiveSources == nil {
		return
	}
	scraperActiveSources.Inc()
}

// DecActiveSources decrements the active sources gauge.
func DecActiveSources() {
	if scraperActiveSources == nil {
		return
	}
	scraperActiveSources.Dec()
}
