// Package metrics exposes Prometheus counters for the harvester and the GNews client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gnews"

// Metrics groups the collectors registered for one process.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ArticlesFetched   *prometheus.CounterVec
	ArticlesPublished *prometheus.CounterVec
	ArticlesDuplicate *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	FeedFailures      *prometheus.CounterVec
	PollDuration      prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers all collectors on reg. A nil reg gets a fresh registry so
// repeated construction never panics on duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of GNews API requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "GNews API request duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"endpoint"},
		),
		ArticlesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_fetched_total",
				Help:      "Articles returned by the API per feed",
			},
			[]string{"feed"},
		),
		ArticlesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_published_total",
				Help:      "New articles delivered to at least one publisher",
			},
			[]string{"feed"},
		),
		ArticlesDuplicate: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_duplicate_total",
				Help:      "Articles skipped because they were already seen",
			},
			[]string{"feed"},
		),
		PublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_failures_total",
				Help:      "Articles that no publisher accepted",
			},
			[]string{"feed"},
		),
		FeedFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_failures_total",
				Help:      "Feed polls that failed to fetch",
			},
			[]string{"feed"},
		),
		PollDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "poll_duration_seconds",
				Help:      "Duration of a full poll across all feeds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		gatherer: reg,
	}
}

// Handler serves the registry this Metrics was built on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records a GNews API call; it satisfies gnews.Observer.
func (m *Metrics) ObserveRequest(endpoint, outcome string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) RecordFetched(feed string, n int) {
	m.ArticlesFetched.WithLabelValues(feed).Add(float64(n))
}

func (m *Metrics) RecordPublished(feed string) {
	m.ArticlesPublished.WithLabelValues(feed).Inc()
}

func (m *Metrics) RecordDuplicate(feed string) {
	m.ArticlesDuplicate.WithLabelValues(feed).Inc()
}

func (m *Metrics) RecordPublishFailure(feed string) {
	m.PublishFailures.WithLabelValues(feed).Inc()
}

func (m *Metrics) RecordFeedFailure(feed string) {
	m.FeedFailures.WithLabelValues(feed).Inc()
}

func (m *Metrics) ObservePoll(d time.Duration) {
	m.PollDuration.Observe(d.Seconds())
}
