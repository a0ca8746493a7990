// Package metrics holds the Prometheus collectors for retrieval and
// mutation traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	resolveTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaizen",
		Name:      "resolve_requests_total",
		Help:      "Knowledge resolutions by mode and outcome.",
	}, []string{"mode", "outcome"})

	resolveDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kaizen",
		Name:      "resolve_duration_seconds",
		Help:      "Duration of knowledge resolutions.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"mode"})

	resolveResults = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kaizen",
		Name:      "resolve_results",
		Help:      "Number of entries returned per resolution.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	}, []string{"mode"})

	mutationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaizen",
		Name:      "mutations_total",
		Help:      "Store mutations by kind and outcome.",
	}, []string{"kind", "outcome"})

	httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kaizen",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"route", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Mode labels.
const (
	ModeRanked = "ranked"
	ModeLookup = "lookup"
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveResolve records one resolution.
func ObserveResolve(mode string, elapsed time.Duration, results int, err error) {
	resolveTotal.WithLabelValues(mode, outcome(err)).Inc()
	resolveDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if err == nil {
		resolveResults.WithLabelValues(mode).Observe(float64(results))
	}
}

// ObserveMutation records one store mutation.
func ObserveMutation(kind string, err error) {
	mutationsTotal.WithLabelValues(kind, outcome(err)).Inc()
}

// ObserveHTTP records one HTTP request.
func ObserveHTTP(route string, status int) {
	class := "5xx"
	switch {
	case status < 300:
		class = "2xx"
	case status < 400:
		class = "3xx"
	case status < 500:
		class = "4xx"
	}
	httpRequests.WithLabelValues(route, class).Inc()
}
