package observ

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SegmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storyverse_segments_created_total",
		Help: "Segments contributed to threads",
	})
	ThreadsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storyverse_threads_created_total",
		Help: "Threads started",
	})
	XPAwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storyverse_xp_awarded_total",
		Help: "XP granted, by action",
	}, []string{"action"})
	BadgesEarned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storyverse_badges_earned_total",
		Help: "Badges earned, by badge id",
	}, []string{"badge"})
	MediaGenerations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storyverse_media_generations_total",
		Help: "Media generation jobs, by type and outcome",
	}, []string{"type", "status"})
	MediaGenerationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyverse_media_generation_seconds",
		Help:    "Time spent generating media, retries included",
		Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"type"})
	LiveSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storyverse_live_subscribers",
		Help: "Open thread event streams",
	})
)

// MustRegister registers every metric above.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SegmentsCreated,
		ThreadsCreated,
		XPAwarded,
		BadgesEarned,
		MediaGenerations,
		MediaGenerationSeconds,
		LiveSubscribers,
	)
}

// MetricsHandler serves the given gatherer in the Prometheus text format.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
