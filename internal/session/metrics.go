package session

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	sessionCreateTotal  *prometheus.CounterVec
	sessionRefreshTotal *prometheus.CounterVec
	requestDurationHist *prometheus.HistogramVec
)

func ensureMetrics() {
	metricsOnce.Do(func() {
		sessionCreateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradevault",
			Subsystem: "session",
			Name:      "create_total",
			Help:      "Execution session creation attempts by platform and result",
		}, []string{"platform", "result"})

		sessionRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradevault",
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Execution token refresh attempts by platform and result",
		}, []string{"platform", "result"})

		requestDurationHist = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tradevault",
			Subsystem: "session",
			Name:      "request_duration_seconds",
			Help:      "Latency of proxied marketplace calls recorded against a session",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"platform", "success"})
	})
}

func observeResult(vec *prometheus.CounterVec, platform string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	vec.WithLabelValues(platform, result).Inc()
}
