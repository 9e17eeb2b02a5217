package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "salon_agent"

var (
	once sync.Once

	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Count of tool invocations by tool and outcome.",
		},
		[]string{"tool", "status"},
	)

	suggestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggest_duration_seconds",
			Help:      "Latency of slot suggestion including calendar lookups.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	calendarRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_requests_total",
			Help:      "Count of free/busy requests sent upstream by result.",
		},
		[]string{"result"},
	)

	calendarCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_cache_total",
			Help:      "Count of free/busy cache lookups by result.",
		},
		[]string{"result"},
	)

	bookingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_requests_total",
			Help:      "Count of booking gateway calls by operation and status.",
		},
		[]string{"op", "status"},
	)

	knowledgeReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_reloads_total",
			Help:      "Count of knowledge base loads by result.",
		},
		[]string{"result"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Count of manager notifications by status.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by route and status code.",
		},
		[]string{"route", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(toolCalls, suggestDuration, calendarRequests, calendarCache,
			bookingRequests, knowledgeReloads, notifications, httpRequests)
	})
}

func IncToolCall(tool, status string) {
	toolCalls.WithLabelValues(tool, status).Inc()
}

func ObserveSuggest(d time.Duration) {
	suggestDuration.Observe(d.Seconds())
}

func IncCalendarRequest(result string) {
	calendarRequests.WithLabelValues(result).Inc()
}

func IncCalendarCache(result string) {
	calendarCache.WithLabelValues(result).Inc()
}

func IncBookingRequest(op, status string) {
	bookingRequests.WithLabelValues(op, status).Inc()
}

func IncKnowledgeReload(result string) {
	knowledgeReloads.WithLabelValues(result).Inc()
}

func IncNotification(status string) {
	notifications.WithLabelValues(status).Inc()
}

func IncHTTP(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
