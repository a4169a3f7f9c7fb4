// Package metrics регистрирует метрики Prometheus сервиса статистики.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campstats_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campstats_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	recomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campstats_recompute_duration_seconds",
			Help:    "Dashboard snapshot recomputation time",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	recomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campstats_recompute_total",
			Help: "Dashboard snapshot recomputations by result",
		},
		[]string{"result"},
	)

	salesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campstats_sales_ingested_total",
			Help: "Sales accepted by source",
		},
		[]string{"source"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campstats_cache_lookups_total",
			Help: "Dashboard cache lookups by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordHTTPRequest учитывает обработанный HTTP-запрос.
func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRecompute учитывает пересчёт снимка дашборда.
func RecordRecompute(duration time.Duration, err error) {
	recomputeDuration.Observe(duration.Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	recomputeTotal.WithLabelValues(result).Inc()
}

// RecordSaleIngested учитывает принятую продажу. source принимает значения "api" или "feed".
func RecordSaleIngested(source string) {
	salesIngestedTotal.WithLabelValues(source).Inc()
}

// RecordCacheLookup учитывает обращение к кэшу снимков.
func RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// Handler возвращает обработчик /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
