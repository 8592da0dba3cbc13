package utils

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics содержит метрики приложения
type Metrics struct {
	registry *prometheus.Registry

	// Метрики запросов
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	// Метрики бизнес-операций
	operations *prometheus.CounterVec
}

// NewMetrics создает метрики в отдельном реестре
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method and status",
			},
			[]string{"method", "route", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and method",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_operations_total",
				Help:      "Total number of service operations by outcome code",
			},
			[]string{"operation", "code"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.operations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordRequest записывает метрики запроса
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOperation записывает результат бизнес-операции. Пустой код означает успех.
func (m *Metrics) RecordOperation(operation, code string) {
	if code == "" {
		code = "OK"
	}
	m.operations.WithLabelValues(operation, code).Inc()
}

// Handler возвращает HTTP-обработчик для выдачи метрик
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
