// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors and the registry they live in.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	ordersCreated    *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
	paymentChanges   *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	wsConnections    prometheus.Gauge
	orderTotalAmount prometheus.Histogram
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		ordersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_created_total",
				Help: "Orders placed, by payment method",
			},
			[]string{"payment_method"},
		),
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_status_changes_total",
				Help: "Order status transitions, by target status",
			},
			[]string{"status"},
		),
		paymentChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_payment_changes_total",
				Help: "Payment status transitions, by target status",
			},
			[]string{"payment_status"},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_events_published_total",
				Help: "Change events handed to the feed, by type and outcome",
			},
			[]string{"type", "result"},
		),
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhook_events_total",
				Help: "Payment provider webhook deliveries, by type and outcome",
			},
			[]string{"type", "result"},
		),
		wsConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ws_connections",
				Help: "Open realtime connections",
			},
		),
		orderTotalAmount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "order_total_amount",
				Help:    "Order totals in whole currency units",
				Buckets: prometheus.LinearBuckets(0, 250, 12),
			},
		),
	}

	registry.MustRegister(
		m.requestDuration,
		m.ordersCreated,
		m.statusChanges,
		m.paymentChanges,
		m.eventsPublished,
		m.webhookEvents,
		m.wsConnections,
		m.orderTotalAmount,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request latency labelled by the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) OrderCreated(paymentMethod string, total float64) {
	if m == nil {
		return
	}
	if paymentMethod == "" {
		paymentMethod = "none"
	}
	m.ordersCreated.WithLabelValues(paymentMethod).Inc()
	m.orderTotalAmount.Observe(total)
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) PaymentChanged(status string) {
	if m == nil {
		return
	}
	m.paymentChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, result(err)).Inc()
}

func (m *Metrics) WebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
