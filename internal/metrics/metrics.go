// Package metrics holds the service's Prometheus collectors on a private
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ordersSubmitted prometheus.Counter
	ordersReady     prometheus.Counter
	prepTime        prometheus.Histogram
	screenRefresh   *prometheus.CounterVec
	screensActive   *prometheus.GaugeVec
	feedEvents      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_orders_submitted_total",
			Help: "Orders created from the order-taking screen or API",
		}),
		ordersReady: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_orders_ready_total",
			Help: "Orders moved from new to ready by the kitchen",
		}),
		prepTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pos_order_prep_seconds",
			Help:    "Time from order creation to ready",
			Buckets: prometheus.LinearBuckets(60, 120, 15), // 2-minute buckets
		}),
		screenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_screen_refresh_total",
			Help: "Screen data refreshes by outcome",
		}, []string{"screen", "result"}),
		screensActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pos_screens_active",
			Help: "Mounted screens by kind",
		}, []string{"screen"}),
		feedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_feed_events_total",
			Help: "Change-feed events delivered by table and operation",
		}, []string{"table", "op"}),
	}

	m.registry.MustRegister(
		m.ordersSubmitted,
		m.ordersReady,
		m.prepTime,
		m.screenRefresh,
		m.screensActive,
		m.feedEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderSubmitted() {
	if m == nil {
		return
	}
	m.ordersSubmitted.Inc()
}

func (m *Metrics) OrderReady(createdAt, readyAt time.Time) {
	if m == nil {
		return
	}
	m.ordersReady.Inc()
	if !createdAt.IsZero() && readyAt.After(createdAt) {
		m.prepTime.Observe(readyAt.Sub(createdAt).Seconds())
	}
}

func (m *Metrics) ScreenRefreshed(screen string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.screenRefresh.WithLabelValues(screen, result).Inc()
}

func (m *Metrics) ScreenMounted(screen string) {
	if m == nil {
		return
	}
	m.screensActive.WithLabelValues(screen).Inc()
}

func (m *Metrics) ScreenUnmounted(screen string) {
	if m == nil {
		return
	}
	m.screensActive.WithLabelValues(screen).Dec()
}

func (m *Metrics) FeedEvent(table, op string) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(table, op).Inc()
}
