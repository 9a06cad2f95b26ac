// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "comanda"

// Metrics groups the order lifecycle collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	ordersCreated     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	invalidations     *prometheus.CounterVec
	wsClients         prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created, by order type and surface.",
		}, []string{"order_type", "surface"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Persisted order status transitions.",
		}, []string{"from", "to"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_cache_lookups_total",
			Help:      "Read-cache lookups by topic and result (hit, miss, error).",
		}, []string{"topic", "result"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_invalidations_total",
			Help:      "Cache invalidations broadcast, by reason.",
		}, []string{"reason"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}),
	}
	reg.MustRegister(
		m.ordersCreated,
		m.statusTransitions,
		m.cacheLookups,
		m.invalidations,
		m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderCreated(orderType, surface string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(orderType, surface).Inc()
}

func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) CacheLookup(topic, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(topic, result).Inc()
}

func (m *Metrics) Invalidation(reason string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(reason).Inc()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.wsClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.wsClients.Dec()
}
