// Package metrics owns the Prometheus registry and the domain collectors.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace prefixes every metric name.
const Namespace = "filehost"

// Metrics groups the collectors updated by the services.
type Metrics struct {
	Registry *prometheus.Registry

	extensions       *prometheus.CounterVec
	invoicesCreated  prometheus.Counter
	reconciles       *prometheus.CounterVec
	filesRegistered  prometheus.Counter
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
}

// New creates a registry with Go runtime and process collectors plus the
// domain collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		extensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "subscription",
			Name:      "extensions_total",
			Help:      "Subscription extensions, by source.",
		}, []string{"source"}),
		invoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "invoice",
			Name:      "created_total",
			Help:      "Invoices issued through the payment provider.",
		}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "invoice",
			Name:      "reconciled_total",
			Help:      "Invoice status checks, by observed status.",
		}, []string{"status"}),
		filesRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "files",
			Name:      "registered_total",
			Help:      "Uploaded files given a share code.",
		}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cryptopay",
			Name:      "calls_total",
			Help:      "Payment provider API calls, by method and status.",
		}, []string{"method", "status"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "cryptopay",
			Name:      "call_duration_seconds",
			Help:      "Payment provider API latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"method"}),
	}
	reg.MustRegister(
		m.extensions,
		m.invoicesCreated,
		m.reconciles,
		m.filesRegistered,
		m.providerCalls,
		m.providerDuration,
	)
	return m
}

// Extension sources.
const (
	SourcePayment = "payment"
	SourceGrant   = "grant"
)

func (m *Metrics) SubscriptionExtended(source string) {
	if m == nil {
		return
	}
	m.extensions.WithLabelValues(source).Inc()
}

func (m *Metrics) InvoiceCreated() {
	if m == nil {
		return
	}
	m.invoicesCreated.Inc()
}

func (m *Metrics) InvoiceReconciled(status string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(status).Inc()
}

func (m *Metrics) FileRegistered() {
	if m == nil {
		return
	}
	m.filesRegistered.Inc()
}

// ProviderCall has the shape of cryptopay.Observer.
func (m *Metrics) ProviderCall(method string, err error, took time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "fail"
	}
	m.providerCalls.WithLabelValues(method, status).Inc()
	m.providerDuration.WithLabelValues(method).Observe(took.Seconds())
}
