package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SessionCreateTotal counts payment session creation attempts by result.
	SessionCreateTotal *prometheus.CounterVec
	// FinalizeTotal counts checkout finalization outcomes.
	FinalizeTotal *prometheus.CounterVec
	// WebhookTotal counts inbound provider webhook processing outcomes.
	WebhookTotal *prometheus.CounterVec
	// ProviderCallDuration records outbound provider call latency in milliseconds.
	ProviderCallDuration *prometheus.HistogramVec
	// ReconcilePendingOrders gauges orders stuck in pending past the sweep threshold.
	ReconcilePendingOrders prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SessionCreateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_session_create_total",
			Help:      "Count of payment session creation attempts by result.",
		}, []string{"result"})
		FinalizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_finalize_total",
			Help:      "Count of checkout finalization outcomes.",
		}, []string{"result"})
		WebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed provider webhooks by outcome.",
		}, []string{"result"})
		ProviderCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_ms",
			Help:      "Latency of outbound provider API calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		}, []string{"endpoint", "result"})
		ReconcilePendingOrders = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_pending_orders",
			Help:      "Orders still awaiting webhook confirmation past the sweep threshold.",
		})

		mustRegisterCollector(reg, SessionCreateTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SessionCreateTotal = v
			}
		})
		mustRegisterCollector(reg, FinalizeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				FinalizeTotal = v
			}
		})
		mustRegisterCollector(reg, WebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				WebhookTotal = v
			}
		})
		mustRegisterCollector(reg, ProviderCallDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				ProviderCallDuration = v
			}
		})
		mustRegisterCollector(reg, ReconcilePendingOrders, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				ReconcilePendingOrders = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
