package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records client lifecycle metrics. A nil *Collector is valid
// and records nothing.
type Collector struct {
	started          prometheus.Counter
	finished         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	pending          prometheus.Gauge
	linkDecisions    *prometheus.CounterVec
	staleDeliveries  prometheus.Counter
	idCollisions     prometheus.Counter
	transportFailure prometheus.Counter
}

// NewCollector registers the client metrics with the default registerer.
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry registers the client metrics with reg.
func NewCollectorWithRegistry(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		started: f.NewCounter(prometheus.CounterOpts{
			Name: "xsr_requests_started_total",
			Help: "Invocations that entered the pending state",
		}),
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xsr_requests_finished_total",
			Help: "Finished invocations by outcome",
		}, []string{"outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xsr_request_duration_seconds",
			Help:    "Time from dispatch to the terminal event",
			Buckets: CallbackBuckets,
		}, []string{"outcome"}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "xsr_requests_pending",
			Help: "Invocations waiting for their callback",
		}),
		linkDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xsr_link_decisions_total",
			Help: "Sends made while an invocation was in flight, by link policy",
		}, []string{"policy"}),
		staleDeliveries: f.NewCounter(prometheus.CounterOpts{
			Name: "xsr_stale_deliveries_total",
			Help: "Late deliveries absorbed after cancel or timeout",
		}),
		idCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "xsr_id_collisions_total",
			Help: "Generated correlation ids that were already registered",
		}),
		transportFailure: f.NewCounter(prometheus.CounterOpts{
			Name: "xsr_transport_failures_total",
			Help: "Dispatches refused by the transport",
		}),
	}
}

// Started records an invocation entering the pending state.
func (c *Collector) Started() {
	if c == nil {
		return
	}
	c.started.Inc()
	c.pending.Inc()
}

// Finished records a terminal event. outcome is success, failure, cancel
// or timeout.
func (c *Collector) Finished(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.finished.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(d.Seconds())
	c.pending.Dec()
}

// TransportFailure records a started invocation whose dispatch was
// refused and rolled back.
func (c *Collector) TransportFailure() {
	if c == nil {
		return
	}
	c.transportFailure.Inc()
	c.pending.Dec()
}

// LinkDecision records a send that hit an in-flight invocation.
func (c *Collector) LinkDecision(policy string) {
	if c == nil {
		return
	}
	c.linkDecisions.WithLabelValues(policy).Inc()
}

// StaleDelivery implements registry.Observer.
func (c *Collector) StaleDelivery() {
	if c == nil {
		return
	}
	c.staleDeliveries.Inc()
}

// IDCollision implements registry.Observer.
func (c *Collector) IDCollision() {
	if c == nil {
		return
	}
	c.idCollisions.Inc()
}
