package eventbus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsOptions configures the bus collectors.
type MetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
}

// Metrics counts published events and handler failures per event type.
type Metrics struct {
	Published *prometheus.CounterVec
	Failures  *prometheus.CounterVec
}

// NewMetrics constructs and registers the bus collectors.
func NewMetrics(opts MetricsOptions) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "books"
	}

	subsystem := opts.Subsystem
	if subsystem == "" {
		subsystem = "eventbus"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	published, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "events_published_total",
		Help:      "Total number of domain events published partitioned by event type.",
	})
	if err != nil {
		return nil, err
	}

	failures, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handler_failures_total",
		Help:      "Total number of event handler failures partitioned by event type.",
	})
	if err != nil {
		return nil, err
	}

	return &Metrics{Published: published, Failures: failures}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, []string{"event_type"})
	if err := reg.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("existing %s collector has unexpected type %T", opts.Name, already.ExistingCollector)
		}
		return nil, fmt.Errorf("register %s collector: %w", opts.Name, err)
	}
	return vec, nil
}

func (m *Metrics) published(eventType string) {
	if m == nil || m.Published == nil {
		return
	}
	m.Published.WithLabelValues(eventType).Inc()
}

func (m *Metrics) failed(eventType string) {
	if m == nil || m.Failures == nil {
		return
	}
	m.Failures.WithLabelValues(eventType).Inc()
}
