package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups all Prometheus instruments shared across the five
// services. Registered once at startup via New(); passed by pointer
// wherever needed. Not every service touches every instrument (the
// Notification Service never increments TasksCreated, for instance) but
// sharing one registry per process keeps /metrics uniform across services.
type Metrics struct {
	EventsPublished    *prometheus.CounterVec
	EventsConsumed     *prometheus.CounterVec
	IdempotentDrops    *prometheus.CounterVec
	TasksCreated       prometheus.Counter
	RecurringGenerated prometheus.Counter
	RemindersScheduled prometheus.Counter
	WebsocketConns     prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of envelopes published to the bus.",
		}, []string{"event_type"}),

		EventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Total number of envelopes consumed from the bus.",
		}, []string{"event_type"}),

		IdempotentDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotent_drops_total",
			Help: "Total number of envelopes dropped as already-processed redeliveries.",
		}, []string{"service"}),

		TasksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total number of tasks created.",
		}),

		RecurringGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recurring_generated_total",
			Help: "Total number of successor tasks generated from a recurrence rule.",
		}),

		RemindersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminders_scheduled_total",
			Help: "Total number of reminder jobs scheduled with the external scheduler.",
		}),

		WebsocketConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of live WebSocket connections on this gateway instance.",
		}),
	}

	reg.MustRegister(
		m.EventsPublished,
		m.EventsConsumed,
		m.IdempotentDrops,
		m.TasksCreated,
		m.RecurringGenerated,
		m.RemindersScheduled,
		m.WebsocketConns,
	)

	return m
}
