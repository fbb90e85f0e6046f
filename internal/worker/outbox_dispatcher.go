// Package worker holds the Command Service's background outbox dispatcher
// and the generic consumer pool every event-subscribing service runs its
// handlers on.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/metrics"
	"github.com/todoplatform/eventbackbone/internal/repository"
)

// OutboxDispatcher polls the event_outbox table for rows written in the
// same transaction as a domain mutation and publishes them to the bus,
// marking each dispatched on success. This is what makes
// publish-after-commit durable across a crash between the domain write and
// the bus publish.
type OutboxDispatcher struct {
	outbox   repository.OutboxRepository
	bus      events.Bus
	interval time.Duration
	batch    int
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewOutboxDispatcher builds a dispatcher. metrics may be nil, in which
// case publish counters are simply not recorded.
func NewOutboxDispatcher(
	outbox repository.OutboxRepository,
	bus events.Bus,
	interval time.Duration,
	batch int,
	m *metrics.Metrics,
	logger *zap.Logger,
) *OutboxDispatcher {
	return &OutboxDispatcher{outbox: outbox, bus: bus, interval: interval, batch: batch, metrics: m, logger: logger}
}

// Run ticks every interval and dispatches any undispatched rows. Stops
// cleanly when ctx is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("outbox dispatcher started", zap.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *OutboxDispatcher) poll(ctx context.Context) {
	rows, err := d.outbox.FindUndispatched(ctx, d.batch)
	if err != nil {
		d.logger.Error("outbox poll error", zap.Error(err))
		return
	}

	for _, row := range rows {
		var env events.Envelope
		if err := json.Unmarshal(row.Payload, &env); err != nil {
			d.logger.Error("malformed outbox payload, skipping", zap.String("id", row.ID), zap.Error(err))
			continue
		}

		if err := d.bus.Publish(ctx, env); err != nil {
			d.logger.Warn("outbox publish failed, will retry next tick",
				zap.String("id", row.ID), zap.String("event_type", row.EventType), zap.Error(err))
			continue
		}

		if err := d.outbox.MarkDispatched(ctx, row.ID); err != nil {
			d.logger.Error("failed to mark outbox row dispatched", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		if d.metrics != nil {
			d.metrics.EventsPublished.WithLabelValues(row.EventType).Inc()
		}
	}

	if len(rows) > 0 {
		d.logger.Info("dispatched outbox rows", zap.Int("count", len(rows)))
	}
}
