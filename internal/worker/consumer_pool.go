package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/metrics"
)

// Handler processes one envelope and reports whether the bus should retry
// delivery (true) or ack it (false, including the success case).
type Handler func(ctx context.Context, env events.Envelope) (retry bool)

// ConsumerPool runs N goroutines pulling from the same subscription
// channel, each acking or asking for retry per the handler's verdict. All
// workers are identical; concurrency comes purely from fan-out over one
// channel, the same shape as the notification worker pool this is adapted
// from, minus the per-channel rate limiter (there is no analogous concept
// on the consumer side of the bus).
type ConsumerPool struct {
	messages <-chan events.Message
	handler  Handler
	size     int
	logger   *zap.Logger
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

// NewConsumerPool builds a pool of size workers. metrics may be nil, in
// which case per-message counters are simply not recorded.
func NewConsumerPool(messages <-chan events.Message, handler Handler, size int, m *metrics.Metrics, logger *zap.Logger) *ConsumerPool {
	if size < 1 {
		size = 1
	}
	return &ConsumerPool{messages: messages, handler: handler, size: size, metrics: m, logger: logger}
}

// Start launches the pool's goroutines. Each worker returns as soon as ctx
// is cancelled or the channel closes; messages still buffered are not drained.
func (p *ConsumerPool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
}

// Wait blocks until every worker has returned.
func (p *ConsumerPool) Wait() {
	p.wg.Wait()
}

func (p *ConsumerPool) run(ctx context.Context, id int) {
	log := p.logger.With(zap.Int("worker_id", id))
	log.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopping")
			return
		case msg, ok := <-p.messages:
			if !ok {
				log.Info("consumer channel closed")
				return
			}
			p.process(ctx, msg, log)
		}
	}
}

func (p *ConsumerPool) process(ctx context.Context, msg events.Message, log *zap.Logger) {
	if p.metrics != nil {
		p.metrics.EventsConsumed.WithLabelValues(msg.Envelope.Type).Inc()
	}
	if p.handler(ctx, msg.Envelope) {
		msg.Retry()
		return
	}
	if err := msg.Ack(ctx); err != nil {
		log.Error("ack failed", zap.String("event_id", msg.Envelope.ID), zap.Error(err))
	}
}
