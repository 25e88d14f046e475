package webhook

import (
	"context"
	"log/slog"
	"sync"

	"github.com/VictoriaMetrics/metrics"

	"paystack-service/internal/logcontext"
	"paystack-service/internal/message"
	"paystack-service/internal/payment"
)

var (
	processedCounter = metrics.GetOrCreateCounter(`webhook_queue_total{result="processed"}`)
	rejectedCounter  = metrics.GetOrCreateCounter(`webhook_queue_total{result="rejected"}`)
)

type Handler interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (payment.Result, error)
}

// Processor runs queued webhook deliveries with bounded parallelism.
type Processor struct {
	handler Handler
	sem     chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
}

func NewProcessor(handler Handler, parallelism int, logger *slog.Logger) *Processor {
	return &Processor{
		handler: handler,
		sem:     make(chan struct{}, parallelism),
		logger:  logger,
	}
}

// Process blocks until a slot is free and handles the delivery in the
// background. Outcomes are logged by the reconciler; a rejected delivery is
// not retried because Paystack redelivers on its own schedule.
func (p *Processor) Process(ctx context.Context, delivery message.WebhookDelivery) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()

		ctx := logcontext.AppendCtx(context.WithoutCancel(ctx), slog.String("deliveryId", delivery.ID.String()))

		result, err := p.handler.HandleWebhook(ctx, delivery.Body, delivery.Signature)
		if err != nil {
			rejectedCounter.Inc()
			return
		}
		processedCounter.Inc()
		p.logger.DebugContext(ctx, "Queued webhook processed", "state", result.State)
	}()

	return nil
}

// Wait blocks until all in-flight deliveries are done.
func (p *Processor) Wait() {
	p.wg.Wait()
}
