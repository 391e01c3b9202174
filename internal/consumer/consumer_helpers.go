package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/queue"
	"github.com/Gunvolt24/spot_drain/pkg/ctxmeta"
	"github.com/Gunvolt24/spot_drain/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// drainBatch — обработать пачку по порядку; после отмены остаток не трогаем.
func (c *Consumer) drainBatch(ctx context.Context, msgs []domain.Message) {
	for i := range msgs {
		if ctx.Err() != nil {
			c.abandon(ctx, len(msgs)-i)
			return
		}
		c.handleMessage(ctx, msgs[i])
	}
}

// handleMessage — обработка одного сообщения и, при успехе, подтверждение.
func (c *Consumer) handleMessage(ctx context.Context, msg domain.Message) {
	ctx = ctxmeta.WithMessageID(ctx, msg.ID)
	ctx, span := c.tracer.Start(ctx, "consumer.process", trace.WithAttributes(
		attribute.String("messaging.message.id", msg.ID),
		attribute.Int("messaging.dequeue_count", msg.DequeueCount),
	))
	defer span.End()

	procCtx, cancel := context.WithTimeout(ctx, c.cfg.ProcessTimeout)
	err := c.proc.Process(procCtx, msg)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			// Обработку прервала остановка — сообщение вернётся после истечения аренды.
			c.abandon(ctx, 1)
			return
		}
		span.RecordError(err)
		metrics.QueueMessagesFailed.WithLabelValues(c.cfg.Backend).Inc()
		c.log.Warnf(ctx, "process failed id=%s dequeue_count=%d: %v (left unacknowledged)", msg.ID, msg.DequeueCount, err)
		return
	}

	metrics.QueueMessagesProcessed.WithLabelValues(c.cfg.Backend).Inc()
	c.ack(ctx, msg)
}

// ack — один Delete без повторов. Если общий контекст уже отменён, а обработка завершилась,
// подтверждаем на отвязанном контексте с коротким таймаутом.
func (c *Consumer) ack(ctx context.Context, msg domain.Message) {
	base := ctx
	if ctx.Err() != nil {
		base = context.WithoutCancel(ctx)
	}
	ackCtx, cancel := context.WithTimeout(base, c.cfg.AckTimeout)
	defer cancel()

	err := c.queue.Delete(ackCtx, msg.ID, msg.Receipt)
	switch {
	case err == nil:
		metrics.QueueDeletes.WithLabelValues(c.cfg.Backend, "ok").Inc()
	case errors.Is(err, queue.ErrNotFound):
		metrics.QueueDeletes.WithLabelValues(c.cfg.Backend, "not_found").Inc()
		c.log.Infof(ctx, "delete skipped id=%s: lease expired or already deleted", msg.ID)
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		metrics.QueueDeletes.WithLabelValues(c.cfg.Backend, "cancelled").Inc()
		c.log.Infof(ctx, "delete interrupted by shutdown id=%s (message will be redelivered)", msg.ID)
	default:
		metrics.QueueDeletes.WithLabelValues(c.cfg.Backend, "error").Inc()
		c.log.Warnf(ctx, "delete failed id=%s: %v (message will be redelivered)", msg.ID, err)
	}
}

func (c *Consumer) abandon(ctx context.Context, n int) {
	metrics.QueueMessagesAbandoned.WithLabelValues(c.cfg.Backend).Add(float64(n))
	c.log.Infof(ctx, "shutdown requested: abandoning %d leased message(s) without acknowledgement", n)
}

// sleepWithBackoff ждет d или останавливается по контексту.
func (c *Consumer) sleepWithBackoff(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// nextBackoff возвращает следующее время ожидания повтора с учетом RetryMax.
func (c *Consumer) nextBackoff(current time.Duration) time.Duration {
	current *= 2
	if current > c.cfg.RetryMax {
		return c.cfg.RetryMax
	}
	return current
}

// withJitterEqual — половина задержки фиксирована, вторая половина случайна.
func (c *Consumer) withJitterEqual(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	jitter := time.Duration(c.jitterRand.Int63n(int64(d-half) + 1))
	return half + jitter
}
