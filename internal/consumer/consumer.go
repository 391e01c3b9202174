package consumer

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/pkg/metrics"
	"github.com/Gunvolt24/spot_drain/pkg/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Проверка, что Consumer удовлетворяет интерфейсу верхнего уровня (порт приложения).
var _ ports.MessageConsumer = (*Consumer)(nil)

// Состояния консьюмера.
const (
	StateReady    = "ready"
	StateDraining = "draining"
	StateStopped  = "stopped"
)

var stateGauge = map[string]float64{
	StateReady:    0,
	StateDraining: 1,
	StateStopped:  2,
}

// Consumer — цикл аренды и обработки сообщений (at-least-once):
// подтверждаем только успешно обработанные, при отмене бросаем остаток пачки.
type Consumer struct {
	queue ports.MessageQueue
	proc  ports.MessageProcessor
	log   ports.Logger
	cfg   Config

	state     atomic.Value // string
	stopped   chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once

	jitterRand *rand.Rand
	tracer     trace.Tracer
}

// New — конструктор; нулевые поля конфига заменяются значениями по умолчанию.
func New(cfg Config, queue ports.MessageQueue, proc ports.MessageProcessor, log ports.Logger) *Consumer {
	c := &Consumer{
		queue:   queue,
		proc:    proc,
		log:     log,
		cfg:     cfg.withDefaults(),
		stopped: make(chan struct{}),
		// jitterRand — источник случайности, чтобы рассинхронизировать экспоненциальный backoff.
		jitterRand: rand.New(rand.NewSource(time.Now().UnixNano())),
		tracer:     telemetry.Tracer("consumer"),
	}
	c.state.Store(StateReady)
	metrics.ConsumerState.Set(stateGauge[StateReady])
	return c
}

func (c *Consumer) State() string { return c.state.Load().(string) }

// Stopped — закрывается после выхода из Run.
func (c *Consumer) Stopped() <-chan struct{} { return c.stopped }

// Run — основной цикл:
// 1) Receive до BatchSize сообщений; пусто → пауза EmptyDelay;
// 2) каждое сообщение: обработка с таймаутом → Delete только при успехе;
// 3) ошибка Receive → backoff с equal-jitter;
// 4) отмена контекста → Stopped, возвращаем nil.
func (c *Consumer) Run(ctx context.Context) error {
	c.setState(ctx, StateDraining)
	defer func() {
		c.setState(context.WithoutCancel(ctx), StateStopped)
		c.stopOnce.Do(func() { close(c.stopped) })
	}()

	c.log.Infof(ctx, "message consumer started backend=%s batch_size=%d", c.cfg.Backend, c.cfg.BatchSize)

	retry := c.cfg.RetryInitial
	for {
		if ctx.Err() != nil {
			return nil
		}

		msgs, err := c.queue.Receive(ctx, c.cfg.BatchSize)
		if err != nil {
			// Отмена во время Receive — штатная остановка, а не сбой.
			if ctx.Err() != nil {
				return nil
			}
			sleep := c.withJitterEqual(retry)
			c.log.Warnf(ctx, "receive failed: %v (will retry in %s)", err, sleep)
			if !c.sleepWithBackoff(ctx, sleep) {
				return nil
			}
			retry = c.nextBackoff(retry)
			continue
		}
		retry = c.cfg.RetryInitial

		if len(msgs) == 0 {
			if !c.sleepWithBackoff(ctx, c.cfg.EmptyDelay) {
				return nil
			}
			continue
		}

		metrics.QueueMessagesReceived.WithLabelValues(c.cfg.Backend).Add(float64(len(msgs)))
		c.drainBatch(ctx, msgs)
	}
}

// Close — закрывает клиент очереди. Вызывается при остановке приложения.
func (c *Consumer) Close() (retErr error) {
	c.closeOnce.Do(func() {
		retErr = c.queue.Close()
	})
	return retErr
}

func (c *Consumer) setState(ctx context.Context, to string) {
	from := c.State()
	if from == to {
		return
	}
	c.state.Store(to)
	metrics.ConsumerState.Set(stateGauge[to])
	trace.SpanFromContext(ctx).AddEvent("consumer.state." + to)
	c.log.Infof(ctx, "message consumer state %s -> %s", from, to)
}
