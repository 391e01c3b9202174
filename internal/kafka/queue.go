package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/internal/queue"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Проверка, что Queue удовлетворяет порту.
var _ ports.QueueClient = (*Queue)(nil)

// reader — минимальный контракт над kafka.Reader, чтобы подменять его моками в тестах.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// writer — контракт над kafka.Writer.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const defaultFetchWait = 500 * time.Millisecond

type lease struct {
	msg      kafka.Message
	leasedAt time.Time
}

// Queue — очередь поверх consumer group: аренда = FetchMessage без коммита,
// подтверждение = CommitMessages. Receipt — uuid, по которому хранится исходное сообщение.
type Queue struct {
	reader     reader
	writer     writer
	fetchWait  time.Duration
	visibility time.Duration

	mu     sync.Mutex
	leases map[string]lease // receipt -> сообщение

	closeOnce sync.Once
	now       func() time.Time
}

// NewQueue — reader с ручным коммитом и writer в тот же топик.
func NewQueue(cfg *Config) *Queue {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.LeastBytes{},
	}
	return newQueue(kafka.NewReader(cfg.ReaderConfig()), w, cfg)
}

func newQueue(r reader, w writer, cfg *Config) *Queue {
	fw := cfg.FetchWait
	if fw <= 0 {
		fw = defaultFetchWait
	}
	vis := cfg.Visibility
	if vis <= 0 {
		vis = queue.DefaultVisibility
	}
	return &Queue{
		reader:     r,
		writer:     w,
		fetchWait:  fw,
		visibility: vis,
		leases:     make(map[string]lease),
		now:        time.Now,
	}
}

// Receive — набрать до max сообщений за окно fetchWait. Пустое окно — пустая пачка.
func (q *Queue) Receive(ctx context.Context, max int) ([]domain.Message, error) {
	max = queue.ClampMax(max, 0)
	q.pruneExpired()

	windowCtx, cancel := context.WithTimeout(ctx, q.fetchWait)
	defer cancel()

	out := make([]domain.Message, 0, max)
	for len(out) < max {
		msg, err := q.reader.FetchMessage(windowCtx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				if len(out) > 0 {
					return out, nil
				}
				return nil, ctx.Err()
			case errors.Is(err, context.DeadlineExceeded):
				// окно истекло — отдаём то, что успели набрать
				return out, nil
			case len(out) > 0:
				return out, nil
			default:
				return nil, fmt.Errorf("fetch message: %w", err)
			}
		}
		out = append(out, q.lease(msg))
	}
	return out, nil
}

func (q *Queue) lease(msg kafka.Message) domain.Message {
	receipt := uuid.NewString()

	q.mu.Lock()
	q.leases[receipt] = lease{msg: msg, leasedAt: q.now()}
	q.mu.Unlock()

	return domain.Message{
		ID:           messageID(msg),
		Body:         msg.Value,
		Receipt:      receipt,
		DequeueCount: 1,
		InsertedAt:   msg.Time,
	}
}

// Delete — закоммитить оффсет арендованного сообщения.
func (q *Queue) Delete(ctx context.Context, id, receipt string) error {
	q.mu.Lock()
	l, ok := q.leases[receipt]
	q.mu.Unlock()
	if !ok || messageID(l.msg) != id || q.expired(l) {
		return queue.ErrNotFound
	}

	if err := q.reader.CommitMessages(ctx, l.msg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("commit offset %s: %w", id, err)
	}

	q.mu.Lock()
	delete(q.leases, receipt)
	q.mu.Unlock()
	return nil
}

// Send — записать сообщение в топик; id — ключ сообщения.
func (q *Queue) Send(ctx context.Context, body []byte) (string, error) {
	key := uuid.NewString()
	if err := q.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		return "", fmt.Errorf("write message: %w", err)
	}
	return key, nil
}

// Close — закрывает reader и writer. Повторный вызов — no-op.
func (q *Queue) Close() (retErr error) {
	q.closeOnce.Do(func() {
		retErr = errors.Join(q.reader.Close(), q.writer.Close())
	})
	return retErr
}

func (q *Queue) expired(l lease) bool {
	return q.now().Sub(l.leasedAt) >= q.visibility
}

// pruneExpired — забыть истёкшие аренды, чтобы карта не росла на неподтверждённых сообщениях.
func (q *Queue) pruneExpired() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for r, l := range q.leases {
		if q.expired(l) {
			delete(q.leases, r)
		}
	}
}

func messageID(m kafka.Message) string {
	return fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset)
}
