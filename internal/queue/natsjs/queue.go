package natsjs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/internal/queue"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Проверка, что Queue удовлетворяет порту.
var _ ports.QueueClient = (*Queue)(nil)

// fetcher — часть jetstream.Consumer, нужная очереди.
type fetcher interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

// publisher — часть jetstream.JetStream, нужная очереди.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Config — параметры JetStream-бэкенда.
type Config struct {
	URL       string
	Stream    string
	Subject   string
	Durable   string
	AckWait   time.Duration // срок аренды
	FetchWait time.Duration
}

const (
	defaultFetchWait = 500 * time.Millisecond
	maxBatch         = 256
)

type lease struct {
	msg      jetstream.Msg
	leasedAt time.Time
}

// Queue — work-queue стрим + durable pull-консьюмер с явным ack.
// Неподтверждённое сообщение сервер передоставит после AckWait.
type Queue struct {
	cons      fetcher
	pub       publisher
	subject   string
	fetchWait time.Duration
	ackWait   time.Duration
	conn      *nats.Conn

	mu     sync.Mutex
	leases map[string]lease

	now func() time.Time
}

// Open — подключиться, создать (или обновить) стрим и durable-консьюмера.
func Open(ctx context.Context, cfg Config) (*Queue, error) {
	if cfg.Stream == "" || cfg.Subject == "" {
		return nil, errors.New("nats: stream and subject are required")
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = queue.DefaultVisibility
	}
	durable := cfg.Durable
	if durable == "" {
		durable = "spot-drain"
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("spot-drain"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		Durable:       durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		FilterSubject: cfg.Subject,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer %s: %w", durable, err)
	}

	q := newQueue(cons, js, cfg)
	q.conn = nc
	return q, nil
}

func newQueue(cons fetcher, pub publisher, cfg Config) *Queue {
	fw := cfg.FetchWait
	if fw <= 0 {
		fw = defaultFetchWait
	}
	ack := cfg.AckWait
	if ack <= 0 {
		ack = queue.DefaultVisibility
	}
	return &Queue{
		cons:      cons,
		pub:       pub,
		subject:   cfg.Subject,
		fetchWait: fw,
		ackWait:   ack,
		leases:    make(map[string]lease),
		now:       time.Now,
	}
}

// Receive — pull до max сообщений с ожиданием не дольше fetchWait.
func (q *Queue) Receive(ctx context.Context, max int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	max = queue.ClampMax(max, maxBatch)
	q.pruneExpired()

	batch, err := q.cons.Fetch(max, jetstream.FetchMaxWait(q.fetchWait))
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	out := make([]domain.Message, 0, max)
	msgs := batch.Messages()
	for {
		select {
		case <-ctx.Done():
			// Выбранные, но не отданные сообщения вернутся после AckWait.
			if len(out) > 0 {
				return out, nil
			}
			return nil, ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				if bErr := batch.Error(); bErr != nil && len(out) == 0 && !isEmptyFetch(bErr) {
					return nil, fmt.Errorf("fetch batch: %w", bErr)
				}
				return out, nil
			}
			out = append(out, q.lease(msg))
		}
	}
}

func isEmptyFetch(err error) bool {
	return errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func (q *Queue) lease(msg jetstream.Msg) domain.Message {
	receipt := uuid.NewString()
	m := domain.Message{
		ID:      receipt,
		Body:    msg.Data(),
		Receipt: receipt,
	}
	if md, err := msg.Metadata(); err == nil {
		m.ID = strconv.FormatUint(md.Sequence.Stream, 10)
		m.DequeueCount = int(md.NumDelivered)
		m.InsertedAt = md.Timestamp
	}

	q.mu.Lock()
	q.leases[receipt] = lease{msg: msg, leasedAt: q.now()}
	q.mu.Unlock()
	return m
}

// Delete — DoubleAck: сервер подтверждает приём ack, иначе сообщение могло бы вернуться.
func (q *Queue) Delete(ctx context.Context, id, receipt string) error {
	q.mu.Lock()
	l, ok := q.leases[receipt]
	if !ok {
		q.mu.Unlock()
		return queue.ErrNotFound
	}
	// чужой id не снимает аренду: настоящий владелец ещё может подтвердить
	if md, err := l.msg.Metadata(); err == nil && strconv.FormatUint(md.Sequence.Stream, 10) != id {
		q.mu.Unlock()
		return queue.ErrNotFound
	}
	delete(q.leases, receipt)
	q.mu.Unlock()
	if q.now().Sub(l.leasedAt) >= q.ackWait {
		return queue.ErrNotFound
	}

	if err := l.msg.DoubleAck(ctx); err != nil {
		switch {
		case errors.Is(err, jetstream.ErrMsgAlreadyAckd):
			return queue.ErrNotFound
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return fmt.Errorf("ack %s: %w", id, err)
		}
	}
	return nil
}

// Send — опубликовать в subject стрима; id — номер в стриме.
func (q *Queue) Send(ctx context.Context, body []byte) (string, error) {
	ack, err := q.pub.Publish(ctx, q.subject, body)
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	return strconv.FormatUint(ack.Sequence, 10), nil
}

func (q *Queue) Close() error {
	if q.conn != nil {
		q.conn.Close()
	}
	return nil
}

func (q *Queue) pruneExpired() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for r, l := range q.leases {
		if q.now().Sub(l.leasedAt) >= q.ackWait {
			delete(q.leases, r)
		}
	}
}
