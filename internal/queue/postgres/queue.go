package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/internal/queue"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Проверка, что Queue удовлетворяет порту.
var _ ports.QueueClient = (*Queue)(nil)

const maxBatch = 32

// Queue — очередь поверх таблицы queue_messages. Аренда — UPDATE с FOR UPDATE SKIP LOCKED,
// receipt — свежий uuid на каждую аренду.
type Queue struct {
	pool       *pgxpool.Pool
	name       string
	visibility time.Duration
	ownsPool   bool
}

// Options — параметры очереди.
type Options struct {
	Name       string
	Visibility time.Duration
}

// New — очередь на чужом пуле (пул не закрывается в Close).
func New(pool *pgxpool.Pool, opts Options) *Queue {
	vis := opts.Visibility
	if vis <= 0 {
		vis = queue.DefaultVisibility
	}
	return &Queue{pool: pool, name: opts.Name, visibility: vis}
}

// Open — создать пул, при необходимости применить миграции; Close закроет пул.
func Open(ctx context.Context, dsn string, maxConns int32, migrate bool, opts Options) (*Queue, error) {
	pool, err := NewPool(ctx, dsn, maxConns)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	q := New(pool, opts)
	q.ownsPool = true
	return q, nil
}

type row struct {
	ID           string    `db:"id"`
	Body         []byte    `db:"body"`
	Receipt      string    `db:"receipt"`
	DequeueCount int       `db:"dequeue_count"`
	InsertedAt   time.Time `db:"inserted_at"`
}

const receiveSQL = `
	WITH next AS (
		SELECT id
		FROM queue_messages
		WHERE queue = $1 AND visible_at <= now()
		ORDER BY inserted_at, id
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	)
	UPDATE queue_messages m
	SET receipt       = gen_random_uuid(),
	    visible_at    = now() + make_interval(secs => $3),
	    dequeue_count = m.dequeue_count + 1
	FROM next
	WHERE m.id = next.id
	RETURNING m.id::text AS id, m.body, m.receipt::text AS receipt, m.dequeue_count, m.inserted_at
`

// Receive — арендовать до max сообщений.
func (q *Queue) Receive(ctx context.Context, max int) ([]domain.Message, error) {
	max = queue.ClampMax(max, maxBatch)

	var rows []row
	if err := pgxscan.Select(ctx, q.pool, &rows, receiveSQL, q.name, max, q.visibility.Seconds()); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("receive from %s: %w", q.name, err)
	}

	// RETURNING не гарантирует порядок.
	sortByInsertion(rows)

	out := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Message{
			ID:           r.ID,
			Body:         r.Body,
			Receipt:      r.Receipt,
			DequeueCount: r.DequeueCount,
			InsertedAt:   r.InsertedAt,
		})
	}
	return out, nil
}

// sortByInsertion — тот же порядок, что ORDER BY inserted_at, id в receiveSQL.
// id — uuid в каноническом виде, строковое сравнение совпадает с порядком uuid в Postgres.
func sortByInsertion(rows []row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].InsertedAt.Equal(rows[j].InsertedAt) {
			return rows[i].InsertedAt.Before(rows[j].InsertedAt)
		}
		return rows[i].ID < rows[j].ID
	})
}

// Delete — удалить, только если receipt действующий и аренда не истекла.
func (q *Queue) Delete(ctx context.Context, id, receipt string) error {
	// Невалидный uuid — заведомо чужой/устаревший receipt, а не ошибка БД.
	msgID, err := uuid.Parse(id)
	if err != nil {
		return queue.ErrNotFound
	}
	rcpt, err := uuid.Parse(receipt)
	if err != nil {
		return queue.ErrNotFound
	}

	tag, err := q.pool.Exec(ctx, `
		DELETE FROM queue_messages
		WHERE queue = $1 AND id = $2 AND receipt = $3 AND visible_at > now()
	`, q.name, msgID.String(), rcpt.String())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrNotFound
	}
	return nil
}

// Send — вставить сообщение, вернуть его id.
func (q *Queue) Send(ctx context.Context, body []byte) (string, error) {
	if body == nil {
		return "", errors.New("body is nil")
	}
	var id string
	if err := q.pool.QueryRow(ctx, `
		INSERT INTO queue_messages (queue, body) VALUES ($1, $2) RETURNING id::text
	`, q.name, body).Scan(&id); err != nil {
		return "", fmt.Errorf("send to %s: %w", q.name, err)
	}
	return id, nil
}

func (q *Queue) Close() error {
	if q.ownsPool {
		q.pool.Close()
	}
	return nil
}
