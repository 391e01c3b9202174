package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/internal/queue"
	"github.com/google/uuid"
)

// Проверка, что Queue удовлетворяет порту.
var _ ports.QueueClient = (*Queue)(nil)

// maxBatch — верхняя граница Receive, как у облачных очередей.
const maxBatch = 32

type entry struct {
	msg       domain.Message
	visibleAt time.Time
	receipt   string
}

// Queue — потокобезопасная очередь в памяти с арендой.
// Порядок FIFO по времени вставки; арендованное сообщение невидимо до visibleAt.
type Queue struct {
	mu         sync.Mutex
	ll         *list.List               // *entry, порядок вставки
	index      map[string]*list.Element // id -> элемент
	visibility time.Duration
	closed     bool

	// now — источник времени (подменяется в тестах).
	now func() time.Time
}

// New — очередь с заданным сроком аренды (<= 0 → queue.DefaultVisibility).
func New(visibility time.Duration) *Queue {
	if visibility <= 0 {
		visibility = queue.DefaultVisibility
	}
	return &Queue{
		ll:         list.New(),
		index:      make(map[string]*list.Element),
		visibility: visibility,
		now:        time.Now,
	}
}

// Send — положить сообщение; возвращает присвоенный id.
func (q *Queue) Send(ctx context.Context, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", queue.ErrClosed
	}

	now := q.now()
	id := uuid.NewString()
	e := &entry{
		msg: domain.Message{
			ID:         id,
			Body:       append([]byte(nil), body...),
			InsertedAt: now,
		},
		visibleAt: now,
	}
	q.index[id] = q.ll.PushBack(e)
	return id, nil
}

// Receive — арендовать до max видимых сообщений. Каждая аренда получает новый receipt,
// старый после этого недействителен.
func (q *Queue) Receive(ctx context.Context, max int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	max = queue.ClampMax(max, maxBatch)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, queue.ErrClosed
	}

	now := q.now()
	out := make([]domain.Message, 0, max)
	for el := q.ll.Front(); el != nil && len(out) < max; el = el.Next() {
		e := el.Value.(*entry)
		if e.visibleAt.After(now) {
			continue
		}
		e.receipt = uuid.NewString()
		e.visibleAt = now.Add(q.visibility)
		e.msg.DequeueCount++

		m := e.msg
		m.Body = append([]byte(nil), e.msg.Body...)
		m.Receipt = e.receipt
		out = append(out, m)
	}
	return out, nil
}

// Delete — удалить по id и действующему receipt. Истёкшая аренда или повторное удаление — ErrNotFound.
func (q *Queue) Delete(ctx context.Context, id, receipt string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return queue.ErrClosed
	}

	el, ok := q.index[id]
	if !ok {
		return queue.ErrNotFound
	}
	e := el.Value.(*entry)
	if e.receipt == "" || e.receipt != receipt || !e.visibleAt.After(q.now()) {
		return queue.ErrNotFound
	}
	q.ll.Remove(el)
	delete(q.index, id)
	return nil
}

// Len — число сообщений в очереди, включая арендованные.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ll.Len()
}

func (q *Queue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return nil
}
