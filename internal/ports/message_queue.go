package ports

import (
	"context"

	"github.com/Gunvolt24/spot_drain/internal/domain"
)

// MessageQueue — очередь с арендой сообщений (lease/ack).
type MessageQueue interface {
	// Receive — арендовать до max видимых сообщений; пустой результат — не ошибка.
	Receive(ctx context.Context, max int) ([]domain.Message, error)

	// Delete — подтвердить обработку. queue.ErrNotFound, если аренда уже истекла
	// или сообщение удалено ранее.
	Delete(ctx context.Context, id, receipt string) error

	Close() error
}

// MessageSender — публикация сообщений (cmd/enqueue, тесты).
type MessageSender interface {
	Send(ctx context.Context, body []byte) (string, error)
}

// QueueClient — бэкенд очереди, умеющий и читать, и писать.
type QueueClient interface {
	MessageQueue
	MessageSender
}
