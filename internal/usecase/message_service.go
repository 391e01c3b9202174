package usecase

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports"
)

// Проверка, что MessageService удовлетворяет порту.
var _ ports.MessageProcessor = (*MessageService)(nil)

// ErrEmptyMessage — тело пустое: обрабатывать нечего, сообщение остаётся неподтверждённым.
var ErrEmptyMessage = errors.New("message body is empty")

// maxLoggedBody — сколько байт тела попадает в лог.
const maxLoggedBody = 512

// MessageService — обработчик по умолчанию: логирует тело сообщения.
type MessageService struct {
	log ports.Logger
	// simulatedWork — искусственная длительность обработки (стенды, проверка остановки).
	simulatedWork time.Duration
}

// NewMessageService — DI-конструктор.
func NewMessageService(log ports.Logger, simulatedWork time.Duration) *MessageService {
	return &MessageService{log: log, simulatedWork: simulatedWork}
}

// Process — обработать одно сообщение. Ожидание simulatedWork прерывается отменой контекста.
func (s *MessageService) Process(ctx context.Context, msg domain.Message) error {
	if len(bytes.TrimSpace(msg.Body)) == 0 {
		return ErrEmptyMessage
	}

	if s.simulatedWork > 0 {
		t := time.NewTimer(s.simulatedWork)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	body := msg.Body
	suffix := ""
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody]
		suffix = "..."
	}
	s.log.Infof(ctx, "message received id=%s dequeue_count=%d body=%s%s", msg.ID, msg.DequeueCount, body, suffix)
	return nil
}
