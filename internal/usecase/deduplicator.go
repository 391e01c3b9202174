package usecase

import (
	"context"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports"
)

// Проверка, что Deduplicator удовлетворяет порту.
var _ ports.MessageProcessor = (*Deduplicator)(nil)

// Deduplicator — пропускает повторную доставку уже обработанного сообщения.
// Отметка ставится только после успешной обработки; дубль считается успехом,
// чтобы консьюмер всё-таки подтвердил его.
type Deduplicator struct {
	next ports.MessageProcessor
	seen ports.SeenCache
	log  ports.Logger
}

func NewDeduplicator(next ports.MessageProcessor, seen ports.SeenCache, log ports.Logger) *Deduplicator {
	return &Deduplicator{next: next, seen: seen, log: log}
}

func (d *Deduplicator) Process(ctx context.Context, msg domain.Message) error {
	if msg.ID != "" && d.seen.Seen(ctx, msg.ID) {
		d.log.Infof(ctx, "duplicate delivery skipped id=%s dequeue_count=%d", msg.ID, msg.DequeueCount)
		return nil
	}
	if err := d.next.Process(ctx, msg); err != nil {
		return err
	}
	d.seen.Mark(ctx, msg.ID)
	return nil
}
