package ports

import (
	"context"

	"github.com/Gunvolt24/spot_drain/internal/domain"
)

// MessageProcessor — прикладная обработка одного сообщения.
// Ошибка означает, что сообщение подтверждать нельзя.
type MessageProcessor interface {
	Process(ctx context.Context, msg domain.Message) error
}

// SeenCache — память об уже обработанных сообщениях (at-least-once допускает дубли).
type SeenCache interface {
	Seen(ctx context.Context, id string) bool
	Mark(ctx context.Context, id string)
}
