package ports

import (
	"context"

	"github.com/Gunvolt24/spot_drain/internal/domain"
)

// EventSource — источник запланированных событий платформы.
// (nil, nil) — снимка в этом цикле нет, это не ошибка и не "эвикции нет".
type EventSource interface {
	Fetch(ctx context.Context) (*domain.ScheduledEventsSnapshot, error)
}
