package scheduledevents

import (
	"context"
	"sync/atomic"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports"
)

// Проверка, что FakeSource удовлетворяет порту EventSource.
var _ ports.EventSource = (*FakeSource)(nil)

// DefaultFakeThreshold — сколько вызовов подряд фейк отвечает "снимка нет".
const DefaultFakeThreshold = 10

// FakeSource — детерминированный источник для тестов и стендов без платформы:
// первые threshold вызовов возвращают (nil, nil), дальше — всегда Preempt для sentinel.
type FakeSource struct {
	threshold int64
	sentinel  string
	calls     atomic.Int64
}

// NewFakeSource — threshold < 0 заменяется на DefaultFakeThreshold; 0 — эвикция с первого вызова.
func NewFakeSource(threshold int, sentinel string) *FakeSource {
	if threshold < 0 {
		threshold = DefaultFakeThreshold
	}
	return &FakeSource{threshold: int64(threshold), sentinel: sentinel}
}

func (f *FakeSource) Fetch(ctx context.Context) (*domain.ScheduledEventsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := f.calls.Add(1); n <= f.threshold {
		return nil, nil
	}
	return &domain.ScheduledEventsSnapshot{
		Events: []domain.ScheduledEvent{{
			EventID:   "fake-preempt",
			EventType: domain.EventTypePreempt,
			Resources: []string{f.sentinel},
		}},
	}, nil
}

// Calls — число вызовов Fetch (счётчик монотонный).
func (f *FakeSource) Calls() int64 { return f.calls.Load() }
