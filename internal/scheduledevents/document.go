package scheduledevents

import (
	"strings"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
)

// document — JSON-документ metadata-эндпоинта scheduledevents.
type document struct {
	DocumentIncarnation int           `json:"DocumentIncarnation"`
	Events              []eventRecord `json:"Events"`
}

type eventRecord struct {
	EventID           string   `json:"EventId"`
	EventStatus       string   `json:"EventStatus"`
	EventType         string   `json:"EventType"`
	ResourceType      string   `json:"ResourceType"`
	Resources         []string `json:"Resources"`
	NotBefore         string   `json:"NotBefore"` // RFC1123 или пустая строка
	EventSource       string   `json:"EventSource"`
	Description       string   `json:"Description"`
	DurationInSeconds int      `json:"DurationInSeconds"`
}

// notBeforeLayouts — платформа отдаёт RFC1123 ("Mon, 19 Sep 2016 18:29:47 GMT"),
// эмуляторы иногда RFC3339.
var notBeforeLayouts = []string{time.RFC1123, time.RFC1123Z, time.RFC3339}

func (d *document) toSnapshot() *domain.ScheduledEventsSnapshot {
	snapshot := &domain.ScheduledEventsSnapshot{
		DocumentIncarnation: d.DocumentIncarnation,
		Events:              make([]domain.ScheduledEvent, 0, len(d.Events)),
	}
	for i := range d.Events {
		rec := &d.Events[i]
		snapshot.Events = append(snapshot.Events, domain.ScheduledEvent{
			EventID:           rec.EventID,
			EventStatus:       rec.EventStatus,
			EventType:         rec.EventType,
			ResourceType:      rec.ResourceType,
			Resources:         append([]string(nil), rec.Resources...),
			NotBefore:         parseNotBefore(rec.NotBefore),
			EventSource:       rec.EventSource,
			Description:       rec.Description,
			DurationInSeconds: rec.DurationInSeconds,
		})
	}
	return snapshot
}

// parseNotBefore — нераспознанное время не ошибка: предикат эвикции от него не зависит.
func parseNotBefore(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range notBeforeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}
