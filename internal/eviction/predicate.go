package eviction

import "github.com/Gunvolt24/spot_drain/internal/domain"

// FindEviction — первое событие Preempt, затрагивающее sentinel.
// Сравнение точное: регистр и пробелы значимы.
func FindEviction(snapshot *domain.ScheduledEventsSnapshot, sentinel string) (domain.ScheduledEvent, bool) {
	if snapshot == nil || sentinel == "" {
		return domain.ScheduledEvent{}, false
	}
	for i := range snapshot.Events {
		ev := &snapshot.Events[i]
		if ev.EventType == domain.EventTypePreempt && ev.HasResource(sentinel) {
			return *ev, true
		}
	}
	return domain.ScheduledEvent{}, false
}

// IsEvictionScheduled — предикат срабатывания монитора.
func IsEvictionScheduled(snapshot *domain.ScheduledEventsSnapshot, sentinel string) bool {
	_, ok := FindEviction(snapshot, sentinel)
	return ok
}
