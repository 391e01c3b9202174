package domain

import "time"

// Типы событий платформы. Для остановки интересен только Preempt,
// остальные перечислены для полноты логов.
const (
	EventTypePreempt   = "Preempt"
	EventTypeReboot    = "Reboot"
	EventTypeRedeploy  = "Redeploy"
	EventTypeFreeze    = "Freeze"
	EventTypeTerminate = "Terminate"
)

// ScheduledEvent — запланированное платформой действие над ресурсами.
type ScheduledEvent struct {
	EventID           string
	EventStatus       string
	EventType         string
	ResourceType      string
	Resources         []string
	NotBefore         *time.Time // nil — платформа не указала время
	EventSource       string
	Description       string
	DurationInSeconds int
}

// ScheduledEventsSnapshot — неизменяемый снимок, полученный за один опрос.
// Потребители не должны модифицировать Events.
type ScheduledEventsSnapshot struct {
	DocumentIncarnation int
	Events              []ScheduledEvent
}

// HasResource — входит ли ресурс в список затронутых событием.
func (e *ScheduledEvent) HasResource(name string) bool {
	for _, r := range e.Resources {
		if r == name {
			return true
		}
	}
	return false
}
