package domain

import "time"

// Status — срез состояния воркера для ops-эндпоинта /status.
type Status struct {
	Phase     string     `json:"phase"`
	Monitor   string     `json:"monitor"`
	Consumer  string     `json:"consumer"`
	Evicted   bool       `json:"evicted"`
	Reason    string     `json:"reason,omitempty"`
	TrippedAt *time.Time `json:"tripped_at,omitempty"`
}
