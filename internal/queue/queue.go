// Package queue — общие ошибки и константы бэкендов очереди с арендой сообщений.
package queue

import (
	"errors"
	"time"
)

var (
	// ErrNotFound — аренда истекла или сообщение уже удалено. Для консьюмера не ошибка.
	ErrNotFound = errors.New("queue: message not found or lease expired")

	// ErrClosed — клиент очереди закрыт.
	ErrClosed = errors.New("queue: client closed")
)

// Имена бэкендов (SPOT_QUEUE_BACKEND, метка backend у метрик).
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendKafka    = "kafka"
	BackendNATS     = "nats"
)

// DefaultVisibility — срок аренды по умолчанию.
const DefaultVisibility = 30 * time.Second

// ClampMax — нормализует размер пачки: не меньше 1 и не больше limit.
func ClampMax(max, limit int) int {
	if max < 1 {
		return 1
	}
	if limit > 0 && max > limit {
		return limit
	}
	return max
}
