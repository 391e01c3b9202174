package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config — параметры Kafka-бэкенда очереди.
type Config struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string // first|last

	// FetchWait — сколько Receive ждёт первые сообщения пачки.
	FetchWait time.Duration
	// Visibility — срок, после которого неподтверждённая аренда считается истёкшей.
	Visibility time.Duration
}

// ReaderConfig — конфиг kafka.Reader с ручным коммитом оффсетов.
func (c *Config) ReaderConfig() kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		CommitInterval: 0,
	}

	switch strings.ToLower(strings.TrimSpace(c.StartOffset)) {
	case "first":
		rc.StartOffset = kafka.FirstOffset
	default:
		rc.StartOffset = kafka.LastOffset
	}

	return rc
}
