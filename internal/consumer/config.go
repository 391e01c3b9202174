package consumer

import "time"

// Значения по умолчанию.
const (
	DefaultBatchSize      = 10
	DefaultEmptyDelay     = time.Second
	DefaultProcessTimeout = 10 * time.Second
	DefaultAckTimeout     = 2 * time.Second
	DefaultRetryInitial   = time.Second
	DefaultRetryMax       = 10 * time.Second
)

// Config — параметры цикла выборки.
type Config struct {
	BatchSize      int
	EmptyDelay     time.Duration // пауза после пустой пачки
	ProcessTimeout time.Duration // таймаут обработки одного сообщения
	AckTimeout     time.Duration // таймаут Delete
	RetryInitial   time.Duration // backoff на ошибках Receive
	RetryMax       time.Duration
	Backend        string // метка backend у метрик
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.EmptyDelay <= 0 {
		c.EmptyDelay = DefaultEmptyDelay
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = DefaultProcessTimeout
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	if c.RetryInitial <= 0 {
		c.RetryInitial = DefaultRetryInitial
	}
	if c.RetryMax <= 0 {
		c.RetryMax = DefaultRetryMax
	}
	if c.Backend == "" {
		c.Backend = "unknown"
	}
	return c
}
