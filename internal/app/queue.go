package app

import (
	"context"
	"fmt"

	"github.com/Gunvolt24/spot_drain/config"
	"github.com/Gunvolt24/spot_drain/internal/kafka"
	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/internal/queue"
	"github.com/Gunvolt24/spot_drain/internal/queue/memory"
	"github.com/Gunvolt24/spot_drain/internal/queue/natsjs"
	"github.com/Gunvolt24/spot_drain/internal/queue/postgres"
	"github.com/Gunvolt24/spot_drain/pkg/msgfile"
)

// OpenQueue — клиент очереди выбранного backend. Close освобождает соединения.
func OpenQueue(ctx context.Context, cfg *config.Config) (ports.QueueClient, error) {
	switch cfg.Queue.Backend {
	case queue.BackendMemory:
		return memory.New(cfg.Queue.Visibility), nil

	case queue.BackendPostgres:
		q, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.Migrate, postgres.Options{
			Name:       cfg.Postgres.QueueName,
			Visibility: cfg.Queue.Visibility,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres queue: %w", err)
		}
		return q, nil

	case queue.BackendKafka:
		return kafka.NewQueue(&kafka.Config{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			GroupID:     cfg.Kafka.GroupID,
			StartOffset: cfg.Kafka.StartOffset,
			FetchWait:   cfg.Kafka.FetchWait,
			Visibility:  cfg.Queue.Visibility,
		}), nil

	case queue.BackendNATS:
		q, err := natsjs.Open(ctx, natsjs.Config{
			URL:       cfg.NATS.URL,
			Stream:    cfg.NATS.Stream,
			Subject:   cfg.NATS.Subject,
			Durable:   cfg.NATS.Durable,
			AckWait:   cfg.Queue.Visibility,
			FetchWait: cfg.NATS.FetchWait,
		})
		if err != nil {
			return nil, fmt.Errorf("open nats queue: %w", err)
		}
		return q, nil

	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}
}

// Seed — отправить сообщения из файла в очередь.
func Seed(ctx context.Context, sender ports.MessageSender, path string, format msgfile.InputFormat) (msgfile.Result, error) {
	return msgfile.ReadFile(ctx, path, format, func(ctx context.Context, body []byte) error {
		_, err := sender.Send(ctx, body)
		return err
	})
}
