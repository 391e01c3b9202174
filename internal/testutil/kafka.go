//go:build integration

package testutil

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

var reTopicUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// QueueTopic — топик и группа очереди для одного теста.
// Имя теста входит в имя топика, чтобы по логам брокера было видно, чей он;
// суффикс делает его уникальным между перезапусками.
// Пример: base="spot-itc", тест "TestX/sub" → "spot-itc-TestX-sub-1a2b3c4d", "spot-itc-TestX-sub-1a2b3c4d-worker".
func QueueTopic(tb testing.TB, base string) (topic, group string) {
	tb.Helper()
	name := strings.Trim(reTopicUnsafe.ReplaceAllString(tb.Name(), "-"), "-")
	topic = fmt.Sprintf("%s-%s-%s", base, name, uuid.NewString()[:8])
	// лимит Kafka на имя топика — 249 символов
	if len(topic) > 200 {
		topic = topic[len(topic)-200:]
	}
	return topic, topic + "-worker"
}

// CreateTopic — создать топик очереди через admin API брокеров и дождаться,
// пока у всех партиций появится лидер. Уже существующий топик — не ошибка.
func CreateTopic(ctx context.Context, brokers []string, topic string, partitions int) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers")
	}
	if partitions < 1 {
		partitions = 1
	}
	client := &kafka.Client{Addr: kafka.TCP(brokers...), Timeout: 10 * time.Second}

	resp, err := client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		}},
	})
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if terr := resp.Errors[topic]; terr != nil && !errors.Is(terr, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, terr)
	}

	return waitLeaders(ctx, client, topic, partitions)
}

func waitLeaders(ctx context.Context, client *kafka.Client, topic string, partitions int) error {
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	var last error
	for {
		md, err := client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{topic}})
		switch {
		case err != nil:
			last = err
		case len(md.Topics) != 1 || md.Topics[0].Error != nil:
			last = fmt.Errorf("topic %s not in metadata", topic)
			if len(md.Topics) == 1 {
				last = md.Topics[0].Error
			}
		case len(md.Topics[0].Partitions) < partitions:
			last = fmt.Errorf("topic %s: %d of %d partitions", topic, len(md.Topics[0].Partitions), partitions)
		default:
			if leaderless(md.Topics[0].Partitions) == 0 {
				return nil
			}
			last = fmt.Errorf("topic %s: partitions without leader", topic)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("topic %s not ready: %w", topic, errors.Join(ctx.Err(), last))
		case <-tick.C:
		}
	}
}

func leaderless(parts []kafka.Partition) int {
	n := 0
	for _, p := range parts {
		if p.Error != nil || p.Leader.Host == "" {
			n++
		}
	}
	return n
}
