package kafka_test

import (
	"slices"
	"testing"

	mykafka "github.com/Gunvolt24/spot_drain/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
)

func TestConfig_ReaderConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		startOffset string
		wantOffset  int64
	}{
		{"first lower", "first", kafkago.FirstOffset},
		{"first upper", "FIRST", kafkago.FirstOffset},
		{"first spaced", " FiRsT \n", kafkago.FirstOffset},
		{"empty -> last", "", kafkago.LastOffset},
		{"explicit last", "last", kafkago.LastOffset},
		{"unknown -> last", "unknown", kafkago.LastOffset},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := mykafka.Config{
				Brokers:     []string{"k1:9092", "k2:9092"},
				Topic:       "messaging",
				GroupID:     "spot-drain",
				StartOffset: tt.startOffset,
			}

			rc := cfg.ReaderConfig()

			if rc.StartOffset != tt.wantOffset {
				t.Fatalf("StartOffset: want %d, got %d", tt.wantOffset, rc.StartOffset)
			}
			if !slices.Equal(rc.Brokers, cfg.Brokers) || rc.Topic != cfg.Topic || rc.GroupID != cfg.GroupID {
				t.Fatalf("base fields not propagated: %+v", rc)
			}
			// ручной коммит
			if rc.CommitInterval != 0 {
				t.Fatalf("CommitInterval: want 0, got %v", rc.CommitInterval)
			}
		})
	}
}
