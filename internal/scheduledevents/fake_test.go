package scheduledevents_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/scheduledevents"
)

func TestFakeSource_ThresholdTen(t *testing.T) {
	src := scheduledevents.NewFakeSource(10, "vm-spot")
	ctx := context.Background()

	// вызовы 1..10 — снимка нет
	for i := 1; i <= 10; i++ {
		snap, err := src.Fetch(ctx)
		if err != nil || snap != nil {
			t.Fatalf("call %d: want (nil, nil), got (%+v, %v)", i, snap, err)
		}
	}

	// с 11-го и дальше — всегда Preempt для sentinel
	for i := 11; i <= 13; i++ {
		snap, err := src.Fetch(ctx)
		if err != nil || snap == nil || len(snap.Events) != 1 {
			t.Fatalf("call %d: want snapshot, got (%+v, %v)", i, snap, err)
		}
		ev := snap.Events[0]
		if ev.EventType != domain.EventTypePreempt || !ev.HasResource("vm-spot") {
			t.Fatalf("call %d: unexpected event %+v", i, ev)
		}
	}

	if got := src.Calls(); got != 13 {
		t.Fatalf("Calls: want 13, got %d", got)
	}
}

func TestFakeSource_NegativeThresholdUsesDefault(t *testing.T) {
	src := scheduledevents.NewFakeSource(-1, "vm-spot")
	for i := 0; i < scheduledevents.DefaultFakeThreshold; i++ {
		if snap, _ := src.Fetch(context.Background()); snap != nil {
			t.Fatalf("call %d: snapshot before default threshold", i+1)
		}
	}
	if snap, _ := src.Fetch(context.Background()); snap == nil {
		t.Fatalf("want snapshot after default threshold")
	}
}

func TestFakeSource_CancelledContext(t *testing.T) {
	src := scheduledevents.NewFakeSource(0, "vm-spot")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if src.Calls() != 0 {
		t.Fatalf("cancelled fetch must not count as a call")
	}
}
