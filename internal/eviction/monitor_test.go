package eviction

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports/mocks"
	"github.com/Gunvolt24/spot_drain/internal/scheduledevents"
)

type nopLogger struct{}

func (nopLogger) Debugf(context.Context, string, ...any) {}
func (nopLogger) Infof(context.Context, string, ...any)  {}
func (nopLogger) Warnf(context.Context, string, ...any)  {}
func (nopLogger) Errorf(context.Context, string, ...any) {}

func preemptSnapshot(resource string) *domain.ScheduledEventsSnapshot {
	return &domain.ScheduledEventsSnapshot{Events: []domain.ScheduledEvent{
		{EventID: "e1", EventType: domain.EventTypePreempt, Resources: []string{resource}},
	}}
}

// runAsync запускает Monitor.Run и возвращает канал с результатом.
func runAsync(ctx context.Context, m *Monitor) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()
	return errCh
}

func waitRun(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Run to stop")
	}
}

func TestNewMonitor_Validation(t *testing.T) {
	src := scheduledevents.NewFakeSource(0, "vm-spot")
	if _, err := NewMonitor(MonitorConfig{SentinelResource: "vm-spot"}, nil, NewSignal(), nopLogger{}); err == nil {
		t.Fatal("nil source must be rejected")
	}
	if _, err := NewMonitor(MonitorConfig{SentinelResource: "vm-spot"}, src, nil, nopLogger{}); err == nil {
		t.Fatal("nil signal must be rejected")
	}
	if _, err := NewMonitor(MonitorConfig{}, src, NewSignal(), nopLogger{}); err == nil {
		t.Fatal("empty sentinel must be rejected")
	}
	m, err := NewMonitor(MonitorConfig{SentinelResource: "vm-spot"}, src, NewSignal(), nopLogger{})
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	if m.interval != DefaultPollInterval || m.State() != StateIdle {
		t.Fatalf("unexpected defaults: interval=%s state=%s", m.interval, m.State())
	}
}

// Фейк с порогом 10: вызовы 1..10 сигнал не трогают, 11-й — срабатывание.
func TestMonitor_FakeSource_TripsOnEleventhCall(t *testing.T) {
	src := scheduledevents.NewFakeSource(10, "vm-spot")
	sig := NewSignal()
	m, err := NewMonitor(MonitorConfig{PollInterval: time.Millisecond, SentinelResource: "vm-spot"}, src, sig, nopLogger{})
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	var hookCalls atomic.Int32
	m.OnTrip(func(context.Context, domain.ScheduledEvent) { hookCalls.Add(1) })

	waitRun(t, runAsync(context.Background(), m))

	if !sig.Tripped() {
		t.Fatal("signal must be tripped")
	}
	if got := src.Calls(); got != 11 {
		t.Fatalf("want trip on call 11, got %d calls", got)
	}
	if m.State() != StateTripped {
		t.Fatalf("want state %s, got %s", StateTripped, m.State())
	}
	if hookCalls.Load() != 1 {
		t.Fatalf("trip hook must run once, got %d", hookCalls.Load())
	}
}

// Транзиентные и неожиданные ошибки не останавливают опрос.
func TestMonitor_ErrorsDoNotStopPolling(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockEventSource(ctrl)

	gomock.InOrder(
		src.EXPECT().Fetch(gomock.Any()).Return(nil, fmt.Errorf("%w: status 500", scheduledevents.ErrTransientFetch)),
		src.EXPECT().Fetch(gomock.Any()).Return(nil, errors.New("boom")),
		src.EXPECT().Fetch(gomock.Any()).Return(nil, nil),
		src.EXPECT().Fetch(gomock.Any()).Return(preemptSnapshot("vm-other"), nil),
		src.EXPECT().Fetch(gomock.Any()).Return(preemptSnapshot("vm-spot"), nil),
	)

	sig := NewSignal()
	m, err := NewMonitor(MonitorConfig{PollInterval: time.Millisecond, SentinelResource: "vm-spot"}, src, sig, nopLogger{})
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	waitRun(t, runAsync(context.Background(), m))

	if !sig.Tripped() {
		t.Fatal("signal must be tripped after the matching snapshot")
	}
}

// После срабатывания монитор больше не опрашивает источник.
func TestMonitor_StopsPollingAfterTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockEventSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).Return(preemptSnapshot("vm-spot"), nil).Times(1)

	sig := NewSignal()
	m, _ := NewMonitor(MonitorConfig{PollInterval: time.Millisecond, SentinelResource: "vm-spot"}, src, sig, nopLogger{})

	waitRun(t, runAsync(context.Background(), m))
	time.Sleep(10 * time.Millisecond)
}

// Сигнал уже сработал: монитор не вызывает хук повторно.
func TestMonitor_SignalAlreadyTripped_NoHook(t *testing.T) {
	src := scheduledevents.NewFakeSource(0, "vm-spot")
	sig := NewSignal()
	sig.Trip("operator")

	m, _ := NewMonitor(MonitorConfig{PollInterval: time.Millisecond, SentinelResource: "vm-spot"}, src, sig, nopLogger{})
	m.OnTrip(func(context.Context, domain.ScheduledEvent) { t.Error("hook must not run") })

	waitRun(t, runAsync(context.Background(), m))
	if sig.Reason() != "operator" {
		t.Fatalf("reason must be preserved, got %q", sig.Reason())
	}
}

// Внешняя отмена: Stopped, сигнал взведён, Run возвращает nil.
func TestMonitor_ExternalCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockEventSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).Return(nil, nil).AnyTimes()

	sig := NewSignal()
	m, _ := NewMonitor(MonitorConfig{PollInterval: 5 * time.Millisecond, SentinelResource: "vm-spot"}, src, sig, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, m)

	select {
	case <-m.Started():
	case <-time.After(time.Second):
		t.Fatal("monitor did not start")
	}
	if m.State() != StatePolling {
		t.Fatalf("want %s after start, got %s", StatePolling, m.State())
	}

	cancel()
	waitRun(t, errCh)

	if m.State() != StateStopped {
		t.Fatalf("want %s, got %s", StateStopped, m.State())
	}
	if sig.Tripped() {
		t.Fatal("external cancel must not trip the signal")
	}
}

// Отмена во время долгого Fetch прерывает опрос.
func TestMonitor_CancelDuringFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockEventSource(ctrl)
	src.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) (*domain.ScheduledEventsSnapshot, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	m, _ := NewMonitor(MonitorConfig{PollInterval: time.Millisecond, SentinelResource: "vm-spot"}, src, NewSignal(), nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, m)
	time.Sleep(20 * time.Millisecond)
	cancel()

	waitRun(t, errCh)
	if m.State() != StateStopped {
		t.Fatalf("want %s, got %s", StateStopped, m.State())
	}
}
