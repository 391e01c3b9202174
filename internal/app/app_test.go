package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/app"
	"github.com/Gunvolt24/spot_drain/internal/consumer"
	"github.com/Gunvolt24/spot_drain/internal/eviction"
	"github.com/Gunvolt24/spot_drain/internal/queue/memory"
	"github.com/Gunvolt24/spot_drain/internal/scheduledevents"
	"github.com/Gunvolt24/spot_drain/internal/usecase"
)

// recLogger — потокобезопасный логгер, запоминающий строки.
type recLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recLogger) add(level, f string, a ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(f, a...))
}
func (l *recLogger) Debugf(_ context.Context, f string, a ...any) { l.add("DEBUG", f, a...) }
func (l *recLogger) Infof(_ context.Context, f string, a ...any)  { l.add("INFO", f, a...) }
func (l *recLogger) Warnf(_ context.Context, f string, a ...any)  { l.add("WARN", f, a...) }
func (l *recLogger) Errorf(_ context.Context, f string, a ...any) { l.add("ERROR", f, a...) }

func (l *recLogger) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.lines {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// fakeMonitor — сообщает о старте с задержкой и ждёт отмены.
type fakeMonitor struct {
	delay   time.Duration
	exit    bool // выйти, не стартовав
	started chan struct{}
}

func newFakeMonitor(delay time.Duration) *fakeMonitor {
	return &fakeMonitor{delay: delay, started: make(chan struct{})}
}

func (m *fakeMonitor) Run(ctx context.Context) error {
	if m.exit {
		return errors.New("source unavailable")
	}
	time.Sleep(m.delay)
	close(m.started)
	<-ctx.Done()
	return nil
}
func (m *fakeMonitor) Started() <-chan struct{} { return m.started }
func (m *fakeMonitor) State() string            { return "polling" }

// fakeConsumer — фиксирует, стартовал ли монитор к моменту Run.
type fakeConsumer struct {
	monitor      *fakeMonitor
	ignoreCancel bool
	release      chan struct{}
	stopped      chan struct{}
	sawMonitorUp atomic.Bool
	runCalls     atomic.Int32
	closeCalls   atomic.Int32
}

func newFakeConsumer(m *fakeMonitor) *fakeConsumer {
	return &fakeConsumer{monitor: m, release: make(chan struct{}), stopped: make(chan struct{})}
}

func (c *fakeConsumer) Run(ctx context.Context) error {
	c.runCalls.Add(1)
	defer close(c.stopped)
	select {
	case <-c.monitor.Started():
		c.sawMonitorUp.Store(true)
	default:
	}
	if c.ignoreCancel {
		<-c.release
		return nil
	}
	<-ctx.Done()
	return nil
}
func (c *fakeConsumer) State() string            { return "draining" }
func (c *fakeConsumer) Close() error             { c.closeCalls.Add(1); return nil }
func (c *fakeConsumer) Stopped() <-chan struct{} { return c.stopped }

func TestStart_MonitorBeforeConsumer(t *testing.T) {
	log := &recLogger{}
	mon := newFakeMonitor(30 * time.Millisecond)
	cons := newFakeConsumer(mon)

	a := app.New(app.Components{
		Logger:   log,
		Signal:   eviction.NewSignal(),
		Monitor:  mon,
		Consumer: cons,
	}, app.Options{ShutdownDeadline: time.Second})

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if a.Phase() != app.PhaseRunning {
		t.Fatalf("phase: want running, got %s", a.Phase())
	}
	_ = a.Stop()

	if cons.runCalls.Load() != 1 {
		t.Fatalf("consumer.Run calls: want 1, got %d", cons.runCalls.Load())
	}
	if !cons.sawMonitorUp.Load() {
		t.Fatal("consumer started before the monitor reported polling")
	}
	if a.Phase() != app.PhaseStopped {
		t.Fatalf("phase: want stopped, got %s", a.Phase())
	}
}

func TestStart_MonitorExitsEarly(t *testing.T) {
	mon := newFakeMonitor(0)
	mon.exit = true
	cons := newFakeConsumer(mon)

	a := app.New(app.Components{
		Logger:   &recLogger{},
		Signal:   eviction.NewSignal(),
		Monitor:  mon,
		Consumer: cons,
	}, app.Options{})

	err := a.Execute(context.Background())
	if !errors.Is(err, app.ErrMonitorNotStarted) {
		t.Fatalf("want ErrMonitorNotStarted, got %v", err)
	}
	if cons.runCalls.Load() != 0 {
		t.Fatal("consumer must not run without a monitor")
	}
}

func TestStop_ForcedAfterDeadline(t *testing.T) {
	log := &recLogger{}
	mon := newFakeMonitor(0)
	cons := newFakeConsumer(mon)
	cons.ignoreCancel = true
	defer close(cons.release)

	var closed, flushed atomic.Bool
	a := app.New(app.Components{
		Logger:   log,
		Signal:   eviction.NewSignal(),
		Monitor:  mon,
		Consumer: cons,
		Closers: []app.Closer{{Name: "queue", Close: func(context.Context) error {
			closed.Store(true)
			return nil
		}}},
		Flush: func(context.Context) error { flushed.Store(true); return nil },
	}, app.Options{ShutdownDeadline: 50 * time.Millisecond})

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	begin := time.Now()
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if took := time.Since(begin); took > time.Second {
		t.Fatalf("Stop must be bounded by the deadline, took %s", took)
	}
	if !log.contains("forced") {
		t.Fatal("forced shutdown must be logged")
	}
	if !closed.Load() || !flushed.Load() {
		t.Fatalf("closers and flush must run after forced stop: closed=%v flushed=%v", closed.Load(), flushed.Load())
	}
	if a.Phase() != app.PhaseStopped {
		t.Fatalf("phase: want stopped, got %s", a.Phase())
	}
}

func TestRun_ReturnsOnParentCancel(t *testing.T) {
	mon := newFakeMonitor(0)
	cons := newFakeConsumer(mon)
	a := app.New(app.Components{
		Logger:   &recLogger{},
		Signal:   eviction.NewSignal(),
		Monitor:  mon,
		Consumer: cons,
	}, app.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := a.Execute(ctx); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	select {
	case <-cons.Stopped():
	default:
		t.Fatal("consumer must be stopped after Execute")
	}
}

func TestRun_ReturnsOnEviction(t *testing.T) {
	mon := newFakeMonitor(0)
	cons := newFakeConsumer(mon)
	sig := eviction.NewSignal()
	a := app.New(app.Components{
		Logger:   &recLogger{},
		Signal:   sig,
		Monitor:  mon,
		Consumer: cons,
	}, app.Options{})

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sig.Trip("Preempt event e1 for vm-1")

	done := make(chan struct{})
	go func() {
		_ = a.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run must return after the signal trips")
	}
	_ = a.Stop()

	st := a.Status(context.Background())
	if !st.Evicted || st.TrippedAt == nil || st.Reason != "Preempt event e1 for vm-1" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.Phase != app.PhaseStopped {
		t.Fatalf("phase: want stopped, got %s", st.Phase)
	}
}

// SIGINT/SIGTERM до выхода монитора в Polling: Execute завершается без ошибки,
// консьюмер не берёт ни одного сообщения.
func TestExecute_ParentCancelledBeforeStart(t *testing.T) {
	for i := 0; i < 20; i++ {
		log := &recLogger{}
		q := memory.New(time.Minute)
		if _, err := q.Send(context.Background(), []byte("msg")); err != nil {
			t.Fatalf("send: %v", err)
		}

		sig := eviction.NewSignal()
		mon, err := eviction.NewMonitor(eviction.MonitorConfig{
			PollInterval:     time.Millisecond,
			SentinelResource: "vm-spot",
		}, scheduledevents.NewFakeSource(1000, "vm-spot"), sig, log)
		if err != nil {
			t.Fatalf("NewMonitor: %v", err)
		}
		cons := consumer.New(consumer.Config{
			BatchSize:  10,
			EmptyDelay: time.Millisecond,
			Backend:    "memory",
		}, q, usecase.NewMessageService(log, 0), log)

		a := app.New(app.Components{
			Logger:   log,
			Signal:   sig,
			Monitor:  mon,
			Consumer: cons,
		}, app.Options{ShutdownDeadline: time.Second})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := a.Execute(ctx); err != nil {
			t.Fatalf("iteration %d: Execute with cancelled context: want nil, got %v", i, err)
		}
		if a.Phase() != app.PhaseStopped {
			t.Fatalf("iteration %d: phase: want stopped, got %s", i, a.Phase())
		}
		if sig.Tripped() {
			t.Fatalf("iteration %d: signal must not trip on plain cancellation", i)
		}
	}
}

func TestExecute_FakeMonitorCancelledBeforeStart(t *testing.T) {
	mon := newFakeMonitor(50 * time.Millisecond)
	cons := newFakeConsumer(mon)
	a := app.New(app.Components{
		Logger:   &recLogger{},
		Signal:   eviction.NewSignal(),
		Monitor:  mon,
		Consumer: cons,
	}, app.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.Execute(ctx); err != nil {
		t.Fatalf("Execute: want nil, got %v", err)
	}
	if cons.runCalls.Load() != 0 {
		t.Fatal("consumer must not start after cancellation during start")
	}
}

// Полный контур: fake-источник срабатывает после порога, консьюмер успевает
// разобрать очередь и останавливается по общему контексту.
func TestExecute_EndToEnd_FakeSourceMemoryQueue(t *testing.T) {
	log := &recLogger{}
	ctx := context.Background()

	q := memory.New(time.Minute)
	for i := 0; i < 5; i++ {
		if _, err := q.Send(ctx, []byte(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	sig := eviction.NewSignal()
	src := scheduledevents.NewFakeSource(20, "vm-spot")
	mon, err := eviction.NewMonitor(eviction.MonitorConfig{
		PollInterval:     2 * time.Millisecond,
		SentinelResource: "vm-spot",
	}, src, sig, log)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	cons := consumer.New(consumer.Config{
		BatchSize:  10,
		EmptyDelay: 5 * time.Millisecond,
		Backend:    "memory",
	}, q, usecase.NewMessageService(log, 0), log)

	a := app.New(app.Components{
		Logger:   log,
		Signal:   sig,
		Monitor:  mon,
		Consumer: cons,
		Closers:  []app.Closer{{Name: "queue", Close: func(context.Context) error { return cons.Close() }}},
	}, app.Options{ShutdownDeadline: 2 * time.Second})

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.Execute(runCtx); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !sig.Tripped() {
		t.Fatal("signal must trip once the fake threshold is passed")
	}
	if got := src.Calls(); got < 21 {
		t.Fatalf("fake source calls: want >= 21, got %d", got)
	}
	if mon.State() != eviction.StateTripped {
		t.Fatalf("monitor state: want tripped, got %s", mon.State())
	}
	if cons.State() != consumer.StateStopped {
		t.Fatalf("consumer state: want stopped, got %s", cons.State())
	}
	if q.Len() != 0 {
		t.Fatalf("all messages must be acknowledged, %d left", q.Len())
	}
	if !log.contains("outcome=graceful") {
		t.Fatal("graceful shutdown must be logged")
	}
}
