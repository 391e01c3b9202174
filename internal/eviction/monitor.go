package eviction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/internal/scheduledevents"
	"github.com/Gunvolt24/spot_drain/pkg/metrics"
	"github.com/Gunvolt24/spot_drain/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Проверка, что Monitor удовлетворяет порту.
var _ ports.EvictionMonitor = (*Monitor)(nil)

// Состояния монитора.
const (
	StateIdle    = "idle"
	StatePolling = "polling"
	StateTripped = "tripped"
	StateStopped = "stopped"
)

var stateGauge = map[string]float64{
	StateIdle:    0,
	StatePolling: 1,
	StateTripped: 2,
	StateStopped: 3,
}

const DefaultPollInterval = time.Second

// MonitorConfig — параметры опроса.
type MonitorConfig struct {
	PollInterval     time.Duration
	SentinelResource string
}

// TripHook — вызывается один раз после срабатывания сигнала (например, подтверждение события платформе).
type TripHook func(ctx context.Context, ev domain.ScheduledEvent)

// Monitor — цикл опроса EventSource: Idle → Polling → Tripped (или Stopped при внешней отмене).
type Monitor struct {
	source   ports.EventSource
	signal   *Signal
	log      ports.Logger
	interval time.Duration
	sentinel string
	onTrip   TripHook

	state     atomic.Value // string
	started   chan struct{}
	startOnce sync.Once
	tracer    trace.Tracer
}

// NewMonitor — конструктор. Интервал <= 0 заменяется на DefaultPollInterval.
func NewMonitor(cfg MonitorConfig, source ports.EventSource, signal *Signal, log ports.Logger) (*Monitor, error) {
	if source == nil {
		return nil, errors.New("eviction monitor: event source is nil")
	}
	if signal == nil {
		return nil, errors.New("eviction monitor: signal is nil")
	}
	if cfg.SentinelResource == "" {
		return nil, errors.New("eviction monitor: sentinel resource is empty")
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	m := &Monitor{
		source:   source,
		signal:   signal,
		log:      log,
		interval: interval,
		sentinel: cfg.SentinelResource,
		started:  make(chan struct{}),
		tracer:   telemetry.Tracer("eviction"),
	}
	m.state.Store(StateIdle)
	return m, nil
}

// OnTrip — зарегистрировать хук; вызывать до Run.
func (m *Monitor) OnTrip(h TripHook) { m.onTrip = h }

func (m *Monitor) Started() <-chan struct{} { return m.started }

func (m *Monitor) State() string { return m.state.Load().(string) }

// Run — блокирующий цикл опроса. Отмена контекста — штатная остановка, возвращается nil.
// После срабатывания монитор больше не опрашивает источник.
func (m *Monitor) Run(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "eviction.monitor")
	defer span.End()

	m.transition(ctx, span, StatePolling)
	m.startOnce.Do(func() { close(m.started) })
	m.log.Infof(ctx, "eviction monitor started interval=%s sentinel=%s", m.interval, m.sentinel)

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.transition(ctx, span, StateStopped)
			return nil
		case <-timer.C:
		}

		ev, evicted := m.poll(ctx)
		if ctx.Err() != nil {
			m.transition(ctx, span, StateStopped)
			return nil
		}
		if evicted {
			m.trip(ctx, span, ev)
			return nil
		}
		timer.Reset(m.interval)
	}
}

// poll — один цикл: Fetch + предикат. Ошибки источника не останавливают опрос.
func (m *Monitor) poll(ctx context.Context) (domain.ScheduledEvent, bool) {
	snapshot, err := m.source.Fetch(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		return domain.ScheduledEvent{}, false
	case errors.Is(err, scheduledevents.ErrTransientFetch):
		metrics.EvictionPolls.WithLabelValues("transient_error").Inc()
		m.log.Warnf(ctx, "scheduled events fetch failed: %v (will retry next cycle)", err)
		return domain.ScheduledEvent{}, false
	case err != nil:
		metrics.EvictionPolls.WithLabelValues("error").Inc()
		m.log.Errorf(ctx, "scheduled events fetch: unexpected error: %v", err)
		return domain.ScheduledEvent{}, false
	case snapshot == nil:
		metrics.EvictionPolls.WithLabelValues("no_snapshot").Inc()
		m.log.Debugf(ctx, "no scheduled events snapshot this cycle")
		return domain.ScheduledEvent{}, false
	}

	ev, ok := FindEviction(snapshot, m.sentinel)
	if !ok {
		metrics.EvictionPolls.WithLabelValues("clear").Inc()
		m.log.Debugf(ctx, "scheduled events checked incarnation=%d events=%d: no eviction", snapshot.DocumentIncarnation, len(snapshot.Events))
		return domain.ScheduledEvent{}, false
	}
	metrics.EvictionPolls.WithLabelValues("evicted").Inc()
	return ev, true
}

func (m *Monitor) trip(ctx context.Context, span trace.Span, ev domain.ScheduledEvent) {
	m.transition(ctx, span, StateTripped)

	reason := fmt.Sprintf("%s event %s for %s", ev.EventType, ev.EventID, m.sentinel)
	if ev.NotBefore != nil {
		reason += " not_before=" + ev.NotBefore.Format(time.RFC3339)
	}
	if !m.signal.Trip(reason) {
		// Сигнал уже сработал раньше — повторных действий нет.
		return
	}
	metrics.EvictionTripped.Set(1)
	span.AddEvent("eviction.signal.tripped", trace.WithAttributes(
		attribute.String("event.id", ev.EventID),
		attribute.String("event.type", ev.EventType),
	))
	m.log.Warnf(ctx, "eviction notice detected: %s", reason)

	if m.onTrip != nil {
		m.onTrip(ctx, ev)
	}
}

func (m *Monitor) transition(ctx context.Context, span trace.Span, to string) {
	from := m.State()
	m.state.Store(to)
	metrics.EvictionMonitorState.Set(stateGauge[to])
	span.AddEvent("eviction.monitor.state", trace.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
	m.log.Infof(ctx, "eviction monitor state %s -> %s", from, to)
}
