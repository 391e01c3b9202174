package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/eviction"
	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/pkg/metrics"
)

// Фазы жизненного цикла.
const (
	PhaseNew      = "new"
	PhaseStarting = "starting"
	PhaseRunning  = "running"
	PhaseStopping = "stopping"
	PhaseStopped  = "stopped"
)

// Значения по умолчанию для Options.
const (
	DefaultShutdownDeadline = 20 * time.Second
	DefaultFlushTimeout     = 2 * time.Second
	DefaultGracefulTimeout  = 3 * time.Second
	DefaultStartTimeout     = 5 * time.Second
)

// ErrMonitorNotStarted — монитор эвикции не вышел в Polling, дальше запускаться нельзя.
var ErrMonitorNotStarted = errors.New("eviction monitor did not start")

// Проверка, что App отдаёт состояние ops-эндпоинту.
var _ ports.StatusProvider = (*App)(nil)

// Drainer — консьюмер, о завершении которого можно узнать без вызова Run.
type Drainer interface {
	ports.MessageConsumer
	Stopped() <-chan struct{}
}

// Closer — именованный ресурс, освобождаемый на остановке.
type Closer struct {
	Name  string
	Close func(ctx context.Context) error
}

// Options — бюджеты времени остановки.
type Options struct {
	ShutdownDeadline time.Duration // ожидание консьюмера, должно быть меньше окна уведомления
	FlushTimeout     time.Duration // сброс логгера
	GracefulTimeout  time.Duration // ops HTTP и каждый Closer
	StartTimeout     time.Duration // ожидание Polling у монитора
}

func (o Options) withDefaults() Options {
	if o.ShutdownDeadline <= 0 {
		o.ShutdownDeadline = DefaultShutdownDeadline
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = DefaultFlushTimeout
	}
	if o.GracefulTimeout <= 0 {
		o.GracefulTimeout = DefaultGracefulTimeout
	}
	if o.StartTimeout <= 0 {
		o.StartTimeout = DefaultStartTimeout
	}
	return o
}

// Components — собранные зависимости приложения.
type Components struct {
	Logger     ports.Logger
	Signal     *eviction.Signal
	Monitor    ports.EvictionMonitor
	Consumer   Drainer
	HTTPServer *http.Server                    // nil — ops-сервер выключен
	Closers    []Closer                        // освобождаются по порядку после остановки консьюмера
	Flush      func(ctx context.Context) error // сброс буферов логгера, последним
}

// App — контроллер жизненного цикла: монитор эвикции, консьюмер и ops HTTP
// делят один корневой контекст, который отменяется сигналом эвикции или остановкой.
type App struct {
	log      ports.Logger
	signal   *eviction.Signal
	monitor  ports.EvictionMonitor
	consumer Drainer
	httpSrv  *http.Server
	closers  []Closer
	flush    func(ctx context.Context) error
	opts     Options

	phase atomic.Value // string

	rootCtx    context.Context
	rootCancel context.CancelFunc

	monitorDone     chan struct{}
	consumerExit    chan error
	consumerStarted bool
	httpErr         chan error

	stopOnce sync.Once
}

// New — приложение из готовых компонент.
func New(c Components, opts Options) *App {
	a := &App{
		log:      c.Logger,
		signal:   c.Signal,
		monitor:  c.Monitor,
		consumer: c.Consumer,
		httpSrv:  c.HTTPServer,
		closers:  c.Closers,
		flush:    c.Flush,
		opts:     opts.withDefaults(),
		httpErr:  make(chan error, 1),
	}
	a.phase.Store(PhaseNew)
	return a
}

// Phase — текущая фаза жизненного цикла.
func (a *App) Phase() string { return a.phase.Load().(string) }

func (a *App) setPhase(ctx context.Context, to string) {
	from := a.Phase()
	if from == to {
		return
	}
	a.phase.Store(to)
	a.log.Infof(ctx, "lifecycle phase %s -> %s", from, to)
}

// Status — срез состояния для /status и /readyz.
func (a *App) Status(_ context.Context) domain.Status {
	st := domain.Status{
		Phase:    a.Phase(),
		Monitor:  a.monitor.State(),
		Consumer: a.consumer.State(),
		Evicted:  a.signal.Tripped(),
		Reason:   a.signal.Reason(),
	}
	if st.Evicted {
		at := a.signal.TrippedAt()
		st.TrippedAt = &at
	}
	return st
}

// Start — строго по порядку: монитор (ждём Polling) → ops HTTP → консьюмер.
// Консьюмер не начинает брать сообщения, пока эвикцию некому заметить.
func (a *App) Start(ctx context.Context) error {
	a.setPhase(ctx, PhaseStarting)
	a.rootCtx, a.rootCancel = a.signal.Context(ctx)

	a.monitorDone = make(chan struct{})
	go func() {
		defer close(a.monitorDone)
		if err := a.monitor.Run(a.rootCtx); err != nil {
			a.log.Errorf(a.rootCtx, "eviction monitor stopped with error: %v", err)
		}
	}()

	timer := time.NewTimer(a.opts.StartTimeout)
	defer timer.Stop()

	select {
	case <-a.monitor.Started():
	case <-a.monitorDone:
		a.rootCancel()
		// монитор мог выйти из-за уже отменённого контекста: это штатная остановка
		if ctx.Err() != nil {
			a.log.Infof(ctx, "shutdown requested during start: %v", context.Cause(ctx))
			return nil
		}
		return ErrMonitorNotStarted
	case <-timer.C:
		a.rootCancel()
		return fmt.Errorf("%w within %s", ErrMonitorNotStarted, a.opts.StartTimeout)
	case <-ctx.Done():
		// SIGINT/SIGTERM до выхода в Polling — не ошибка запуска
		a.rootCancel()
		a.log.Infof(ctx, "shutdown requested during start: %v", context.Cause(ctx))
		return nil
	}
	a.log.Infof(ctx, "eviction monitor polling")

	if a.httpSrv != nil {
		ln, err := net.Listen("tcp", a.httpSrv.Addr)
		if err != nil {
			a.rootCancel()
			return fmt.Errorf("listen ops http %s: %w", a.httpSrv.Addr, err)
		}
		go func() {
			a.log.Infof(ctx, "ops http server starting (addr=%s)", ln.Addr())
			if err := a.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.httpErr <- err
			}
		}()
	}

	a.consumerExit = make(chan error, 1)
	a.consumerStarted = true
	go func() {
		a.log.Infof(ctx, "message consumer starting")
		a.consumerExit <- a.consumer.Run(a.rootCtx)
	}()

	a.setPhase(ctx, PhaseRunning)
	return nil
}

// Run — ждёт первого из: сигнал эвикции, отмена родительского контекста
// (SIGINT/SIGTERM), самостоятельный выход консьюмера, падение ops HTTP.
func (a *App) Run(ctx context.Context) error {
	select {
	case <-a.signal.Done():
		a.log.Warnf(ctx, "eviction noticed (%s), starting shutdown", a.signal.Reason())
	case <-ctx.Done():
		a.log.Infof(ctx, "shutdown requested: %v", context.Cause(ctx))
	case err := <-a.consumerExit:
		if err != nil {
			a.log.Warnf(ctx, "message consumer exited: %v", err)
		} else {
			a.log.Infof(ctx, "message consumer exited")
		}
	case err := <-a.httpErr:
		a.log.Warnf(ctx, "ops http server failed: %v", err)
	}
	return nil
}

// Stop — отменяет общий контекст и ждёт консьюмера не дольше ShutdownDeadline.
// По истечении срока фиксирует принудительную остановку и всё равно продолжает:
// ops HTTP, ресурсы из Closers, сброс логгера. Повторный вызов ничего не делает.
func (a *App) Stop() error {
	a.stopOnce.Do(a.stop)
	return nil
}

func (a *App) stop() {
	ctx := context.Background()
	a.setPhase(ctx, PhaseStopping)
	start := time.Now()

	if a.rootCancel != nil {
		a.rootCancel()
	}

	deadline := time.NewTimer(a.opts.ShutdownDeadline)
	defer deadline.Stop()

	outcome := "graceful"
	if a.consumerStarted {
		select {
		case <-a.consumer.Stopped():
			a.log.Infof(ctx, "message consumer stopped in %s", time.Since(start))
		case <-deadline.C:
			outcome = "forced"
			a.log.Warnf(ctx, "shutdown deadline %s exceeded, forced stop: in-flight messages left to lease expiry",
				a.opts.ShutdownDeadline)
		}
	}
	metrics.ShutdownDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	// монитор выходит сразу после отмены; при forced уже не ждём
	if a.monitorDone != nil && outcome == "graceful" {
		select {
		case <-a.monitorDone:
		case <-deadline.C:
		}
	}

	if a.httpSrv != nil {
		shCtx, cancel := context.WithTimeout(ctx, a.opts.GracefulTimeout)
		if err := a.httpSrv.Shutdown(shCtx); err != nil {
			a.log.Warnf(ctx, "ops http server shutdown failed: %v", err)
		} else {
			a.log.Infof(ctx, "ops http server stopped gracefully")
		}
		cancel()
	}

	for _, c := range a.closers {
		cctx, cancel := context.WithTimeout(ctx, a.opts.GracefulTimeout)
		if err := c.Close(cctx); err != nil {
			a.log.Warnf(ctx, "close %s: %v", c.Name, err)
		}
		cancel()
	}

	a.setPhase(ctx, PhaseStopped)
	a.log.Infof(ctx, "service stopped outcome=%s duration=%s", outcome, time.Since(start))

	if a.flush != nil {
		fctx, cancel := context.WithTimeout(ctx, a.opts.FlushTimeout)
		_ = a.flush(fctx)
		cancel()
	}
}

// Execute — Start → Run → Stop. Ошибка только если не удалось запуститься;
// отмена родительского контекста во время старта ошибкой не считается.
func (a *App) Execute(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Stop()
		return err
	}
	_ = a.Run(ctx)
	return a.Stop()
}
