package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gunvolt24/spot_drain/config"
	cachemem "github.com/Gunvolt24/spot_drain/internal/cache/memory"
	"github.com/Gunvolt24/spot_drain/internal/consumer"
	"github.com/Gunvolt24/spot_drain/internal/domain"
	"github.com/Gunvolt24/spot_drain/internal/eviction"
	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/internal/scheduledevents"
	rest "github.com/Gunvolt24/spot_drain/internal/transport/http"
	"github.com/Gunvolt24/spot_drain/internal/usecase"
	"github.com/Gunvolt24/spot_drain/pkg/logger"
	"github.com/Gunvolt24/spot_drain/pkg/metrics"
	"github.com/Gunvolt24/spot_drain/pkg/msgfile"
	"github.com/Gunvolt24/spot_drain/pkg/telemetry"
	"github.com/gin-gonic/gin"
)

// Cleanup — функция освобождения ресурсов.
type Cleanup func()

// applyGinMode — устанавливает режим Gin по строке;
// неизвестное значение → release и предупреждение в лог.
func applyGinMode(ctx context.Context, mode string, log ports.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
		log.Warnf(ctx, "unknown GIN_MODE=%q, fallback to release", mode)
	}
}

// newEventSource — источник событий по конфигурации: live (metadata-эндпоинт) или fake.
func newEventSource(cfg *config.Config, log ports.Logger) (ports.EventSource, *scheduledevents.LiveSource, error) {
	if cfg.Eviction.Source == "fake" {
		return scheduledevents.NewFakeSource(cfg.Eviction.FakeThreshold, cfg.Eviction.Resource), nil, nil
	}
	live, err := scheduledevents.NewLiveSource(scheduledevents.LiveConfig{
		Endpoint:       cfg.Eviction.Endpoint,
		APIVersion:     cfg.Eviction.APIVersion,
		RequestTimeout: cfg.Eviction.RequestTimeout,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return live, live, nil
}

// Bootstrap — собирает зависимости и возвращает приложение, функцию очистки и ошибку.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, Cleanup, error) {
	// Логгер (dev/prod режим задаётся конфигурацией).
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd)
	if err != nil {
		return nil, func() {}, err
	}
	fail := func(err error) (*App, Cleanup, error) {
		logg.Errorf(ctx, "bootstrap failed: %v", err)
		_ = cleanupLogger()
		return nil, func() {}, err
	}

	// Регистрация метрик (Prometheus).
	metrics.MustRegister()

	// Трейсинг OTEL (при включённой конфигурации); по умолчанию — no-op.
	shutdownTrace := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		setup, tErr := telemetry.SetupTracing(ctx, telemetry.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if tErr != nil {
			logg.Warnf(ctx, "failed to setup tracing: %v", tErr)
		} else {
			logg.Infof(ctx, "otel tracing enabled service=%s endpoint=%s sample=%.2f",
				cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
			shutdownTrace = setup
		}
	}

	// Источник событий и монитор эвикции.
	source, live, err := newEventSource(cfg, logg)
	if err != nil {
		_ = shutdownTrace(ctx)
		return fail(fmt.Errorf("event source: %w", err))
	}
	signal := eviction.NewSignal()
	monitor, err := eviction.NewMonitor(eviction.MonitorConfig{
		PollInterval:     cfg.Eviction.PollInterval,
		SentinelResource: cfg.Eviction.Resource,
	}, source, signal, logg)
	if err != nil {
		_ = shutdownTrace(ctx)
		return fail(err)
	}
	if live != nil && cfg.Eviction.AckEvents {
		monitor.OnTrip(ackHook(live, cfg.Eviction.RequestTimeout, logg))
	}

	// Очередь.
	q, err := OpenQueue(ctx, cfg)
	if err != nil {
		_ = shutdownTrace(ctx)
		return fail(err)
	}
	if path := cfg.Queue.SeedFile; path != "" {
		res, sErr := Seed(ctx, q, path, msgfile.FormatAuto)
		if sErr != nil {
			_ = q.Close()
			_ = shutdownTrace(ctx)
			return fail(fmt.Errorf("seed queue from %s: %w", path, sErr))
		}
		logg.Infof(ctx, "queue seeded from %s (%s)", path, res)
	}

	// Обработчик: сервис сообщений, опционально за дедупликатором.
	var proc ports.MessageProcessor = usecase.NewMessageService(logg, cfg.Consumer.SimulatedWork)
	if cfg.Dedup.Enabled {
		proc = usecase.NewDeduplicator(proc, cachemem.NewSeenCache(cfg.Dedup.Capacity, cfg.Dedup.TTL), logg)
	}

	cons := consumer.New(consumer.Config{
		BatchSize:      cfg.Consumer.BatchSize,
		EmptyDelay:     cfg.Consumer.EmptyDelay,
		ProcessTimeout: cfg.Consumer.ProcessTimeout,
		AckTimeout:     cfg.Consumer.AckTimeout,
		RetryInitial:   cfg.Consumer.RetryInitial,
		RetryMax:       cfg.Consumer.RetryMax,
		Backend:        cfg.Queue.Backend,
	}, q, proc, logg)

	app := New(Components{
		Logger:   logg,
		Signal:   signal,
		Monitor:  monitor,
		Consumer: cons,
		Closers: []Closer{
			{Name: "queue " + cfg.Queue.Backend, Close: func(context.Context) error { return cons.Close() }},
			{Name: "tracing", Close: shutdownTrace},
		},
		Flush: logg.Flush,
	}, Options{
		ShutdownDeadline: cfg.Shutdown.Deadline,
		FlushTimeout:     cfg.Shutdown.FlushTimeout,
		GracefulTimeout:  cfg.HTTP.GracefulTimeout,
	})

	// Ops HTTP: пробы, /status, /metrics.
	if cfg.HTTP.Enabled {
		applyGinMode(ctx, cfg.HTTP.GinMode, logg)

		// Имя сервиса для otelgin (только при включённом трейсинге).
		otelServiceName := ""
		if cfg.Tracing.Enabled {
			otelServiceName = cfg.Tracing.ServiceName
		}

		router := rest.NewRouter(rest.NewHandler(app, logg), otelServiceName, "")
		app.httpSrv = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
			IdleTimeout:       cfg.HTTP.IdleTimeout,
		}
	}

	logg.Infof(ctx, "bootstrap done source=%s resource=%s backend=%s poll=%s deadline=%s",
		cfg.Eviction.Source, cfg.Eviction.Resource, cfg.Queue.Backend, cfg.Eviction.PollInterval, cfg.Shutdown.Deadline)

	// Stop идемпотентен: очистка после Execute ничего не повторяет.
	cleanup := func() {
		_ = app.Stop()
		if cerr := cleanupLogger(); cerr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cerr)
		}
	}

	return app, cleanup, nil
}

// ackHook — подтверждение события платформе после срабатывания сигнала.
// Контекст отвязан от отмены: к этому моменту общий контекст уже отменён.
func ackHook(live *scheduledevents.LiveSource, timeout time.Duration, log ports.Logger) eviction.TripHook {
	return func(ctx context.Context, ev domain.ScheduledEvent) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := live.Acknowledge(actx, ev.EventID); err != nil {
			log.Warnf(ctx, "acknowledge event %s: %v", ev.EventID, err)
			return
		}
		log.Infof(ctx, "event %s acknowledged", ev.EventID)
	}
}
