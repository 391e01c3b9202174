package logger

import (
	"context"
	"errors"
	"syscall"

	"github.com/Gunvolt24/spot_drain/pkg/ctxmeta"
	"go.uber.org/zap"
)

type ZapLogger struct {
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	isProd bool
}

// NewZapLogger — production (JSON) или development (консоль) логгер.
// Вторым значением возвращается cleanup, сбрасывающий буферы.
func NewZapLogger(isProd bool) (*ZapLogger, func() error, error) {
	var (
		logger *zap.Logger
		err    error
	)

	if isProd {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, nil, err
	}

	return wrap(logger, isProd), func() error { return syncIgnoringTTY(logger) }, nil
}

// NewFromZap — обёртка над готовым *zap.Logger (тесты с zaptest/observer).
func NewFromZap(base *zap.Logger) *ZapLogger { return wrap(base, false) }

func wrap(base *zap.Logger, isProd bool) *ZapLogger {
	return &ZapLogger{
		base:   base,
		sugar:  base.Sugar(),
		isProd: isProd,
	}
}

// With — дочерний логгер с постоянными полями (component, worker_id).
func (z *ZapLogger) With(kv ...any) *ZapLogger {
	child := z.sugar.With(kv...)
	return &ZapLogger{base: child.Desugar(), sugar: child, isProd: z.isProd}
}

func (z *ZapLogger) Debugf(ctx context.Context, format string, args ...any) {
	z.fromContext(ctx).Debugf(format, args...)
}
func (z *ZapLogger) Infof(ctx context.Context, format string, args ...any) {
	z.fromContext(ctx).Infof(format, args...)
}
func (z *ZapLogger) Warnf(ctx context.Context, format string, args ...any) {
	z.fromContext(ctx).Warnf(format, args...)
}
func (z *ZapLogger) Errorf(ctx context.Context, format string, args ...any) {
	z.fromContext(ctx).Errorf(format, args...)
}

// Flush — синхронный сброс буферов, ограниченный контекстом.
// Если Sync завис (например, сломанный stdout), возвращаем ctx.Err() и не ждём дальше.
func (z *ZapLogger) Flush(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- syncIgnoringTTY(z.base) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (z *ZapLogger) Base() *zap.Logger           { return z.base }
func (z *ZapLogger) Sugared() *zap.SugaredLogger { return z.sugar }

// fromContext — добавляет к записи метаданные из контекста (request_id, message_id, trace).
func (z *ZapLogger) fromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return z.sugar
	}
	var kv []any
	if rid, ok := ctxmeta.RequestIDFromContext(ctx); ok {
		kv = append(kv, "request_id", rid)
	}
	if mid, ok := ctxmeta.MessageIDFromContext(ctx); ok {
		kv = append(kv, "message_id", mid)
	}
	if tid, ok := ctxmeta.TraceIDFromContext(ctx); ok {
		kv = append(kv, "trace_id", tid)
	}
	if sid, ok := ctxmeta.SpanIDFromContext(ctx); ok {
		kv = append(kv, "span_id", sid)
	}
	if len(kv) == 0 {
		return z.sugar
	}
	return z.sugar.With(kv...)
}

// syncIgnoringTTY — Sync на stdout/stderr терминала возвращает EINVAL/ENOTTY, это не ошибка.
func syncIgnoringTTY(l *zap.Logger) error {
	err := l.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
