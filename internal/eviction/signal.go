package eviction

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrEvictionNoticed — причина (context.Cause) отмены общего контекста при срабатывании сигнала.
var ErrEvictionNoticed = errors.New("eviction noticed")

// Signal — одноразовый флаг armed → tripped. Повторно не взводится.
type Signal struct {
	once sync.Once
	done chan struct{}

	mu        sync.RWMutex
	reason    string
	trippedAt time.Time
}

func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Trip — перевести сигнал в tripped. true только у вызова, который реально сделал переход.
func (s *Signal) Trip(reason string) bool {
	fired := false
	s.once.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.trippedAt = time.Now().UTC()
		s.mu.Unlock()

		close(s.done)
		fired = true
	})
	return fired
}

// Done — канал закрывается в момент срабатывания.
func (s *Signal) Done() <-chan struct{} { return s.done }

func (s *Signal) Tripped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Signal) Reason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// TrippedAt — нулевое время, пока сигнал взведён.
func (s *Signal) TrippedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trippedAt
}

// Context — общий контекст процесса: отменяется при срабатывании сигнала
// (причина ErrEvictionNoticed) или вызовом возвращённой функции (причина context.Canceled).
func (s *Signal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-s.done:
			cancel(ErrEvictionNoticed)
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}
