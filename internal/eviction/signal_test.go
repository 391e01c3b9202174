package eviction

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSignal_TripsOnce(t *testing.T) {
	s := NewSignal()
	if s.Tripped() {
		t.Fatal("new signal must be armed")
	}

	if !s.Trip("first") {
		t.Fatal("first Trip must perform the transition")
	}
	if s.Trip("second") {
		t.Fatal("second Trip must be a no-op")
	}
	if !s.Tripped() || s.Reason() != "first" || s.TrippedAt().IsZero() {
		t.Fatalf("unexpected state: tripped=%v reason=%q at=%v", s.Tripped(), s.Reason(), s.TrippedAt())
	}
}

func TestSignal_ConcurrentTrip_SingleWinner(t *testing.T) {
	s := NewSignal()
	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Trip("race") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Fatalf("want exactly one winner, got %d", winners.Load())
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done must be closed after trip")
	}
}

func TestSignal_Context_CancelledWithCause(t *testing.T) {
	s := NewSignal()
	ctx, cancel := s.Context(context.Background())
	defer cancel()

	s.Trip("preempt")

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after trip")
	}
	if !errors.Is(context.Cause(ctx), ErrEvictionNoticed) {
		t.Fatalf("want cause ErrEvictionNoticed, got %v", context.Cause(ctx))
	}
}

func TestSignal_Context_ExternalCancel(t *testing.T) {
	s := NewSignal()
	ctx, cancel := s.Context(context.Background())
	cancel()

	<-ctx.Done()
	if errors.Is(context.Cause(ctx), ErrEvictionNoticed) {
		t.Fatal("external cancel must not report eviction")
	}
	if s.Tripped() {
		t.Fatal("external cancel must not trip the signal")
	}
}
