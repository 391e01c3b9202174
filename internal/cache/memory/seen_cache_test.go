package memory

import (
	"context"
	"testing"
	"time"
)

func TestSeenCache_MarkSeen(t *testing.T) {
	c := NewSeenCache(2, 5*time.Minute)
	ctx := context.Background()

	if c.Seen(ctx, "id-1") {
		t.Fatalf("expected miss before Mark")
	}
	c.Mark(ctx, "id-1")
	if !c.Seen(ctx, "id-1") {
		t.Fatalf("expected hit after Mark")
	}
	c.Mark(ctx, "")
	if c.Len() != 1 {
		t.Fatalf("empty id must be ignored, len=%d", c.Len())
	}
}

func TestSeenCache_TTLExpiry(t *testing.T) {
	c := NewSeenCache(2, time.Minute)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	ctx := context.Background()

	c.Mark(ctx, "ttl")
	if !c.Seen(ctx, "ttl") {
		t.Fatalf("expected hit right after Mark")
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if c.Seen(ctx, "ttl") {
		t.Fatalf("expected miss after TTL expires")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry must be removed")
	}
}

func TestSeenCache_LRUEviction(t *testing.T) {
	c := NewSeenCache(2, 0) // 0 = без TTL
	ctx := context.Background()

	c.Mark(ctx, "A")
	c.Mark(ctx, "B")
	// A сделать «свежим»
	if !c.Seen(ctx, "A") {
		t.Fatalf("expected hit for A")
	}
	// C вытеснит B (самый давний)
	c.Mark(ctx, "C")

	if c.Seen(ctx, "B") {
		t.Fatalf("B must be evicted")
	}
	if !c.Seen(ctx, "A") || !c.Seen(ctx, "C") {
		t.Fatalf("A and C must stay")
	}
}

func TestSeenCache_PruneExpiredOnMark(t *testing.T) {
	c := NewSeenCache(10, time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }
	ctx := context.Background()

	c.Mark(ctx, "old-1")
	c.Mark(ctx, "old-2")

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	c.Mark(ctx, "fresh")

	if c.Len() != 1 {
		t.Fatalf("expired tail must be pruned, len=%d", c.Len())
	}
}
