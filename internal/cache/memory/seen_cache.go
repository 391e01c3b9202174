package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/Gunvolt24/spot_drain/internal/ports"
	"github.com/Gunvolt24/spot_drain/pkg/metrics"
)

// Проверка, что SeenCache удовлетворяет порту.
var _ ports.SeenCache = (*SeenCache)(nil)

type entry struct {
	id        string
	expiresAt time.Time
}

// SeenCache — LRU с TTL по id обработанных сообщений.
// Ограничен по ёмкости: при переполнении вытесняется самый давний.
type SeenCache struct {
	capacity int
	ttl      time.Duration

	ll    *list.List
	index map[string]*list.Element

	mu  sync.Mutex
	now func() time.Time
}

// NewSeenCache — capacity <= 0 трактуется как 1; ttl <= 0 — без истечения.
func NewSeenCache(capacity int, ttl time.Duration) *SeenCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &SeenCache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Seen — обрабатывалось ли сообщение в пределах TTL.
func (c *SeenCache) Seen(_ context.Context, id string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[id]
	if !ok {
		metrics.CacheOps.WithLabelValues("miss").Inc()
		return false
	}
	ent := elem.Value.(*entry)
	if c.isExpired(ent, now) {
		metrics.CacheOps.WithLabelValues("expired").Inc()
		c.removeElement(elem)
		metrics.CacheSize.Set(float64(c.ll.Len()))
		return false
	}
	c.ll.MoveToFront(elem)

	metrics.CacheOps.WithLabelValues("hit").Inc()
	return true
}

// Mark — запомнить id (повторная отметка продлевает TTL).
func (c *SeenCache) Mark(_ context.Context, id string) {
	if id == "" {
		return
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[id]; ok {
		elem.Value.(*entry).expiresAt = c.expiryFrom(now)
		c.ll.MoveToFront(elem)
		return
	}

	c.pruneExpiredFromBack(now)

	c.index[id] = c.ll.PushFront(&entry{id: id, expiresAt: c.expiryFrom(now)})
	if c.ll.Len() > c.capacity {
		c.evictLRU()
	}
	metrics.CacheSize.Set(float64(c.ll.Len()))
}

// Len — текущее число записей.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
