package cache

import (
	"container/list"
	"sync"
	"time"
)

// lruEntry is one slot in the bounded in-process cache.
type lruEntry struct {
	key       string
	value     any
	expiresAt time.Time
	insertedAt time.Time
}

// lru is a small bounded least-recently-used cache guarded by one
// mutex, the same concurrency idiom the teacher uses for its
// mutex-guarded maps (internal/heuristics/watchlist.go,
// internal/api/websocket.go's Hub).
type lru struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = 1000
	}
	return &lru{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *lru) get(key string) (any, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, time.Time{}, false
	}
	entry := el.Value.(*lruEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		return nil, time.Time{}, false
	}
	c.order.MoveToFront(el)
	return entry.value, entry.insertedAt, true
}

func (c *lru) put(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*lruEntry)
		entry.value = value
		entry.expiresAt = now.Add(ttl)
		entry.insertedAt = now
		c.order.MoveToFront(el)
		return
	}

	entry := &lruEntry{key: key, value: value, expiresAt: now.Add(ttl), insertedAt: now}
	el := c.order.PushFront(entry)
	c.items[key] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
}

func (c *lru) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

func (c *lru) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

func (c *lru) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
