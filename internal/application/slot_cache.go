package application

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/salon-scheduler/internal/scheduler"
)

// slotCache stores recently computed slot lists so repeated availability
// lookups for the same day skip the store while nothing has changed. Any
// appointment or blockage change clears it.
type slotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]slotCacheEntry
}

type slotCacheEntry struct {
	result    scheduler.SlotResult
	expiresAt time.Time
}

func newSlotCache(ttl time.Duration, maxEntries int, now func() time.Time) *slotCache {
	if ttl <= 0 {
		return nil
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &slotCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]slotCacheEntry),
	}
}

func (c *slotCache) Get(key string) (scheduler.SlotResult, bool) {
	if c == nil {
		return scheduler.SlotResult{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return scheduler.SlotResult{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return scheduler.SlotResult{}, false
	}
	return cloneSlotResult(entry.result), true
}

func (c *slotCache) Store(key string, result scheduler.SlotResult) {
	if c == nil {
		return
	}
	cloned := cloneSlotResult(result)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = slotCacheEntry{result: cloned, expiresAt: expiry}
}

func (c *slotCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]slotCacheEntry)
	c.mu.Unlock()
}

func (c *slotCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *slotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *slotCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSlotResult(result scheduler.SlotResult) scheduler.SlotResult {
	if len(result.Slots) == 0 {
		return scheduler.SlotResult{Reason: result.Reason}
	}
	slots := make([]string, len(result.Slots))
	copy(slots, result.Slots)
	return scheduler.SlotResult{Slots: slots, Reason: result.Reason}
}

func buildSlotCacheKey(day time.Time, durationMinutes int) string {
	return fmt.Sprintf("%s|%d", day.Format(dateLayout), durationMinutes)
}
