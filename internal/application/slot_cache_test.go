package application

import (
	"testing"
	"time"

	"github.com/example/salon-scheduler/internal/scheduler"
)

func TestSlotCacheStoresAndReturnsCopies(t *testing.T) {
	current := time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC)
	cache := newSlotCache(time.Minute, 4, func() time.Time { return current })

	original := scheduler.SlotResult{Slots: []string{"10:00", "10:30"}}
	cache.Store("2024-06-11|30", original)
	original.Slots[0] = "mutated"

	cached, ok := cache.Get("2024-06-11|30")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached.Slots[0] != "10:00" {
		t.Fatalf("expected cached slots to remain unchanged, got %v", cached.Slots)
	}

	cached.Slots[0] = "changed"
	again, _ := cache.Get("2024-06-11|30")
	if again.Slots[0] != "10:00" {
		t.Fatalf("expected independent copy, got %v", again.Slots)
	}
}

func TestSlotCacheExpiresEntries(t *testing.T) {
	current := time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC)
	cache := newSlotCache(time.Second, 4, func() time.Time { return current })

	cache.Store("key", scheduler.SlotResult{Reason: scheduler.ReasonFull})
	if got, ok := cache.Get("key"); !ok || got.Reason != scheduler.ReasonFull {
		t.Fatalf("expected cache hit before expiry, got %#v", got)
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestSlotCacheBoundsEntries(t *testing.T) {
	cache := newSlotCache(time.Minute, 2, time.Now)
	cache.Store("a", scheduler.SlotResult{})
	cache.Store("b", scheduler.SlotResult{})
	cache.Store("c", scheduler.SlotResult{})
	if cache.Len() != 2 {
		t.Fatalf("expected eviction to keep two entries, got %d", cache.Len())
	}
	cache.Invalidate()
	if cache.Len() != 0 {
		t.Fatalf("expected cache to be empty after invalidation")
	}
}

func TestSlotCacheDisabled(t *testing.T) {
	cache := newSlotCache(0, 4, time.Now)
	if cache != nil {
		t.Fatalf("expected zero ttl to disable the cache")
	}
	cache.Store("key", scheduler.SlotResult{Slots: []string{"10:00"}})
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("disabled cache must never hit")
	}
}

func TestBuildSlotCacheKey(t *testing.T) {
	day := time.Date(2024, 6, 11, 15, 30, 0, 0, time.UTC)
	if got := buildSlotCacheKey(day, 45); got != "2024-06-11|45" {
		t.Fatalf("unexpected key %q", got)
	}
}
