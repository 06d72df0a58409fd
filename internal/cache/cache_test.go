package cache

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, time.December, 18, 8, 0, 0, 0, time.UTC)}
	c := New()
	c.now = clock.now
	return c, clock
}

func TestCache(t *testing.T) {
	c, _ := newTestCache()

	t.Run("new cache is empty", func(t *testing.T) {
		if c.Size() != 0 {
			t.Errorf("new cache size = %d, want 0", c.Size())
		}
	})

	t.Run("set and get", func(t *testing.T) {
		c.Set("competitions:all", []string{"1", "2"}, time.Minute)

		got, ok := c.Get("competitions:all")
		if !ok {
			t.Fatal("Get returned miss, expected hit")
		}
		if ids := got.([]string); len(ids) != 2 {
			t.Errorf("Get() = %v, want 2 ids", ids)
		}
	})

	t.Run("get unknown key misses", func(t *testing.T) {
		if _, ok := c.Get("nope"); ok {
			t.Error("Get(unknown) hit, want miss")
		}
	})

	t.Run("delete and clear", func(t *testing.T) {
		c.Set("a", 1, time.Minute)
		c.Set("b", 2, time.Minute)
		c.Delete("a")
		if _, ok := c.Get("a"); ok {
			t.Error("deleted key still present")
		}
		c.Clear()
		if c.Size() != 0 {
			t.Errorf("size after Clear = %d, want 0", c.Size())
		}
	})
}

func TestCacheTTLBoundary(t *testing.T) {
	c, clock := newTestCache()
	ttl := 5 * time.Minute
	c.Set("k", "v", ttl)

	clock.t = clock.t.Add(ttl - time.Nanosecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry missing just before expiry")
	}

	clock.t = clock.t.Add(time.Nanosecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry still present at expiry")
	}
	if c.Size() != 0 {
		t.Errorf("expired entry not evicted on read, size = %d", c.Size())
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	c, clock := newTestCache()
	c.Set("k", "v", 0)

	clock.t = clock.t.Add(DefaultTTL - time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry with default TTL expired too early")
	}
	clock.t = clock.t.Add(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry with default TTL outlived it")
	}
}

func TestCleanExpired(t *testing.T) {
	c, clock := newTestCache()
	c.Set("short", 1, time.Minute)
	c.Set("long", 2, time.Hour)

	clock.t = clock.t.Add(2 * time.Minute)
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d, want 1", c.Size())
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("long-lived entry was removed")
	}
}
