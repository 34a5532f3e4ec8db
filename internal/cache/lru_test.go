package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUBasicSetGet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)
	c.Set("a", "1")

	got, ok := c.Get("a")
	if !ok || got != "1" {
		t.Fatalf("expected hit with %q, got %q (hit=%v)", "1", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry should survive eviction")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry must read as a miss")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be dropped on read, size %d", c.Size())
	}
}

func TestLRUPurge(t *testing.T) {
	c := NewLRUCache[int](8, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge should empty the cache, size %d", c.Size())
	}
	c.Set("k0", 42)
	if got, ok := c.Get("k0"); !ok || got != 42 {
		t.Fatal("cache must stay usable after purge")
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](8, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("expected 2 expired entries cleaned, got %d", n)
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("fresh entry must survive cleanup")
	}
}
