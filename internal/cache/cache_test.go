package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}

	c.Set("/api/crops", []byte(`[]`), "crops")
	got, ok := c.Get("/api/crops")
	if !ok || string(got) != `[]` {
		t.Errorf("expected cached value, got %q ok=%v", got, ok)
	}
}

func TestExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Set("key", []byte("v"), "tag")

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("key"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry evicted, len=%d", c.Len())
	}
}

func TestRevalidate(t *testing.T) {
	c := New(time.Minute)
	c.Set("/api/plantings", []byte("a"), "plantings")
	c.Set("/api/plantings/pl-1", []byte("b"), "plantings", "planting:pl-1")
	c.Set("/api/crops", []byte("c"), "crops")

	c.Revalidate("plantings")

	if _, ok := c.Get("/api/plantings"); ok {
		t.Error("expected plantings list invalidated")
	}
	if _, ok := c.Get("/api/plantings/pl-1"); ok {
		t.Error("expected tagged planting entry invalidated")
	}
	if _, ok := c.Get("/api/crops"); !ok {
		t.Error("expected crops entry to survive")
	}
}

func TestFlush(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", []byte("1"), "t1")
	c.Set("b", []byte("2"), "t2")

	c.Flush()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after flush, len=%d", c.Len())
	}
}
