package scancache

import (
	"testing"
	"time"
)

func TestSetGet_RoundTrip(t *testing.T) {
	t.Parallel()
	c := New(4, time.Minute)
	c.Set("https://example.com/", 42)
	v, ok := c.Get("https://example.com/")
	if !ok || v.(int) != 42 {
		t.Fatalf("Get = (%v, %v), want (42, true)", v, ok)
	}
}

func TestGet_Miss(t *testing.T) {
	t.Parallel()
	c := New(4, time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestGet_ExpiredEntry(t *testing.T) {
	t.Parallel()
	c := New(4, time.Millisecond)
	c.Set("k", "v")
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to be evicted on read")
	}
}

func TestSet_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()
	c := New(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected oldest entry 'a' to be evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected newest entry 'c' to remain")
	}
}
