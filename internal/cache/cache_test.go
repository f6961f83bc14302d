package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[int](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("missing key should not be found")
	}

	c.Set("a", 42)
	got, ok := c.Get("a")
	if !ok || got != 42 {
		t.Fatalf("expected 42, got %d (ok=%v)", got, ok)
	}

	c.Set("a", 43)
	if got, _ := c.Get("a"); got != 43 {
		t.Fatalf("overwrite failed, got %d", got)
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func TestExpiry(t *testing.T) {
	c := New[string](10, 10*time.Millisecond)
	c.Set("a", "x")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry should not be returned")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed, size %d", c.Size())
	}
}

func TestEviction(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestClear(t *testing.T) {
	c := New[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("cleared entry should not be found")
	}
}

func TestCleanExpired(t *testing.T) {
	c := New[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	if removed := c.CleanExpired(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("fresh entry should survive cleanup")
	}
}
