package utils

import (
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	cache := NewMemoryCache()
	cache.Set("key", 42, time.Minute)

	value, ok := cache.Get("key")
	if !ok {
		t.Fatal("value missing")
	}
	if value.(int) != 42 {
		t.Errorf("got %v", value)
	}
	if _, ok := cache.Get("absent"); ok {
		t.Error("unknown key reported present")
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache()
	cache.Set("key", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := cache.Get("key"); ok {
		t.Error("expired value still present")
	}
}

func TestMemoryCache_NilValueCached(t *testing.T) {
	cache := NewMemoryCache()
	var score *int
	cache.Set("key", score, time.Minute)

	value, ok := cache.Get("key")
	if !ok {
		t.Fatal("nil value should still count as cached")
	}
	if value.(*int) != nil {
		t.Errorf("got %v", value)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache()
	cache.Set("key", 1, time.Minute)
	cache.Delete("key")
	if _, ok := cache.Get("key"); ok {
		t.Error("deleted value still present")
	}
	if cache.Size() != 0 {
		t.Errorf("size=%d, want 0", cache.Size())
	}
}
