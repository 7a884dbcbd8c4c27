package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}
	m.Set(ctx, "k", []byte("v"), 0)
	v, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	m.Delete(ctx, "k")
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	n := NewNoop()
	n.Set(ctx, "k", []byte("v"), 0)
	if _, ok, _ := n.Get(ctx, "k"); ok {
		t.Error("noop cache never hits")
	}
}

func TestNewRedisFromURL_Invalid(t *testing.T) {
	if _, err := NewRedisFromURL("://bad"); err == nil {
		t.Error("expected parse error")
	}
}
