package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryCache_GetSetDelete(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get() = %q, %v; want v", got, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	now = now.Add(30 * time.Second)
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("Expected hit before expiry, got %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected miss after expiry, got %v", err)
	}
}

func TestInMemoryCache_Clear(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected a to be cleared")
	}
}

func TestJSONHelpers(t *testing.T) {
	c := NewInMemoryCache()
	ctx := context.Background()

	in := []string{"Daily Data", "Weekly Data"}
	if err := SetJSON(ctx, c, "subs", in, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	var out []string
	if err := GetJSON(ctx, c, "subs", &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if len(out) != 2 || out[1] != "Weekly Data" {
		t.Errorf("Unexpected round trip: %v", out)
	}
}

func TestKey(t *testing.T) {
	if got := Key("Offers", " Data ", "", "week"); got != "offers:data::week" {
		t.Errorf("Key() = %q", got)
	}
}
