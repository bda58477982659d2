// Package cachetest holds the behaviour every cache.Cache adapter must share.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/PaperDesk/internal/port/cache"
)

// Run exercises c through the cache port. settle, when non-nil, is called
// after each write for adapters whose writes land asynchronously.
func Run(t *testing.T, c cache.Cache, settle func()) {
	t.Helper()
	ctx := context.Background()
	if settle == nil {
		settle = func() {}
	}
	set := func(t *testing.T, key, val string) {
		t.Helper()
		if err := c.Set(ctx, key, []byte(val), time.Minute); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
		settle()
	}
	get := func(t *testing.T, key string) (string, bool) {
		t.Helper()
		val, found, err := c.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get %s: %v", key, err)
		}
		return string(val), found
	}

	t.Run("price round trip", func(t *testing.T) {
		set(t, "price:A4 paper", "0.05")
		if v, ok := get(t, "price:A4 paper"); !ok || v != "0.05" {
			t.Fatalf("expected 0.05, got %q found=%v", v, ok)
		}
	})

	t.Run("miss", func(t *testing.T) {
		if _, ok := get(t, "price:never cached"); ok {
			t.Fatal("expected a miss")
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		set(t, "price:Cardstock", "0.15")
		set(t, "price:Cardstock", "0.17")
		if v, ok := get(t, "price:Cardstock"); !ok || v != "0.17" {
			t.Fatalf("expected the newer price, got %q found=%v", v, ok)
		}
	})

	t.Run("delete", func(t *testing.T) {
		set(t, "idem:/api/v1/workflows:order-1", `{"status_code":201}`)
		if err := c.Delete(ctx, "idem:/api/v1/workflows:order-1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		settle()
		if _, ok := get(t, "idem:/api/v1/workflows:order-1"); ok {
			t.Fatal("expected a miss after Delete")
		}
	})

	t.Run("delete missing key", func(t *testing.T) {
		if err := c.Delete(ctx, "price:never cached"); err != nil {
			t.Fatalf("Delete of a missing key: %v", err)
		}
	})

	t.Run("distinct keys", func(t *testing.T) {
		set(t, "price:A4 paper", "0.05")
		set(t, "price:A3 paper", "0.08")
		a4, _ := get(t, "price:A4 paper")
		a3, _ := get(t, "price:A3 paper")
		if a4 != "0.05" || a3 != "0.08" {
			t.Fatalf("keys bled into each other: A4=%q A3=%q", a4, a3)
		}
	})
}
