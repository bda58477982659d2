package pricecache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/PaperDesk/internal/adapter/memory"
	"github.com/Strob0t/PaperDesk/internal/adapter/pricecache"
	"github.com/Strob0t/PaperDesk/internal/domain"
	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
)

type memCache struct {
	data map[string][]byte
	gets int
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.gets++
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// countingStore counts ItemPrice calls on the wrapped store.
type countingStore struct {
	*memory.Store
	calls int
}

func (c *countingStore) ItemPrice(ctx context.Context, item string) (float64, error) {
	c.calls++
	return c.Store.ItemPrice(ctx, item)
}

func TestItemPriceReadThrough(t *testing.T) {
	inner := &countingStore{Store: memory.NewStore([]ledger.CatalogItem{{Name: "A4 paper", UnitPrice: 0.05}})}
	c := &memCache{data: map[string][]byte{}}
	s := pricecache.New(inner, c, time.Minute)
	ctx := context.Background()

	for range 3 {
		p, err := s.ItemPrice(ctx, "A4 paper")
		if err != nil || p != 0.05 {
			t.Fatalf("ItemPrice = %v, %v", p, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 store lookup, got %d", inner.calls)
	}
	if _, ok := c.data["price:a4 paper"]; !ok {
		t.Errorf("expected normalized cache key, have %v", c.data)
	}

	if err := s.Invalidate(ctx, "A4 PAPER"); err != nil {
		t.Fatal(err)
	}
	_, _ = s.ItemPrice(ctx, "A4 paper")
	if inner.calls != 2 {
		t.Errorf("expected lookup after invalidate, got %d calls", inner.calls)
	}
}

func TestItemPriceNotFoundNotCached(t *testing.T) {
	inner := &countingStore{Store: memory.NewStore(nil)}
	c := &memCache{data: map[string][]byte{}}
	s := pricecache.New(inner, c, time.Minute)

	_, err := s.ItemPrice(context.Background(), "Unobtainium")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(c.data) != 0 {
		t.Error("errors must not be cached")
	}
}

func TestCorruptEntryIsDropped(t *testing.T) {
	inner := &countingStore{Store: memory.NewStore([]ledger.CatalogItem{{Name: "Cardstock", UnitPrice: 0.15}})}
	c := &memCache{data: map[string][]byte{"price:cardstock": []byte("n/a")}}
	s := pricecache.New(inner, c, time.Minute)

	p, err := s.ItemPrice(context.Background(), "Cardstock")
	if err != nil || p != 0.15 {
		t.Fatalf("ItemPrice = %v, %v", p, err)
	}
	if string(c.data["price:cardstock"]) != "0.15" {
		t.Errorf("expected repaired entry, got %q", c.data["price:cardstock"])
	}
}
