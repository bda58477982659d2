// Package pricecache decorates a database.Store with a read-through cache
// for catalog prices, the most frequently repeated lookup in a workflow.
package pricecache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
	"github.com/Strob0t/PaperDesk/internal/port/cache"
	"github.com/Strob0t/PaperDesk/internal/port/database"
)

const keyPrefix = "price:"

// Store caches ItemPrice results and delegates everything else.
type Store struct {
	database.Store
	cache cache.Cache
	ttl   time.Duration
}

// New wraps inner with c. Prices are cached for ttl.
func New(inner database.Store, c cache.Cache, ttl time.Duration) *Store {
	return &Store{Store: inner, cache: c, ttl: ttl}
}

func key(item string) string {
	return keyPrefix + ledger.NormalizeName(item)
}

// ItemPrice serves from cache when possible. Cache failures fall through to
// the underlying store; lookup errors such as ErrNotFound are not cached.
func (s *Store) ItemPrice(ctx context.Context, item string) (float64, error) {
	k := key(item)
	if data, ok, err := s.cache.Get(ctx, k); err != nil {
		slog.Warn("price cache get failed", "item", item, "error", err)
	} else if ok {
		if p, err := strconv.ParseFloat(string(data), 64); err == nil {
			return p, nil
		}
		_ = s.cache.Delete(ctx, k)
	}

	p, err := s.Store.ItemPrice(ctx, item)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, k, []byte(strconv.FormatFloat(p, 'g', -1, 64)), s.ttl); err != nil {
		slog.Warn("price cache set failed", "item", item, "error", err)
	}
	return p, nil
}

// Invalidate drops the cached price of item.
func (s *Store) Invalidate(ctx context.Context, item string) error {
	return s.cache.Delete(ctx, key(item))
}
