// Package memory implements the persistence ports in process memory. It backs
// the default "memory" store driver and the service tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/PaperDesk/internal/domain"
	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
)

const (
	defaultQuoteLimit = 5
	topSellers        = 5
)

// Store implements database.Store and database.Seeder.
type Store struct {
	mu      sync.RWMutex
	catalog map[string]ledger.CatalogItem // keyed by normalized name
	txs     []ledger.Transaction
	quotes  []ledger.Quote
	nextTx  int64
	nextQ   int64
}

// NewStore creates a store with the given catalog. A nil catalog starts empty.
func NewStore(catalog []ledger.CatalogItem) *Store {
	s := &Store{catalog: make(map[string]ledger.CatalogItem, len(catalog))}
	for _, c := range catalog {
		s.catalog[ledger.NormalizeName(c.Name)] = c
	}
	return s
}

// SetPrice adds or reprices a catalog item.
func (s *Store) SetPrice(name string, unitPrice float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledger.NormalizeName(name)
	item := s.catalog[key]
	if item.Name == "" {
		item.Name = name
	}
	item.UnitPrice = unitPrice
	s.catalog[key] = item
}

// AddQuote appends a historical quote.
func (s *Store) AddQuote(q ledger.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQ++
	q.ID = s.nextQ
	s.quotes = append(s.quotes, q)
}

// Transactions returns a copy of the ledger in insertion order.
func (s *Store) Transactions() []ledger.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.txs)
}

// canonical returns the catalog spelling of name when known.
func (s *Store) canonical(name string) string {
	if c, ok := s.catalog[ledger.NormalizeName(name)]; ok {
		return c.Name
	}
	return name
}

// StockLevel returns stock_orders minus sales units for item up to asOf.
func (s *Store) StockLevel(_ context.Context, item string, asOf time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := ledger.NormalizeName(item)
	stock := 0
	for i := range s.txs {
		tx := &s.txs[i]
		if tx.ItemName == "" || tx.Date.After(asOf) || ledger.NormalizeName(tx.ItemName) != key {
			continue
		}
		switch tx.Type {
		case ledger.TypeStockOrders:
			stock += tx.Units
		case ledger.TypeSales:
			stock -= tx.Units
		}
	}
	return stock, nil
}

// ItemPrice returns the unit price or domain.ErrNotFound.
func (s *Store) ItemPrice(_ context.Context, item string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.catalog[ledger.NormalizeName(item)]
	if !ok {
		return 0, fmt.Errorf("item %q: %w", item, domain.ErrNotFound)
	}
	return c.UnitPrice, nil
}

// CreateTransaction validates and appends tx.
func (s *Store) CreateTransaction(_ context.Context, tx *ledger.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	row := *tx
	row.ID = s.nextTx
	if row.ItemName != "" {
		row.ItemName = s.canonical(row.ItemName)
	}
	s.txs = append(s.txs, row)
	tx.ID = row.ID
	return row.ID, nil
}

// AllInventory returns every item with positive stock up to asOf.
func (s *Store) AllInventory(_ context.Context, asOf time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inventoryLocked(asOf), nil
}

func (s *Store) inventoryLocked(asOf time.Time) map[string]int {
	stock := make(map[string]int)
	for i := range s.txs {
		tx := &s.txs[i]
		if tx.ItemName == "" || tx.Date.After(asOf) {
			continue
		}
		switch tx.Type {
		case ledger.TypeStockOrders:
			stock[tx.ItemName] += tx.Units
		case ledger.TypeSales:
			stock[tx.ItemName] -= tx.Units
		}
	}
	for name, n := range stock {
		if n <= 0 {
			delete(stock, name)
		}
	}
	return stock
}

// CashBalance returns Σ sales − Σ stock_orders prices up to asOf.
func (s *Store) CashBalance(_ context.Context, asOf time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cashLocked(asOf), nil
}

func (s *Store) cashLocked(asOf time.Time) float64 {
	var cash float64
	for i := range s.txs {
		tx := &s.txs[i]
		if tx.Date.After(asOf) {
			continue
		}
		switch tx.Type {
		case ledger.TypeSales:
			cash += tx.Price
		case ledger.TypeStockOrders:
			cash -= tx.Price
		}
	}
	return cash
}

// FinancialReport builds a snapshot as of asOf.
func (s *Store) FinancialReport(_ context.Context, asOf time.Time) (ledger.FinancialReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cash := s.cashLocked(asOf)
	inv := s.inventoryLocked(asOf)

	stock := make([]ledger.StockValue, 0, len(inv))
	for name, n := range inv {
		stock = append(stock, ledger.StockValue{
			ItemName:  name,
			Stock:     n,
			UnitPrice: s.catalog[ledger.NormalizeName(name)].UnitPrice,
		})
	}
	slices.SortFunc(stock, func(a, b ledger.StockValue) int { return cmp.Compare(a.ItemName, b.ItemName) })

	sold := make(map[string]*ledger.TopSeller)
	for i := range s.txs {
		tx := &s.txs[i]
		if tx.Type != ledger.TypeSales || tx.ItemName == "" || tx.Date.After(asOf) {
			continue
		}
		ts, ok := sold[tx.ItemName]
		if !ok {
			ts = &ledger.TopSeller{ItemName: tx.ItemName}
			sold[tx.ItemName] = ts
		}
		ts.TotalUnits += tx.Units
		ts.TotalRevenue += tx.Price
	}
	top := make([]ledger.TopSeller, 0, len(sold))
	for _, ts := range sold {
		top = append(top, *ts)
	}
	slices.SortFunc(top, func(a, b ledger.TopSeller) int {
		if c := cmp.Compare(b.TotalRevenue, a.TotalRevenue); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemName, b.ItemName)
	})
	if len(top) > topSellers {
		top = top[:topSellers]
	}

	return ledger.NewReport(asOf.Format(time.DateOnly), cash, stock, top), nil
}

// SearchQuoteHistory returns up to limit quotes matching every term, newest first.
func (s *Store) SearchQuoteHistory(_ context.Context, terms []string, limit int) ([]ledger.Quote, error) {
	if limit <= 0 {
		limit = defaultQuoteLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Quote, 0, limit)
	for i := range s.quotes {
		if s.quotes[i].Matches(terms) {
			out = append(out, s.quotes[i])
		}
	}
	slices.SortStableFunc(out, func(a, b ledger.Quote) int { return b.OrderDate.Compare(a.OrderDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Seed loads the catalog, opening cash, opening stock and sample quotes.
// Seeding a store that already has transactions is a no-op.
func (s *Store) Seed(ctx context.Context, asOf time.Time) error {
	s.mu.RLock()
	seeded := len(s.txs) > 0
	s.mu.RUnlock()
	if seeded {
		slog.Info("memory store already seeded, skipping")
		return nil
	}

	for _, c := range ledger.Catalog {
		s.SetPrice(c.Name, c.UnitPrice)
	}
	if _, err := s.CreateTransaction(ctx, &ledger.Transaction{
		Type: ledger.TypeSales, Price: ledger.OpeningCash, Date: asOf,
	}); err != nil {
		return fmt.Errorf("seed opening cash: %w", err)
	}
	for _, c := range ledger.Catalog {
		units := ledger.OpeningStock[c.Name]
		if units <= 0 {
			continue
		}
		if _, err := s.CreateTransaction(ctx, &ledger.Transaction{
			ItemName: c.Name, Type: ledger.TypeStockOrders, Units: units,
			Price: float64(units) * c.UnitPrice, Date: asOf,
		}); err != nil {
			return fmt.Errorf("seed stock %s: %w", c.Name, err)
		}
	}
	for _, q := range ledger.SampleQuotes {
		q.OrderDate = asOf
		s.AddQuote(q)
	}
	slog.Info("memory store seeded", "items", len(ledger.Catalog), "quotes", len(ledger.SampleQuotes))
	return nil
}
