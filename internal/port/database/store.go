// Package database defines the persistence port consulted through the
// operation gateway: stock, prices, the transaction ledger and quote history.
package database

import (
	"context"
	"time"

	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
)

// Store is the port interface for inventory and ledger persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// StockLevel returns units on hand for item as of the given instant.
	// Items without transactions have zero stock.
	StockLevel(ctx context.Context, item string, asOf time.Time) (int, error)

	// ItemPrice returns the catalog unit price. Unknown items return domain.ErrNotFound.
	ItemPrice(ctx context.Context, item string) (float64, error)

	// CreateTransaction appends a ledger row and returns its id.
	CreateTransaction(ctx context.Context, tx *ledger.Transaction) (int64, error)

	// AllInventory returns the positive stock of every item as of the given instant.
	AllInventory(ctx context.Context, asOf time.Time) (map[string]int, error)

	// CashBalance returns Σ sales − Σ stock_orders up to the given instant.
	CashBalance(ctx context.Context, asOf time.Time) (float64, error)

	// FinancialReport builds a cash and inventory snapshot.
	FinancialReport(ctx context.Context, asOf time.Time) (ledger.FinancialReport, error)

	// SearchQuoteHistory returns up to limit quotes matching all terms, newest first.
	SearchQuoteHistory(ctx context.Context, terms []string, limit int) ([]ledger.Quote, error)
}

// Seeder loads the catalog, opening cash, opening stock and sample quotes.
type Seeder interface {
	Seed(ctx context.Context, asOf time.Time) error
}
