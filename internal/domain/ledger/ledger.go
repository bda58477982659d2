// Package ledger defines the paper catalog, stock/cash transactions and the
// financial report derived from them.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/PaperDesk/internal/domain"
)

// TransactionType distinguishes inbound stock from outbound sales.
type TransactionType string

const (
	TypeStockOrders TransactionType = "stock_orders"
	TypeSales       TransactionType = "sales"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeStockOrders || t == TypeSales
}

// Transaction is one ledger row. Price is the total for all units.
// An empty ItemName marks a pure cash movement such as opening capital.
type Transaction struct {
	ID       int64           `json:"id"`
	ItemName string          `json:"item_name"`
	Type     TransactionType `json:"transaction_type"`
	Units    int             `json:"units"`
	Price    float64         `json:"price"`
	Date     time.Time       `json:"transaction_date"`
}

// Validate checks a transaction before it is written.
func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: transaction_type must be stock_orders or sales, got %q", domain.ErrValidation, t.Type)
	}
	if t.ItemName != "" && t.Units <= 0 {
		return fmt.Errorf("%w: quantity must be > 0", domain.ErrValidation)
	}
	if t.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", domain.ErrValidation)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	return nil
}

// CatalogItem is a product the business sells.
type CatalogItem struct {
	Name      string  `json:"item_name"`
	Category  string  `json:"category"`
	UnitPrice float64 `json:"unit_price"`
}

// NormalizeName folds an item name for case-insensitive lookups.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// StockValue is one inventory line in a report.
type StockValue struct {
	ItemName  string  `json:"item_name"`
	Stock     int     `json:"stock"`
	UnitPrice float64 `json:"unit_price"`
	Value     float64 `json:"value"`
}

// TopSeller is an item ranked by sales revenue.
type TopSeller struct {
	ItemName     string  `json:"item_name"`
	TotalUnits   int     `json:"total_units"`
	TotalRevenue float64 `json:"total_revenue"`
}

// FinancialReport is a point-in-time snapshot of cash and inventory.
type FinancialReport struct {
	AsOfDate           string       `json:"as_of_date"`
	CashBalance        float64      `json:"cash_balance"`
	InventoryValue     float64      `json:"inventory_value"`
	TotalAssets        float64      `json:"total_assets"`
	InventorySummary   []StockValue `json:"inventory_summary"`
	TopSellingProducts []TopSeller  `json:"top_selling_products"`
}

// NewReport assembles a report and derives the totals.
func NewReport(asOf string, cash float64, stock []StockValue, top []TopSeller) FinancialReport {
	var inv float64
	for i := range stock {
		stock[i].Value = float64(stock[i].Stock) * stock[i].UnitPrice
		inv += stock[i].Value
	}
	if stock == nil {
		stock = []StockValue{}
	}
	if top == nil {
		top = []TopSeller{}
	}
	return FinancialReport{
		AsOfDate:           asOf,
		CashBalance:        cash,
		InventoryValue:     inv,
		TotalAssets:        cash + inv,
		InventorySummary:   stock,
		TopSellingProducts: top,
	}
}

// Quote is a historical quote kept for reference pricing.
type Quote struct {
	ID          int64     `json:"id"`
	RequestText string    `json:"original_request"`
	TotalAmount float64   `json:"total_amount"`
	Explanation string    `json:"quote_explanation"`
	JobType     string    `json:"job_type"`
	OrderSize   string    `json:"order_size"`
	EventType   string    `json:"event_type"`
	OrderDate   time.Time `json:"order_date"`
}

// Matches reports whether every term occurs in the quote's request or
// explanation text, ignoring case.
func (q *Quote) Matches(terms []string) bool {
	hay := strings.ToLower(q.RequestText + " " + q.Explanation)
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q: expected YYYY-MM-DD", domain.ErrValidation, s)
}

// EndOfDay returns the last instant of t's calendar day, so that "as of"
// lookups include everything booked that day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999999, t.Location())
}
