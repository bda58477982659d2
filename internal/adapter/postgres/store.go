package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
)

const (
	defaultQuoteLimit = 5
	topSellers        = 5
)

// Store implements database.Store and database.Seeder using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Inventory ---

func (s *Store) StockLevel(ctx context.Context, item string, asOf time.Time) (int, error) {
	var stock int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(CASE WHEN transaction_type = 'stock_orders' THEN units ELSE -units END), 0)
		 FROM transactions
		 WHERE lower(item_name) = lower($1) AND transaction_date <= $2`, item, asOf).Scan(&stock)
	if err != nil {
		return 0, fmt.Errorf("stock level %s: %w", item, err)
	}
	return int(stock), nil
}

func (s *Store) ItemPrice(ctx context.Context, item string) (float64, error) {
	var price float64
	err := s.pool.QueryRow(ctx,
		`SELECT unit_price FROM catalog WHERE lower(item_name) = lower($1)`, item).Scan(&price)
	if err != nil {
		return 0, notFoundWrap(err, "item price %s", item)
	}
	return price, nil
}

func (s *Store) AllInventory(ctx context.Context, asOf time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT item_name, SUM(CASE WHEN transaction_type = 'stock_orders' THEN units ELSE -units END) AS stock
		 FROM transactions
		 WHERE item_name IS NOT NULL AND transaction_date <= $1
		 GROUP BY item_name
		 HAVING SUM(CASE WHEN transaction_type = 'stock_orders' THEN units ELSE -units END) > 0`, asOf)
	if err != nil {
		return nil, fmt.Errorf("all inventory: %w", err)
	}
	defer rows.Close()

	inv := make(map[string]int)
	for rows.Next() {
		var (
			name  string
			stock int64
		)
		if err := rows.Scan(&name, &stock); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		inv[name] = int(stock)
	}
	return inv, rows.Err()
}

// --- Ledger ---

func (s *Store) CreateTransaction(ctx context.Context, tx *ledger.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO transactions (item_name, transaction_type, units, price, transaction_date)
		 VALUES (COALESCE((SELECT item_name FROM catalog WHERE lower(item_name) = lower($1)), $1), $2, $3, $4, $5)
		 RETURNING id`,
		nullIfEmpty(tx.ItemName), string(tx.Type), tx.Units, tx.Price, tx.Date).Scan(&tx.ID)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	return tx.ID, nil
}

func (s *Store) CashBalance(ctx context.Context, asOf time.Time) (float64, error) {
	var cash float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(CASE WHEN transaction_type = 'sales' THEN price ELSE -price END), 0)
		 FROM transactions WHERE transaction_date <= $1`, asOf).Scan(&cash)
	if err != nil {
		return 0, fmt.Errorf("cash balance: %w", err)
	}
	return cash, nil
}

func (s *Store) FinancialReport(ctx context.Context, asOf time.Time) (ledger.FinancialReport, error) {
	cash, err := s.CashBalance(ctx, asOf)
	if err != nil {
		return ledger.FinancialReport{}, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT t.item_name,
		        SUM(CASE WHEN t.transaction_type = 'stock_orders' THEN t.units ELSE -t.units END) AS stock,
		        COALESCE(MAX(c.unit_price), 0)
		 FROM transactions t
		 LEFT JOIN catalog c ON lower(c.item_name) = lower(t.item_name)
		 WHERE t.item_name IS NOT NULL AND t.transaction_date <= $1
		 GROUP BY t.item_name
		 HAVING SUM(CASE WHEN t.transaction_type = 'stock_orders' THEN t.units ELSE -t.units END) > 0
		 ORDER BY t.item_name`, asOf)
	if err != nil {
		return ledger.FinancialReport{}, fmt.Errorf("report inventory: %w", err)
	}
	stock, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.StockValue, error) {
		var (
			v ledger.StockValue
			n int64
		)
		err := row.Scan(&v.ItemName, &n, &v.UnitPrice)
		v.Stock = int(n)
		return v, err
	})
	if err != nil {
		return ledger.FinancialReport{}, fmt.Errorf("scan report inventory: %w", err)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT item_name, SUM(units), SUM(price) AS revenue
		 FROM transactions
		 WHERE transaction_type = 'sales' AND item_name IS NOT NULL AND transaction_date <= $1
		 GROUP BY item_name
		 ORDER BY revenue DESC, item_name
		 LIMIT $2`, asOf, topSellers)
	if err != nil {
		return ledger.FinancialReport{}, fmt.Errorf("report top sellers: %w", err)
	}
	top, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.TopSeller, error) {
		var (
			ts ledger.TopSeller
			n  int64
		)
		err := row.Scan(&ts.ItemName, &n, &ts.TotalRevenue)
		ts.TotalUnits = int(n)
		return ts, err
	})
	if err != nil {
		return ledger.FinancialReport{}, fmt.Errorf("scan top sellers: %w", err)
	}

	return ledger.NewReport(asOf.Format(time.DateOnly), cash, orEmpty(stock), orEmpty(top)), nil
}

// --- Quotes ---

func (s *Store) SearchQuoteHistory(ctx context.Context, terms []string, limit int) ([]ledger.Quote, error) {
	if limit <= 0 {
		limit = defaultQuoteLimit
	}

	var (
		where strings.Builder
		args  []any
	)
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		args = append(args, t)
		fmt.Fprintf(&where, " AND (original_request || ' ' || quote_explanation) ILIKE '%%' || $%d || '%%'", len(args))
	}
	args = append(args, limit)

	rows, err := s.pool.Query(ctx,
		`SELECT id, original_request, total_amount, quote_explanation, job_type, order_size, event_type, order_date
		 FROM quotes WHERE TRUE`+where.String()+
			fmt.Sprintf(` ORDER BY order_date DESC, id DESC LIMIT $%d`, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("search quotes: %w", err)
	}
	quotes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.Quote, error) {
		return scanQuote(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan quotes: %w", err)
	}
	return orEmpty(quotes), nil
}

func scanQuote(row scannable) (ledger.Quote, error) {
	var q ledger.Quote
	err := row.Scan(&q.ID, &q.RequestText, &q.TotalAmount, &q.Explanation, &q.JobType, &q.OrderSize, &q.EventType, &q.OrderDate)
	return q, err
}

// --- Seeding ---

// Seed loads the catalog, opening cash, opening stock and sample quotes in
// one transaction. A database that already has ledger rows is left alone.
func (s *Store) Seed(ctx context.Context, asOf time.Time) error {
	var seeded bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions)`).Scan(&seeded); err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if seeded {
		slog.Info("postgres store already seeded, skipping")
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, c := range ledger.Catalog {
		batch.Queue(
			`INSERT INTO catalog (item_name, category, unit_price) VALUES ($1, $2, $3)
			 ON CONFLICT (item_name) DO UPDATE SET category = EXCLUDED.category, unit_price = EXCLUDED.unit_price`,
			c.Name, c.Category, c.UnitPrice)
	}
	batch.Queue(
		`INSERT INTO transactions (item_name, transaction_type, units, price, transaction_date) VALUES (NULL, 'sales', 0, $1, $2)`,
		ledger.OpeningCash, asOf)
	for _, c := range ledger.Catalog {
		units := ledger.OpeningStock[c.Name]
		if units <= 0 {
			continue
		}
		batch.Queue(
			`INSERT INTO transactions (item_name, transaction_type, units, price, transaction_date) VALUES ($1, 'stock_orders', $2, $3, $4)`,
			c.Name, units, float64(units)*c.UnitPrice, asOf)
	}
	for _, q := range ledger.SampleQuotes {
		batch.Queue(
			`INSERT INTO quotes (original_request, total_amount, quote_explanation, job_type, order_size, event_type, order_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			q.RequestText, q.TotalAmount, q.Explanation, q.JobType, q.OrderSize, q.EventType, asOf)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("postgres store seeded", "items", len(ledger.Catalog), "quotes", len(ledger.SampleQuotes))
	return nil
}
