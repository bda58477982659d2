package postgres_test

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/PaperDesk/internal/adapter/postgres"
	"github.com/Strob0t/PaperDesk/internal/domain"
	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// setupPool connects to DATABASE_URL, runs all migrations and returns the pool.
// The pool is closed via t.Cleanup.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func setupStore(t *testing.T) *postgres.Store {
	t.Helper()
	store := postgres.NewStore(setupPool(t))
	if err := store.Seed(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestStore_ItemPrice(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	price, err := store.ItemPrice(ctx, "a4 PAPER")
	if err != nil {
		t.Fatalf("item price: %v", err)
	}
	if !almostEqual(price, 0.05) {
		t.Fatalf("expected 0.05, got %v", price)
	}

	_, err = store.ItemPrice(ctx, "unobtainium-"+uuid.NewString())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_StockLevelAsOf(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	item := "test-item-" + uuid.NewString()[:8]
	day1 := time.Date(2031, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	for _, tx := range []*ledger.Transaction{
		{ItemName: item, Type: ledger.TypeStockOrders, Units: 100, Price: 10, Date: day1},
		{ItemName: item, Type: ledger.TypeSales, Units: 30, Price: 6, Date: day2},
	} {
		id, err := store.CreateTransaction(ctx, tx)
		if err != nil {
			t.Fatalf("create transaction: %v", err)
		}
		if id <= 0 || tx.ID != id {
			t.Fatalf("expected id to be assigned, got %d / %d", id, tx.ID)
		}
	}

	tests := []struct {
		name string
		asOf time.Time
		want int
	}{
		{"before any", day1.Add(-time.Hour), 0},
		{"after order", day1, 100},
		{"after sale", day2, 70},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.StockLevel(ctx, item, tc.asOf)
			if err != nil {
				t.Fatalf("stock level: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}

	inv, err := store.AllInventory(ctx, day2)
	if err != nil {
		t.Fatalf("all inventory: %v", err)
	}
	if inv[item] != 70 {
		t.Fatalf("expected %s=70 in inventory, got %d", item, inv[item])
	}
}

func TestStore_CreateTransactionValidation(t *testing.T) {
	store := setupStore(t)

	_, err := store.CreateTransaction(context.Background(), &ledger.Transaction{
		ItemName: "A4 paper", Type: "refund", Units: 1, Price: 1, Date: time.Now(),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStore_CashBalanceDelta(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	at := time.Date(2032, 6, 1, 0, 0, 0, 0, time.UTC)

	before, err := store.CashBalance(ctx, at)
	if err != nil {
		t.Fatalf("cash balance: %v", err)
	}
	if _, err := store.CreateTransaction(ctx, &ledger.Transaction{
		ItemName: "A4 paper", Type: ledger.TypeSales, Units: 10, Price: 12.5, Date: at,
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	after, err := store.CashBalance(ctx, at)
	if err != nil {
		t.Fatalf("cash balance: %v", err)
	}
	if !almostEqual(after-before, 12.5) {
		t.Fatalf("expected balance to rise by 12.5, got %v", after-before)
	}

	report, err := store.FinancialReport(ctx, at)
	if err != nil {
		t.Fatalf("financial report: %v", err)
	}
	if !almostEqual(report.CashBalance, after) {
		t.Fatalf("report cash %v != balance %v", report.CashBalance, after)
	}
	if !almostEqual(report.TotalAssets, report.CashBalance+report.InventoryValue) {
		t.Fatalf("total assets mismatch: %+v", report)
	}
	if len(report.TopSellingProducts) > 5 {
		t.Fatalf("expected at most 5 top sellers, got %d", len(report.TopSellingProducts))
	}
}

func TestStore_SearchQuoteHistory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	quotes, err := store.SearchQuoteHistory(ctx, []string{"cardstock"}, 3)
	if err != nil {
		t.Fatalf("search quotes: %v", err)
	}
	if len(quotes) == 0 || len(quotes) > 3 {
		t.Fatalf("expected 1..3 quotes, got %d", len(quotes))
	}
	for _, q := range quotes {
		if !q.Matches([]string{"cardstock"}) {
			t.Fatalf("quote %d does not match term: %+v", q.ID, q)
		}
	}

	none, err := store.SearchQuoteHistory(ctx, []string{"no-such-term-" + uuid.NewString()}, 0)
	if err != nil {
		t.Fatalf("search quotes: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestHistoryStore_AppendListGet(t *testing.T) {
	hist := postgres.NewHistoryStore(setupPool(t), 0)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := workflow.NewRecord(uuid.NewString(), workflow.Request{Type: workflow.TypeInquiry, Question: "do you sell cardstock?"}, now)
	if err := rec.Complete(now.Add(time.Second)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := hist.Append(ctx, rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := hist.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != workflow.StatusCompleted || got.Request.Question != rec.Request.Question {
		t.Fatalf("unexpected record: %+v", got)
	}

	list, err := hist.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list))
	}

	if _, err := hist.Get(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
