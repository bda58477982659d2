package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/PaperDesk/internal/adapter/memory"
	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
	"github.com/Strob0t/PaperDesk/internal/domain/rule"
	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
	"github.com/Strob0t/PaperDesk/internal/port/database"
	"github.com/Strob0t/PaperDesk/internal/port/messagequeue"
	"github.com/Strob0t/PaperDesk/internal/service"
)

const testDate = "2025-04-01"

var errStoreDown = errors.New("connection refused")

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// newStore returns a catalog-priced store holding the given opening stock
// booked one day before testDate. Stock orders are booked at zero cost so
// the cash balance starts at zero.
func newStore(t *testing.T, stock map[string]int) *memory.Store {
	t.Helper()
	st := memory.NewStore(ledger.Catalog)
	day := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	for name, units := range stock {
		if _, err := st.CreateTransaction(context.Background(), &ledger.Transaction{
			ItemName: name, Type: ledger.TypeStockOrders, Units: units, Price: 0, Date: day,
		}); err != nil {
			t.Fatalf("stock %s: %v", name, err)
		}
	}
	return st
}

func salesTransactions(st *memory.Store) []ledger.Transaction {
	var out []ledger.Transaction
	for _, tx := range st.Transactions() {
		if tx.Type == ledger.TypeSales && tx.ItemName != "" {
			out = append(out, tx)
		}
	}
	return out
}

// countingDispatcher records every operation it forwards.
type countingDispatcher struct {
	next service.Dispatcher

	mu    sync.Mutex
	calls []string
}

func (d *countingDispatcher) Dispatch(ctx context.Context, name string, args map[string]any) worker.Result {
	d.mu.Lock()
	d.calls = append(d.calls, name)
	d.mu.Unlock()
	return d.next.Dispatch(ctx, name, args)
}

func (d *countingDispatcher) count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if name == "" || c == name {
			n++
		}
	}
	return n
}

// flakyStore fails selected store calls.
type flakyStore struct {
	*memory.Store

	mu             sync.Mutex
	stockFailures  int // StockLevel fails this many times first
	balanceCalls   int
	balanceFailsAt map[int]bool // 1-based CashBalance calls that fail
}

func (f *flakyStore) StockLevel(ctx context.Context, item string, asOf time.Time) (int, error) {
	f.mu.Lock()
	if f.stockFailures > 0 {
		f.stockFailures--
		f.mu.Unlock()
		return 0, errStoreDown
	}
	f.mu.Unlock()
	return f.Store.StockLevel(ctx, item, asOf)
}

func (f *flakyStore) CashBalance(ctx context.Context, asOf time.Time) (float64, error) {
	f.mu.Lock()
	f.balanceCalls++
	fail := f.balanceFailsAt[f.balanceCalls]
	f.mu.Unlock()
	if fail {
		return 0, errStoreDown
	}
	return f.Store.CashBalance(ctx, asOf)
}

// fakeQueue collects published messages and subscribed handlers.
type fakeQueue struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	handlers map[string]messagequeue.Handler
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subjects = append(q.subjects, subject)
	q.payloads = append(q.payloads, data)
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = make(map[string]messagequeue.Handler)
	}
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		delete(q.handlers, subject)
		q.mu.Unlock()
	}, nil
}

// deliver hands every published message on subject to its subscriber.
func (q *fakeQueue) deliver(ctx context.Context, subject string) error {
	q.mu.Lock()
	h := q.handlers[subject]
	var batch [][]byte
	for i, s := range q.subjects {
		if s == subject {
			batch = append(batch, q.payloads[i])
		}
	}
	q.mu.Unlock()
	if h == nil {
		return errors.New("no subscriber for " + subject)
	}
	for _, data := range batch {
		if err := h(ctx, subject, data); err != nil {
			return err
		}
	}
	return nil
}

// fakeHub records broadcast events.
type fakeHub struct {
	mu     sync.Mutex
	events []string
	last   map[string]any
}

func (h *fakeHub) BroadcastEvent(_ context.Context, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, eventType)
	if h.last == nil {
		h.last = make(map[string]any)
	}
	h.last[eventType] = payload
}

func (h *fakeHub) count(eventType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

func (q *fakeQueue) count(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, s := range q.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

func noRetry() service.RetryPolicy {
	return service.RetryPolicy{Attempts: 3, Base: time.Millisecond}
}

// newCoordinator wires a coordinator over store with the default rules.
func newCoordinator(t *testing.T, store database.Store) (*service.CoordinatorService, *countingDispatcher) {
	t.Helper()
	gw := &countingDispatcher{next: service.NewGatewayService(store, nil, nil)}
	set := rule.Default()
	rules := service.NewRuleService(&set)
	coord := service.NewCoordinatorService(gw, rules, service.NewRegistry(gw),
		&config.Orchestrator{MaxParallel: 4, AsOfDate: testDate}, noRetry())
	return coord, gw
}

func mustStep(t *testing.T, rec *workflow.Record, agent workflow.Agent) workflow.Step {
	t.Helper()
	s, ok := rec.StepFor(agent)
	if !ok {
		t.Fatalf("expected a %s step, got %+v", agent, rec.Steps)
	}
	return s
}

// panickingStore panics on every cash balance read.
type panickingStore struct {
	*memory.Store
}

func (panickingStore) CashBalance(context.Context, time.Time) (float64, error) {
	panic("driver bug")
}
