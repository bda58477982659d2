package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// Worker is one role in the pipeline. Process never panics and never
// returns a Go error: failures are reported as {error, error_type} results.
type Worker interface {
	Name() workflow.Agent
	Process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) worker.Result
}

// recipe is the role-specific body wrapped by runWorker.
type recipe func(ctx context.Context, req *workflow.Request, wctx *workflow.Context) (worker.Result, error)

// runWorker validates the request, runs fn and normalizes its outcome.
// A recognized request type is required on the way in and a "status"
// field on the way out. Panics become system errors.
func runWorker(ctx context.Context, name workflow.Agent, req *workflow.Request, wctx *workflow.Context, fn recipe) (res worker.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "worker panic recovered", "agent", name, "panic", r)
			res = worker.Failure(worker.Errorf(worker.KindSystem, string(name), "panic: %v", r))
		}
	}()

	if req == nil {
		return worker.Failure(worker.Errorf(worker.KindValidation, string(name), "request is required"))
	}
	if !req.Type.Valid() {
		return worker.Failure(worker.Errorf(worker.KindValidation, string(name), "unrecognized request type %q", req.Type))
	}

	out, err := fn(ctx, req, wctx)
	if err != nil {
		return worker.Failure(err)
	}
	if out.Failed() {
		return out
	}
	if out.Status() == "" {
		return worker.Failure(worker.Errorf(worker.KindValidation, string(name), "result is missing the status field"))
	}
	return out
}

// RetryPolicy controls ProcessWithRetry.
type RetryPolicy struct {
	Attempts int           // total attempts including the first
	Base     time.Duration // backoff before retry n is Base*2^(n-1)
	Timeout  time.Duration // per-attempt deadline, 0 = none
}

// RetryPolicyFrom builds a policy from worker config.
func RetryPolicyFrom(cfg config.Worker) RetryPolicy {
	return RetryPolicy{Attempts: cfg.RetryAttempts, Base: cfg.BackoffBase, Timeout: cfg.Timeout}
}

func (p RetryPolicy) backoff() retry.Backoff {
	var b retry.Backoff
	if p.Base > 0 {
		b = retry.NewExponential(p.Base)
	} else {
		b = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	attempts := max(p.Attempts, 1)
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// ProcessWithRetry invokes w until it succeeds, fails with a non-retryable
// kind, or the policy runs out of attempts. The last result is returned
// together with the number of attempts made.
func ProcessWithRetry(ctx context.Context, w Worker, req *workflow.Request, wctx *workflow.Context, policy RetryPolicy) (worker.Result, int) {
	var (
		last     worker.Result
		attempts int
	)

	err := retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		attempts++
		actx := ctx
		if policy.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, policy.Timeout)
			defer cancel()
		}

		last = w.Process(actx, req, wctx)
		if !last.Failed() {
			return nil
		}
		werr := last.Err()
		if worker.KindOf(werr).Retryable() {
			slog.WarnContext(ctx, "worker attempt failed, retrying",
				"agent", w.Name(), "attempt", attempts, "error", werr)
			return retry.RetryableError(werr)
		}
		return werr
	})

	if last == nil {
		// ctx was done before the first attempt.
		if err == nil {
			err = errors.New("no attempt made")
		}
		return worker.Failure(worker.Wrap(worker.KindNetwork, string(w.Name()), err)), attempts
	}
	return last, attempts
}

// Registry holds the workers by name.
type Registry map[workflow.Agent]Worker

// NewRegistry builds the five workers over a shared dispatcher.
func NewRegistry(gw Dispatcher) Registry {
	ws := []Worker{
		NewInventoryWorker(gw),
		NewQuotingWorker(gw),
		NewSalesWorker(gw),
		NewFinanceWorker(gw),
		NewCustomerServiceWorker(gw),
	}
	r := make(Registry, len(ws))
	for _, w := range ws {
		r[w.Name()] = w
	}
	return r
}

// call dispatches an operation and converts a failed result into an error.
func call(ctx context.Context, gw Dispatcher, op string, args map[string]any) (worker.Result, error) {
	res := gw.Dispatch(ctx, op, args)
	if res.Failed() {
		err := res.Err()
		var we *worker.Error
		if errors.As(err, &we) && we.Op == "" {
			we.Op = op
		}
		return nil, err
	}
	return res, nil
}

// demand sums the requested quantity per item name, in first-seen order.
// Stock checks compare against these totals so repeated lines of one item
// cannot each pass on their own.
func demand(items []workflow.Item) []workflow.Item {
	idx := make(map[string]int, len(items))
	out := make([]workflow.Item, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.Name]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.Name] = len(out)
		out = append(out, it)
	}
	return out
}

// asOfDate returns the run's ledger date.
func asOfDate(req *workflow.Request, wctx *workflow.Context) string {
	if wctx != nil && wctx.AsOfDate != "" {
		return wctx.AsOfDate
	}
	if req.AsOfDate != "" {
		return req.AsOfDate
	}
	return time.Now().Format(time.DateOnly)
}

// stockOf runs check_stock for item and returns the stock level.
func stockOf(ctx context.Context, gw Dispatcher, item, date string) (int, error) {
	res, err := call(ctx, gw, OpCheckStock, map[string]any{"item_name": item, "as_of_date": date})
	if err != nil {
		return 0, err
	}
	stock, ok := res.Int("stock")
	if !ok {
		return 0, worker.Errorf(worker.KindSystem, OpCheckStock, "no usable stock value for %s", item)
	}
	return stock, nil
}

// priceOf runs get_item_price for item and returns the unit price.
func priceOf(ctx context.Context, gw Dispatcher, item string) (float64, error) {
	res, err := call(ctx, gw, OpGetItemPrice, map[string]any{"item_name": item})
	if err != nil {
		return 0, err
	}
	price, ok := res.Float("unit_price")
	if !ok {
		return 0, worker.Errorf(worker.KindSystem, OpGetItemPrice, "no usable price for %s", item)
	}
	return price, nil
}

// cashBalance runs get_cash_balance for date.
func cashBalance(ctx context.Context, gw Dispatcher, date string) (float64, error) {
	res, err := call(ctx, gw, OpGetCashBalance, map[string]any{"as_of_date": date})
	if err != nil {
		return 0, err
	}
	bal, ok := res.Float("balance")
	if !ok {
		return 0, worker.Errorf(worker.KindSystem, OpGetCashBalance, "no usable balance")
	}
	return bal, nil
}

// report runs generate_financial_report for date.
func report(ctx context.Context, gw Dispatcher, date string) (any, error) {
	res, err := call(ctx, gw, OpFinancialReport, map[string]any{"as_of_date": date})
	if err != nil {
		return nil, err
	}
	return res["financial_report"], nil
}
