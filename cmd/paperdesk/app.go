package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/PaperDesk/internal/adapter/memory"
	cfnats "github.com/Strob0t/PaperDesk/internal/adapter/nats"
	"github.com/Strob0t/PaperDesk/internal/adapter/natskv"
	"github.com/Strob0t/PaperDesk/internal/adapter/otel"
	"github.com/Strob0t/PaperDesk/internal/adapter/postgres"
	"github.com/Strob0t/PaperDesk/internal/adapter/pricecache"
	"github.com/Strob0t/PaperDesk/internal/adapter/ristretto"
	"github.com/Strob0t/PaperDesk/internal/adapter/tiered"
	"github.com/Strob0t/PaperDesk/internal/adapter/ws"
	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
	"github.com/Strob0t/PaperDesk/internal/port/cache"
	"github.com/Strob0t/PaperDesk/internal/port/database"
	"github.com/Strob0t/PaperDesk/internal/port/history"
	"github.com/Strob0t/PaperDesk/internal/port/messagequeue"
	"github.com/Strob0t/PaperDesk/internal/resilience"
	"github.com/Strob0t/PaperDesk/internal/service"
)

const idempotencyBucket = "paperdesk-idempotency"

// app is the wired service graph shared by the serve and run commands.
type app struct {
	cfg     *config.Config
	store   database.Store
	history history.Sink
	queue   *cfnats.Queue // nil when NATS is not configured
	breaker *resilience.Breaker
	gateway *service.GatewayService
	rules   *service.RuleService
	coord   *service.CoordinatorService
	hub     *ws.Hub
	metrics *otel.Metrics

	closers []func()
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) onClose(fn func()) { a.closers = append(a.closers, fn) }

// buildApp connects infrastructure and wires the services. On error every
// resource acquired so far is released.
func buildApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// --- Infrastructure ---

	if cfg.NATS.URL != "" {
		q, qerr := cfnats.Connect(ctx, cfg.NATS.URL)
		if qerr != nil {
			return nil, fmt.Errorf("nats: %w", qerr)
		}
		a.queue = q
		a.onClose(func() { _ = q.Drain() })
	}

	var pool *pgxpool.Pool
	switch cfg.Store.Driver {
	case "postgres":
		pool, err = postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.onClose(pool.Close)
		slog.Info("postgres connected")

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")

		a.store = postgres.NewStore(pool)
		a.history = postgres.NewHistoryStore(pool, cfg.History.MaxRecords)
	default:
		a.store = memory.NewStore(ledger.Catalog)
		a.history = memory.NewHistory(cfg.History.MaxRecords)
	}

	if cfg.Store.Seed {
		if seeder, ok := a.store.(database.Seeder); ok {
			if err := seeder.Seed(ctx, ledger.SeedDate); err != nil {
				return nil, fmt.Errorf("seed: %w", err)
			}
		}
	}

	if cfg.Cache.Enabled {
		c, cerr := a.priceCache(ctx)
		if cerr != nil {
			return nil, cerr
		}
		a.store = pricecache.New(a.store, c, cfg.Cache.PriceTTL)
	}

	// --- Services ---

	a.metrics, err = otel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}

	a.breaker = resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout,
		resilience.WithIgnore(service.IsCallerError))
	a.gateway = service.NewGatewayService(a.store, a.breaker, a.metrics)

	a.rules, err = service.LoadRuleService(cfg.Rules.File)
	if err != nil {
		return nil, err
	}

	a.hub = ws.NewHub(cfg.Server.CORSOrigin)
	a.coord = service.NewCoordinatorService(a.gateway, a.rules, service.NewRegistry(a.gateway),
		&cfg.Orchestrator, service.RetryPolicyFrom(cfg.Worker))
	a.coord.SetHistory(a.history)
	a.coord.SetHub(a.hub)
	a.coord.SetMetrics(a.metrics)
	var queue messagequeue.Queue
	if a.queue != nil {
		queue = a.queue
		a.coord.SetQueue(queue)
	}
	a.coord.SetHandoff(service.NewHandoffService(queue, cfg.Queue.MessageTTL))

	return a, nil
}

// priceCache builds the L1 ristretto cache, tiered over a NATS KV bucket
// when one is configured and NATS is available.
func (a *app) priceCache(ctx context.Context) (cache.Cache, error) {
	l1, err := ristretto.New(a.cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return nil, fmt.Errorf("price cache: %w", err)
	}
	a.onClose(l1.Close)

	if a.queue == nil || a.cfg.Cache.L2Bucket == "" {
		return l1, nil
	}
	kv, err := a.queue.KeyValue(ctx, a.cfg.Cache.L2Bucket, a.cfg.Cache.PriceTTL)
	if err != nil {
		return nil, fmt.Errorf("price cache l2: %w", err)
	}
	slog.Info("price cache tiered", "bucket", a.cfg.Cache.L2Bucket)
	return tiered.New(l1, natskv.New(kv), a.cfg.Cache.PriceTTL), nil
}

// idempotencyCache stores replayable workflow responses: in a NATS KV bucket
// shared across replicas when NATS is available, otherwise in process.
func (a *app) idempotencyCache(ctx context.Context) (cache.Cache, error) {
	if a.queue != nil {
		kv, err := a.queue.KeyValue(ctx, idempotencyBucket, a.cfg.Server.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency cache: %w", err)
		}
		return natskv.New(kv), nil
	}
	c, err := ristretto.New(a.cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return nil, fmt.Errorf("idempotency cache: %w", err)
	}
	a.onClose(c.Close)
	return c, nil
}
