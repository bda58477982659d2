package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	pdhttp "github.com/Strob0t/PaperDesk/internal/adapter/http"
	"github.com/Strob0t/PaperDesk/internal/adapter/mcp"
	"github.com/Strob0t/PaperDesk/internal/adapter/otel"
	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/middleware"
	"github.com/Strob0t/PaperDesk/internal/service"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	limiterSweep    = time.Minute
	limiterIdle     = 10 * time.Minute
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfg, flush, err := loadConfig(fs, config.BindFlags(fs), args)
	if err != nil {
		return err
	}
	defer flush()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"nats", cfg.NATS.URL != "",
		"otel", cfg.Otel.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := otel.Setup(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOtel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	router, err := newRouter(ctx, a)
	if err != nil {
		return err
	}

	if a.queue != nil {
		watcher := service.NewLedgerWatcher(a.gateway, a.hub, cfg.Orchestrator.AsOfDate)
		stopWatch, err := watcher.Start(ctx, a.queue)
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      requestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// newRouter assembles middleware, REST routes, the WebSocket hub and the MCP endpoint.
func newRouter(ctx context.Context, a *app) (http.Handler, error) {
	cfg := a.cfg

	r := chi.NewRouter()
	r.Use(pdhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(pdhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(pdhttp.SecurityHeaders)

	// WebSocket and streamable MCP connections outlive the request timeout.
	r.Get("/ws", a.hub.HandleWS)
	if cfg.MCP.Enabled {
		srv := mcp.NewServer(mcp.ServerConfig{
			Name:    cfg.MCP.Name,
			Version: cfg.MCP.Version,
			APIKey:  cfg.MCP.APIKey,
		}, mcp.ServerDeps{Gateway: a.gateway, Workflows: a.history})
		r.Handle("/mcp", srv.Handler())
		slog.Info("mcp endpoint enabled", "path", "/mcp", "auth", cfg.MCP.APIKey != "")
	}

	idem, err := a.idempotencyCache(ctx)
	if err != nil {
		return nil, err
	}
	workflowMW := []func(http.Handler) http.Handler{middleware.Idempotency(idem, cfg.Server.IdempotencyTTL)}
	if cfg.Server.RateLimit > 0 {
		rl := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		rl.StartCleanup(ctx, limiterSweep, limiterIdle)
		workflowMW = append([]func(http.Handler) http.Handler{rl.Handler}, workflowMW...)
	}

	handlers := &pdhttp.Handlers{
		Coordinator: a.coord,
		Gateway:     a.gateway,
		Rules:       a.rules,
		History:     a.history,
		Breaker:     a.breaker,
		Limits:      cfg.Server,
		StoreDriver: cfg.Store.Driver,
	}
	if a.queue != nil {
		handlers.Queue = a.queue
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))
		pdhttp.MountRoutes(r, handlers, workflowMW...)
	})

	return otel.HTTPMiddleware(cfg.Otel.ServiceName)(r), nil
}
