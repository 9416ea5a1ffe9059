package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"telcoreg/internal/platform/config"
	"telcoreg/internal/platform/httpserver"
	"telcoreg/internal/platform/logger"
	platformmetrics "telcoreg/internal/platform/metrics"
	"telcoreg/internal/platform/postgres"
	"telcoreg/internal/platform/redis"
	"telcoreg/internal/telco"
	telcometrics "telcoreg/internal/telco/metrics"
	"telcoreg/internal/telco/models"
	"telcoreg/internal/telco/service"
	"telcoreg/internal/telco/store"
	httptransport "telcoreg/internal/transport/http"
	"telcoreg/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP routers, and keeps the
// server lifecycle small. Registry logic lives in internal/telco.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, checks, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	promRegistry := platformmetrics.NewRegistry()
	svc, err := telco.NewService(ctx, st, models.Address(cfg.Registry.GenesisAdmin), log, telcometrics.New(promRegistry))
	if err != nil {
		return fmt.Errorf("start registry: %w", err)
	}

	router := httptransport.NewRouter(log, checks, telco.NewHandler(svc, log))
	apiServer := httpserver.New(cfg.Server.Addr, router)

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", platformmetrics.Handler(promRegistry))
	metricsServer := httpserver.New(cfg.Server.MetricsAddr, metricsRouter)

	log.InfoContext(ctx, "telco registry starting",
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Server.MetricsAddr,
		"store", cfg.Store.Backend,
		"admin", svc.Admin(ctx),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, apiServer, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		return httpserver.Run(gctx, metricsServer, cfg.Server.ShutdownTimeout)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("telco registry stopped")
	return nil
}

// openStore builds the configured state store plus its health checks and a
// close function.
func openStore(ctx context.Context, cfg config.Config) (service.Store, map[string]httptransport.HealthCheck, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		st := store.NewPostgres(db)
		if err := st.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		checks := map[string]httptransport.HealthCheck{"postgres": db.PingContext}
		return store.NewGuarded(st, circuit.New("postgres"), slog.Default()), checks, func() { closeDB(db) }, nil

	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		checks := map[string]httptransport.HealthCheck{"redis": client.Health}
		guarded := store.NewGuarded(store.NewRedis(client.Client), circuit.New("redis"), slog.Default())
		return guarded, checks, func() { _ = client.Close() }, nil

	case config.BackendMemory:
		return store.NewInMemory(), nil, func() {}, nil

	default:
		return nil, nil, nil, errors.New("unknown store backend " + cfg.Store.Backend)
	}
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("failed to close postgres", "error", err)
	}
}
