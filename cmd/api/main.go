// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the ProjectFlow auth server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Create the PostgreSQL pool and, if configured, the Redis client (no dialing).
//  4. Register the bootstrap lifecycle: ping, migrate, seed access groups.
//  5. Wire repositories, services and HTTP handlers.
//  6. Start the session sweeper and the HTTP server.
//  7. Shut down gracefully on SIGINT or SIGTERM.
//
// The data stores are initialized in the background right after startup. A failed
// attempt is retried by the next /ready or /auth request, so the process
// starts and serves /health even while the database is unreachable.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/projectflow/projectflow/internal/api"
	"github.com/projectflow/projectflow/internal/platform/bootstrap"
	"github.com/projectflow/projectflow/internal/platform/config"
	"github.com/projectflow/projectflow/internal/platform/constants"
	"github.com/projectflow/projectflow/internal/platform/metrics"
	"github.com/projectflow/projectflow/internal/platform/migration"
	pgstore "github.com/projectflow/projectflow/internal/platform/postgres"
	redisstore "github.com/projectflow/projectflow/internal/platform/redis"
	"github.com/projectflow/projectflow/internal/users/access"
	"github.com/projectflow/projectflow/internal/users/account"
	"github.com/projectflow/projectflow/internal/users/auth"
	"github.com/projectflow/projectflow/internal/users/role"
	"github.com/projectflow/projectflow/internal/users/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("session_backend", cfg.SessionBackend),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// ── 3. Data Stores (lazy) ─────────────────────────────────────────────
	pool, err := pgstore.NewPool(cfg.DatabaseURL, log)
	must(log, err, "configure postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	var rdb *goredis.Client
	if cfg.UsesRedisSessions() {
		rdb, err = redisstore.NewClient(cfg.RedisURL, log)
		must(log, err, "configure redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()
	}

	// ── 4. Repositories ───────────────────────────────────────────────────
	accountRepository := account.NewPostgresRepository(pool)
	groupRepository := access.NewPostgresGroupRepository(pool)

	var sessionRepository session.Repository = session.NewPostgresRepository(pool)
	if rdb != nil {
		sessionRepository = session.NewRedisRepository(rdb)
	}

	// ── 5. Bootstrap Lifecycle ────────────────────────────────────────────
	metrics.Register()

	lifecycle := bootstrap.New(initializer(cfg, pool, rdb, groupRepository, log), log)

	// ── 6. Health Handlers ────────────────────────────────────────────────
	dependencies := api.HealthDependencies{
		EnsureBootstrap: lifecycle.Ensure,
		BootstrapState:  func() string { return lifecycle.State().String() },
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
	}
	if rdb != nil {
		dependencies.CheckCache = func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}
	}
	liveness, readiness := api.NewHealthHandlers(dependencies, log)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	authService := auth.NewService(auth.Options{
		Accounts:   accountRepository,
		Sessions:   sessionRepository,
		Groups:     groupRepository,
		SessionTTL: cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
	})
	authHandler := auth.NewHandler(authService, auth.NewCookiePolicy(cfg.IsProduction(), cfg.SessionTTL))

	accessService := access.NewService(groupRepository, accountRepository, sessionRepository)
	accessHandler := access.NewHandler(accessService, authHandler.RequireSession())

	// ── 8. Session Sweeper ────────────────────────────────────────────────
	storesReady := func() bool { return lifecycle.State() == bootstrap.StateReady }
	sweeper, err := session.NewSweeper(sessionRepository, cfg.SessionSweepSchedule, storesReady, log)
	must(log, err, "schedule session sweeper")
	sweeper.Start()

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, lifecycle, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Access:    accessHandler,
	})

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Failures are logged by the lifecycle and retried on demand.
	go func() { _ = lifecycle.Ensure(rootCtx) }()

	// Block until OS signal or server error.
	exitCode := 0
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
		exitCode = 1
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		exitCode = 1
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), constants.SweepTimeout)
	sweeper.Stop(stopCtx)
	stopCancel()

	rootCancel()
	log.Info("server_stopped")

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// initializer returns the one-shot data store setup run by the bootstrap
// lifecycle: reachability, schema, then the first-run access group seed.
func initializer(cfg *config.Config, pool *pgxpool.Pool, rdb *goredis.Client, groups *access.PostgresGroupRepository, log *slog.Logger) bootstrap.InitFunc {
	seeds := role.SeedGroups(map[role.GroupKey][]string{
		role.GroupOwner:         cfg.Access.Owners,
		role.GroupAdministrator: cfg.Access.Administrators,
		role.GroupWrite:         cfg.Access.Writers,
		role.GroupRead:          cfg.Access.Readers,
	})

	return func(ctx context.Context) error {
		if err := pgstore.Ping(ctx, pool); err != nil {
			return err
		}

		if err := migration.RunUp(ctx, cfg.DatabaseURL, log); err != nil {
			return err
		}

		if err := groups.Seed(ctx, seeds); err != nil {
			return fmt.Errorf("seed access groups: %w", err)
		}

		if rdb != nil {
			if err := redisstore.Ping(ctx, rdb); err != nil {
				return err
			}
		}
		return nil
	}
}

// newLogger builds the JSON process logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
