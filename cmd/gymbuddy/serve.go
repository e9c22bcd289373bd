// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gymbuddy/gymbuddy/internal/auth"
	authpg "github.com/gymbuddy/gymbuddy/internal/auth/postgres"
	authredis "github.com/gymbuddy/gymbuddy/internal/auth/redis"
	"github.com/gymbuddy/gymbuddy/internal/config"
	"github.com/gymbuddy/gymbuddy/internal/gateway"
	"github.com/gymbuddy/gymbuddy/internal/logging"
	"github.com/gymbuddy/gymbuddy/internal/observability"
	"github.com/gymbuddy/gymbuddy/internal/profile"
	profilepg "github.com/gymbuddy/gymbuddy/internal/profile/postgres"
	"github.com/gymbuddy/gymbuddy/internal/routine"
	"github.com/gymbuddy/gymbuddy/internal/routine/provider"
	"github.com/gymbuddy/gymbuddy/internal/store"
	"github.com/gymbuddy/gymbuddy/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server. The server connects to PostgreSQL,
optionally applies pending migrations, and serves until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, deps)
		},
	}
}

// runServe runs the API server until ctx is cancelled or a listener fails.
func runServe(ctx context.Context, cmd *cobra.Command, deps Deps) error {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd, deps.Getenv)
	if err != nil {
		return err
	}

	logger, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}

	logger.Info("starting gymbuddy",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"session_backend", cfg.Sessions.Backend,
	)

	pool, err := openPool(ctx, cfg.Database, deps)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL, deps, logger); err != nil {
			return err
		}
	}

	sessionRepo, pingers, closeSessions, err := openSessionRepository(ctx, cfg, pool, deps)
	if err != nil {
		return err
	}
	defer closeSessions()

	svc, err := buildServices(cfg, pool, sessionRepo, deps.Generator, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	webCfg := web.Config{
		CookieSecure: cfg.HTTP.CookieSecure,
		BodyLimit:    cfg.HTTP.BodyLimit,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	var obsServer ObservabilityServer
	var obsErrChan <-chan error
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, observability.PingReadiness(pingers...))
		obsErrChan, err = obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		if m := obsServer.Metrics(); m != nil {
			webCfg.Metrics = m
		}
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	app := web.NewApp(svc.gateway, webCfg, logger)

	ln, err := deps.Listen(cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	logger.Info("api server listening", "addr", ln.Addr().String())

	if cfg.Sessions.PurgeInterval > 0 {
		go purgeLoop(ctx, svc.sessions, cfg.Sessions.PurgeInterval, logger)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			runErr = oops.Code("SERVE_FAILED").Wrap(err)
		}
	case err, ok := <-obsErrChan:
		if ok && err != nil {
			runErr = oops.Code("OBSERVABILITY_FAILED").Wrap(err)
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	stopObservability(obsServer, logger)

	logger.Info("shutdown complete")
	return runErr
}

func stopObservability(srv ObservabilityServer, logger *slog.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// setupLogging installs the default logger described by cfg.
func setupLogging(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.SetDefault("gymbuddy", version, cfg.Format, level), nil
}

func openPool(ctx context.Context, cfg config.DatabaseConfig, deps Deps) (Pool, error) {
	pool, err := deps.PoolFactory(ctx, cfg.URL, store.PoolOptions{
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		ConnectTimeout:  cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return pool, nil
}

func migrateUp(databaseURL string, deps Deps, logger *slog.Logger) error {
	m, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// openSessionRepository returns the configured session store, the pingers
// readiness should consult and a func releasing any extra connections.
func openSessionRepository(ctx context.Context, cfg *config.Config, pool Pool, deps Deps) (auth.SessionRepository, []observability.Pinger, func(), error) {
	pingers := []observability.Pinger{pool}
	if cfg.Sessions.Backend != config.BackendRedis {
		return authpg.NewSessionRepository(pool), pingers, func() {}, nil
	}

	client, err := deps.RedisFactory(ctx, cfg.Sessions.RedisURL)
	if err != nil {
		return nil, nil, nil, oops.Code("SESSION_BACKEND_FAILED").With("backend", cfg.Sessions.Backend).Wrap(err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Warn("error closing redis client", "error", err)
		}
	}
	return authredis.NewSessionRepository(client), append(pingers, redisPinger{client: client}), closeFn, nil
}

type services struct {
	gateway  *gateway.Gateway
	sessions *auth.SessionManager
}

// buildServices wires the domain services over the storage handles. A nil
// generator is replaced by the provider client built from cfg.Routine.
func buildServices(cfg *config.Config, pool Pool, sessionRepo auth.SessionRepository, generator routine.Generator, logger *slog.Logger) (*services, error) {
	users := authpg.NewUserRepository(pool)
	credentials, err := auth.NewCredentialStoreWithLogger(users, auth.NewArgon2idHasher(), logger)
	if err != nil {
		return nil, err
	}

	// Redis sessions are not removed when their user row is.
	var sessions *auth.SessionManager
	if cfg.Sessions.Backend == config.BackendRedis {
		sessions, err = auth.NewSessionManagerWithOwners(sessionRepo, users, logger)
	} else {
		sessions, err = auth.NewSessionManagerWithLogger(sessionRepo, logger)
	}
	if err != nil {
		return nil, err
	}

	profiles, err := profile.NewStoreWithLogger(profilepg.NewRepository(pool), logger)
	if err != nil {
		return nil, err
	}

	if generator == nil {
		temperature := cfg.Routine.Temperature
		generator = provider.NewClientWithLogger(provider.Config{
			AnthropicBaseURL: cfg.Routine.AnthropicBaseURL,
			AnthropicModel:   cfg.Routine.AnthropicModel,
			OpenAIBaseURL:    cfg.Routine.OpenAIBaseURL,
			OpenAIModel:      cfg.Routine.OpenAIModel,
			Temperature:      &temperature,
			MaxTokens:        cfg.Routine.MaxTokens,
		}, logger)
	}

	orchestrator, err := routine.NewOrchestratorWithLogger(sessions, generator, cfg.Routine.Timeout, logger)
	if err != nil {
		return nil, err
	}

	gw, err := gateway.NewWithLogger(credentials, sessions, profiles, orchestrator, gateway.Config{
		SessionTTL: cfg.Sessions.TTL,
		RetryDelay: cfg.Database.RetryDelay,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &services{gateway: gw, sessions: sessions}, nil
}

// purgeLoop deletes expired sessions every interval until ctx is done.
func purgeLoop(ctx context.Context, sessions *auth.SessionManager, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Warn("session purge failed", "error", err)
				}
				continue
			}
			if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}
