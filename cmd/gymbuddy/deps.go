// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package main

import (
	"context"
	"net"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/gateway"
	"github.com/gymbuddy/gymbuddy/internal/observability"
	"github.com/gymbuddy/gymbuddy/internal/routine"
	"github.com/gymbuddy/gymbuddy/internal/store"
)

// Pool is the subset of *pgxpool.Pool the commands use.
type Pool interface {
	store.DBTX
	Ping(ctx context.Context) error
	Close()
}

// Migrator is the subset of *store.Migrator the commands use.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// RedisClient is a closable redis command set.
type RedisClient interface {
	goredis.Cmdable
	Close() error
}

// ObservabilityServer serves metrics and health probes.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// PoolFactory opens a Postgres pool.
	// Default: store.NewPool
	PoolFactory func(ctx context.Context, dsn string, opts store.PoolOptions) (Pool, error)

	// MigratorFactory opens a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// RedisFactory connects to redis for the redis session backend.
	// Default: newRedisClient
	RedisFactory func(ctx context.Context, url string) (RedisClient, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer with the gateway and routine metrics
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer

	// Generator overrides the provider client built from configuration.
	// Default: provider.NewClientWithLogger
	Generator routine.Generator

	// Listen opens the API listener.
	// Default: net.Listen("tcp", addr)
	Listen func(addr string) (net.Listener, error)

	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(string) string
}

func (d Deps) withDefaults() Deps {
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, dsn string, opts store.PoolOptions) (Pool, error) {
			pool, err := store.NewPool(ctx, dsn, opts)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (Migrator, error) {
			m, err := store.NewMigrator(databaseURL)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if d.RedisFactory == nil {
		d.RedisFactory = newRedisClient
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready, gateway.RegisterMetrics, routine.RegisterMetrics)
		}
	}
	if d.Listen == nil {
		d.Listen = func(addr string) (net.Listener, error) {
			return net.Listen("tcp", addr)
		}
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	return d
}

func newRedisClient(ctx context.Context, url string) (RedisClient, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_URL_INVALID").Wrap(err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").Wrap(err)
	}
	return client, nil
}

// redisPinger adapts a redis client to observability.Pinger.
type redisPinger struct {
	client goredis.Cmdable
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
