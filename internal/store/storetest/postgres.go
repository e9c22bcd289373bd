// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

//go:build integration

// Package storetest starts a migrated PostgreSQL container for integration tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gymbuddy/gymbuddy/internal/store"
)

// Database is a running, fully migrated PostgreSQL instance.
type Database struct {
	DSN       string
	Pool      *pgxpool.Pool
	container *postgres.PostgresContainer
}

// StartPostgres runs postgres:16-alpine, applies every migration and opens a pool.
func StartPostgres(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gymbuddy_test"),
		postgres.WithUsername("gymbuddy"),
		postgres.WithPassword("gymbuddy"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, oops.With("operation", "start postgres container").Wrap(err)
	}

	db := &Database{container: container}
	if err := db.init(ctx); err != nil {
		_ = container.Terminate(ctx) //nolint:errcheck // init error takes precedence
		return nil, err
	}
	return db, nil
}

func (d *Database) init(ctx context.Context) error {
	dsn, err := d.container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return oops.With("operation", "container connection string").Wrap(err)
	}
	d.DSN = dsn

	migrator, err := store.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }() //nolint:errcheck // test helper
	if err := migrator.Up(); err != nil {
		return err
	}

	d.Pool, err = store.NewPool(ctx, dsn, store.PoolOptions{MaxConns: 8})
	return err
}

// Truncate empties every application table.
func (d *Database) Truncate(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `TRUNCATE users, sessions, profiles CASCADE`)
	return err
}

// Close releases the pool and stops the container.
func (d *Database) Close(ctx context.Context) error {
	if d.Pool != nil {
		d.Pool.Close()
	}
	return d.container.Terminate(ctx)
}
