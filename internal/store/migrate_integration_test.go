// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gymbuddy/gymbuddy/internal/store"
	"github.com/gymbuddy/gymbuddy/internal/store/storetest"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx = context.Background()
		db  *storetest.Database
	)

	BeforeAll(func() {
		var err error
		db, err = storetest.StartPostgres(ctx)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(db.Close(ctx)).To(Succeed()) })
	})

	It("is at the latest version after startup", func() {
		m, err := store.NewMigrator(db.DSN)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		version, dirty, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(dirty).To(BeFalse())
		Expect(version).To(BeEquivalentTo(2))

		pending, err := m.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})

	It("steps down and back up", func() {
		m, err := store.NewMigrator(db.DSN)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.Steps(-1)).To(Succeed())
		version, _, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeEquivalentTo(1))

		Expect(m.Up()).To(Succeed())
		version, _, err = m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeEquivalentTo(2))
	})

	It("enforces case-insensitive username uniqueness", func() {
		_, err := db.Pool.Exec(ctx,
			`INSERT INTO users (id, username, password_hash) VALUES ('u1', 'Alice', 'h')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = db.Pool.Exec(ctx,
			`INSERT INTO users (id, username, password_hash) VALUES ('u2', 'alice', 'h')`)
		var pgErr *pgconn.PgError
		Expect(errors.As(err, &pgErr)).To(BeTrue())
		Expect(pgErr.Code).To(Equal(pgerrcode.UniqueViolation))
	})

	It("cascades user deletion to sessions and profiles", func() {
		_, err := db.Pool.Exec(ctx,
			`INSERT INTO users (id, username, password_hash) VALUES ('u3', 'bob', 'h')`)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.Pool.Exec(ctx,
			`INSERT INTO sessions (id, user_id, expires_at) VALUES ('hash', 'u3', now())`)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.Pool.Exec(ctx,
			`INSERT INTO profiles (id, user_id, age, weight, height, level, tenure)
			 VALUES ('p3', 'u3', 30, 80.5, 180, 'Regular', '2 years')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = db.Pool.Exec(ctx, `DELETE FROM users WHERE id = 'u3'`)
		Expect(err).NotTo(HaveOccurred())

		var n int
		Expect(db.Pool.QueryRow(ctx,
			`SELECT (SELECT count(*) FROM sessions WHERE user_id = 'u3') + (SELECT count(*) FROM profiles WHERE user_id = 'u3')`,
		).Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())
	})

	It("rejects out-of-range profile values", func() {
		_, err := db.Pool.Exec(ctx,
			`INSERT INTO users (id, username, password_hash) VALUES ('u4', 'carol', 'h')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = db.Pool.Exec(ctx,
			`INSERT INTO profiles (id, user_id, age, weight, height, level, tenure)
			 VALUES ('p4', 'u4', 10, 80, 180, 'Regular', '')`)
		var pgErr *pgconn.PgError
		Expect(errors.As(err, &pgErr)).To(BeTrue())
		Expect(pgErr.Code).To(Equal(pgerrcode.CheckViolation))
	})
})
