// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/internal/profile/postgres"
	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

func createOwner(ctx context.Context, t *testing.T) ulid.ULID {
	t.Helper()
	id := ulid.Make()
	_, err := testPool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, 'hash')`,
		id.String(), "u"+id.String()[:12])
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	})
	return id
}

func countProfiles(ctx context.Context, t *testing.T, userID ulid.ULID) int {
	t.Helper()
	var n int
	require.NoError(t, testPool.QueryRow(ctx,
		`SELECT count(*) FROM profiles WHERE user_id = $1`, userID.String()).Scan(&n))
	return n
}

func TestProfileStore_Integration(t *testing.T) {
	ctx := context.Background()
	s, err := profile.NewStore(postgres.NewRepository(testPool))
	require.NoError(t, err)

	a := profile.Attributes{Age: 30, Weight: 75.5, Height: 180, Level: profile.LevelRegular, Tenure: "6 months"}

	t.Run("absent then saved", func(t *testing.T) {
		owner := createOwner(ctx, t)
		_, err := s.Get(ctx, owner)
		errutil.AssertErrorCode(t, err, profile.CodeAbsent)

		_, err = s.Upsert(ctx, owner, a)
		require.NoError(t, err)

		got, err := s.Get(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, a, got.Attributes)
	})

	t.Run("upsert A then B leaves B in one row", func(t *testing.T) {
		owner := createOwner(ctx, t)
		first, err := s.Upsert(ctx, owner, a)
		require.NoError(t, err)

		b := profile.Attributes{Age: 45, Weight: 90.2, Height: 172.4, Level: profile.LevelExpert, Tenure: "20 years"}
		second, err := s.Upsert(ctx, owner, b)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

		got, err := s.Get(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, b, got.Attributes)
		assert.Equal(t, 1, countProfiles(ctx, t, owner))
	})

	t.Run("concurrent first saves keep one row", func(t *testing.T) {
		owner := createOwner(ctx, t)
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				attrs := a
				attrs.Age = 20 + i
				_, err := s.Upsert(ctx, owner, attrs)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, countProfiles(ctx, t, owner))
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := s.Upsert(ctx, ulid.Make(), a)
		errutil.AssertErrorCode(t, err, profile.CodeOwnerMissing)
	})
}
