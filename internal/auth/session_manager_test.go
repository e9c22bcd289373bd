// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymbuddy/gymbuddy/internal/auth"
	"github.com/gymbuddy/gymbuddy/internal/auth/authtest"
	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

func newSessionManager(t *testing.T, repo auth.SessionRepository) *auth.SessionManager {
	t.Helper()
	m, err := auth.NewSessionManager(repo)
	require.NoError(t, err)
	return m
}

func TestNewSessionManager_RequiresRepository(t *testing.T) {
	_, err := auth.NewSessionManager(nil)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_DEPENDENCY")
}

func TestSessionManager_CreateThenValidate(t *testing.T) {
	ctx := context.Background()
	repo := authtest.NewSessionRepository()
	m := newSessionManager(t, repo)
	userID := ulid.Make()

	token, expiresAt, err := m.Create(ctx, userID, time.Hour)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, err := m.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	t.Run("stores only the token hash", func(t *testing.T) {
		_, err := repo.GetByTokenHash(ctx, token)
		assert.ErrorIs(t, err, auth.ErrNotFound)

		s, err := repo.GetByTokenHash(ctx, auth.HashSessionToken(token))
		require.NoError(t, err)
		assert.Equal(t, userID, s.UserID)
	})
}

func TestSessionManager_MultipleSessionsPerUser(t *testing.T) {
	ctx := context.Background()
	m := newSessionManager(t, authtest.NewSessionRepository())
	userID := ulid.Make()

	first, _, err := m.Create(ctx, userID, time.Hour)
	require.NoError(t, err)
	second, _, err := m.Create(ctx, userID, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	require.NoError(t, m.Revoke(ctx, first))

	got, err := m.Validate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestSessionManager_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown token", func(t *testing.T) {
		m := newSessionManager(t, authtest.NewSessionRepository())
		_, err := m.Validate(ctx, "deadbeef")
		errutil.AssertErrorCode(t, err, auth.CodeSessionNotFound)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("empty token", func(t *testing.T) {
		m := newSessionManager(t, authtest.NewSessionRepository())
		_, err := m.Validate(ctx, "")
		errutil.AssertErrorCode(t, err, auth.CodeSessionNotFound)
	})

	t.Run("zero ttl is never valid", func(t *testing.T) {
		repo := authtest.NewSessionRepository()
		m := newSessionManager(t, repo)

		token, _, err := m.Create(ctx, ulid.Make(), 0)
		require.NoError(t, err)

		_, err = m.Validate(ctx, token)
		errutil.AssertErrorCode(t, err, auth.CodeSessionExpired)
	})

	t.Run("expiry equal to now is expired", func(t *testing.T) {
		repo := authtest.NewSessionRepository()
		m := newSessionManager(t, repo)
		fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		m.SetClock(func() time.Time { return fixed })

		token, _, err := m.Create(ctx, ulid.Make(), 0)
		require.NoError(t, err)

		_, err = m.Validate(ctx, token)
		errutil.AssertErrorCode(t, err, auth.CodeSessionExpired)
	})

	t.Run("expired session is deleted lazily", func(t *testing.T) {
		repo := authtest.NewSessionRepository()
		m := newSessionManager(t, repo)
		now := time.Now()
		m.SetClock(func() time.Time { return now })

		token, _, err := m.Create(ctx, ulid.Make(), time.Minute)
		require.NoError(t, err)
		require.Equal(t, 1, repo.Len())

		now = now.Add(2 * time.Minute)
		_, err = m.Validate(ctx, token)
		errutil.AssertErrorCode(t, err, auth.CodeSessionExpired)
		assert.Equal(t, 0, repo.Len())

		// Once swept, the token is simply unknown.
		_, err = m.Validate(ctx, token)
		errutil.AssertErrorCode(t, err, auth.CodeSessionNotFound)
	})

	t.Run("failed lazy delete still reports expired", func(t *testing.T) {
		repo := &failingSessionRepo{
			SessionRepository: authtest.NewSessionRepository(),
		}
		var buf bytes.Buffer
		m, err := auth.NewSessionManagerWithLogger(repo, slog.New(slog.NewJSONHandler(&buf, nil)))
		require.NoError(t, err)

		token, _, err := m.Create(ctx, ulid.Make(), -time.Second)
		require.NoError(t, err)

		repo.deleteErr = errors.New("connection reset")
		_, err = m.Validate(ctx, token)
		errutil.AssertErrorCode(t, err, auth.CodeSessionExpired)
		assert.Contains(t, buf.String(), "best-effort expired session delete failed")
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &failingSessionRepo{
			SessionRepository: authtest.NewSessionRepository(),
			getErr:            errors.New("connection refused"),
		}
		m := newSessionManager(t, repo)

		_, err := m.Validate(ctx, "token")
		errutil.AssertErrorCode(t, err, "SESSION_VALIDATE_FAILED")
	})
}

func TestSessionManager_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked token never validates", func(t *testing.T) {
		m := newSessionManager(t, authtest.NewSessionRepository())
		token, _, err := m.Create(ctx, ulid.Make(), time.Hour)
		require.NoError(t, err)

		require.NoError(t, m.Revoke(ctx, token))

		for range 3 {
			_, err = m.Validate(ctx, token)
			errutil.AssertErrorCode(t, err, auth.CodeSessionNotFound)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		m := newSessionManager(t, authtest.NewSessionRepository())
		err := m.Revoke(ctx, "unknown")
		errutil.AssertErrorCode(t, err, auth.CodeSessionNotFound)
	})

	t.Run("concurrent revokes succeed exactly once", func(t *testing.T) {
		m := newSessionManager(t, authtest.NewSessionRepository())
		token, _, err := m.Create(ctx, ulid.Make(), time.Hour)
		require.NoError(t, err)

		const workers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if m.Revoke(ctx, token) == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		_, err = m.Validate(ctx, token)
		errutil.AssertErrorCode(t, err, auth.CodeSessionNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &failingSessionRepo{
			SessionRepository: authtest.NewSessionRepository(),
			deleteErr:         errors.New("connection refused"),
		}
		m := newSessionManager(t, repo)

		err := m.Revoke(ctx, "token")
		errutil.AssertErrorCode(t, err, "SESSION_REVOKE_FAILED")
	})
}

func TestSessionManager_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	repo := authtest.NewSessionRepository()
	m := newSessionManager(t, repo)

	_, _, err := m.Create(ctx, ulid.Make(), -time.Minute)
	require.NoError(t, err)
	_, _, err = m.Create(ctx, ulid.Make(), -time.Second)
	require.NoError(t, err)
	live, _, err := m.Create(ctx, ulid.Make(), time.Hour)
	require.NoError(t, err)

	n, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, repo.Len())

	_, err = m.Validate(ctx, live)
	assert.NoError(t, err)

	t.Run("storage failure", func(t *testing.T) {
		failing := &failingSessionRepo{
			SessionRepository: authtest.NewSessionRepository(),
			purgeErr:          errors.New("timeout"),
		}
		fm := newSessionManager(t, failing)
		_, err := fm.PurgeExpired(ctx)
		errutil.AssertErrorCode(t, err, "SESSION_PURGE_FAILED")
	})
}

func TestNewSessionManagerWithOwners_RequiresUsers(t *testing.T) {
	_, err := auth.NewSessionManagerWithOwners(authtest.NewSessionRepository(), nil, nil)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_DEPENDENCY")
}

func TestSessionManager_OwnerCheck(t *testing.T) {
	ctx := context.Background()
	users := authtest.NewUserRepository()
	sessions := authtest.NewSessionRepository()
	m, err := auth.NewSessionManagerWithOwners(sessions, users, nil)
	require.NoError(t, err)

	user, err := auth.NewUser("alice", "$argon2id$stub")
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, user))

	t.Run("existing owner validates", func(t *testing.T) {
		token, _, err := m.Create(ctx, user.ID, time.Hour)
		require.NoError(t, err)

		got, err := m.Validate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got)
	})

	t.Run("missing owner is not found and the session is dropped", func(t *testing.T) {
		token, _, err := m.Create(ctx, ulid.Make(), time.Hour)
		require.NoError(t, err)

		_, err = m.Validate(ctx, token)
		errutil.AssertErrorCode(t, err, auth.CodeSessionNotFound)

		_, err = sessions.GetByTokenHash(ctx, auth.HashSessionToken(token))
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("owner lookup failure is not reported as not found", func(t *testing.T) {
		failing := &failingUserRepo{UserRepository: users, getByIDErr: errors.New("connection reset")}
		fm, err := auth.NewSessionManagerWithOwners(sessions, failing, nil)
		require.NoError(t, err)
		token, _, err := fm.Create(ctx, user.ID, time.Hour)
		require.NoError(t, err)

		_, err = fm.Validate(ctx, token)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_VALIDATE_FAILED")
	})
}
